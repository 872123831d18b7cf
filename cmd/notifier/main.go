package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"turfbook/pkg/events"
	"turfbook/pkg/kafka"
	kafka_config "turfbook/pkg/kafka/config"
	kafka_middleware "turfbook/pkg/kafka/middleware"
	"turfbook/pkg/logger"
)

const (
	ServiceName   = "turfbook-notifier"
	ConsumerGroup = "turfbook-notifier"
)

func main() {
	log := logger.New(logger.Config{
		Level:   logger.INFO,
		Format:  logger.JSON,
		Service: ServiceName,
	})

	kafkaCfg := kafka_config.Load()
	notifier := &notifier{log: log}

	consumer, err := kafka.NewConsumer(kafkaCfg, events.TopicBookings, ConsumerGroup, events.TopicDLQ, notifier.handle)
	if err != nil {
		log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware())
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Info("Shutdown signal received", "signal", s.String())
		cancel()
	}()

	log.Info("Starting notifier", "topic", events.TopicBookings, "group", ConsumerGroup)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("Consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		log.Error("Failed to close consumer", "error", err)
	}
	log.Info("Notifier stopped")
}

type notifier struct {
	log *logger.Logger
}

// handle routes each lifecycle event to a notification. Delivery is a log
// line for now; the WhatsApp sender plugs in here once it is provisioned.
func (n *notifier) handle(ctx context.Context, msg kafka.Message) error {
	eventType := msg.GetEventType()

	switch eventType {
	case events.TypeBookingCreated, events.TypeBookingConfirmed, events.TypeBookingCancelled:
		var ev events.BookingEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		n.notifyBooking(eventType, &ev)
	case events.TypePaymentSubmitted, events.TypePaymentVerified, events.TypePaymentFailed:
		var ev events.PaymentEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			return fmt.Errorf("failed to decode %s event: %w", eventType, err)
		}
		n.notifyPayment(eventType, &ev)
	default:
		n.log.Warn("Skipping unknown event type", "event_type", eventType, "event_id", msg.GetEventID())
	}
	return nil
}

func (n *notifier) notifyBooking(eventType string, ev *events.BookingEvent) {
	n.log.Info("Booking notification",
		"event_type", eventType,
		"booking_ref", ev.BookingRef,
		"user_id", ev.UserID,
		"turf_id", ev.TurfID,
		"date", ev.Date.Format("2006-01-02"),
		"start_time", ev.StartTime,
		"end_time", ev.EndTime,
		"total_amount", ev.TotalAmount,
		"status", ev.Status,
		"reason", ev.Reason,
	)
}

func (n *notifier) notifyPayment(eventType string, ev *events.PaymentEvent) {
	n.log.Info("Payment notification",
		"event_type", eventType,
		"booking_ref", ev.BookingRef,
		"user_id", ev.UserID,
		"amount", ev.Amount,
		"method", ev.Method,
		"status", ev.Status,
	)
}
