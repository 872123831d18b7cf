package main

import (
	"context"
	"time"

	bookingshandler "turfbook/internal/bookings/handler"
	bookingsrepository "turfbook/internal/bookings/repository"
	bookingsservice "turfbook/internal/bookings/service"
	bookingsvalidator "turfbook/internal/bookings/validator"
	healthhandler "turfbook/internal/health/handler"
	paymentshandler "turfbook/internal/payments/handler"
	paymentsrepository "turfbook/internal/payments/repository"
	paymentsservice "turfbook/internal/payments/service"
	paymentsvalidator "turfbook/internal/payments/validator"
	slotshandler "turfbook/internal/slots/handler"
	slotsrepository "turfbook/internal/slots/repository"
	slotsservice "turfbook/internal/slots/service"
	slotsvalidator "turfbook/internal/slots/validator"
	turfshandler "turfbook/internal/turfs/handler"
	turfsrepository "turfbook/internal/turfs/repository"
	turfsservice "turfbook/internal/turfs/service"
	turfsvalidator "turfbook/internal/turfs/validator"
	"turfbook/pkg/app"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	"turfbook/pkg/events"
	"turfbook/pkg/kafka"
	kafka_config "turfbook/pkg/kafka/config"
	kafka_middleware "turfbook/pkg/kafka/middleware"
)

const ServiceName = "turfbook"

type services struct {
	turfs    turfsservice.TurfService
	slots    slotsservice.SlotService
	bookings bookingsservice.BookingService
	payments paymentsservice.PaymentService
	producer *kafka.Producer
}

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Turfbook service")
	svcs := initServices(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		healthhandler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		turfshandler.NewTurfHandler(svcs.turfs, cfg.Log),
		slotshandler.NewSlotHandler(svcs.slots, cfg.Log),
		bookingshandler.NewBookingHandler(svcs.bookings, cfg.Log),
		paymentshandler.NewPaymentHandler(svcs.payments, cfg.Log),
	)

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	go runSweeps(sweepCtx, cfg, svcs)
	serverApp.OnShutdown(stopSweeps)

	if svcs.producer != nil {
		serverApp.OnShutdown(func() {
			if err := svcs.producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		})
	}

	serverApp.Run()
}

func initServices(cfg *config.Config) *services {
	clk := clock.Real()

	var publisher events.Publisher = events.Noop{}
	var producer *kafka.Producer
	if cfg.EventsEnabled {
		kafkaCfg := kafka_config.Load()
		p, err := kafka.NewProducer(kafkaCfg, events.TopicBookings, events.TopicDLQ)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		p.Use(kafka_middleware.MetricsProducerMiddleware())
		producer = p
		publisher = events.NewKafkaPublisher(p, ServiceName)
		cfg.Log.Info("Kafka event publishing enabled", "topic", events.TopicBookings)
	}

	turfRepo := turfsrepository.NewMongoTurfRepository(cfg)
	turfService := turfsservice.NewTurfService(turfRepo, turfsvalidator.NewTurfValidator(), cfg)

	slotRepo := slotsrepository.NewMongoSlotRepository(cfg)
	slotService := slotsservice.NewSlotService(slotRepo, turfService, slotsvalidator.NewSlotValidator(), clk, cfg)

	bookingRepo := bookingsrepository.NewMongoBookingRepository(cfg)
	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		slotRepo,
		bookingsvalidator.NewBookingValidator(),
		publisher,
		clk,
		cfg,
	)

	paymentRepo := paymentsrepository.NewMongoPaymentRepository(cfg)
	paymentService := paymentsservice.NewPaymentService(
		paymentRepo,
		bookingRepo,
		slotRepo,
		paymentsvalidator.NewPaymentValidator(),
		publisher,
		clk,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return &services{
		turfs:    turfService,
		slots:    slotService,
		bookings: bookingService,
		payments: paymentService,
		producer: producer,
	}
}

// runSweeps is the safety net for state nobody reads again: expired slot
// locks and pending bookings whose payment never arrived.
func runSweeps(ctx context.Context, cfg *config.Config, svcs *services) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, cfg, svcs)
		}
	}
}

func sweepOnce(ctx context.Context, cfg *config.Config, svcs *services) {
	sweepCtx, cancel := context.WithTimeout(ctx, cfg.SweepInterval)
	defer cancel()

	if _, err := svcs.slots.SweepExpiredLocks(sweepCtx); err != nil {
		cfg.Log.Error("Expired lock sweep failed", "error", err)
	}
	if _, err := svcs.bookings.SweepStalePending(sweepCtx); err != nil {
		cfg.Log.Error("Stale pending booking sweep failed", "error", err)
	}
}
