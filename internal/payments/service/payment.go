package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "turfbook/internal/bookings/errors"
	paymentserrors "turfbook/internal/payments/errors"
	"turfbook/internal/payments/repository"
	"turfbook/internal/payments/validator"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/events"
	"turfbook/pkg/model"
	"turfbook/pkg/sanitizer"
	"turfbook/pkg/upi"
)

// BookingStore is the booking collaborator: resolution plus the two
// payment-driven mutations.
type BookingStore interface {
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	SetPayment(ctx context.Context, id string, paymentID string) error
	SetPaymentOutcome(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error
}

// SlotStore covers the slot transitions driven by verification.
type SlotStore interface {
	MarkBooked(ctx context.Context, ids []string, userID string, bookingID string) (int64, error)
	Release(ctx context.Context, ids []string) (int64, error)
}

type PaymentService interface {
	// GenerateQR builds the UPI collect payload for a pending booking.
	GenerateQR(ctx context.Context, actor *model.Actor, bookingID string) (*upi.PaymentData, error)

	// Submit records payment evidence for a booking. One payment record per
	// booking; resubmission overwrites it and resets status to pending.
	Submit(ctx context.Context, actor *model.Actor, sub *model.PaymentSubmission) (*model.Payment, error)

	// Verify applies the admin decision. On "verified" the booking is
	// confirmed and its slots booked; on "failed" the booking is cancelled
	// and its slots returned to the pool.
	Verify(ctx context.Context, actor *model.Actor, paymentID string, decision string, notes string) (*model.Payment, error)

	GetByID(ctx context.Context, actor *model.Actor, id string) (*model.Payment, error)
	GetByBooking(ctx context.Context, actor *model.Actor, bookingID string) (*model.Payment, error)
	ListPending(ctx context.Context, actor *model.Actor, limit int, offset int64) ([]*model.Payment, int64, error)
	ListForUser(ctx context.Context, actor *model.Actor, limit int, offset int64) ([]*model.Payment, error)
}

type paymentService struct {
	repo      repository.PaymentRepository
	bookings  BookingStore
	slots     SlotStore
	validator *validator.PaymentValidator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewPaymentService(
	repo repository.PaymentRepository,
	bookings BookingStore,
	slots SlotStore,
	validator *validator.PaymentValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) PaymentService {
	return &paymentService{
		repo:      repo,
		bookings:  bookings,
		slots:     slots,
		validator: validator,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *paymentService) GenerateQR(ctx context.Context, actor *model.Actor, bookingID string) (*upi.PaymentData, error) {
	booking, err := s.resolveBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	if booking.Status != model.BookingPending {
		return nil, apperrors.Conflict("Booking is not awaiting payment")
	}

	data := upi.NewPaymentData(upi.PaymentRequest{
		PayeeID:   s.cfg.UPIPayeeID,
		PayeeName: s.cfg.UPIPayeeName,
		Amount:    booking.TotalAmount,
		Note:      booking.BookingRef,
	})
	return &data, nil
}

func (s *paymentService) Submit(ctx context.Context, actor *model.Actor, sub *model.PaymentSubmission) (*model.Payment, error) {
	if sub.BookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	txnRef := upi.NormalizeTxnRef(sub.TxnRef)
	if !upi.IsValidTxnRef(txnRef) {
		return nil, apperrors.InvalidInput("Transaction reference must be at least 12 alphanumeric characters")
	}

	booking, err := s.resolveBooking(ctx, sub.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You can only submit payments for your own bookings")
	}
	if booking.Status != model.BookingPending {
		return nil, apperrors.Conflict("Booking is not awaiting payment")
	}

	// Global anti-fraud guard: one transaction reference, one booking.
	existing, err := s.repo.FindByTxnRef(ctx, txnRef)
	if err != nil && !errors.Is(err, paymentserrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to check transaction reference",
			"txn_ref", txnRef,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to submit payment", err)
	}
	if existing != nil && existing.BookingID != booking.ID {
		return nil, apperrors.Conflict("This transaction reference is already used by another booking")
	}

	method := sub.Method
	if method == "" {
		method = model.MethodUPI
	}
	amount := sub.Amount
	if amount <= 0 {
		amount = booking.TotalAmount
	}

	payment := &model.Payment{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		Amount:        amount,
		Currency:      model.DefaultCurrency,
		Method:        method,
		TxnRef:        txnRef,
		UPIID:         sanitizer.TrimAndNormalize(sub.UPIID),
		ScreenshotURL: sanitizer.TrimAndNormalize(sub.ScreenshotURL),
		Status:        model.PaymentPending,
	}

	if err := s.validator.Validate(payment); err != nil {
		return nil, apperrors.Validation("Payment validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Upsert(sessCtx, payment); err != nil {
			return err
		}
		return s.bookings.SetPayment(sessCtx, booking.ID, payment.ID)
	})
	if err != nil {
		if errors.Is(err, paymentserrors.ErrDuplicateTxnRef) {
			return nil, apperrors.Conflict("This transaction reference is already used by another booking")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to submit payment",
			"booking_id", booking.ID,
			"user_id", actor.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to submit payment", err)
	}

	s.cfg.Log.Info("Payment submitted",
		"payment_id", payment.ID,
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"txn_ref", txnRef,
		"amount", amount,
	)
	s.publishPayment(ctx, events.TypePaymentSubmitted, payment, booking)

	return payment, nil
}

func (s *paymentService) Verify(ctx context.Context, actor *model.Actor, paymentID string, decision string, notes string) (*model.Payment, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can verify payments")
	}
	if decision != string(model.PaymentVerified) && decision != string(model.PaymentFailed) {
		return nil, apperrors.InvalidInput("Decision must be 'verified' or 'failed'")
	}

	status := model.PaymentStatus(decision)

	payment, err := s.resolvePayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !payment.Status.CanTransition(status) {
		return nil, apperrors.Conflict("Payment is already " + string(payment.Status))
	}

	booking, err := s.resolveBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	// The booking may have been cancelled between Submit and Verify (user
	// cancellation or the stale-pending sweep); a terminal booking must not
	// be resurrected and its slots must not be touched.
	if !booking.Status.CanTransition(model.BookingConfirmed) {
		return nil, apperrors.Conflict("Booking is " + string(booking.Status) + " and can no longer be verified")
	}

	now := s.clock.Now()
	notes = sanitizer.NormalizeNotes(notes)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.SetOutcome(sessCtx, payment.ID, status, actor.ID, now, notes); err != nil {
			return err
		}

		if status == model.PaymentVerified {
			if err := s.bookings.SetPaymentOutcome(sessCtx, booking.ID, model.BookingConfirmed, model.BookingPaymentPaid, "", now); err != nil {
				return err
			}
			_, err := s.slots.MarkBooked(sessCtx, booking.SlotIDs, booking.UserID, booking.ID)
			return err
		}

		if err := s.bookings.SetPaymentOutcome(sessCtx, booking.ID, model.BookingCancelled, model.BookingPaymentFailed, notes, now); err != nil {
			return err
		}
		_, err := s.slots.Release(sessCtx, booking.SlotIDs)
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to verify payment",
			"payment_id", payment.ID,
			"booking_id", booking.ID,
			"decision", decision,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to verify payment", err)
	}

	payment.Status = status
	payment.VerifiedBy = actor.ID
	payment.VerifiedAt = &now
	payment.Notes = notes

	s.cfg.Log.Info("Payment verified",
		"payment_id", payment.ID,
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"decision", decision,
		"admin_id", actor.ID,
	)

	if status == model.PaymentVerified {
		s.publishPayment(ctx, events.TypePaymentVerified, payment, booking)
	} else {
		s.publishPayment(ctx, events.TypePaymentFailed, payment, booking)
	}

	return payment, nil
}

func (s *paymentService) GetByID(ctx context.Context, actor *model.Actor, id string) (*model.Payment, error) {
	payment, err := s.resolvePayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You do not have access to this payment")
	}
	return payment, nil
}

func (s *paymentService) GetByBooking(ctx context.Context, actor *model.Actor, bookingID string) (*model.Payment, error) {
	if bookingID == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	payment, err := s.repo.FindByBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, apperrors.NotFound("No payment found for booking " + bookingID)
		}
		s.cfg.Log.Error("Failed to find payment by booking", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve payment", err)
	}
	if payment.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You do not have access to this payment")
	}
	return payment, nil
}

func (s *paymentService) ListPending(ctx context.Context, actor *model.Actor, limit int, offset int64) ([]*model.Payment, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only admins can list pending payments")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	payments, err := s.repo.FindPending(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list pending payments", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve payments", err)
	}

	total, err := s.repo.CountPending(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count pending payments", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve payments", err)
	}

	return payments, total, nil
}

func (s *paymentService) ListForUser(ctx context.Context, actor *model.Actor, limit int, offset int64) ([]*model.Payment, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	payments, err := s.repo.FindByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list payments", "user_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve payments", err)
	}

	return payments, nil
}

func (s *paymentService) resolvePayment(ctx context.Context, id string) (*model.Payment, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Payment ID cannot be empty")
	}

	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Payment", id)
		}
		if errors.Is(err, paymentserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid payment ID format")
		}
		s.cfg.Log.Error("Failed to find payment", "payment_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve payment", err)
	}
	return payment, nil
}

func (s *paymentService) resolveBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.cfg.Log.Error("Failed to find booking", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *paymentService) publishPayment(ctx context.Context, eventType string, payment *model.Payment, booking *model.Booking) {
	payload := events.PaymentEvent{
		PaymentID:  payment.ID,
		BookingID:  booking.ID,
		BookingRef: booking.BookingRef,
		UserID:     payment.UserID,
		Amount:     payment.Amount,
		Method:     payment.Method,
		TxnRef:     payment.TxnRef,
		Status:     string(payment.Status),
	}
	if err := s.publisher.Publish(ctx, eventType, booking.ID, payload); err != nil {
		s.cfg.Log.Error("Failed to publish payment event",
			"event_type", eventType,
			"payment_id", payment.ID,
			"error", err,
		)
	}
}
