package service

import (
	"context"
	"testing"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	paymentserrors "turfbook/internal/payments/errors"
	paymentsvalidator "turfbook/internal/payments/validator"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/events"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// Mock repository for testing
type mockPaymentRepository struct {
	upsertFunc        func(ctx context.Context, payment *model.Payment) error
	findByIDFunc      func(ctx context.Context, id string) (*model.Payment, error)
	findByBookingFunc func(ctx context.Context, bookingID string) (*model.Payment, error)
	findByTxnRefFunc  func(ctx context.Context, txnRef string) (*model.Payment, error)
	findPendingFunc   func(ctx context.Context, limit int, offset int64) ([]*model.Payment, error)
	countPendingFunc  func(ctx context.Context) (int64, error)
	findByUserFunc    func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Payment, error)
	setOutcomeFunc    func(ctx context.Context, id string, status model.PaymentStatus, verifiedBy string, verifiedAt time.Time, notes string) error
}

func (m *mockPaymentRepository) Upsert(ctx context.Context, payment *model.Payment) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, payment)
	}
	payment.ID = "665f1f77bcf86cd799439211"
	return nil
}

func (m *mockPaymentRepository) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, paymentserrors.ErrNotFound
}

func (m *mockPaymentRepository) FindByBooking(ctx context.Context, bookingID string) (*model.Payment, error) {
	if m.findByBookingFunc != nil {
		return m.findByBookingFunc(ctx, bookingID)
	}
	return nil, paymentserrors.ErrNotFound
}

func (m *mockPaymentRepository) FindByTxnRef(ctx context.Context, txnRef string) (*model.Payment, error) {
	if m.findByTxnRefFunc != nil {
		return m.findByTxnRefFunc(ctx, txnRef)
	}
	return nil, paymentserrors.ErrNotFound
}

func (m *mockPaymentRepository) FindPending(ctx context.Context, limit int, offset int64) ([]*model.Payment, error) {
	if m.findPendingFunc != nil {
		return m.findPendingFunc(ctx, limit, offset)
	}
	return []*model.Payment{}, nil
}

func (m *mockPaymentRepository) CountPending(ctx context.Context) (int64, error) {
	if m.countPendingFunc != nil {
		return m.countPendingFunc(ctx)
	}
	return 0, nil
}

func (m *mockPaymentRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Payment, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return []*model.Payment{}, nil
}

func (m *mockPaymentRepository) SetOutcome(ctx context.Context, id string, status model.PaymentStatus, verifiedBy string, verifiedAt time.Time, notes string) error {
	if m.setOutcomeFunc != nil {
		return m.setOutcomeFunc(ctx, id, status, verifiedBy, verifiedAt, notes)
	}
	return nil
}

func (m *mockPaymentRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

// Mock booking store for testing
type mockBookingStore struct {
	findByIDFunc          func(ctx context.Context, id string) (*model.Booking, error)
	setPaymentFunc        func(ctx context.Context, id string, paymentID string) error
	setPaymentOutcomeFunc func(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error
}

func (m *mockBookingStore) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingStore) SetPayment(ctx context.Context, id string, paymentID string) error {
	if m.setPaymentFunc != nil {
		return m.setPaymentFunc(ctx, id, paymentID)
	}
	return nil
}

func (m *mockBookingStore) SetPaymentOutcome(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error {
	if m.setPaymentOutcomeFunc != nil {
		return m.setPaymentOutcomeFunc(ctx, id, status, paymentStatus, reason, at)
	}
	return nil
}

type mockSlotStore struct {
	markBookedFunc func(ctx context.Context, ids []string, userID string, bookingID string) (int64, error)
	releaseFunc    func(ctx context.Context, ids []string) (int64, error)
}

func (m *mockSlotStore) MarkBooked(ctx context.Context, ids []string, userID string, bookingID string) (int64, error) {
	if m.markBookedFunc != nil {
		return m.markBookedFunc(ctx, ids, userID, bookingID)
	}
	return int64(len(ids)), nil
}

func (m *mockSlotStore) Release(ctx context.Context, ids []string) (int64, error) {
	if m.releaseFunc != nil {
		return m.releaseFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

type recordingPublisher struct {
	eventTypes []string
}

func (p *recordingPublisher) Publish(ctx context.Context, eventType string, key string, payload any) error {
	p.eventTypes = append(p.eventTypes, eventType)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		UPIPayeeID:   "turfbook@okicici",
		UPIPayeeName: "Turfbook",
	}
}

func newTestService(repo *mockPaymentRepository, bookings *mockBookingStore, slots *mockSlotStore, publisher events.Publisher) *paymentService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &paymentService{
		repo:      repo,
		bookings:  bookings,
		slots:     slots,
		validator: paymentsvalidator.NewPaymentValidator(),
		publisher: publisher,
		clock:     &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)},
		cfg:       testConfig(),
	}
}

var (
	testUser  = &model.Actor{ID: "665f1f77bcf86cd799439011", Role: model.RoleUser}
	otherUser = &model.Actor{ID: "665f1f77bcf86cd799439022", Role: model.RoleUser}
	testAdmin = &model.Actor{ID: "665f1f77bcf86cd799439033", Role: model.RoleAdmin}
)

func pendingBooking() *model.Booking {
	return &model.Booking{
		ID:            "665f1f77bcf86cd799439111",
		BookingRef:    "SB2609150042",
		UserID:        testUser.ID,
		TurfID:        "665f1f77bcf86cd799439099",
		SlotIDs:       []string{"665f1f77bcf86cd799439001", "665f1f77bcf86cd799439002"},
		TotalAmount:   1000,
		Status:        model.BookingPending,
		PaymentStatus: model.BookingPaymentPending,
	}
}

func TestSubmit_NormalizesTxnRef(t *testing.T) {
	booking := pendingBooking()
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	repo := &mockPaymentRepository{}
	publisher := &recordingPublisher{}

	service := newTestService(repo, bookings, &mockSlotStore{}, publisher)
	payment, err := service.Submit(context.Background(), testUser, &model.PaymentSubmission{
		BookingID: booking.ID,
		TxnRef:    "  xyz999999999 ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if payment.TxnRef != "XYZ999999999" {
		t.Errorf("expected normalized txn ref XYZ999999999, got %q", payment.TxnRef)
	}
	if payment.Method != model.MethodUPI {
		t.Errorf("expected method defaulted to UPI, got %q", payment.Method)
	}
	if payment.Amount != 1000 {
		t.Errorf("expected amount defaulted to booking total, got %v", payment.Amount)
	}
	if payment.Status != model.PaymentPending {
		t.Errorf("expected status pending, got %s", payment.Status)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != events.TypePaymentSubmitted {
		t.Errorf("expected payment.submitted event, got %v", publisher.eventTypes)
	}
}

func TestSubmit_ShortTxnRef(t *testing.T) {
	service := newTestService(&mockPaymentRepository{}, &mockBookingStore{}, &mockSlotStore{}, nil)

	_, err := service.Submit(context.Background(), testUser, &model.PaymentSubmission{
		BookingID: "665f1f77bcf86cd799439111",
		TxnRef:    "ABC123",
	})
	assertAppError(t, err, apperrors.CodeInvalidInput)
}

func TestSubmit_TxnRefClaimedByAnotherBooking(t *testing.T) {
	booking := pendingBooking()
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	repo := &mockPaymentRepository{
		findByTxnRefFunc: func(ctx context.Context, txnRef string) (*model.Payment, error) {
			return &model.Payment{
				ID:        "665f1f77bcf86cd799439299",
				BookingID: "665f1f77bcf86cd799439222",
				TxnRef:    txnRef,
			}, nil
		},
	}

	service := newTestService(repo, bookings, &mockSlotStore{}, nil)
	_, err := service.Submit(context.Background(), testUser, &model.PaymentSubmission{
		BookingID: booking.ID,
		TxnRef:    "ABC123456789",
	})
	assertAppError(t, err, apperrors.CodeConflict)
}

// Resubmitting for the same booking with the same reference overwrites the
// existing record rather than conflicting.
func TestSubmit_ResubmissionSameBooking(t *testing.T) {
	booking := pendingBooking()
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}
	repo := &mockPaymentRepository{
		findByTxnRefFunc: func(ctx context.Context, txnRef string) (*model.Payment, error) {
			return &model.Payment{
				ID:        "665f1f77bcf86cd799439211",
				BookingID: booking.ID,
				TxnRef:    txnRef,
			}, nil
		},
	}

	service := newTestService(repo, bookings, &mockSlotStore{}, nil)
	payment, err := service.Submit(context.Background(), testUser, &model.PaymentSubmission{
		BookingID: booking.ID,
		TxnRef:    "ABC123456789",
		UPIID:     "asha@okaxis",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.UPIID != "asha@okaxis" {
		t.Errorf("expected resubmitted UPI id, got %q", payment.UPIID)
	}
}

func TestSubmit_OthersBooking(t *testing.T) {
	booking := pendingBooking()
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}

	service := newTestService(&mockPaymentRepository{}, bookings, &mockSlotStore{}, nil)
	_, err := service.Submit(context.Background(), otherUser, &model.PaymentSubmission{
		BookingID: booking.ID,
		TxnRef:    "ABC123456789",
	})
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestVerify_ConfirmsBookingAndBooksSlots(t *testing.T) {
	booking := pendingBooking()
	payment := &model.Payment{
		ID:        "665f1f77bcf86cd799439211",
		BookingID: booking.ID,
		UserID:    testUser.ID,
		Amount:    1000,
		Method:    model.MethodUPI,
		TxnRef:    "ABC123456789",
		Status:    model.PaymentPending,
	}

	repo := &mockPaymentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Payment, error) {
			return payment, nil
		},
	}

	var outcomeStatus model.BookingStatus
	var outcomePayment model.BookingPaymentStatus
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		setPaymentOutcomeFunc: func(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error {
			outcomeStatus = status
			outcomePayment = paymentStatus
			return nil
		},
	}

	var bookedIDs []string
	slots := &mockSlotStore{
		markBookedFunc: func(ctx context.Context, ids []string, userID string, bookingID string) (int64, error) {
			bookedIDs = ids
			return int64(len(ids)), nil
		},
		releaseFunc: func(ctx context.Context, ids []string) (int64, error) {
			t.Fatal("release must not run on a verified payment")
			return 0, nil
		},
	}
	publisher := &recordingPublisher{}

	service := newTestService(repo, bookings, slots, publisher)
	verified, err := service.Verify(context.Background(), testAdmin, payment.ID, "verified", "matches bank statement")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if verified.Status != model.PaymentVerified {
		t.Errorf("expected status verified, got %s", verified.Status)
	}
	if verified.VerifiedBy != testAdmin.ID {
		t.Errorf("expected verified_by %s, got %s", testAdmin.ID, verified.VerifiedBy)
	}
	if outcomeStatus != model.BookingConfirmed || outcomePayment != model.BookingPaymentPaid {
		t.Errorf("expected booking confirmed/paid, got %s/%s", outcomeStatus, outcomePayment)
	}
	if len(bookedIDs) != 2 {
		t.Errorf("expected 2 slots booked, got %v", bookedIDs)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != events.TypePaymentVerified {
		t.Errorf("expected payment.verified event, got %v", publisher.eventTypes)
	}
}

func TestVerify_RejectionCancelsBookingAndReleasesSlots(t *testing.T) {
	booking := pendingBooking()
	payment := &model.Payment{
		ID:        "665f1f77bcf86cd799439211",
		BookingID: booking.ID,
		UserID:    testUser.ID,
		Status:    model.PaymentPending,
	}

	repo := &mockPaymentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Payment, error) {
			return payment, nil
		},
	}

	var outcomeStatus model.BookingStatus
	var outcomeReason string
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		setPaymentOutcomeFunc: func(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error {
			outcomeStatus = status
			outcomeReason = reason
			return nil
		},
	}

	var releasedIDs []string
	slots := &mockSlotStore{
		markBookedFunc: func(ctx context.Context, ids []string, userID string, bookingID string) (int64, error) {
			t.Fatal("mark booked must not run on a failed payment")
			return 0, nil
		},
		releaseFunc: func(ctx context.Context, ids []string) (int64, error) {
			releasedIDs = ids
			return int64(len(ids)), nil
		},
	}
	publisher := &recordingPublisher{}

	service := newTestService(repo, bookings, slots, publisher)
	failed, err := service.Verify(context.Background(), testAdmin, payment.ID, "failed", "amount mismatch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if failed.Status != model.PaymentFailed {
		t.Errorf("expected status failed, got %s", failed.Status)
	}
	if outcomeStatus != model.BookingCancelled {
		t.Errorf("expected booking cancelled, got %s", outcomeStatus)
	}
	if outcomeReason != "amount mismatch" {
		t.Errorf("expected cancellation reason recorded, got %q", outcomeReason)
	}
	if len(releasedIDs) != 2 {
		t.Errorf("expected 2 slots released, got %v", releasedIDs)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != events.TypePaymentFailed {
		t.Errorf("expected payment.failed event, got %v", publisher.eventTypes)
	}
}

// A booking cancelled between submission and review (user cancellation or
// the stale-pending sweep) must not be resurrected by verification, and its
// slots must not be touched in either direction.
func TestVerify_CancelledBooking(t *testing.T) {
	for _, decision := range []string{"verified", "failed"} {
		booking := pendingBooking()
		booking.Status = model.BookingCancelled
		payment := &model.Payment{
			ID:        "665f1f77bcf86cd799439211",
			BookingID: booking.ID,
			UserID:    testUser.ID,
			Status:    model.PaymentPending,
		}

		repo := &mockPaymentRepository{
			findByIDFunc: func(ctx context.Context, id string) (*model.Payment, error) {
				return payment, nil
			},
		}
		bookings := &mockBookingStore{
			findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
				return booking, nil
			},
			setPaymentOutcomeFunc: func(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error {
				t.Errorf("decision %q must not change a cancelled booking", decision)
				return nil
			},
		}
		slots := &mockSlotStore{
			markBookedFunc: func(ctx context.Context, ids []string, userID string, bookingID string) (int64, error) {
				t.Errorf("decision %q must not book slots of a cancelled booking, got %v", decision, ids)
				return 0, nil
			},
			releaseFunc: func(ctx context.Context, ids []string) (int64, error) {
				t.Errorf("decision %q must not release slots of a cancelled booking, got %v", decision, ids)
				return 0, nil
			},
		}

		service := newTestService(repo, bookings, slots, nil)
		_, err := service.Verify(context.Background(), testAdmin, payment.ID, decision, "")
		assertAppError(t, err, apperrors.CodeConflict)
	}
}

func TestVerify_NonAdmin(t *testing.T) {
	service := newTestService(&mockPaymentRepository{}, &mockBookingStore{}, &mockSlotStore{}, nil)

	_, err := service.Verify(context.Background(), testUser, "665f1f77bcf86cd799439211", "verified", "")
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestVerify_InvalidDecision(t *testing.T) {
	service := newTestService(&mockPaymentRepository{}, &mockBookingStore{}, &mockSlotStore{}, nil)

	_, err := service.Verify(context.Background(), testAdmin, "665f1f77bcf86cd799439211", "maybe", "")
	assertAppError(t, err, apperrors.CodeInvalidInput)
}

func TestVerify_AlreadyDecided(t *testing.T) {
	repo := &mockPaymentRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Payment, error) {
			return &model.Payment{ID: id, Status: model.PaymentVerified}, nil
		},
	}

	service := newTestService(repo, &mockBookingStore{}, &mockSlotStore{}, nil)
	_, err := service.Verify(context.Background(), testAdmin, "665f1f77bcf86cd799439211", "failed", "")
	assertAppError(t, err, apperrors.CodeConflict)
}

func TestGenerateQR_PendingBookingOnly(t *testing.T) {
	booking := pendingBooking()
	booking.Status = model.BookingConfirmed
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}

	service := newTestService(&mockPaymentRepository{}, bookings, &mockSlotStore{}, nil)
	_, err := service.GenerateQR(context.Background(), testUser, booking.ID)
	assertAppError(t, err, apperrors.CodeConflict)
}

func TestGenerateQR_BuildsCollectPayload(t *testing.T) {
	booking := pendingBooking()
	bookings := &mockBookingStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
	}

	service := newTestService(&mockPaymentRepository{}, bookings, &mockSlotStore{}, nil)
	data, err := service.GenerateQR(context.Background(), testUser, booking.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.Amount != 1000 {
		t.Errorf("expected amount 1000, got %v", data.Amount)
	}
	if data.PayeeID != "turfbook@okicici" {
		t.Errorf("expected configured payee id, got %q", data.PayeeID)
	}
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%s)", code, appErr.Code, appErr.Message)
	}
}
