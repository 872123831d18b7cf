package service

import (
	"context"
	"strings"
	"testing"
	"time"

	bookingserrors "turfbook/internal/bookings/errors"
	bookingsvalidator "turfbook/internal/bookings/validator"
	slotserrors "turfbook/internal/slots/errors"
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
type mockBookingRepository struct {
	createFunc            func(ctx context.Context, booking *model.Booking) error
	findByIDFunc          func(ctx context.Context, id string) (*model.Booking, error)
	findByRefFunc         func(ctx context.Context, ref string) (*model.Booking, error)
	findByUserFunc        func(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	countByUserFunc       func(ctx context.Context, userID string) (int64, error)
	findAllFunc           func(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	countFunc             func(ctx context.Context, filter *model.BookingFilter) (int64, error)
	cancelFunc            func(ctx context.Context, id string, reason string, at time.Time) error
	setPaymentFunc        func(ctx context.Context, id string, paymentID string) error
	setPaymentOutcomeFunc func(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error
	setInvoiceURLFunc     func(ctx context.Context, id string, url string) error
	statsFunc             func(ctx context.Context, today time.Time) (*model.BookingStats, error)
	findStalePendingFunc  func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, booking)
	}
	booking.ID = "665f1f77bcf86cd799439111"
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByRef(ctx context.Context, ref string) (*model.Booking, error) {
	if m.findByRefFunc != nil {
		return m.findByRefFunc(ctx, ref)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	if m.findByUserFunc != nil {
		return m.findByUserFunc(ctx, userID, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	if m.countByUserFunc != nil {
		return m.countByUserFunc(ctx, userID)
	}
	return 0, nil
}

func (m *mockBookingRepository) FindAll(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, filter, limit, offset)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Count(ctx context.Context, filter *model.BookingFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, filter)
	}
	return 0, nil
}

func (m *mockBookingRepository) Cancel(ctx context.Context, id string, reason string, at time.Time) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, id, reason, at)
	}
	return nil
}

func (m *mockBookingRepository) SetPayment(ctx context.Context, id string, paymentID string) error {
	if m.setPaymentFunc != nil {
		return m.setPaymentFunc(ctx, id, paymentID)
	}
	return nil
}

func (m *mockBookingRepository) SetPaymentOutcome(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error {
	if m.setPaymentOutcomeFunc != nil {
		return m.setPaymentOutcomeFunc(ctx, id, status, paymentStatus, reason, at)
	}
	return nil
}

func (m *mockBookingRepository) SetInvoiceURL(ctx context.Context, id string, url string) error {
	if m.setInvoiceURLFunc != nil {
		return m.setInvoiceURLFunc(ctx, id, url)
	}
	return nil
}

func (m *mockBookingRepository) Stats(ctx context.Context, today time.Time) (*model.BookingStats, error) {
	if m.statsFunc != nil {
		return m.statsFunc(ctx, today)
	}
	return &model.BookingStats{}, nil
}

func (m *mockBookingRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	if m.findStalePendingFunc != nil {
		return m.findStalePendingFunc(ctx, cutoff)
	}
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

// Mock slot store for testing
type mockSlotStore struct {
	findByIDFunc            func(ctx context.Context, id string) (*model.Slot, error)
	findByIDsFunc           func(ctx context.Context, ids []string) ([]*model.Slot, error)
	releaseExpiredFunc      func(ctx context.Context, ids []string, now time.Time, lockDuration time.Duration) (int64, error)
	releaseLocksOwnedByFunc func(ctx context.Context, ids []string, userID string) (int64, error)
	attachBookingFunc       func(ctx context.Context, ids []string, userID string, bookingID string, now time.Time) (int64, error)
	markBookedFunc          func(ctx context.Context, ids []string, userID string, bookingID string) (int64, error)
	releaseFunc             func(ctx context.Context, ids []string) (int64, error)
}

func (m *mockSlotStore) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, slotserrors.ErrNotFound
}

func (m *mockSlotStore) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	if m.findByIDsFunc != nil {
		return m.findByIDsFunc(ctx, ids)
	}
	return []*model.Slot{}, nil
}

func (m *mockSlotStore) ReleaseExpired(ctx context.Context, ids []string, now time.Time, lockDuration time.Duration) (int64, error) {
	if m.releaseExpiredFunc != nil {
		return m.releaseExpiredFunc(ctx, ids, now, lockDuration)
	}
	return int64(len(ids)), nil
}

func (m *mockSlotStore) ReleaseLocksOwnedBy(ctx context.Context, ids []string, userID string) (int64, error) {
	if m.releaseLocksOwnedByFunc != nil {
		return m.releaseLocksOwnedByFunc(ctx, ids, userID)
	}
	return int64(len(ids)), nil
}

func (m *mockSlotStore) AttachBooking(ctx context.Context, ids []string, userID string, bookingID string, now time.Time) (int64, error) {
	if m.attachBookingFunc != nil {
		return m.attachBookingFunc(ctx, ids, userID, bookingID, now)
	}
	return int64(len(ids)), nil
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

// Publisher recording every published event.
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
		SlotLockDuration:  180 * time.Second,
		PendingBookingTTL: 30 * time.Minute,
	}
}

func newTestService(repo *mockBookingRepository, slots *mockSlotStore, clk clock.Clock, publisher events.Publisher) *bookingService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &bookingService{
		repo:      repo,
		slots:     slots,
		validator: bookingsvalidator.NewBookingValidator(),
		publisher: publisher,
		clock:     clk,
		cfg:       testConfig(),
	}
}

var (
	testUser  = &model.Actor{ID: "665f1f77bcf86cd799439011", Role: model.RoleUser, Name: "Asha Rao", Phone: "+919876543210"}
	otherUser = &model.Actor{ID: "665f1f77bcf86cd799439022", Role: model.RoleUser, Name: "Vikram Shah", Phone: "+919812345678"}
	testAdmin = &model.Actor{ID: "665f1f77bcf86cd799439033", Role: model.RoleAdmin, Name: "Counter Admin", Phone: "+919800000000"}
)

func lockedSlot(id string, startTime string, endTime string, userID string, lockedAt time.Time) *model.Slot {
	return &model.Slot{
		ID:        id,
		TurfID:    "665f1f77bcf86cd799439099",
		Date:      time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		StartTime: startTime,
		EndTime:   endTime,
		Price:     500,
		Status:    model.SlotLocked,
		LockedBy:  userID,
		LockedAt:  &lockedAt,
	}
}

func TestCreate_MultiSlotAggregation(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)

	// Resolved out of id order; the booking must sort by start time.
	s2 := lockedSlot("665f1f77bcf86cd799439002", "10:00", "11:00", testUser.ID, lockedAt)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, lockedAt)

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s2, s1}, nil
		},
	}
	repo := &mockBookingRepository{}
	publisher := &recordingPublisher{}

	service := newTestService(repo, slots, clk, publisher)
	booking, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s2.ID, s1.ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.TotalAmount != 1000 {
		t.Errorf("expected total 1000, got %v", booking.TotalAmount)
	}
	if booking.StartTime != "09:00" || booking.EndTime != "11:00" {
		t.Errorf("expected window 09:00-11:00, got %s-%s", booking.StartTime, booking.EndTime)
	}
	if booking.Status != model.BookingPending {
		t.Errorf("expected status pending, got %s", booking.Status)
	}
	if booking.PaymentStatus != model.BookingPaymentPending {
		t.Errorf("expected payment status pending, got %s", booking.PaymentStatus)
	}
	if !strings.HasPrefix(booking.BookingRef, "SB") || len(booking.BookingRef) != 12 {
		t.Errorf("unexpected booking ref %q", booking.BookingRef)
	}
	if booking.CustomerDetails.Name != "Asha Rao" {
		t.Errorf("expected customer name from actor profile, got %q", booking.CustomerDetails.Name)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != events.TypeBookingCreated {
		t.Errorf("expected booking.created event, got %v", publisher.eventTypes)
	}
}

func TestCreate_EmptySlotList(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	service := newTestService(&mockBookingRepository{}, &mockSlotStore{}, clk, nil)

	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{})
	assertAppError(t, err, apperrors.CodeInvalidInput)
}

func TestCreate_MissingSlot(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, lockedAt)

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1}, nil
		},
	}

	service := newTestService(&mockBookingRepository{}, slots, clk, nil)
	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID, "665f1f77bcf86cd799439999"},
	})
	assertAppError(t, err, apperrors.CodeNotFound)
}

func TestCreate_CrossTurf(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, lockedAt)
	s2 := lockedSlot("665f1f77bcf86cd799439002", "10:00", "11:00", testUser.ID, lockedAt)
	s2.TurfID = "665f1f77bcf86cd799439098"

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1, s2}, nil
		},
	}

	service := newTestService(&mockBookingRepository{}, slots, clk, nil)
	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID, s2.ID},
	})
	assertAppError(t, err, apperrors.CodeInvalidInput)
}

func TestCreate_SlotLockedByAnotherUser(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", otherUser.ID, lockedAt)

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1}, nil
		},
	}

	service := newTestService(&mockBookingRepository{}, slots, clk, nil)
	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID},
	})
	assertAppError(t, err, apperrors.CodeConflict)
}

// An expired lock at checkout is released on the spot so retries see
// accurate availability, then reported as a conflict.
func TestCreate_ExpiredLockReleasedAndRejected(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	staleAt := clk.Current.Add(-200 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, staleAt)

	var releasedIDs []string
	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1}, nil
		},
		releaseExpiredFunc: func(ctx context.Context, ids []string, now time.Time, lockDuration time.Duration) (int64, error) {
			releasedIDs = ids
			return int64(len(ids)), nil
		},
	}

	service := newTestService(&mockBookingRepository{}, slots, clk, nil)
	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID},
	})
	assertAppError(t, err, apperrors.CodeConflict)
	if len(releasedIDs) != 1 || releasedIDs[0] != s1.ID {
		t.Errorf("expected expired slot released, got %v", releasedIDs)
	}
}

// A lock seized between validation and commit surfaces as a conflict from
// the attach count check inside the transaction.
func TestCreate_LockSeizedBeforeCommit(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, lockedAt)

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1}, nil
		},
		attachBookingFunc: func(ctx context.Context, ids []string, userID string, bookingID string, now time.Time) (int64, error) {
			return 0, nil
		},
	}
	publisher := &recordingPublisher{}

	service := newTestService(&mockBookingRepository{}, slots, clk, publisher)
	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID},
	})
	assertAppError(t, err, apperrors.CodeConflict)
	if len(publisher.eventTypes) != 0 {
		t.Errorf("expected no events on failed create, got %v", publisher.eventTypes)
	}
}

func TestCreate_RetriesDuplicateRef(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, lockedAt)

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1}, nil
		},
	}

	attempts := 0
	repo := &mockBookingRepository{
		createFunc: func(ctx context.Context, booking *model.Booking) error {
			attempts++
			if attempts == 1 {
				return bookingserrors.ErrDuplicateRef
			}
			booking.ID = "665f1f77bcf86cd799439111"
			return nil
		},
	}

	service := newTestService(repo, slots, clk, nil)
	booking, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 create attempts, got %d", attempts)
	}
	if booking.BookingRef == "" {
		t.Error("expected booking ref to be set")
	}
}

func TestCreateOffline_BooksImmediately(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	slot := &model.Slot{
		ID:        "665f1f77bcf86cd799439001",
		TurfID:    "665f1f77bcf86cd799439099",
		Date:      time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		StartTime: "09:00",
		EndTime:   "10:00",
		Price:     500,
		Status:    model.SlotAvailable,
	}

	var bookedIDs []string
	slots := &mockSlotStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Slot, error) {
			return slot, nil
		},
		markBookedFunc: func(ctx context.Context, ids []string, userID string, bookingID string) (int64, error) {
			bookedIDs = ids
			return int64(len(ids)), nil
		},
	}
	publisher := &recordingPublisher{}

	service := newTestService(&mockBookingRepository{}, slots, clk, publisher)
	booking, err := service.CreateOffline(context.Background(), testAdmin, &model.OfflineBookingRequest{
		SlotID: slot.ID,
		CustomerDetails: model.CustomerDetails{
			Name:  "Walk-in Customer",
			Phone: "9876501234",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if booking.Status != model.BookingConfirmed {
		t.Errorf("expected status confirmed, got %s", booking.Status)
	}
	if booking.PaymentStatus != model.BookingPaymentPaid {
		t.Errorf("expected payment status paid, got %s", booking.PaymentStatus)
	}
	if booking.TotalAmount != 500 {
		t.Errorf("expected amount defaulted to slot price 500, got %v", booking.TotalAmount)
	}
	if len(bookedIDs) != 1 || bookedIDs[0] != slot.ID {
		t.Errorf("expected slot marked booked, got %v", bookedIDs)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != events.TypeBookingConfirmed {
		t.Errorf("expected booking.confirmed event, got %v", publisher.eventTypes)
	}
}

func TestCreateOffline_NonAdmin(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	service := newTestService(&mockBookingRepository{}, &mockSlotStore{}, clk, nil)

	_, err := service.CreateOffline(context.Background(), testUser, &model.OfflineBookingRequest{
		SlotID: "665f1f77bcf86cd799439001",
	})
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestGetByID_OwnerOnly(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, UserID: testUser.ID}, nil
		},
	}

	service := newTestService(repo, &mockSlotStore{}, clk, nil)

	if _, err := service.GetByID(context.Background(), testUser, "665f1f77bcf86cd799439111"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if _, err := service.GetByID(context.Background(), testAdmin, "665f1f77bcf86cd799439111"); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
	_, err := service.GetByID(context.Background(), otherUser, "665f1f77bcf86cd799439111")
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestCancel_ReleasesSlots(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	booking := &model.Booking{
		ID:      "665f1f77bcf86cd799439111",
		UserID:  testUser.ID,
		SlotIDs: []string{"665f1f77bcf86cd799439001", "665f1f77bcf86cd799439002"},
		Status:  model.BookingPending,
	}

	var cancelledID string
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return booking, nil
		},
		cancelFunc: func(ctx context.Context, id string, reason string, at time.Time) error {
			cancelledID = id
			return nil
		},
	}

	var releasedIDs []string
	slots := &mockSlotStore{
		releaseFunc: func(ctx context.Context, ids []string) (int64, error) {
			releasedIDs = ids
			return int64(len(ids)), nil
		},
	}
	publisher := &recordingPublisher{}

	service := newTestService(repo, slots, clk, publisher)
	if err := service.Cancel(context.Background(), testUser, booking.ID, "change of plans"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cancelledID != booking.ID {
		t.Errorf("expected cancel of %s, got %s", booking.ID, cancelledID)
	}
	if len(releasedIDs) != 2 {
		t.Errorf("expected 2 slots released, got %v", releasedIDs)
	}
	if len(publisher.eventTypes) != 1 || publisher.eventTypes[0] != events.TypeBookingCancelled {
		t.Errorf("expected booking.cancelled event, got %v", publisher.eventTypes)
	}
}

func TestCancel_TerminalBooking(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, UserID: testUser.ID, Status: model.BookingCancelled}, nil
		},
	}

	service := newTestService(repo, &mockSlotStore{}, clk, nil)
	err := service.Cancel(context.Background(), testUser, "665f1f77bcf86cd799439111", "")
	assertAppError(t, err, apperrors.CodeConflict)
}

func TestCancel_OthersBooking(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, UserID: otherUser.ID, Status: model.BookingPending}, nil
		},
	}

	service := newTestService(repo, &mockSlotStore{}, clk, nil)
	err := service.Cancel(context.Background(), testUser, "665f1f77bcf86cd799439111", "")
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestSweepStalePending(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	stale := []*model.Booking{
		{ID: "665f1f77bcf86cd799439111", UserID: testUser.ID, SlotIDs: []string{"665f1f77bcf86cd799439001"}, Status: model.BookingPending},
		{ID: "665f1f77bcf86cd799439112", UserID: otherUser.ID, SlotIDs: []string{"665f1f77bcf86cd799439002"}, Status: model.BookingPending},
	}

	var gotCutoff time.Time
	repo := &mockBookingRepository{
		findStalePendingFunc: func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
			gotCutoff = cutoff
			return stale, nil
		},
	}

	released := 0
	owners := make(map[string]string)
	slots := &mockSlotStore{
		releaseLocksOwnedByFunc: func(ctx context.Context, ids []string, userID string) (int64, error) {
			released += len(ids)
			for _, id := range ids {
				owners[id] = userID
			}
			return int64(len(ids)), nil
		},
		releaseFunc: func(ctx context.Context, ids []string) (int64, error) {
			t.Errorf("sweep must not release slots unconditionally, got %v", ids)
			return 0, nil
		},
	}
	publisher := &recordingPublisher{}

	service := newTestService(repo, slots, clk, publisher)
	swept, err := service.SweepStalePending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if swept != 2 {
		t.Errorf("expected 2 swept, got %d", swept)
	}
	if released != 2 {
		t.Errorf("expected 2 slots released, got %d", released)
	}
	if owners["665f1f77bcf86cd799439001"] != testUser.ID || owners["665f1f77bcf86cd799439002"] != otherUser.ID {
		t.Errorf("expected releases scoped to each booking's owner, got %v", owners)
	}
	wantCutoff := clk.Current.Add(-30 * time.Minute)
	if !gotCutoff.Equal(wantCutoff) {
		t.Errorf("expected cutoff %v, got %v", wantCutoff, gotCutoff)
	}
	if len(publisher.eventTypes) != 2 {
		t.Errorf("expected 2 cancellation events, got %v", publisher.eventTypes)
	}
}

// By the time the pending TTL fires the slot locks expired long ago, so a
// slot may already be locked or booked by another user. The owner-scoped
// release matches nothing in that case and must leave the slot alone,
// while the stale booking is still cancelled.
func TestSweepStalePending_LeavesReacquiredSlotsAlone(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	stale := []*model.Booking{
		{ID: "665f1f77bcf86cd799439111", UserID: testUser.ID, SlotIDs: []string{"665f1f77bcf86cd799439001"}, Status: model.BookingPending},
	}

	var cancelledID string
	repo := &mockBookingRepository{
		findStalePendingFunc: func(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
			return stale, nil
		},
		cancelFunc: func(ctx context.Context, id string, reason string, at time.Time) error {
			cancelledID = id
			return nil
		},
	}

	slots := &mockSlotStore{
		releaseLocksOwnedByFunc: func(ctx context.Context, ids []string, userID string) (int64, error) {
			// The slot now belongs to another user's booking; the filter
			// matches nothing.
			return 0, nil
		},
		releaseFunc: func(ctx context.Context, ids []string) (int64, error) {
			t.Errorf("sweep must not clear slots it no longer owns, got %v", ids)
			return 0, nil
		},
	}

	service := newTestService(repo, slots, clk, nil)
	swept, err := service.SweepStalePending(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if swept != 1 {
		t.Errorf("expected 1 swept, got %d", swept)
	}
	if cancelledID != stale[0].ID {
		t.Errorf("expected booking %s cancelled, got %q", stale[0].ID, cancelledID)
	}
}

func TestCreate_CrossDate(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	lockedAt := clk.Current.Add(-30 * time.Second)
	s1 := lockedSlot("665f1f77bcf86cd799439001", "09:00", "10:00", testUser.ID, lockedAt)
	s2 := lockedSlot("665f1f77bcf86cd799439002", "10:00", "11:00", testUser.ID, lockedAt)
	s2.Date = s1.Date.AddDate(0, 0, 1)

	slots := &mockSlotStore{
		findByIDsFunc: func(ctx context.Context, ids []string) ([]*model.Slot, error) {
			return []*model.Slot{s1, s2}, nil
		},
	}

	service := newTestService(&mockBookingRepository{}, slots, clk, nil)
	_, err := service.Create(context.Background(), testUser, &model.BookingRequest{
		SlotIDs: []string{s1.ID, s2.ID},
	})
	assertAppError(t, err, apperrors.CodeInvalidInput)
}

func TestSetInvoiceURL_RecordsReference(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, UserID: testUser.ID, Status: model.BookingConfirmed}, nil
		},
	}

	var gotURL string
	repo.setInvoiceURLFunc = func(ctx context.Context, id string, url string) error {
		gotURL = url
		return nil
	}

	service := newTestService(repo, &mockSlotStore{}, clk, nil)
	err := service.SetInvoiceURL(context.Background(), testAdmin, "665f1f77bcf86cd799439111", "  https://cdn.example.com/invoices/SB2609150042.pdf ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotURL != "https://cdn.example.com/invoices/SB2609150042.pdf" {
		t.Errorf("expected trimmed invoice URL persisted, got %q", gotURL)
	}
}

func TestSetInvoiceURL_PendingBooking(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			return &model.Booking{ID: id, UserID: testUser.ID, Status: model.BookingPending}, nil
		},
	}

	service := newTestService(repo, &mockSlotStore{}, clk, nil)
	err := service.SetInvoiceURL(context.Background(), testAdmin, "665f1f77bcf86cd799439111", "https://cdn.example.com/invoices/x.pdf")
	assertAppError(t, err, apperrors.CodeConflict)
}

func TestSetInvoiceURL_NonAdmin(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	service := newTestService(&mockBookingRepository{}, &mockSlotStore{}, clk, nil)

	err := service.SetInvoiceURL(context.Background(), testUser, "665f1f77bcf86cd799439111", "https://cdn.example.com/invoices/x.pdf")
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestStats_NonAdmin(t *testing.T) {
	clk := &clock.Fixed{Current: time.Date(2026, 9, 15, 8, 0, 0, 0, time.UTC)}
	service := newTestService(&mockBookingRepository{}, &mockSlotStore{}, clk, nil)

	_, err := service.Stats(context.Background(), testUser)
	assertAppError(t, err, apperrors.CodeForbidden)
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
