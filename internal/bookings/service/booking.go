package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/internal/bookings/repository"
	"turfbook/internal/bookings/validator"
	slotserrors "turfbook/internal/slots/errors"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/events"
	"turfbook/pkg/model"
	"turfbook/pkg/sanitizer"
	"turfbook/pkg/timeutil"
)

// refRetries bounds regeneration attempts when a booking reference collides.
const refRetries = 3

// SlotStore is the slice of the slot repository the reservation engine
// needs: resolution, lock release and the booked-state transitions.
type SlotStore interface {
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error)
	ReleaseExpired(ctx context.Context, ids []string, now time.Time, lockDuration time.Duration) (int64, error)
	ReleaseLocksOwnedBy(ctx context.Context, ids []string, userID string) (int64, error)
	AttachBooking(ctx context.Context, ids []string, userID string, bookingID string, now time.Time) (int64, error)
	MarkBooked(ctx context.Context, ids []string, userID string, bookingID string) (int64, error)
	Release(ctx context.Context, ids []string) (int64, error)
}

type BookingService interface {
	// Create validates lock ownership across all requested slots and creates
	// a pending booking. Slots stay locked until payment verification.
	Create(ctx context.Context, actor *model.Actor, req *model.BookingRequest) (*model.Booking, error)

	// CreateOffline records an admin cash sale for one slot, booking it
	// immediately with a confirmed, paid booking.
	CreateOffline(ctx context.Context, actor *model.Actor, req *model.OfflineBookingRequest) (*model.Booking, error)

	GetByID(ctx context.Context, actor *model.Actor, id string) (*model.Booking, error)
	GetByRef(ctx context.Context, actor *model.Actor, ref string) (*model.Booking, error)
	ListForUser(ctx context.Context, actor *model.Actor, limit int, offset int64) ([]*model.Booking, int64, error)
	ListAll(ctx context.Context, actor *model.Actor, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)

	Cancel(ctx context.Context, actor *model.Actor, id string, reason string) error
	Stats(ctx context.Context, actor *model.Actor) (*model.BookingStats, error)

	// SetInvoiceURL records the invoice artifact reference produced by the
	// invoice generator for a confirmed booking.
	SetInvoiceURL(ctx context.Context, actor *model.Actor, id string, url string) error

	// SweepStalePending cancels pending bookings that never received a
	// payment submission within the configured TTL, releasing their slots.
	SweepStalePending(ctx context.Context) (int, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	slots     SlotStore
	validator *validator.BookingValidator
	publisher events.Publisher
	clock     clock.Clock
	cfg       *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	slots SlotStore,
	validator *validator.BookingValidator,
	publisher events.Publisher,
	clk clock.Clock,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		slots:     slots,
		validator: validator,
		publisher: publisher,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *bookingService) Create(ctx context.Context, actor *model.Actor, req *model.BookingRequest) (*model.Booking, error) {
	if len(req.SlotIDs) == 0 {
		return nil, apperrors.InvalidInput("At least one slot is required")
	}

	slots, err := s.slots.FindByIDs(ctx, req.SlotIDs)
	if err != nil {
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("One or more slot IDs are malformed")
		}
		s.cfg.Log.Error("Failed to resolve slots for booking",
			"user_id", actor.ID,
			"slot_ids", req.SlotIDs,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to resolve slots", err)
	}
	if len(slots) != len(req.SlotIDs) {
		return nil, apperrors.NotFound("One or more slots not found")
	}

	turfID := slots[0].TurfID
	date := slots[0].Date
	for _, slot := range slots[1:] {
		if slot.TurfID != turfID {
			return nil, apperrors.InvalidInput("All slots must belong to the same turf")
		}
		if !slot.Date.Equal(date) {
			return nil, apperrors.InvalidInput("All slots must be on the same date")
		}
	}

	now := s.clock.Now()
	for _, slot := range slots {
		if slot.IsLockExpired(now, s.cfg.SlotLockDuration) {
			continue // classified below
		}
		if slot.Status != model.SlotLocked || slot.LockedBy != actor.ID {
			return nil, apperrors.Conflict("One or more slots are not locked by you")
		}
	}

	var expiredIDs []string
	for _, slot := range slots {
		if slot.IsLockExpired(now, s.cfg.SlotLockDuration) {
			expiredIDs = append(expiredIDs, slot.ID)
		}
	}
	if len(expiredIDs) > 0 {
		// Self-healing: put the expired slots back in the pool before
		// reporting, so a retry sees accurate availability.
		if _, releaseErr := s.slots.ReleaseExpired(ctx, expiredIDs, now, s.cfg.SlotLockDuration); releaseErr != nil {
			s.cfg.Log.Error("Failed to release expired locks during booking",
				"slot_ids", expiredIDs,
				"error", releaseErr,
			)
		}
		return nil, apperrors.Conflict("Slot lock has expired, please lock the slots again")
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime < slots[j].StartTime
	})

	var total float64
	slotIDs := make([]string, 0, len(slots))
	for _, slot := range slots {
		total += slot.Price
		slotIDs = append(slotIDs, slot.ID)
	}

	booking := &model.Booking{
		UserID:          actor.ID,
		TurfID:          turfID,
		SlotIDs:         slotIDs,
		Date:            date,
		StartTime:       slots[0].StartTime,
		EndTime:         slots[len(slots)-1].EndTime,
		TotalAmount:     total,
		Status:          model.BookingPending,
		PaymentStatus:   model.BookingPaymentPending,
		CustomerDetails: s.customerDetails(actor, req.CustomerDetails),
		NumberOfPlayers: req.NumberOfPlayers,
		SpecialRequests: sanitizer.NormalizeNotes(req.SpecialRequests),
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.createWithRef(sessCtx, booking); err != nil {
			return err
		}

		attached, err := s.slots.AttachBooking(sessCtx, slotIDs, actor.ID, booking.ID, now)
		if err != nil {
			return err
		}
		if attached != int64(len(slotIDs)) {
			// A lock changed hands between validation and here.
			return apperrors.Conflict("One or more slots are no longer locked by you")
		}
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to create booking",
			"user_id", actor.ID,
			"slot_ids", slotIDs,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"user_id", actor.ID,
		"turf_id", turfID,
		"slots", len(slotIDs),
		"total_amount", total,
	)
	s.publish(ctx, events.TypeBookingCreated, booking, "")

	return booking, nil
}

// createWithRef inserts the booking, regenerating the human-readable
// reference on collision.
func (s *bookingService) createWithRef(ctx context.Context, booking *model.Booking) error {
	for attempt := 0; attempt < refRetries; attempt++ {
		booking.BookingRef = model.NewBookingRef(s.clock.Now())

		if err := s.validator.Validate(booking); err != nil {
			return apperrors.Validation("Booking validation failed", map[string]any{
				"error": err.Error(),
			})
		}

		err := s.repo.Create(ctx, booking)
		if err == nil {
			return nil
		}
		if !errors.Is(err, bookingserrors.ErrDuplicateRef) {
			return err
		}
	}
	return apperrors.Internal("Failed to allocate a booking reference", bookingserrors.ErrDuplicateRef)
}

func (s *bookingService) CreateOffline(ctx context.Context, actor *model.Actor, req *model.OfflineBookingRequest) (*model.Booking, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can record offline bookings")
	}
	if req.SlotID == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.slots.FindByID(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, slotserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Slot", req.SlotID)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid slot ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve slot", err)
	}
	if slot.Status == model.SlotBooked {
		return nil, apperrors.Conflict("Slot is already booked")
	}

	amount := req.AmountPaid
	if amount <= 0 {
		amount = slot.Price
	}

	booking := &model.Booking{
		UserID:          actor.ID,
		TurfID:          slot.TurfID,
		SlotIDs:         []string{slot.ID},
		Date:            slot.Date,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		TotalAmount:     amount,
		Status:          model.BookingConfirmed,
		PaymentStatus:   model.BookingPaymentPaid,
		CustomerDetails: s.customerDetails(actor, req.CustomerDetails),
		NumberOfPlayers: req.NumberOfPlayers,
		SpecialRequests: sanitizer.NormalizeNotes(req.SpecialRequests),
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.createWithRef(sessCtx, booking); err != nil {
			return err
		}
		_, err := s.slots.MarkBooked(sessCtx, []string{slot.ID}, actor.ID, booking.ID)
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		s.cfg.Log.Error("Failed to create offline booking",
			"slot_id", req.SlotID,
			"admin_id", actor.ID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create offline booking", err)
	}

	s.cfg.Log.Info("Offline booking created",
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"slot_id", slot.ID,
		"admin_id", actor.ID,
	)
	s.publish(ctx, events.TypeBookingConfirmed, booking, "")

	return booking, nil
}

func (s *bookingService) GetByID(ctx context.Context, actor *model.Actor, id string) (*model.Booking, error) {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return booking, nil
}

func (s *bookingService) GetByRef(ctx context.Context, actor *model.Actor, ref string) (*model.Booking, error) {
	if ref == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	booking, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFound("Booking not found: " + ref)
		}
		s.cfg.Log.Error("Failed to find booking by ref", "booking_ref", ref, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("You do not have access to this booking")
	}
	return booking, nil
}

func (s *bookingService) ListForUser(ctx context.Context, actor *model.Actor, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.repo.FindByUser(ctx, actor.ID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list bookings", "user_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	total, err := s.repo.CountByUser(ctx, actor.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to count bookings", "user_id", actor.ID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, total, nil
}

func (s *bookingService) ListAll(ctx context.Context, actor *model.Actor, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperrors.Forbidden("Only admins can list all bookings")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	bookings, err := s.repo.FindAll(ctx, filter, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list all bookings", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to count all bookings", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}

	return bookings, total, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor *model.Actor, id string, reason string) error {
	booking, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.UserID != actor.ID && !actor.IsAdmin() {
		return apperrors.Forbidden("You can only cancel your own bookings")
	}
	if !booking.Status.CanTransition(model.BookingCancelled) {
		return apperrors.Conflict("Booking is already " + string(booking.Status))
	}

	now := s.clock.Now()
	reason = sanitizer.NormalizeNotes(reason)

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Cancel(sessCtx, booking.ID, reason, now); err != nil {
			return err
		}
		_, err := s.slots.Release(sessCtx, booking.SlotIDs)
		return err
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		s.cfg.Log.Error("Failed to cancel booking",
			"booking_id", booking.ID,
			"user_id", actor.ID,
			"error", err,
		)
		return apperrors.Internal("Failed to cancel booking", err)
	}

	s.cfg.Log.Info("Booking cancelled",
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"user_id", actor.ID,
		"reason", reason,
	)
	booking.Status = model.BookingCancelled
	s.publish(ctx, events.TypeBookingCancelled, booking, reason)

	return nil
}

func (s *bookingService) Stats(ctx context.Context, actor *model.Actor) (*model.BookingStats, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only admins can view booking stats")
	}

	today := timeutil.DateOnly(s.clock.Now())
	stats, err := s.repo.Stats(ctx, today)
	if err != nil {
		s.cfg.Log.Error("Failed to compute booking stats", "error", err)
		return nil, apperrors.Internal("Failed to compute booking stats", err)
	}
	return stats, nil
}

func (s *bookingService) SetInvoiceURL(ctx context.Context, actor *model.Actor, id string, url string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can attach invoices")
	}

	url = sanitizer.TrimAndNormalize(url)
	if url == "" {
		return apperrors.InvalidInput("Invoice URL cannot be empty")
	}

	booking, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.Status != model.BookingConfirmed && booking.Status != model.BookingCompleted {
		return apperrors.Conflict("Invoices can only be attached to confirmed bookings")
	}

	if err := s.repo.SetInvoiceURL(ctx, booking.ID, url); err != nil {
		s.cfg.Log.Error("Failed to set invoice URL",
			"booking_id", booking.ID,
			"error", err,
		)
		return apperrors.Internal("Failed to attach invoice", err)
	}

	s.cfg.Log.Info("Invoice attached",
		"booking_id", booking.ID,
		"booking_ref", booking.BookingRef,
		"admin_id", actor.ID,
	)
	return nil
}

func (s *bookingService) SweepStalePending(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.cfg.PendingBookingTTL)

	stale, err := s.repo.FindStalePending(ctx, cutoff)
	if err != nil {
		s.cfg.Log.Error("Failed to find stale pending bookings", "error", err)
		return 0, err
	}

	swept := 0
	for _, booking := range stale {
		b := booking
		err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if err := s.repo.Cancel(sessCtx, b.ID, "Payment window expired", now); err != nil {
				return err
			}
			// The slot locks expired long before the booking TTL fired, so
			// other users may hold or have booked these slots by now. Only
			// locks still owned by the stale booking's user are released.
			_, err := s.slots.ReleaseLocksOwnedBy(sessCtx, b.SlotIDs, b.UserID)
			return err
		})
		if err != nil {
			s.cfg.Log.Error("Failed to sweep stale booking",
				"booking_id", b.ID,
				"error", err,
			)
			continue
		}
		swept++
		b.Status = model.BookingCancelled
		s.publish(ctx, events.TypeBookingCancelled, b, "Payment window expired")
	}

	if swept > 0 {
		s.cfg.Log.Info("Swept stale pending bookings", "count", swept)
	}
	return swept, nil
}

func (s *bookingService) findByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
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

// customerDetails fills any omitted contact field from the actor's profile.
func (s *bookingService) customerDetails(actor *model.Actor, details model.CustomerDetails) model.CustomerDetails {
	name := sanitizer.NormalizeName(details.Name)
	if name == "" {
		name = sanitizer.NormalizeName(actor.Name)
	}
	email := sanitizer.NormalizeEmail(details.Email)
	if email == "" {
		email = sanitizer.NormalizeEmail(actor.Email)
	}
	phone := sanitizer.NormalizePhone(details.Phone)
	if phone == "" {
		phone = sanitizer.NormalizePhone(actor.Phone)
	}
	return model.CustomerDetails{Name: name, Email: email, Phone: phone}
}

func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking, reason string) {
	payload := events.BookingEvent{
		BookingID:   booking.ID,
		BookingRef:  booking.BookingRef,
		UserID:      booking.UserID,
		TurfID:      booking.TurfID,
		Date:        booking.Date,
		StartTime:   booking.StartTime,
		EndTime:     booking.EndTime,
		TotalAmount: booking.TotalAmount,
		Status:      string(booking.Status),
		Reason:      reason,
	}
	if err := s.publisher.Publish(ctx, eventType, booking.ID, payload); err != nil {
		s.cfg.Log.Error("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
	}
}
