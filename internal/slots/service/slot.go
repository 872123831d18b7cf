package service

import (
	"context"
	"errors"
	"time"

	slotserrors "turfbook/internal/slots/errors"
	"turfbook/internal/slots/repository"
	"turfbook/internal/slots/validator"
	"turfbook/pkg/clock"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/timeutil"
)

// TurfLookup is the venue collaborator: slot generation needs operating
// hours and the hourly price, nothing else.
type TurfLookup interface {
	GetByID(ctx context.Context, id string) (*model.Turf, error)
}

type SlotService interface {
	GetByTurfAndDate(ctx context.Context, turfID string, date string) ([]*model.Slot, error)
	GetByID(ctx context.Context, id string) (*model.Slot, error)

	// Lock acquires or refreshes a lock on a slot. Returns the updated slot
	// and the lock duration in seconds for client countdowns.
	Lock(ctx context.Context, actor *model.Actor, id string) (*model.Slot, int, error)
	Unlock(ctx context.Context, actor *model.Actor, id string) error

	// Generate creates slots covering the turf's operating hours for every
	// day in [fromDate, toDate]. Existing slots are skipped. Returns the
	// number of slots actually created.
	Generate(ctx context.Context, actor *model.Actor, turfID string, fromDate string, toDate string, durationMin int) (int, error)

	Create(ctx context.Context, actor *model.Actor, slot *model.Slot) error
	Delete(ctx context.Context, actor *model.Actor, id string) error

	// SweepExpiredLocks releases every expired lock in the store. Run
	// periodically as the safety net for locks nobody reads again.
	SweepExpiredLocks(ctx context.Context) (int64, error)
}

type slotService struct {
	repo      repository.SlotRepository
	turfs     TurfLookup
	validator *validator.SlotValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewSlotService(
	repo repository.SlotRepository,
	turfs TurfLookup,
	validator *validator.SlotValidator,
	clk clock.Clock,
	cfg *config.Config,
) SlotService {
	return &slotService{
		repo:      repo,
		turfs:     turfs,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

func (s *slotService) GetByTurfAndDate(ctx context.Context, turfID string, date string) ([]*model.Slot, error) {
	if turfID == "" {
		return nil, apperrors.InvalidInput("Turf ID cannot be empty")
	}

	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	slots, err := s.repo.FindByTurfAndDate(ctx, turfID, day)
	if err != nil {
		s.cfg.Log.Error("Failed to find slots",
			"turf_id", turfID,
			"date", date,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve slots", err)
	}

	return s.reconcile(ctx, slots), nil
}

func (s *slotService) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.mapLookupError(id, err)
	}

	reconciled := s.reconcile(ctx, []*model.Slot{slot})
	return reconciled[0], nil
}

// reconcile applies lazy lock expiry to a read result: any slot whose lock
// has outlived the configured duration is reset to available, in storage and
// in the returned view. A client never observes a stale lock.
func (s *slotService) reconcile(ctx context.Context, slots []*model.Slot) []*model.Slot {
	now := s.clock.Now()

	var expiredIDs []string
	for _, slot := range slots {
		if slot.IsLockExpired(now, s.cfg.SlotLockDuration) {
			expiredIDs = append(expiredIDs, slot.ID)
		}
	}
	if len(expiredIDs) == 0 {
		return slots
	}

	released, err := s.repo.ReleaseExpired(ctx, expiredIDs, now, s.cfg.SlotLockDuration)
	if err != nil {
		// Reads still present the logically-correct state; storage catches
		// up on the next write or the periodic sweep.
		s.cfg.Log.Error("Failed to release expired locks on read",
			"slot_ids", expiredIDs,
			"error", err,
		)
	} else if released > 0 {
		s.cfg.Log.Info("Released expired slot locks", "count", released)
	}

	for _, slot := range slots {
		if slot.IsLockExpired(now, s.cfg.SlotLockDuration) {
			slot.ClearLock()
		}
	}
	return slots
}

func (s *slotService) Lock(ctx context.Context, actor *model.Actor, id string) (*model.Slot, int, error) {
	if id == "" {
		return nil, 0, apperrors.InvalidInput("Slot ID cannot be empty")
	}

	now := s.clock.Now()

	// Pre-read for error classification only; the conditional update below
	// is what closes the check-then-set race.
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, 0, s.mapLookupError(id, err)
	}
	if !current.Status.CanTransition(model.SlotLocked) {
		return nil, 0, apperrors.Conflict("Slot is already booked")
	}

	slot, err := s.repo.Lock(ctx, id, actor.ID, now, s.cfg.SlotLockDuration)
	if err != nil {
		if errors.Is(err, slotserrors.ErrLockConflict) {
			return nil, 0, apperrors.Conflict("Slot is locked by another user")
		}
		s.cfg.Log.Error("Failed to lock slot",
			"slot_id", id,
			"user_id", actor.ID,
			"error", err,
		)
		return nil, 0, apperrors.Internal("Failed to lock slot", err)
	}

	s.cfg.Log.Info("Slot locked",
		"slot_id", id,
		"user_id", actor.ID,
		"expires_in", s.cfg.SlotLockDuration,
	)

	return slot, int(s.cfg.SlotLockDuration.Seconds()), nil
}

func (s *slotService) Unlock(ctx context.Context, actor *model.Actor, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return s.mapLookupError(id, err)
	}

	if err := s.repo.Unlock(ctx, id, actor.ID); err != nil {
		if errors.Is(err, slotserrors.ErrNotLockOwner) {
			return apperrors.Forbidden("Slot is not locked by you")
		}
		s.cfg.Log.Error("Failed to unlock slot",
			"slot_id", id,
			"user_id", actor.ID,
			"error", err,
		)
		return apperrors.Internal("Failed to unlock slot", err)
	}

	s.cfg.Log.Info("Slot unlocked", "slot_id", id, "user_id", actor.ID)
	return nil
}

func (s *slotService) Generate(ctx context.Context, actor *model.Actor, turfID string, fromDate string, toDate string, durationMin int) (int, error) {
	if !actor.IsAdmin() {
		return 0, apperrors.Forbidden("Only admins can generate slots")
	}
	if turfID == "" {
		return 0, apperrors.InvalidInput("Turf ID cannot be empty")
	}
	if durationMin <= 0 {
		durationMin = s.cfg.SlotDurationMin
	}

	from, err := parseDate(fromDate)
	if err != nil {
		return 0, err
	}
	to, err := parseDate(toDate)
	if err != nil {
		return 0, err
	}
	if to.Before(from) {
		return 0, apperrors.InvalidInput("End date must not be before start date")
	}

	turf, err := s.turfs.GetByID(ctx, turfID)
	if err != nil {
		return 0, err
	}

	open, err := timeutil.ParseMinutes(turf.OperatingHours.Open)
	if err != nil {
		return 0, apperrors.Internal("Turf has invalid operating hours", err)
	}
	closeAt, err := timeutil.ParseMinutes(turf.OperatingHours.Close)
	if err != nil {
		return 0, apperrors.Internal("Turf has invalid operating hours", err)
	}

	var slots []*model.Slot
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		for start := open; start+durationMin <= closeAt; start += durationMin {
			slots = append(slots, &model.Slot{
				TurfID:    turfID,
				Date:      day,
				StartTime: timeutil.FormatMinutes(start),
				EndTime:   timeutil.FormatMinutes(start + durationMin),
				// Flat hourly rate regardless of slot duration.
				Price:  turf.PricePerHour,
				Status: model.SlotAvailable,
			})
		}
	}

	created, err := s.repo.CreateMany(ctx, slots)
	if err != nil {
		s.cfg.Log.Error("Failed to generate slots",
			"turf_id", turfID,
			"from", fromDate,
			"to", toDate,
			"error", err,
		)
		return 0, apperrors.Internal("Failed to generate slots", err)
	}

	s.cfg.Log.Info("Slots generated",
		"turf_id", turfID,
		"from", fromDate,
		"to", toDate,
		"requested", len(slots),
		"created", created,
	)

	return created, nil
}

func (s *slotService) Create(ctx context.Context, actor *model.Actor, slot *model.Slot) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can create slots")
	}

	slot.Date = timeutil.DateOnly(slot.Date)
	slot.Status = model.SlotAvailable
	slot.LockedBy = ""
	slot.LockedAt = nil
	slot.BookedBy = ""
	slot.BookingID = ""

	if err := s.validator.Validate(slot); err != nil {
		return apperrors.Validation("Slot validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if _, err := s.turfs.GetByID(ctx, slot.TurfID); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, slot); err != nil {
		if errors.Is(err, slotserrors.ErrDuplicateSlot) {
			return apperrors.Conflict("A slot already exists for this turf, date and start time")
		}
		s.cfg.Log.Error("Failed to create slot",
			"turf_id", slot.TurfID,
			"start_time", slot.StartTime,
			"error", err,
		)
		return apperrors.Internal("Failed to create slot", err)
	}

	s.cfg.Log.Info("Slot created",
		"slot_id", slot.ID,
		"turf_id", slot.TurfID,
		"start_time", slot.StartTime,
	)
	return nil
}

func (s *slotService) Delete(ctx context.Context, actor *model.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can delete slots")
	}
	if id == "" {
		return apperrors.InvalidInput("Slot ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, slotserrors.ErrBooked) {
			return apperrors.Conflict("Cannot delete a booked slot")
		}
		if errors.Is(err, slotserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Slot", id)
		}
		if errors.Is(err, slotserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid slot ID format")
		}
		s.cfg.Log.Error("Failed to delete slot", "slot_id", id, "error", err)
		return apperrors.Internal("Failed to delete slot", err)
	}

	s.cfg.Log.Info("Slot deleted", "slot_id", id)
	return nil
}

func (s *slotService) SweepExpiredLocks(ctx context.Context) (int64, error) {
	released, err := s.repo.ReleaseAllExpired(ctx, s.clock.Now(), s.cfg.SlotLockDuration)
	if err != nil {
		s.cfg.Log.Error("Failed to sweep expired locks", "error", err)
		return 0, err
	}
	if released > 0 {
		s.cfg.Log.Info("Swept expired slot locks", "count", released)
	}
	return released, nil
}

func (s *slotService) mapLookupError(id string, err error) error {
	if errors.Is(err, slotserrors.ErrNotFound) {
		return apperrors.NotFoundWithID("Slot", id)
	}
	if errors.Is(err, slotserrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid slot ID format")
	}
	s.cfg.Log.Error("Failed to look up slot", "slot_id", id, "error", err)
	return apperrors.Internal("Failed to retrieve slot", err)
}

func parseDate(date string) (time.Time, error) {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput("Invalid date, expected YYYY-MM-DD")
	}
	return timeutil.DateOnly(parsed), nil
}
