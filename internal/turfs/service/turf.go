package service

import (
	"context"
	"errors"

	turfserrors "turfbook/internal/turfs/errors"
	"turfbook/internal/turfs/repository"
	"turfbook/internal/turfs/validator"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/model"
	"turfbook/pkg/sanitizer"
)

type TurfService interface {
	Create(ctx context.Context, actor *model.Actor, turf *model.Turf) error
	GetByID(ctx context.Context, id string) (*model.Turf, error)
	GetAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Turf, int64, error)
	Update(ctx context.Context, actor *model.Actor, id string, updates *model.TurfUpdate) error
	Delete(ctx context.Context, actor *model.Actor, id string) error
}

type turfService struct {
	repo      repository.TurfRepository
	validator *validator.TurfValidator
	cfg       *config.Config
}

func NewTurfService(
	repo repository.TurfRepository,
	validator *validator.TurfValidator,
	cfg *config.Config,
) TurfService {
	return &turfService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *turfService) Create(ctx context.Context, actor *model.Actor, turf *model.Turf) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can create turfs")
	}

	s.sanitize(turf)
	s.applyDefaults(turf)
	turf.CreatedBy = actor.ID

	if err := s.validator.Validate(turf); err != nil {
		s.cfg.Log.Warn("Turf validation failed",
			"name", turf.Name,
			"error", err,
		)
		return apperrors.Validation("Turf validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Create(ctx, turf); err != nil {
		if errors.Is(err, turfserrors.ErrDuplicateName) {
			return apperrors.Conflict("A turf with this name already exists in this city")
		}
		s.cfg.Log.Error("Failed to create turf",
			"name", turf.Name,
			"error", err,
		)
		return apperrors.Internal("Failed to create turf", err)
	}

	s.cfg.Log.Info("Turf created",
		"id", turf.ID,
		"name", turf.Name,
		"city", turf.Location.City,
		"price_per_hour", turf.PricePerHour,
	)

	return nil
}

func (s *turfService) GetByID(ctx context.Context, id string) (*model.Turf, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Turf ID cannot be empty")
	}

	turf, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Turf", id)
		}
		if errors.Is(err, turfserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid turf ID format")
		}
		s.cfg.Log.Error("Failed to get turf by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve turf", err)
	}

	return turf, nil
}

func (s *turfService) GetAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Turf, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	turfs, err := s.repo.FindAll(ctx, activeOnly, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to list turfs", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve turfs", err)
	}

	total, err := s.repo.Count(ctx, activeOnly)
	if err != nil {
		s.cfg.Log.Error("Failed to count turfs", "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve turfs", err)
	}

	return turfs, total, nil
}

func (s *turfService) Update(ctx context.Context, actor *model.Actor, id string, updates *model.TurfUpdate) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can update turfs")
	}
	if id == "" {
		return apperrors.InvalidInput("Turf ID cannot be empty")
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return apperrors.Validation("Turf update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	turf, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	s.applyUpdates(turf, updates)
	s.sanitize(turf)

	if err := s.validator.Validate(turf); err != nil {
		return apperrors.Validation("Turf update validation failed", map[string]any{
			"error": err.Error(),
		})
	}

	if err := s.repo.Update(ctx, id, turf); err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Turf", id)
		}
		s.cfg.Log.Error("Failed to update turf",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to update turf", err)
	}

	s.cfg.Log.Info("Turf updated", "id", id)
	return nil
}

func (s *turfService) Delete(ctx context.Context, actor *model.Actor, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only admins can delete turfs")
	}
	if id == "" {
		return apperrors.InvalidInput("Turf ID cannot be empty")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, turfserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Turf", id)
		}
		if errors.Is(err, turfserrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid turf ID format")
		}
		s.cfg.Log.Error("Failed to delete turf",
			"id", id,
			"error", err,
		)
		return apperrors.Internal("Failed to delete turf", err)
	}

	s.cfg.Log.Info("Turf deleted", "id", id)
	return nil
}

func (s *turfService) sanitize(turf *model.Turf) {
	turf.Name = sanitizer.NormalizeName(turf.Name)
	turf.Description = sanitizer.NormalizeNotes(turf.Description)
	turf.Location.Address = sanitizer.TrimAndNormalize(turf.Location.Address)
	turf.Location.City = sanitizer.NormalizeName(turf.Location.City)
	turf.Location.State = sanitizer.NormalizeName(turf.Location.State)
	turf.Location.Pincode = sanitizer.TrimAndNormalize(turf.Location.Pincode)
}

func (s *turfService) applyDefaults(turf *model.Turf) {
	if turf.OperatingHours.Open == "" {
		turf.OperatingHours.Open = s.cfg.DefaultOpenTime
	}
	if turf.OperatingHours.Close == "" {
		turf.OperatingHours.Close = s.cfg.DefaultCloseTime
	}
	turf.IsActive = true
}

func (s *turfService) applyUpdates(turf *model.Turf, updates *model.TurfUpdate) {
	if updates.Name != "" {
		turf.Name = updates.Name
	}
	if updates.Description != "" {
		turf.Description = updates.Description
	}
	if updates.Location != nil {
		turf.Location = *updates.Location
	}
	if updates.PricePerHour != nil {
		turf.PricePerHour = *updates.PricePerHour
	}
	if updates.OperatingHours != nil {
		turf.OperatingHours = *updates.OperatingHours
	}
	if updates.IsActive != nil {
		turf.IsActive = *updates.IsActive
	}
}
