package service

import (
	"context"
	"testing"

	turfserrors "turfbook/internal/turfs/errors"
	turfsvalidator "turfbook/internal/turfs/validator"
	"turfbook/pkg/config"
	apperrors "turfbook/pkg/errors"
	"turfbook/pkg/logger"
	"turfbook/pkg/model"
)

// Mock repository for testing
type mockTurfRepository struct {
	createFunc   func(ctx context.Context, turf *model.Turf) error
	findByIDFunc func(ctx context.Context, id string) (*model.Turf, error)
	findAllFunc  func(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Turf, error)
	countFunc    func(ctx context.Context, activeOnly bool) (int64, error)
	updateFunc   func(ctx context.Context, id string, turf *model.Turf) error
	deleteFunc   func(ctx context.Context, id string) error
}

func (m *mockTurfRepository) Create(ctx context.Context, turf *model.Turf) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, turf)
	}
	turf.ID = "665f1f77bcf86cd799439099"
	return nil
}

func (m *mockTurfRepository) FindByID(ctx context.Context, id string) (*model.Turf, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, turfserrors.ErrNotFound
}

func (m *mockTurfRepository) FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Turf, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, activeOnly, limit, offset)
	}
	return []*model.Turf{}, nil
}

func (m *mockTurfRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, activeOnly)
	}
	return 0, nil
}

func (m *mockTurfRepository) Update(ctx context.Context, id string, turf *model.Turf) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, turf)
	}
	return nil
}

func (m *mockTurfRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		DefaultOpenTime:  "06:00",
		DefaultCloseTime: "23:00",
	}
}

func newTestService(repo *mockTurfRepository) *turfService {
	return &turfService{
		repo:      repo,
		validator: turfsvalidator.NewTurfValidator(),
		cfg:       testConfig(),
	}
}

var (
	testUser  = &model.Actor{ID: "665f1f77bcf86cd799439011", Role: model.RoleUser}
	testAdmin = &model.Actor{ID: "665f1f77bcf86cd799439033", Role: model.RoleAdmin}
)

func newTurf() *model.Turf {
	return &model.Turf{
		Name: "Greenfield Arena",
		Location: model.Location{
			Address: "12 MG Road",
			City:    "Bengaluru",
		},
		PricePerHour: 800,
	}
}

func TestCreate_AppliesDefaults(t *testing.T) {
	var created *model.Turf
	repo := &mockTurfRepository{
		createFunc: func(ctx context.Context, turf *model.Turf) error {
			created = turf
			return nil
		},
	}

	service := newTestService(repo)
	if err := service.Create(context.Background(), testAdmin, newTurf()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.OperatingHours.Open != "06:00" || created.OperatingHours.Close != "23:00" {
		t.Errorf("expected default operating hours 06:00-23:00, got %s-%s",
			created.OperatingHours.Open, created.OperatingHours.Close)
	}
	if !created.IsActive {
		t.Error("expected new turf to be active")
	}
	if created.CreatedBy != testAdmin.ID {
		t.Errorf("expected created_by %s, got %s", testAdmin.ID, created.CreatedBy)
	}
}

func TestCreate_NonAdmin(t *testing.T) {
	service := newTestService(&mockTurfRepository{})

	err := service.Create(context.Background(), testUser, newTurf())
	assertAppError(t, err, apperrors.CodeForbidden)
}

func TestCreate_DuplicateName(t *testing.T) {
	repo := &mockTurfRepository{
		createFunc: func(ctx context.Context, turf *model.Turf) error {
			return turfserrors.ErrDuplicateName
		},
	}

	service := newTestService(repo)
	err := service.Create(context.Background(), testAdmin, newTurf())
	assertAppError(t, err, apperrors.CodeConflict)
}

func TestCreate_InvalidOperatingHours(t *testing.T) {
	service := newTestService(&mockTurfRepository{})

	turf := newTurf()
	turf.OperatingHours = model.OperatingHours{Open: "22:00", Close: "06:00"}
	err := service.Create(context.Background(), testAdmin, turf)
	assertAppError(t, err, apperrors.CodeValidation)
}

func TestUpdate_MergesPartialFields(t *testing.T) {
	existing := newTurf()
	existing.ID = "665f1f77bcf86cd799439099"
	existing.CreatedBy = testAdmin.ID
	existing.OperatingHours = model.OperatingHours{Open: "06:00", Close: "23:00"}
	existing.IsActive = true

	var updated *model.Turf
	repo := &mockTurfRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Turf, error) {
			return existing, nil
		},
		updateFunc: func(ctx context.Context, id string, turf *model.Turf) error {
			updated = turf
			return nil
		},
	}

	newPrice := 950.0
	service := newTestService(repo)
	err := service.Update(context.Background(), testAdmin, existing.ID, &model.TurfUpdate{
		PricePerHour: &newPrice,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.PricePerHour != 950 {
		t.Errorf("expected price updated to 950, got %v", updated.PricePerHour)
	}
	if updated.Name != "Greenfield Arena" {
		t.Errorf("expected untouched name, got %q", updated.Name)
	}
	if updated.OperatingHours.Open != "06:00" {
		t.Errorf("expected untouched operating hours, got %s", updated.OperatingHours.Open)
	}
}

func TestDelete_NonAdmin(t *testing.T) {
	service := newTestService(&mockTurfRepository{})

	err := service.Delete(context.Background(), testUser, "665f1f77bcf86cd799439099")
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
