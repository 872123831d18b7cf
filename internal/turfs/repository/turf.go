package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	turfserrors "turfbook/internal/turfs/errors"
	"turfbook/pkg/config"
	"turfbook/pkg/model"
)

const CollectionName = "Turfs"

type TurfRepository interface {
	Create(ctx context.Context, turf *model.Turf) error
	FindByID(ctx context.Context, id string) (*model.Turf, error)
	FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Turf, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
	Update(ctx context.Context, id string, turf *model.Turf) error
	Delete(ctx context.Context, id string) error
}

type mongoTurfRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTurfRepository(cfg *config.Config) TurfRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTurfRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoTurfRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		// Inside transaction - cannot wrap SessionContext, return no-op cancel
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoTurfRepository) Create(ctx context.Context, turf *model.Turf) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	turf.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, turf)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return turfserrors.ErrDuplicateName
		}
		return fmt.Errorf("failed to create turf: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		turf.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTurfRepository) FindByID(ctx context.Context, id string) (*model.Turf, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, id)
	}

	var turf model.Turf
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&turf)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, turfserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find turf: %w", err)
	}

	return &turf, nil
}

func (r *mongoTurfRepository) FindAll(ctx context.Context, activeOnly bool, limit int, offset int64) ([]*model.Turf, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find turfs: %w", err)
	}
	defer cursor.Close(ctx)

	var turfs []*model.Turf
	if err = cursor.All(ctx, &turfs); err != nil {
		return nil, fmt.Errorf("failed to decode turfs: %w", err)
	}

	return turfs, nil
}

func (r *mongoTurfRepository) Count(ctx context.Context, activeOnly bool) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if activeOnly {
		filter["is_active"] = true
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count turfs: %w", err)
	}
	return count, nil
}

func (r *mongoTurfRepository) Update(ctx context.Context, id string, turf *model.Turf) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"name":            turf.Name,
			"description":     turf.Description,
			"location":        turf.Location,
			"price_per_hour":  turf.PricePerHour,
			"operating_hours": turf.OperatingHours,
			"is_active":       turf.IsActive,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update turf: %w", err)
	}

	if result.MatchedCount == 0 {
		return turfserrors.ErrNotFound
	}

	return nil
}

func (r *mongoTurfRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", turfserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete turf: %w", err)
	}

	if result.DeletedCount == 0 {
		return turfserrors.ErrNotFound
	}

	return nil
}
