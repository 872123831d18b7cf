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

	slotserrors "turfbook/internal/slots/errors"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"
)

const CollectionName = "Slots"

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	CreateMany(ctx context.Context, slots []*model.Slot) (int, error)
	FindByID(ctx context.Context, id string) (*model.Slot, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error)
	FindByTurfAndDate(ctx context.Context, turfID string, date time.Time) ([]*model.Slot, error)

	// Lock transitions a slot to locked for userID. The filter admits a slot
	// that is available, already locked by userID (refresh), or carrying a
	// lock older than lockDuration (seizure). Returns ErrLockConflict when
	// no admissible document matches.
	Lock(ctx context.Context, id string, userID string, now time.Time, lockDuration time.Duration) (*model.Slot, error)

	// Unlock releases a lock held by userID. Returns ErrNotLockOwner when the
	// slot is not currently locked by userID.
	Unlock(ctx context.Context, id string, userID string) error

	// ReleaseExpired resets every slot in ids whose lock is older than
	// lockDuration back to available. Returns the number released.
	ReleaseExpired(ctx context.Context, ids []string, now time.Time, lockDuration time.Duration) (int64, error)

	// ReleaseAllExpired resets every locked slot in the collection whose lock
	// is older than lockDuration. The background safety net for locks nobody
	// reads again.
	ReleaseAllExpired(ctx context.Context, now time.Time, lockDuration time.Duration) (int64, error)

	// ReleaseLocksOwnedBy resets slots in ids that are locked by userID.
	ReleaseLocksOwnedBy(ctx context.Context, ids []string, userID string) (int64, error)

	// AttachBooking stamps a booking id onto slots locked by userID and
	// refreshes their lock timestamps so the lock survives checkout.
	AttachBooking(ctx context.Context, ids []string, userID string, bookingID string, now time.Time) (int64, error)

	// MarkBooked finalizes slots into the booked state for a verified booking.
	MarkBooked(ctx context.Context, ids []string, userID string, bookingID string) (int64, error)

	// Release returns slots to available unconditionally, clearing all lock
	// and booking fields. Used by payment rejection and cancellation.
	Release(ctx context.Context, ids []string) (int64, error)

	// Delete removes a slot unless it is booked. Returns ErrBooked when the
	// slot exists but is booked.
	Delete(ctx context.Context, id string) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoSlotRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoSlotRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, slot)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return slotserrors.ErrDuplicateSlot
		}
		return fmt.Errorf("failed to create slot: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		slot.ID = oid.Hex()
	}
	return nil
}

// CreateMany inserts slots unordered so duplicate-key collisions skip the
// offending document instead of aborting the batch. Re-running generation
// over an existing range is therefore a no-op for covered slots.
func (r *mongoSlotRepository) CreateMany(ctx context.Context, slots []*model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]any, 0, len(slots))
	for _, slot := range slots {
		slot.CreatedAt = now
		docs = append(docs, slot)
	}

	opts := options.InsertMany().SetOrdered(false)
	result, err := r.collection.InsertMany(ctx, docs, opts)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		var bulkErr mongo.BulkWriteException
		if !errors.As(err, &bulkErr) {
			return 0, fmt.Errorf("failed to create slots: %w", err)
		}
		for _, we := range bulkErr.WriteErrors {
			if !mongo.IsDuplicateKeyError(we) {
				return 0, fmt.Errorf("failed to create slots: %w", err)
			}
		}
	}

	if result == nil {
		return 0, nil
	}
	return len(result.InsertedIDs), nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	var slot model.Slot
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return nil, err
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) FindByTurfAndDate(ctx context.Context, turfID string, date time.Time) ([]*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"turf_id": turfID,
		"date":    date,
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}

	return slots, nil
}

func (r *mongoSlotRepository) Lock(ctx context.Context, id string, userID string, now time.Time, lockDuration time.Duration) (*model.Slot, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	expiredBefore := now.Add(-lockDuration)
	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$ne": model.SlotBooked},
		"$or": []bson.M{
			{"status": model.SlotAvailable},
			{"locked_by": userID},
			{"locked_at": bson.M{"$lt": expiredBefore}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"status":    model.SlotLocked,
			"locked_by": userID,
			"locked_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var slot model.Slot
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrLockConflict
		}
		return nil, fmt.Errorf("failed to lock slot: %w", err)
	}

	return &slot, nil
}

func (r *mongoSlotRepository) Unlock(ctx context.Context, id string, userID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":       objectID,
		"status":    model.SlotLocked,
		"locked_by": userID,
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to unlock slot: %w", err)
	}

	if result.MatchedCount == 0 {
		return slotserrors.ErrNotLockOwner
	}

	return nil
}

func (r *mongoSlotRepository) ReleaseExpired(ctx context.Context, ids []string, now time.Time, lockDuration time.Duration) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{
		"_id":       bson.M{"$in": objectIDs},
		"status":    model.SlotLocked,
		"locked_at": bson.M{"$lt": now.Add(-lockDuration)},
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired locks: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) ReleaseAllExpired(ctx context.Context, now time.Time, lockDuration time.Duration) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"status":    model.SlotLocked,
		"locked_at": bson.M{"$lt": now.Add(-lockDuration)},
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release expired locks: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) ReleaseLocksOwnedBy(ctx context.Context, ids []string, userID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{
		"_id":       bson.M{"$in": objectIDs},
		"status":    model.SlotLocked,
		"locked_by": userID,
	}
	update := bson.M{
		"$set":   bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{"locked_by": "", "locked_at": "", "booking_id": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release locks: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) AttachBooking(ctx context.Context, ids []string, userID string, bookingID string, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{
		"_id":       bson.M{"$in": objectIDs},
		"status":    model.SlotLocked,
		"locked_by": userID,
	}
	update := bson.M{
		"$set": bson.M{
			"booking_id": bookingID,
			"locked_at":  now,
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to attach booking to slots: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) MarkBooked(ctx context.Context, ids []string, userID string, bookingID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{"_id": bson.M{"$in": objectIDs}}
	update := bson.M{
		"$set": bson.M{
			"status":     model.SlotBooked,
			"booked_by":  userID,
			"booking_id": bookingID,
		},
		"$unset": bson.M{"locked_by": "", "locked_at": ""},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark slots booked: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) Release(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	filter := bson.M{"_id": bson.M{"$in": objectIDs}}
	update := bson.M{
		"$set": bson.M{"status": model.SlotAvailable},
		"$unset": bson.M{
			"locked_by":  "",
			"locked_at":  "",
			"booked_by":  "",
			"booking_id": "",
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to release slots: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSlotRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":    objectID,
		"status": bson.M{"$ne": model.SlotBooked},
	})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	if result.DeletedCount == 0 {
		// Distinguish a booked slot from a missing one.
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if countErr != nil {
			return fmt.Errorf("failed to delete slot: %w", countErr)
		}
		if count > 0 {
			return slotserrors.ErrBooked
		}
		return slotserrors.ErrNotFound
	}

	return nil
}

func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", slotserrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, objectID)
	}
	return objectIDs, nil
}
