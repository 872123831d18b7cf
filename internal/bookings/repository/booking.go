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

	bookingserrors "turfbook/internal/bookings/errors"
	"turfbook/pkg/config"
	mongotx "turfbook/pkg/db/mongo"
	"turfbook/pkg/model"
)

const CollectionName = "Bookings"

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByRef(ctx context.Context, ref string) (*model.Booking, error)
	FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	FindAll(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter *model.BookingFilter) (int64, error)

	// Cancel marks the booking cancelled with a reason and timestamp.
	Cancel(ctx context.Context, id string, reason string, at time.Time) error

	// SetPayment attaches a payment record and resets the booking's payment
	// status to pending. Called on every payment submission.
	SetPayment(ctx context.Context, id string, paymentID string) error

	// SetPaymentOutcome applies the verification cascade to the booking:
	// status, payment status and, for rejections, a cancellation reason.
	SetPaymentOutcome(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error

	SetInvoiceURL(ctx context.Context, id string, url string) error

	Stats(ctx context.Context, today time.Time) (*model.BookingStats, error)

	// FindStalePending returns pending bookings created before cutoff that
	// never received a payment submission.
	FindStalePending(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
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
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrDuplicateRef
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByRef(ctx context.Context, ref string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"booking_ref": ref}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking by ref: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByUser(ctx context.Context, userID string, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func buildFilter(filter *model.BookingFilter) bson.M {
	query := bson.M{}
	if filter == nil {
		return query
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = filter.PaymentStatus
	}
	if filter.From != nil || filter.To != nil {
		dateRange := bson.M{}
		if filter.From != nil {
			dateRange["$gte"] = *filter.From
		}
		if filter.To != nil {
			dateRange["$lte"] = *filter.To
		}
		query["date"] = dateRange
	}
	return query
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter *model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter *model.BookingFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) Cancel(ctx context.Context, id string, reason string, at time.Time) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"status":              model.BookingCancelled,
			"cancellation_reason": reason,
			"cancelled_at":        at,
		},
	})
}

func (r *mongoBookingRepository) SetPayment(ctx context.Context, id string, paymentID string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{
			"payment_id":     paymentID,
			"payment_status": model.BookingPaymentPending,
		},
	})
}

func (r *mongoBookingRepository) SetPaymentOutcome(ctx context.Context, id string, status model.BookingStatus, paymentStatus model.BookingPaymentStatus, reason string, at time.Time) error {
	set := bson.M{
		"status":         status,
		"payment_status": paymentStatus,
	}
	if status == model.BookingCancelled {
		set["cancellation_reason"] = reason
		set["cancelled_at"] = at
	}
	return r.updateByID(ctx, id, bson.M{"$set": set})
}

func (r *mongoBookingRepository) SetInvoiceURL(ctx context.Context, id string, url string) error {
	return r.updateByID(ctx, id, bson.M{
		"$set": bson.M{"invoice_url": url},
	})
}

func (r *mongoBookingRepository) updateByID(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	if result.MatchedCount == 0 {
		return bookingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoBookingRepository) Stats(ctx context.Context, today time.Time) (*model.BookingStats, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	confirmed := bson.M{"$in": []model.BookingStatus{model.BookingConfirmed, model.BookingCompleted}}

	pipeline := mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"total": []bson.M{
				{"$count": "n"},
			},
			"today": []bson.M{
				{"$match": bson.M{"date": today}},
				{"$count": "n"},
			},
			"upcoming": []bson.M{
				{"$match": bson.M{"date": bson.M{"$gt": today}, "status": confirmed}},
				{"$count": "n"},
			},
			"cancelled": []bson.M{
				{"$match": bson.M{"status": model.BookingCancelled}},
				{"$count": "n"},
			},
			"revenue": []bson.M{
				{"$match": bson.M{"payment_status": model.BookingPaymentPaid}},
				{"$group": bson.M{"_id": nil, "sum": bson.M{"$sum": "$total_amount"}}},
			},
			"today_revenue": []bson.M{
				{"$match": bson.M{"payment_status": model.BookingPaymentPaid, "date": today}},
				{"$group": bson.M{"_id": nil, "sum": bson.M{"$sum": "$total_amount"}}},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate booking stats: %w", err)
	}
	defer cursor.Close(ctx)

	var raw []struct {
		Total        []struct{ N int64 }   `bson:"total"`
		Today        []struct{ N int64 }   `bson:"today"`
		Upcoming     []struct{ N int64 }   `bson:"upcoming"`
		Cancelled    []struct{ N int64 }   `bson:"cancelled"`
		Revenue      []struct{ Sum float64 } `bson:"revenue"`
		TodayRevenue []struct{ Sum float64 } `bson:"today_revenue"`
	}
	if err = cursor.All(ctx, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode booking stats: %w", err)
	}

	stats := &model.BookingStats{}
	if len(raw) == 0 {
		return stats, nil
	}

	if len(raw[0].Total) > 0 {
		stats.TotalBookings = raw[0].Total[0].N
	}
	if len(raw[0].Today) > 0 {
		stats.TodayBookings = raw[0].Today[0].N
	}
	if len(raw[0].Upcoming) > 0 {
		stats.UpcomingBookings = raw[0].Upcoming[0].N
	}
	if len(raw[0].Cancelled) > 0 {
		stats.CancelledBookings = raw[0].Cancelled[0].N
	}
	if len(raw[0].Revenue) > 0 {
		stats.TotalRevenue = raw[0].Revenue[0].Sum
	}
	if len(raw[0].TodayRevenue) > 0 {
		stats.TodayRevenue = raw[0].TodayRevenue[0].Sum
	}

	return stats, nil
}

func (r *mongoBookingRepository) FindStalePending(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":     model.BookingPending,
		"payment_id": bson.M{"$exists": false},
		"created_at": bson.M{"$lt": cutoff},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find stale pending bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode stale pending bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
