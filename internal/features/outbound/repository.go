package outbound

import (
	"context"
	"time"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OutboundRepository interface {
	Insert(ctx context.Context, item *OutboundQueueItem) error
	FindByID(ctx context.Context, id string) (*OutboundQueueItem, error)
	ListPending(ctx context.Context, limit int64) ([]OutboundQueueItem, error)
	List(ctx context.Context, status common_models.EventStatus, page, limit int64) ([]OutboundQueueItem, error)
	Transition(ctx context.Context, id primitive.ObjectID, from, to common_models.EventStatus, errorLog string) (bool, error)
	ResetToPending(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountsByStatus(ctx context.Context) (map[string]int64, error)
	EnsureIndexes(ctx context.Context) error
}

type OutboundRepositoryImpl struct {
	collection *mongo.Collection
}

func NewOutboundRepository(db *database.MongodbDB) OutboundRepository {
	return &OutboundRepositoryImpl{
		collection: db.DB.Collection("outbound_queue"),
	}
}

func (r *OutboundRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
	})
	return err
}

func (r *OutboundRepositoryImpl) Insert(ctx context.Context, item *OutboundQueueItem) error {
	item.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		item.ID = oid
	}
	return nil
}

func (r *OutboundRepositoryImpl) FindByID(ctx context.Context, id string) (*OutboundQueueItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var item OutboundQueueItem
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *OutboundRepositoryImpl) ListPending(ctx context.Context, limit int64) ([]OutboundQueueItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": common_models.StatusPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []OutboundQueueItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *OutboundRepositoryImpl) List(ctx context.Context, status common_models.EventStatus, page, limit int64) ([]OutboundQueueItem, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []OutboundQueueItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Transition uses the item's own status as the concurrency guard, the same
// discipline the inbound events follow. A failed dispatch increments the
// retry counter in the same write.
func (r *OutboundRepositoryImpl) Transition(ctx context.Context, id primitive.ObjectID, from, to common_models.EventStatus, errorLog string) (bool, error) {
	set := bson.M{
		"status":    to,
		"error_log": errorLog,
	}
	if to == common_models.StatusSent || to == common_models.StatusProcessedShadow {
		set["sent_at"] = time.Now()
	}

	update := bson.M{"$set": set}
	if to == common_models.StatusFailed {
		update["$inc"] = bson.M{"retry_count": 1}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ResetToPending keeps retry_count; it is the item's delivery history.
func (r *OutboundRepositoryImpl) ResetToPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"status": common_models.StatusPending, "error_log": ""},
		"$unset": bson.M{"sent_at": ""},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *OutboundRepositoryImpl) CountsByStatus(ctx context.Context) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	counts := map[string]int64{}
	for cursor.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int64  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		counts[row.Status] = row.Count
	}
	return counts, cursor.Err()
}
