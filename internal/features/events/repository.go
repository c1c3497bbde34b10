package events

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

type EventRepository interface {
	Insert(ctx context.Context, event *InboundEvent) (bool, error)
	FindByID(ctx context.Context, id string) (*InboundEvent, error)
	FindByIDs(ctx context.Context, ids []string) ([]InboundEvent, error)
	ListPending(ctx context.Context, limit int64) ([]InboundEvent, error)
	List(ctx context.Context, status common_models.EventStatus, page, limit int64) ([]InboundEvent, error)
	Transition(ctx context.Context, id primitive.ObjectID, from, to common_models.EventStatus, log string) (bool, error)
	ResetToPending(ctx context.Context, id primitive.ObjectID) (bool, error)
	CountsByStatus(ctx context.Context) (map[string]int64, error)
	CaptureDebug(ctx context.Context, raw *RawEvent) error
	EnsureIndexes(ctx context.Context) error
}

type EventRepositoryImpl struct {
	collection *mongo.Collection
	debug      *mongo.Collection
}

func NewEventRepository(db *database.MongodbDB) EventRepository {
	return &EventRepositoryImpl{
		collection: db.DB.Collection("integration_events"),
		debug:      db.DB.Collection("integration_debug_events"),
	}
}

func (r *EventRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "row_key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	return err
}

// Insert writes the event unless its row_key already exists. Redelivery is
// reported as (false, nil), never as an error, and the existing row is left
// untouched.
func (r *EventRepositoryImpl) Insert(ctx context.Context, event *InboundEvent) (bool, error) {
	event.CreatedAt = time.Now()
	res, err := r.collection.InsertOne(ctx, event)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		event.ID = oid
	}
	return true, nil
}

func (r *EventRepositoryImpl) FindByID(ctx context.Context, id string) (*InboundEvent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var event InboundEvent
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *EventRepositoryImpl) FindByIDs(ctx context.Context, ids []string) ([]InboundEvent, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []InboundEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepositoryImpl) ListPending(ctx context.Context, limit int64) ([]InboundEvent, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"status": common_models.StatusPending}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []InboundEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepositoryImpl) List(ctx context.Context, status common_models.EventStatus, page, limit int64) ([]InboundEvent, error) {
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

	var events []InboundEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Transition moves an event between statuses with a conditional update
// guarded by the previous status. A concurrent pass that already moved the
// event makes this a no-op, reported as (false, nil). Attempts increment on
// every transition out of pending.
func (r *EventRepositoryImpl) Transition(ctx context.Context, id primitive.ObjectID, from, to common_models.EventStatus, log string) (bool, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"status":         to,
			"processing_log": log,
			"processed_at":   now,
		},
	}
	if from == common_models.StatusPending {
		update["$inc"] = bson.M{"attempts": 1}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "status": from}, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// ResetToPending clears the processing log but preserves attempts so
// operators can see the retry history.
func (r *EventRepositoryImpl) ResetToPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":         common_models.StatusPending,
			"processing_log": "",
		},
		"$unset": bson.M{"processed_at": ""},
	})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *EventRepositoryImpl) CountsByStatus(ctx context.Context) (map[string]int64, error) {
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

// CaptureDebug stores the raw payload verbatim for troubleshooting. Only
// called when debug capture is switched on.
func (r *EventRepositoryImpl) CaptureDebug(ctx context.Context, raw *RawEvent) error {
	_, err := r.debug.InsertOne(ctx, bson.M{
		"row_key":     raw.RowKey,
		"source":      raw.Source,
		"entity_type": raw.EntityType,
		"external_id": raw.ExternalID,
		"event_type":  raw.EventType,
		"payload":     raw.Payload,
		"captured_at": time.Now(),
	})
	return err
}
