package governance

import (
	"context"
	"time"

	"go-crm-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SettingsRepository interface {
	GetAll(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, key FlagKey, value bool) error
}

type SettingsRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSettingsRepository(db *database.MongodbDB) SettingsRepository {
	return &SettingsRepositoryImpl{
		collection: db.DB.Collection("integration_settings"),
	}
}

func (r *SettingsRepositoryImpl) GetAll(ctx context.Context) ([]Setting, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var settings []Setting
	if err = cursor.All(ctx, &settings); err != nil {
		return nil, err
	}

	return settings, nil
}

func (r *SettingsRepositoryImpl) Upsert(ctx context.Context, key FlagKey, value bool) error {
	filter := bson.M{"key": key}
	update := bson.M{"$set": bson.M{"value": value, "updated_at": time.Now()}}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}
