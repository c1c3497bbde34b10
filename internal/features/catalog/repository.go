package catalog

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

type CatalogRepository interface {
	Upsert(ctx context.Context, entry *CatalogEntry) error
	List(ctx context.Context, entityType common_models.EntityType, parentExternalID string) ([]CatalogEntry, error)
	Rename(ctx context.Context, id string, name string) error
	Count(ctx context.Context, entityType common_models.EntityType) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type CatalogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCatalogRepository(db *database.MongodbDB) CatalogRepository {
	return &CatalogRepositoryImpl{
		collection: db.DB.Collection("integration_catalog"),
	}
}

func (r *CatalogRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "entity_type", Value: 1},
			{Key: "external_id", Value: 1},
			{Key: "parent_external_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Upsert is keyed by the composite uniqueness; a second upsert of the same
// entity corrects name/metadata in place.
func (r *CatalogRepositoryImpl) Upsert(ctx context.Context, entry *CatalogEntry) error {
	filter := bson.M{
		"entity_type":        entry.EntityType,
		"external_id":        entry.ExternalID,
		"parent_external_id": entry.ParentExternalID,
	}
	if entry.ParentExternalID == "" {
		filter["parent_external_id"] = bson.M{"$in": bson.A{nil, ""}}
	}

	update := bson.M{
		"$set": bson.M{
			"external_name": entry.ExternalName,
			"metadata":      entry.Metadata,
			"updated_at":    time.Now(),
		},
		"$setOnInsert": bson.M{
			"entity_type":        entry.EntityType,
			"external_id":        entry.ExternalID,
			"parent_external_id": entry.ParentExternalID,
			"created_at":         time.Now(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *CatalogRepositoryImpl) List(ctx context.Context, entityType common_models.EntityType, parentExternalID string) ([]CatalogEntry, error) {
	filter := bson.M{"entity_type": entityType}
	if parentExternalID != "" {
		filter["parent_external_id"] = parentExternalID
	}

	opts := options.Find().SetSort(bson.D{{Key: "external_name", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []CatalogEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *CatalogRepositoryImpl) Rename(ctx context.Context, id string, name string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"external_name": name, "updated_at": time.Now()}},
	)
	return err
}

func (r *CatalogRepositoryImpl) Count(ctx context.Context, entityType common_models.EntityType) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"entity_type": entityType})
}
