package mapping

import (
	"context"
	"time"

	"go-crm-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MappingRepository interface {
	Set(ctx context.Context, entry *MappingEntry) error
	Delete(ctx context.Context, entry *MappingEntry) error
	Get(ctx context.Context, kind MappingKind, externalID, externalPipelineID, direction string) (*MappingEntry, error)
	List(ctx context.Context, kind MappingKind) ([]MappingEntry, error)
	CountMapped(ctx context.Context, kind MappingKind) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type MappingRepositoryImpl struct {
	collections map[MappingKind]*mongo.Collection
}

func NewMappingRepository(db *database.MongodbDB) MappingRepository {
	return &MappingRepositoryImpl{
		collections: map[MappingKind]*mongo.Collection{
			KindPipeline: db.DB.Collection("integration_pipeline_map"),
			KindStage:    db.DB.Collection("integration_stage_map"),
			KindUser:     db.DB.Collection("integration_user_map"),
			KindField:    db.DB.Collection("integration_field_map"),
		},
	}
}

// uniquenessFilter builds the per-kind composite key. Stage mappings are
// scoped by pipeline, field mappings additionally by direction.
func uniquenessFilter(entry *MappingEntry) bson.M {
	filter := bson.M{"external_id": entry.ExternalID}
	switch entry.Kind {
	case KindStage:
		filter["external_pipeline_id"] = entry.ExternalPipelineID
	case KindField:
		filter["external_pipeline_id"] = entry.ExternalPipelineID
		filter["direction"] = entry.Direction
	}
	return filter
}

func (r *MappingRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	keysByKind := map[MappingKind]bson.D{
		KindPipeline: {{Key: "external_id", Value: 1}},
		KindStage:    {{Key: "external_id", Value: 1}, {Key: "external_pipeline_id", Value: 1}},
		KindUser:     {{Key: "external_id", Value: 1}},
		KindField:    {{Key: "direction", Value: 1}, {Key: "external_pipeline_id", Value: 1}, {Key: "external_id", Value: 1}},
	}

	for kind, keys := range keysByKind {
		_, err := r.collections[kind].Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *MappingRepositoryImpl) Set(ctx context.Context, entry *MappingEntry) error {
	update := bson.M{
		"$set": bson.M{
			"kind":        entry.Kind,
			"internal_id": entry.InternalID,
			"ignored":     entry.Ignored,
			"updated_at":  time.Now(),
		},
		"$setOnInsert": bson.M{
			"external_id":          entry.ExternalID,
			"external_pipeline_id": entry.ExternalPipelineID,
			"direction":            entry.Direction,
			"created_at":           time.Now(),
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collections[entry.Kind].UpdateOne(ctx, uniquenessFilter(entry), update, opts)
	return err
}

func (r *MappingRepositoryImpl) Delete(ctx context.Context, entry *MappingEntry) error {
	_, err := r.collections[entry.Kind].DeleteOne(ctx, uniquenessFilter(entry))
	return err
}

func (r *MappingRepositoryImpl) Get(ctx context.Context, kind MappingKind, externalID, externalPipelineID, direction string) (*MappingEntry, error) {
	filter := uniquenessFilter(&MappingEntry{
		Kind:               kind,
		ExternalID:         externalID,
		ExternalPipelineID: externalPipelineID,
		Direction:          direction,
	})

	var entry MappingEntry
	err := r.collections[kind].FindOne(ctx, filter).Decode(&entry)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *MappingRepositoryImpl) List(ctx context.Context, kind MappingKind) ([]MappingEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "external_id", Value: 1}})
	cursor, err := r.collections[kind].Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []MappingEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountMapped excludes ignored entries; they contribute nothing to coverage.
func (r *MappingRepositoryImpl) CountMapped(ctx context.Context, kind MappingKind) (int64, error) {
	return r.collections[kind].CountDocuments(ctx, bson.M{"ignored": bson.M{"$ne": true}})
}
