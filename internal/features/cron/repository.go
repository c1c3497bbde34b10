package cron_feature

import (
	"context"

	"go-crm-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CronRepository interface {
	RecordRun(ctx context.Context, run *CronRun) error
	ListRuns(ctx context.Context, pass string, limit int64) ([]CronRun, error)
}

type CronRepositoryImpl struct {
	collection *mongo.Collection
}

func NewCronRepository(db *database.MongodbDB) CronRepository {
	return &CronRepositoryImpl{
		collection: db.DB.Collection("cron_runs"),
	}
}

func (r *CronRepositoryImpl) RecordRun(ctx context.Context, run *CronRun) error {
	_, err := r.collection.InsertOne(ctx, run)
	return err
}

func (r *CronRepositoryImpl) ListRuns(ctx context.Context, pass string, limit int64) ([]CronRun, error) {
	filter := bson.M{}
	if pass != "" {
		filter["pass"] = pass
	}
	if limit < 1 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var runs []CronRun
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
