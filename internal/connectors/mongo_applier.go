package connectors

import (
	"context"
	"fmt"
	"time"

	"go-crm-sync/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoApplier writes contacts and deals into the primary Mongo store
type MongoApplier struct {
	contacts *mongo.Collection
	deals    *mongo.Collection
}

func NewMongoApplier(db *database.MongodbDB) *MongoApplier {
	return &MongoApplier{
		contacts: db.DB.Collection("contacts"),
		deals:    db.DB.Collection("deals"),
	}
}

func (a *MongoApplier) UpsertContact(ctx context.Context, contact ContactRecord) (*ApplyResult, error) {
	if contact.ExternalID == "" && contact.Email == "" {
		return nil, fmt.Errorf("contact upsert requires an external id or email")
	}

	// Match by external identity first, then by email (linking an existing
	// contact to the provider)
	filter := bson.M{"external_id": contact.ExternalID, "external_source": contact.Source}
	if contact.ExternalID == "" {
		filter = bson.M{"email": contact.Email}
	}

	set := bson.M{
		"external_source": contact.Source,
		"updated_at":      time.Now(),
	}
	if contact.ExternalID != "" {
		set["external_id"] = contact.ExternalID
	}
	if contact.FirstName != "" {
		set["first_name"] = contact.FirstName
	}
	if contact.LastName != "" {
		set["last_name"] = contact.LastName
	}
	if contact.Email != "" {
		set["email"] = contact.Email
	}
	if contact.Phone != "" {
		set["phone"] = contact.Phone
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": time.Now()},
	}

	res, err := a.contacts.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("contact upsert failed: %w", err)
	}

	result := &ApplyResult{Created: res.UpsertedCount > 0}
	if oid, ok := res.UpsertedID.(interface{ Hex() string }); ok {
		result.InternalID = oid.Hex()
	}
	return result, nil
}

func (a *MongoApplier) UpsertDeal(ctx context.Context, deal DealRecord) (*ApplyResult, error) {
	if deal.ExternalID == "" {
		return nil, fmt.Errorf("deal upsert requires an external id")
	}

	filter := bson.M{"external_id": deal.ExternalID, "external_source": deal.Source}

	set := bson.M{
		"title":      deal.Title,
		"value":      deal.Value,
		"status":     deal.Status,
		"updated_at": time.Now(),
	}
	if deal.PipelineID != "" {
		set["pipeline_id"] = deal.PipelineID
	}
	if deal.StageID != "" {
		set["stage_id"] = deal.StageID
	}
	if deal.OwnerID != "" {
		set["owner_id"] = deal.OwnerID
	}
	if len(deal.MarketingData) > 0 {
		set["marketing_data"] = deal.MarketingData
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"external_source":     deal.Source,
			"contact_external_id": deal.ContactExternalID,
			"created_at":          time.Now(),
		},
	}

	res, err := a.deals.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("deal upsert failed: %w", err)
	}

	result := &ApplyResult{Created: res.UpsertedCount > 0}
	if oid, ok := res.UpsertedID.(interface{ Hex() string }); ok {
		result.InternalID = oid.Hex()
	}
	return result, nil
}

func (a *MongoApplier) TestConnection(ctx context.Context) error {
	return a.contacts.Database().Client().Ping(ctx, nil)
}
