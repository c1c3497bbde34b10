package catalog

import (
	"time"

	common_models "go-crm-sync/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Origin records how a catalog entry got here
const (
	OriginManual = "manual"
	OriginSynced = "synced"
)

// CatalogEntry mirrors one structural object of the external provider.
// Uniqueness key: (entity_type, external_id, parent_external_id).
type CatalogEntry struct {
	ID               primitive.ObjectID      `json:"id" bson:"_id,omitempty"`
	EntityType       common_models.EntityType `json:"entity_type" bson:"entity_type"`
	ExternalID       string                  `json:"external_id" bson:"external_id"`
	ExternalName     string                  `json:"external_name" bson:"external_name"`
	ParentExternalID string                  `json:"parent_external_id,omitempty" bson:"parent_external_id,omitempty"`
	Metadata         map[string]string       `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt        time.Time               `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at" bson:"updated_at"`
}
