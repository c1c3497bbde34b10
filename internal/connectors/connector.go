package connectors

import (
	"context"

	common_models "go-crm-sync/internal/common/models"
)

// ContactRecord is the normalized contact shape handed to an applier
type ContactRecord struct {
	ExternalID string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Source     string
}

// DealRecord is the normalized deal shape handed to an applier.
// Pipeline/Stage/Owner IDs are internal (already resolved).
type DealRecord struct {
	ExternalID        string
	Title             string
	Value             float64
	Status            string
	PipelineID        string
	StageID           string
	OwnerID           string
	ContactExternalID string
	ContactEmail      string
	MarketingData     map[string]interface{}
	Source            string
}

// ApplyResult reports what an upsert did
type ApplyResult struct {
	Created    bool
	InternalID string
}

// CRMApplier performs the actual business-table writes. The processing pass
// only ever talks to this interface; the engine does not know whether rows
// land in Mongo or Postgres.
type CRMApplier interface {
	UpsertContact(ctx context.Context, contact ContactRecord) (*ApplyResult, error)
	UpsertDeal(ctx context.Context, deal DealRecord) (*ApplyResult, error)
	TestConnection(ctx context.Context) error
}

// CatalogItem is one structural entity fetched from the provider
type CatalogItem struct {
	ExternalID       string
	ExternalName     string
	ParentExternalID string
}

// ProviderResponse carries the outcome of a provider HTTP call
type ProviderResponse struct {
	StatusCode int
	Body       string
}

// ProviderClient is the boundary to the external provider's API: catalog
// pulls for the Catalog Store and raw dispatches for the outbound queue.
type ProviderClient interface {
	FetchCatalog(ctx context.Context, entity common_models.EntityType) ([]CatalogItem, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*ProviderResponse, error)
}
