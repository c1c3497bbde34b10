package catalog

import (
	"context"
	"fmt"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/connectors"
	"go-crm-sync/internal/features/audit"
)

type CatalogService interface {
	Upsert(ctx context.Context, entry *CatalogEntry) error
	List(ctx context.Context, entityType common_models.EntityType, parentExternalID string) ([]CatalogEntry, error)
	Rename(ctx context.Context, id string, name string) error
	SyncFromProvider(ctx context.Context, entityType common_models.EntityType) (int, error)
}

type CatalogServiceImpl struct {
	Repo         CatalogRepository
	Provider     connectors.ProviderClient
	AuditService audit.AuditService
}

func NewCatalogService(repo CatalogRepository, provider connectors.ProviderClient, auditService audit.AuditService) CatalogService {
	return &CatalogServiceImpl{
		Repo:         repo,
		Provider:     provider,
		AuditService: auditService,
	}
}

func (s *CatalogServiceImpl) Upsert(ctx context.Context, entry *CatalogEntry) error {
	if entry.EntityType == "" || entry.ExternalID == "" {
		return fmt.Errorf("catalog entry requires entity_type and external_id")
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]string{"origin": OriginManual}
	}

	err := s.Repo.Upsert(ctx, entry)
	if err == nil {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionCatalog, "catalog", entry.ExternalID, map[string]common_models.Change{
			"catalog_entry": {New: entry},
		})
	}
	return err
}

func (s *CatalogServiceImpl) List(ctx context.Context, entityType common_models.EntityType, parentExternalID string) ([]CatalogEntry, error) {
	return s.Repo.List(ctx, entityType, parentExternalID)
}

func (s *CatalogServiceImpl) Rename(ctx context.Context, id string, name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}

	err := s.Repo.Rename(ctx, id, name)
	if err == nil {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionCatalog, "catalog", id, map[string]common_models.Change{
			"external_name": {New: name},
		})
	}
	return err
}

// SyncFromProvider pulls one entity kind from the provider API and upserts
// every item. Entries that vanished upstream are kept; removal is an
// explicit operator action, never a side effect of a resync.
func (s *CatalogServiceImpl) SyncFromProvider(ctx context.Context, entityType common_models.EntityType) (int, error) {
	items, err := s.Provider.FetchCatalog(ctx, entityType)
	if err != nil {
		return 0, fmt.Errorf("catalog sync failed for %s: %w", entityType, err)
	}

	count := 0
	for _, item := range items {
		entry := &CatalogEntry{
			EntityType:       entityType,
			ExternalID:       item.ExternalID,
			ExternalName:     item.ExternalName,
			ParentExternalID: item.ParentExternalID,
			Metadata:         map[string]string{"origin": OriginSynced},
		}
		if err := s.Repo.Upsert(ctx, entry); err != nil {
			return count, fmt.Errorf("catalog upsert failed for %s/%s: %w", entityType, item.ExternalID, err)
		}
		count++
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionSync, "catalog", string(entityType), map[string]common_models.Change{
		"synced": {New: count},
	})

	return count, nil
}
