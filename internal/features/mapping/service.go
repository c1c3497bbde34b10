package mapping

import (
	"context"
	"fmt"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/features/audit"
	"go-crm-sync/internal/features/catalog"
)

type MappingService interface {
	SetMapping(ctx context.Context, entry *MappingEntry) error
	ListMappings(ctx context.Context, kind MappingKind) ([]MappingEntry, error)
	ResolvePipeline(ctx context.Context, externalPipelineID string) (string, ResolveState, error)
	ResolveStage(ctx context.Context, externalStageID, externalPipelineID string) (string, ResolveState, error)
	ResolveUser(ctx context.Context, externalUserID string) (string, ResolveState, error)
	ResolveField(ctx context.Context, direction, externalPipelineID, externalFieldID string) (string, ResolveState, error)
	Coverage(ctx context.Context) ([]CoverageStat, error)
}

type MappingServiceImpl struct {
	Repo         MappingRepository
	CatalogRepo  catalog.CatalogRepository
	AuditService audit.AuditService
}

func NewMappingService(repo MappingRepository, catalogRepo catalog.CatalogRepository, auditService audit.AuditService) MappingService {
	return &MappingServiceImpl{
		Repo:         repo,
		CatalogRepo:  catalogRepo,
		AuditService: auditService,
	}
}

// SetMapping creates or updates one edge. An internal target of "" deletes
// the row outright; the "ignore" sentinel keeps the row with no target so
// the resolver can tell an operator decision apart from a gap.
func (s *MappingServiceImpl) SetMapping(ctx context.Context, entry *MappingEntry) error {
	if entry.Kind == "" || entry.ExternalID == "" {
		return fmt.Errorf("mapping requires kind and external_id")
	}
	if entry.Kind == KindStage && entry.ExternalPipelineID == "" {
		return fmt.Errorf("stage mapping requires external_pipeline_id")
	}
	if entry.Kind == KindField && entry.Direction != DirectionIn && entry.Direction != DirectionOut {
		return fmt.Errorf("field mapping requires direction %q or %q", DirectionIn, DirectionOut)
	}

	var err error
	switch entry.InternalID {
	case "":
		err = s.Repo.Delete(ctx, entry)
	case IgnoreSentinel:
		entry.Ignored = true
		entry.InternalID = ""
		err = s.Repo.Set(ctx, entry)
	default:
		entry.Ignored = false
		err = s.Repo.Set(ctx, entry)
	}

	if err == nil {
		_ = s.AuditService.LogChange(ctx, common_models.AuditActionMapping, "mapping", entry.ExternalID, map[string]common_models.Change{
			string(entry.Kind): {New: entry},
		})
	}
	return err
}

func (s *MappingServiceImpl) ListMappings(ctx context.Context, kind MappingKind) ([]MappingEntry, error) {
	return s.Repo.List(ctx, kind)
}

func (s *MappingServiceImpl) resolve(ctx context.Context, kind MappingKind, externalID, externalPipelineID, direction string) (string, ResolveState, error) {
	if externalID == "" {
		return "", StateUnmapped, nil
	}

	entry, err := s.Repo.Get(ctx, kind, externalID, externalPipelineID, direction)
	if err != nil {
		return "", StateUnmapped, err
	}
	if entry == nil {
		return "", StateUnmapped, nil
	}
	if entry.Ignored {
		return "", StateIgnored, nil
	}
	return entry.InternalID, StateMapped, nil
}

func (s *MappingServiceImpl) ResolvePipeline(ctx context.Context, externalPipelineID string) (string, ResolveState, error) {
	return s.resolve(ctx, KindPipeline, externalPipelineID, "", "")
}

func (s *MappingServiceImpl) ResolveStage(ctx context.Context, externalStageID, externalPipelineID string) (string, ResolveState, error) {
	return s.resolve(ctx, KindStage, externalStageID, externalPipelineID, "")
}

func (s *MappingServiceImpl) ResolveUser(ctx context.Context, externalUserID string) (string, ResolveState, error) {
	return s.resolve(ctx, KindUser, externalUserID, "", "")
}

func (s *MappingServiceImpl) ResolveField(ctx context.Context, direction, externalPipelineID, externalFieldID string) (string, ResolveState, error) {
	return s.resolve(ctx, KindField, externalFieldID, externalPipelineID, direction)
}

var kindToEntity = map[MappingKind]common_models.EntityType{
	KindPipeline: common_models.EntityPipeline,
	KindStage:    common_models.EntityStage,
	KindUser:     common_models.EntityUser,
	KindField:    common_models.EntityField,
}

func (s *MappingServiceImpl) Coverage(ctx context.Context) ([]CoverageStat, error) {
	kinds := []MappingKind{KindPipeline, KindStage, KindUser, KindField}

	stats := make([]CoverageStat, 0, len(kinds))
	for _, kind := range kinds {
		mapped, err := s.Repo.CountMapped(ctx, kind)
		if err != nil {
			return nil, err
		}
		total, err := s.CatalogRepo.Count(ctx, kindToEntity[kind])
		if err != nil {
			return nil, err
		}

		stat := CoverageStat{Kind: kind, Mapped: mapped, Total: total}
		if total > 0 {
			stat.Ratio = float64(mapped) / float64(total)
		}
		stats = append(stats, stat)
	}
	return stats, nil
}
