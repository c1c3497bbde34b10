package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/features/audit"
	"go-crm-sync/internal/features/events"
	"go-crm-sync/internal/features/mapping"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Import modes
const (
	ModeReplay  = "replay"
	ModeNewLead = "new_lead"
)

// ImportResult reports one bulk import per row, never all-or-nothing.
type ImportResult struct {
	Total       int               `json:"total"`
	Ingested    int               `json:"ingested"`
	Duplicates  int               `json:"duplicates"`
	Flagged     int               `json:"flagged"`
	Inferred    int               `json:"inferred"`
	FlaggedRows []ImportRow       `json:"flagged_rows,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
}

type ImportService interface {
	ImportFile(ctx context.Context, filename string, file io.Reader, mode, defaultStageID string) (*ImportResult, error)
}

type ImportServiceImpl struct {
	Ingest       events.IngestService
	AuditService audit.AuditService
	Config       *config.Config
	Logger       *zap.Logger
}

func NewImportService(ingest events.IngestService, auditService audit.AuditService, cfg *config.Config, logger *zap.Logger) ImportService {
	return &ImportServiceImpl{
		Ingest:       ingest,
		AuditService: auditService,
		Config:       cfg,
		Logger:       logger,
	}
}

func (s *ImportServiceImpl) parse(filename string, file io.Reader) ([]ImportRow, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		return ParseCSV(file)
	case strings.HasSuffix(name, ".xlsx"), strings.HasSuffix(name, ".xls"):
		return ParseXLSX(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q", filename)
	}
}

// inferAndValidate runs the batch-scoped pipeline inference, then flags
// every row whose pipeline falls outside the configured allow-list. Flagged
// rows are retained with an error marker, not discarded.
func (s *ImportServiceImpl) inferAndValidate(rows []ImportRow) ([]ImportRow, int) {
	batch := make([]*mapping.BatchRow, len(rows))
	for i := range rows {
		batch[i] = &mapping.BatchRow{
			DealID:   rows[i].DealID,
			Pipeline: rows[i].Pipeline,
			RawJSON:  rows[i].RawJSON,
		}
	}
	inferred := mapping.InferPipelines(batch)
	for i := range rows {
		rows[i].Pipeline = batch[i].Pipeline
	}

	allowed := map[string]bool{}
	for _, p := range s.Config.AllowedPipelines {
		allowed[p] = true
	}

	for i := range rows {
		if rows[i].Pipeline != "" && !allowed[rows[i].Pipeline] {
			rows[i].Error = fmt.Sprintf("pipeline %q is outside the supported set", rows[i].Pipeline)
		}
	}
	return rows, inferred
}

// ImportFile parses a replay file and feeds every valid row through event
// ingestion. Duplicate row keys are silent no-ops, so re-importing the same
// file is safe.
func (s *ImportServiceImpl) ImportFile(ctx context.Context, filename string, file io.Reader, mode, defaultStageID string) (*ImportResult, error) {
	if mode == "" {
		mode = ModeReplay
	}
	if mode != ModeReplay && mode != ModeNewLead {
		return nil, fmt.Errorf("unknown import mode %q", mode)
	}

	rows, err := s.parse(filename, file)
	if err != nil {
		return nil, err
	}

	rows, inferred := s.inferAndValidate(rows)

	result := &ImportResult{
		Total:    len(rows),
		Inferred: inferred,
		Errors:   map[string]string{},
	}

	for _, row := range rows {
		if row.Error != "" {
			result.Flagged++
			result.FlaggedRows = append(result.FlaggedRows, row)
			continue
		}

		payload := bson.M{
			"pipeline_id": row.Pipeline,
			"stage_id":    row.Stage,
			"deal_id":     row.DealID,
			"import_mode": mode,
		}
		if row.RawJSON != "" {
			payload["raw_json_string"] = row.RawJSON
		}
		if mode == ModeNewLead && defaultStageID != "" {
			payload["default_stage_id"] = defaultStageID
		}

		_, created, err := s.Ingest.Ingest(ctx, &events.RawEvent{
			RowKey:     row.RowKey,
			Source:     events.SourceCSVImport,
			EntityType: row.Entity,
			ExternalID: row.EntityID,
			EventType:  row.ChangeType,
			Payload:    payload,
		})
		if err == events.ErrIngestDisabled {
			return nil, err
		}
		if err != nil {
			result.Errors[row.RowKey] = err.Error()
			continue
		}
		if created {
			result.Ingested++
		} else {
			result.Duplicates++
		}
	}

	if len(result.Errors) == 0 {
		result.Errors = nil
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionImport, "importer", filename, map[string]common_models.Change{
		"import": {New: result},
	})

	s.Logger.Info("replay file imported",
		zap.String("filename", filename),
		zap.Int("total", result.Total),
		zap.Int("ingested", result.Ingested),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("flagged", result.Flagged),
	)
	return result, nil
}
