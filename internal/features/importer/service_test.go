package importer

import (
	"context"
	"strings"
	"testing"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/features/events"

	"go.uber.org/zap"
)

type mockIngest struct {
	ingested []*events.RawEvent
	seen     map[string]bool
	disabled bool
}

func newMockIngest() *mockIngest {
	return &mockIngest{seen: map[string]bool{}}
}

func (m *mockIngest) Ingest(ctx context.Context, raw *events.RawEvent) (*events.InboundEvent, bool, error) {
	if m.disabled {
		return nil, false, events.ErrIngestDisabled
	}
	if m.seen[raw.RowKey] {
		return &events.InboundEvent{RowKey: raw.RowKey}, false, nil
	}
	m.seen[raw.RowKey] = true
	m.ingested = append(m.ingested, raw)
	return &events.InboundEvent{RowKey: raw.RowKey}, true, nil
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (noopAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func newTestImporter(ingest events.IngestService) ImportService {
	return &ImportServiceImpl{
		Ingest:       ingest,
		AuditService: noopAudit{},
		Config:       &config.Config{AllowedPipelines: []string{"6", "8"}},
		Logger:       zap.NewNop(),
	}
}

const replayHeader = "row_key,entity,entity_id,change_type,pipeline,stage,deal_id,raw_json_string"

func TestImportFilePipelineInference(t *testing.T) {
	csv := strings.Join([]string{
		replayHeader,
		"k1,deal,123,deal_update,8,10,D1,",
		"k2,deal,124,deal_update,,11,D1,",
	}, "\n")

	ingest := newMockIngest()
	svc := newTestImporter(ingest)

	result, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), "", "")
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}

	if result.Ingested != 2 || result.Flagged != 0 {
		t.Fatalf("ingested=%d flagged=%d, want 2/0", result.Ingested, result.Flagged)
	}
	if result.Inferred != 1 {
		t.Errorf("inferred = %d, want 1", result.Inferred)
	}

	// The unlabeled row inherited pipeline 8 from its deal sibling
	var k2 *events.RawEvent
	for _, raw := range ingest.ingested {
		if raw.RowKey == "k2" {
			k2 = raw
		}
	}
	if k2 == nil {
		t.Fatal("row k2 not ingested")
	}
	if k2.Payload["pipeline_id"] != "8" {
		t.Errorf("k2 pipeline = %v, want 8 propagated", k2.Payload["pipeline_id"])
	}
}

func TestImportFileFlagsUnsupportedPipeline(t *testing.T) {
	csv := strings.Join([]string{
		replayHeader,
		"k1,deal,123,deal_update,99,10,D1,",
		"k2,deal,124,deal_update,8,10,D2,",
	}, "\n")

	ingest := newMockIngest()
	svc := newTestImporter(ingest)

	result, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), "", "")
	if err != nil {
		t.Fatalf("one bad row must not fail the batch, got %v", err)
	}

	if result.Flagged != 1 {
		t.Fatalf("flagged = %d, want 1", result.Flagged)
	}
	// The bad row is retained with its marker, not discarded
	if len(result.FlaggedRows) != 1 || !strings.Contains(result.FlaggedRows[0].Error, "99") {
		t.Errorf("flagged row missing or unmarked: %+v", result.FlaggedRows)
	}
	if result.Ingested != 1 {
		t.Errorf("ingested = %d, want 1 (the valid sibling)", result.Ingested)
	}
}

func TestImportFileRawBlobInference(t *testing.T) {
	csv := strings.Join([]string{
		replayHeader,
		`k1,deal,123,deal_update,,10,D1,"{""group"":""8""}"`,
	}, "\n")

	ingest := newMockIngest()
	svc := newTestImporter(ingest)

	result, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), "", "")
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if result.Ingested != 1 || result.Inferred != 1 {
		t.Fatalf("ingested=%d inferred=%d, want 1/1", result.Ingested, result.Inferred)
	}
	if ingest.ingested[0].Payload["pipeline_id"] != "8" {
		t.Errorf("pipeline not parsed from raw blob: %v", ingest.ingested[0].Payload)
	}
}

func TestImportFileReimportIsSafe(t *testing.T) {
	csv := strings.Join([]string{
		replayHeader,
		"k1,deal,123,deal_update,8,10,D1,",
	}, "\n")

	ingest := newMockIngest()
	svc := newTestImporter(ingest)

	if _, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), "", ""); err != nil {
		t.Fatalf("first import error = %v", err)
	}
	result, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), "", "")
	if err != nil {
		t.Fatalf("second import error = %v", err)
	}

	if result.Ingested != 0 || result.Duplicates != 1 {
		t.Errorf("reimport: ingested=%d duplicates=%d, want 0/1", result.Ingested, result.Duplicates)
	}
}

func TestImportFileNewLeadMode(t *testing.T) {
	csv := strings.Join([]string{
		replayHeader,
		"k1,deal,123,deal_add,8,,D1,",
	}, "\n")

	ingest := newMockIngest()
	svc := newTestImporter(ingest)

	if _, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), ModeNewLead, "stage-intake"); err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}

	payload := ingest.ingested[0].Payload
	if payload["import_mode"] != ModeNewLead || payload["default_stage_id"] != "stage-intake" {
		t.Errorf("new_lead payload wrong: %v", payload)
	}
}

func TestImportFileRejectsWhenIngestDisabled(t *testing.T) {
	csv := strings.Join([]string{
		replayHeader,
		"k1,deal,123,deal_update,8,10,D1,",
	}, "\n")

	ingest := newMockIngest()
	ingest.disabled = true
	svc := newTestImporter(ingest)

	if _, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(csv), "", ""); err != events.ErrIngestDisabled {
		t.Fatalf("err = %v, want ErrIngestDisabled", err)
	}
}

func TestImportFileUnknownMode(t *testing.T) {
	svc := newTestImporter(newMockIngest())
	if _, err := svc.ImportFile(context.Background(), "replay.csv", strings.NewReader(""), "bulk", ""); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestImportFileUnsupportedFormat(t *testing.T) {
	svc := newTestImporter(newMockIngest())
	if _, err := svc.ImportFile(context.Background(), "replay.pdf", strings.NewReader(""), "", ""); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
