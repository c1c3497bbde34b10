package events

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/connectors"
	"go-crm-sync/internal/features/governance"
	"go-crm-sync/internal/features/mapping"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockEventRepo struct {
	events map[primitive.ObjectID]*InboundEvent
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: map[primitive.ObjectID]*InboundEvent{}}
}

func (m *mockEventRepo) add(event *InboundEvent) *InboundEvent {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Status == "" {
		event.Status = common_models.StatusPending
	}
	event.CreatedAt = time.Now()
	m.events[event.ID] = event
	return event
}

func (m *mockEventRepo) Insert(ctx context.Context, event *InboundEvent) (bool, error) {
	for _, existing := range m.events {
		if existing.RowKey == event.RowKey {
			return false, nil
		}
	}
	m.add(event)
	return true, nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*InboundEvent, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return m.events[oid], nil
}

func (m *mockEventRepo) FindByIDs(ctx context.Context, ids []string) ([]InboundEvent, error) {
	var out []InboundEvent
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, err
		}
		if ev, ok := m.events[oid]; ok {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockEventRepo) ListPending(ctx context.Context, limit int64) ([]InboundEvent, error) {
	var out []InboundEvent
	for _, ev := range m.events {
		if ev.Status == common_models.StatusPending {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockEventRepo) List(ctx context.Context, status common_models.EventStatus, page, limit int64) ([]InboundEvent, error) {
	var out []InboundEvent
	for _, ev := range m.events {
		if status == "" || ev.Status == status {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (m *mockEventRepo) Transition(ctx context.Context, id primitive.ObjectID, from, to common_models.EventStatus, log string) (bool, error) {
	ev, ok := m.events[id]
	if !ok || ev.Status != from {
		return false, nil
	}
	ev.Status = to
	ev.ProcessingLog = log
	if from == common_models.StatusPending {
		ev.Attempts++
	}
	now := time.Now()
	ev.ProcessedAt = &now
	return true, nil
}

func (m *mockEventRepo) ResetToPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	ev, ok := m.events[id]
	if !ok {
		return false, nil
	}
	ev.Status = common_models.StatusPending
	ev.ProcessingLog = ""
	ev.ProcessedAt = nil
	return true, nil
}

func (m *mockEventRepo) CountsByStatus(ctx context.Context) (map[string]int64, error) {
	counts := map[string]int64{}
	for _, ev := range m.events {
		counts[string(ev.Status)]++
	}
	return counts, nil
}

func (m *mockEventRepo) CaptureDebug(ctx context.Context, raw *RawEvent) error { return nil }

func (m *mockEventRepo) EnsureIndexes(ctx context.Context) error { return nil }

type mockGate struct {
	flags governance.Flags
}

func (m *mockGate) Snapshot(ctx context.Context) (governance.Flags, error) {
	return m.flags, nil
}

func (m *mockGate) SetFlag(ctx context.Context, key governance.FlagKey, value bool) (governance.Flags, error) {
	return m.flags, nil
}

// mockResolver maps stage "10"→"qualified" under pipeline "8", user
// "42"→"u-1", field "15"→"priority"; everything else is unmapped.
type mockResolver struct{}

func (mockResolver) SetMapping(ctx context.Context, entry *mapping.MappingEntry) error { return nil }

func (mockResolver) ListMappings(ctx context.Context, kind mapping.MappingKind) ([]mapping.MappingEntry, error) {
	return nil, nil
}

func (mockResolver) ResolvePipeline(ctx context.Context, externalPipelineID string) (string, mapping.ResolveState, error) {
	if externalPipelineID == "8" {
		return "sales", mapping.StateMapped, nil
	}
	return "", mapping.StateUnmapped, nil
}

func (mockResolver) ResolveStage(ctx context.Context, externalStageID, externalPipelineID string) (string, mapping.ResolveState, error) {
	if externalStageID == "10" && externalPipelineID == "8" {
		return "qualified", mapping.StateMapped, nil
	}
	return "", mapping.StateUnmapped, nil
}

func (mockResolver) ResolveUser(ctx context.Context, externalUserID string) (string, mapping.ResolveState, error) {
	if externalUserID == "42" {
		return "u-1", mapping.StateMapped, nil
	}
	return "", mapping.StateUnmapped, nil
}

func (mockResolver) ResolveField(ctx context.Context, direction, externalPipelineID, externalFieldID string) (string, mapping.ResolveState, error) {
	if externalFieldID == "15" {
		return "priority", mapping.StateMapped, nil
	}
	return "", mapping.StateUnmapped, nil
}

func (mockResolver) Coverage(ctx context.Context) ([]mapping.CoverageStat, error) { return nil, nil }

type mockApplier struct {
	contacts []connectors.ContactRecord
	deals    []connectors.DealRecord
	err      error
}

func (m *mockApplier) UpsertContact(ctx context.Context, contact connectors.ContactRecord) (*connectors.ApplyResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.contacts = append(m.contacts, contact)
	return &connectors.ApplyResult{Created: true, InternalID: "c-1"}, nil
}

func (m *mockApplier) UpsertDeal(ctx context.Context, deal connectors.DealRecord) (*connectors.ApplyResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.deals = append(m.deals, deal)
	return &connectors.ApplyResult{Created: false, InternalID: "d-1"}, nil
}

func (m *mockApplier) TestConnection(ctx context.Context) error { return nil }

func newTestProcessor(repo EventRepository, flags governance.Flags, applier connectors.CRMApplier) ProcessorService {
	return &ProcessorServiceImpl{
		Repo:         repo,
		Mapping:      mockResolver{},
		Gate:         &mockGate{flags: flags},
		Applier:      applier,
		Logger:       zap.NewNop(),
		applyTimeout: time.Second,
	}
}

func pendingDealEvent(repo *mockEventRepo, rowKey string, payload bson.M) *InboundEvent {
	return repo.add(&InboundEvent{
		RowKey:     rowKey,
		Source:     SourceWebhook,
		EntityType: EntityDeal,
		ExternalID: "123",
		EventType:  EventDealUpdate,
		Payload:    payload,
	})
}

var writeFlags = governance.Flags{
	InboundIngestEnabled: true,
	WriteModeEnabled:     true,
}

func TestProcessBatchApplies(t *testing.T) {
	repo := newMockEventRepo()
	applier := &mockApplier{}
	event := pendingDealEvent(repo, "deal:123:1", bson.M{
		"deal[id]":               "123",
		"deal[stageid]":          "10",
		"deal[pipelineid]":       "8",
		"deal[owner]":            "42",
		"deal[value]":            "5000",
		"deal[fields][0][id]":    "15",
		"deal[fields][0][value]": "high",
		"deal[fields][1][id]":    "99",
		"deal[fields][1][value]": "mystery",
	})

	svc := newTestProcessor(repo, writeFlags, applier)
	result, err := svc.ProcessBatch(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if result.Processed != 1 {
		t.Fatalf("processed = %d, want 1", result.Processed)
	}

	if event.Status != common_models.StatusProcessed {
		t.Errorf("status = %s, want processed", event.Status)
	}
	if event.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", event.Attempts)
	}
	if !strings.Contains(event.ProcessingLog, "gate: write allowed") {
		t.Errorf("gate verdict missing from log: %q", event.ProcessingLog)
	}

	if len(applier.deals) != 1 {
		t.Fatalf("applier received %d deals, want 1", len(applier.deals))
	}
	deal := applier.deals[0]
	if deal.PipelineID != "sales" || deal.StageID != "qualified" || deal.OwnerID != "u-1" {
		t.Errorf("ids not resolved: %+v", deal)
	}
	if deal.Value != 5000 {
		t.Errorf("value = %v, want 5000", deal.Value)
	}
	if deal.MarketingData["priority"] != "high" {
		t.Errorf("mapped field missing: %+v", deal.MarketingData)
	}
	unmapped, ok := deal.MarketingData["unmapped_fields"].(map[string]string)
	if !ok || unmapped["99"] != "mystery" {
		t.Errorf("unmapped field not retained: %+v", deal.MarketingData)
	}
}

func TestProcessBatchShadowMode(t *testing.T) {
	repo := newMockEventRepo()
	applier := &mockApplier{}
	event := pendingDealEvent(repo, "deal:123:1", bson.M{
		"deal[id]":         "123",
		"deal[stageid]":    "10",
		"deal[pipelineid]": "8",
	})

	flags := governance.Flags{InboundIngestEnabled: true, ShadowModeEnabled: true, WriteModeEnabled: false}
	svc := newTestProcessor(repo, flags, applier)
	result, err := svc.ProcessBatch(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.ProcessedShadow != 1 {
		t.Errorf("processed_shadow = %d, want 1", result.ProcessedShadow)
	}
	if event.Status != common_models.StatusProcessedShadow {
		t.Errorf("status = %s, want processed_shadow", event.Status)
	}
	if !strings.Contains(event.ProcessingLog, "would apply") {
		t.Errorf("computed diff missing from log: %q", event.ProcessingLog)
	}
	if len(applier.deals) != 0 {
		t.Errorf("shadow mode must not touch the applier, got %d writes", len(applier.deals))
	}
}

func TestProcessBatchBlocked(t *testing.T) {
	repo := newMockEventRepo()
	applier := &mockApplier{}
	event := pendingDealEvent(repo, "deal:123:1", bson.M{
		"deal[id]":         "123",
		"deal[stageid]":    "10",
		"deal[pipelineid]": "8",
	})

	flags := governance.Flags{InboundIngestEnabled: true}
	svc := newTestProcessor(repo, flags, applier)
	if _, err := svc.ProcessBatch(context.Background(), nil, 10); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if event.Status != common_models.StatusBlocked {
		t.Errorf("status = %s, want blocked", event.Status)
	}
	if !strings.Contains(event.ProcessingLog, "write mode disabled") {
		t.Errorf("policy reason missing from log: %q", event.ProcessingLog)
	}
	if len(applier.deals) != 0 {
		t.Errorf("blocked event must not reach the applier")
	}
}

func TestProcessBatchUnmappedStage(t *testing.T) {
	repo := newMockEventRepo()
	event := pendingDealEvent(repo, "deal:123:1", bson.M{
		"deal[id]":         "123",
		"deal[stageid]":    "77",
		"deal[pipelineid]": "8",
	})

	svc := newTestProcessor(repo, writeFlags, &mockApplier{})
	if _, err := svc.ProcessBatch(context.Background(), nil, 10); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if event.Status != common_models.StatusFailed {
		t.Errorf("status = %s, want failed", event.Status)
	}
	if !strings.Contains(event.ProcessingLog, "unmapped stage") {
		t.Errorf("log = %q, want unmapped stage reason", event.ProcessingLog)
	}
}

func TestProcessBatchIgnoresUnknownEntity(t *testing.T) {
	repo := newMockEventRepo()
	event := repo.add(&InboundEvent{
		RowKey:     "note:1:1",
		EntityType: "note",
		ExternalID: "1",
		EventType:  "note_add",
		Payload:    bson.M{},
	})

	svc := newTestProcessor(repo, writeFlags, &mockApplier{})
	result, err := svc.ProcessBatch(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.Ignored != 1 {
		t.Errorf("ignored = %d, want 1", result.Ignored)
	}
	if event.Status != common_models.StatusIgnored || event.ProcessingLog == "" {
		t.Errorf("expected ignored with reason, got %s %q", event.Status, event.ProcessingLog)
	}
}

func TestProcessBatchApplierFailure(t *testing.T) {
	repo := newMockEventRepo()
	event := pendingDealEvent(repo, "deal:123:1", bson.M{
		"deal[id]":         "123",
		"deal[stageid]":    "10",
		"deal[pipelineid]": "8",
	})
	broken := pendingDealEvent(repo, "deal:124:1", bson.M{
		"deal[id]":         "124",
		"deal[stageid]":    "10",
		"deal[pipelineid]": "8",
	})
	_ = broken

	svc := newTestProcessor(repo, writeFlags, &mockApplier{err: fmt.Errorf("connection refused")})
	result, err := svc.ProcessBatch(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("pass must not abort on event failure, got %v", err)
	}

	// Both events fail but the pass completes
	if result.Failed != 2 {
		t.Errorf("failed = %d, want 2", result.Failed)
	}
	if !strings.Contains(event.ProcessingLog, "connection refused") {
		t.Errorf("error detail missing from log: %q", event.ProcessingLog)
	}
}

func TestProcessBatchContact(t *testing.T) {
	repo := newMockEventRepo()
	repo.add(&InboundEvent{
		RowKey:     "contact:77:1",
		EntityType: EntityContact,
		ExternalID: "77",
		EventType:  EventContactUpdate,
		Payload: bson.M{
			"contact[email]":      "ana@example.com",
			"contact[first_name]": "Ana",
		},
	})

	applier := &mockApplier{}
	svc := newTestProcessor(repo, writeFlags, applier)
	result, err := svc.ProcessBatch(context.Background(), nil, 10)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.Processed != 1 {
		t.Fatalf("processed = %d, want 1", result.Processed)
	}
	if len(applier.contacts) != 1 || applier.contacts[0].Email != "ana@example.com" {
		t.Errorf("contact not applied: %+v", applier.contacts)
	}
}

func TestProcessBatchSkipsNonPending(t *testing.T) {
	repo := newMockEventRepo()
	event := repo.add(&InboundEvent{
		RowKey:     "deal:1:1",
		EntityType: EntityDeal,
		ExternalID: "1",
		EventType:  EventDealUpdate,
		Status:     common_models.StatusIgnored,
		Payload:    bson.M{},
	})

	svc := newTestProcessor(repo, writeFlags, &mockApplier{})
	result, err := svc.ProcessBatch(context.Background(), []string{event.ID.Hex()}, 10)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	if result.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", result.Skipped)
	}
	if event.Status != common_models.StatusIgnored {
		t.Errorf("ignored event must stay untouched, got %s", event.Status)
	}
}

func TestRetryPreservesAttempts(t *testing.T) {
	repo := newMockEventRepo()
	event := repo.add(&InboundEvent{
		RowKey:        "deal:1:1",
		EntityType:    EntityDeal,
		ExternalID:    "1",
		EventType:     EventDealUpdate,
		Status:        common_models.StatusFailed,
		ProcessingLog: "unmapped stage",
		Attempts:      3,
		Payload:       bson.M{},
	})

	svc := newTestProcessor(repo, writeFlags, &mockApplier{})
	if err := svc.Retry(context.Background(), event.ID.Hex()); err != nil {
		t.Fatalf("Retry() error = %v", err)
	}

	if event.Status != common_models.StatusPending {
		t.Errorf("status = %s, want pending", event.Status)
	}
	if event.ProcessingLog != "" {
		t.Errorf("processing log not cleared: %q", event.ProcessingLog)
	}
	if event.Attempts != 3 {
		t.Errorf("attempts = %d, want 3 preserved", event.Attempts)
	}
}

func TestBulkRetryPerRowIndependence(t *testing.T) {
	repo := newMockEventRepo()
	good := repo.add(&InboundEvent{
		RowKey:     "deal:1:1",
		EntityType: EntityDeal,
		ExternalID: "1",
		EventType:  EventDealUpdate,
		Status:     common_models.StatusFailed,
		Payload:    bson.M{},
	})

	svc := newTestProcessor(repo, writeFlags, &mockApplier{})
	result := svc.BulkRetry(context.Background(), []string{good.ID.Hex(), "not-a-hex-id"})

	if result.Updated != 1 {
		t.Errorf("updated = %d, want 1", result.Updated)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want one entry for the bad id", result.Errors)
	}
	if good.Status != common_models.StatusPending {
		t.Errorf("good row not reset despite sibling failure")
	}
}

func TestBulkIgnore(t *testing.T) {
	repo := newMockEventRepo()
	a := pendingDealEvent(repo, "deal:1:1", bson.M{})
	b := pendingDealEvent(repo, "deal:2:1", bson.M{})

	svc := newTestProcessor(repo, writeFlags, &mockApplier{})
	result := svc.BulkIgnore(context.Background(), []string{a.ID.Hex(), b.ID.Hex()}, "out of scope")

	if result.Updated != 2 {
		t.Fatalf("updated = %d, want 2", result.Updated)
	}
	if a.Status != common_models.StatusIgnored || a.ProcessingLog != "out of scope" {
		t.Errorf("event not ignored with reason: %s %q", a.Status, a.ProcessingLog)
	}
}
