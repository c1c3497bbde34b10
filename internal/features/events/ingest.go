package events

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/features/governance"

	"go.uber.org/zap"
)

// ErrIngestDisabled is returned when inbound ingestion is switched off. No
// event row is created in that case.
var ErrIngestDisabled = errors.New("inbound ingestion is disabled")

type IngestService interface {
	Ingest(ctx context.Context, raw *RawEvent) (*InboundEvent, bool, error)
}

type IngestServiceImpl struct {
	Repo   EventRepository
	Gate   governance.GateService
	Config *config.Config
	Logger *zap.Logger
}

func NewIngestService(repo EventRepository, gate governance.GateService, cfg *config.Config, logger *zap.Logger) IngestService {
	return &IngestServiceImpl{
		Repo:   repo,
		Gate:   gate,
		Config: cfg,
		Logger: logger,
	}
}

// deriveRowKey builds a deterministic idempotency key for sources that do
// not supply one. The payload hash disambiguates distinct changes to the
// same entity while keeping redelivery of an identical change a no-op.
func deriveRowKey(raw *RawEvent) string {
	keys := make([]string, 0, len(raw.Payload))
	for k := range raw.Payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha1.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s=%v;", k, raw.Payload[k])
	}
	suffix := hex.EncodeToString(h.Sum(nil))[:12]

	return strings.Join([]string{raw.EntityType, raw.ExternalID, raw.EventType, suffix}, ":")
}

// Ingest accepts one raw change notification and persists it pending. A
// duplicate row_key is silently accepted and the existing row is left
// untouched; the second return value reports whether a new row was created.
func (s *IngestServiceImpl) Ingest(ctx context.Context, raw *RawEvent) (*InboundEvent, bool, error) {
	flags, err := s.Gate.Snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	if !flags.InboundIngestEnabled {
		return nil, false, ErrIngestDisabled
	}

	if raw.EntityType == "" || raw.ExternalID == "" {
		return nil, false, fmt.Errorf("event requires entity_type and external_id")
	}
	if raw.Source == "" {
		raw.Source = SourceWebhook
	}
	if raw.RowKey == "" {
		raw.RowKey = deriveRowKey(raw)
	}

	if s.Config.DebugCapture {
		if err := s.Repo.CaptureDebug(ctx, raw); err != nil {
			s.Logger.Warn("debug capture failed", zap.Error(err), zap.String("row_key", raw.RowKey))
		}
	}

	event := &InboundEvent{
		RowKey:     raw.RowKey,
		Source:     raw.Source,
		EntityType: raw.EntityType,
		ExternalID: raw.ExternalID,
		EventType:  raw.EventType,
		Payload:    raw.Payload,
		Status:     common_models.StatusPending,
	}

	inserted, err := s.Repo.Insert(ctx, event)
	if err != nil {
		return nil, false, err
	}
	if !inserted {
		s.Logger.Debug("duplicate row_key ignored", zap.String("row_key", raw.RowKey))
		return event, false, nil
	}

	s.Logger.Info("event ingested",
		zap.String("row_key", event.RowKey),
		zap.String("entity_type", event.EntityType),
		zap.String("event_type", event.EventType),
		zap.String("source", event.Source),
	)
	return event, true, nil
}
