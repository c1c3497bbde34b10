package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/config"
	"go-crm-sync/internal/connectors"
	"go-crm-sync/internal/features/governance"
	"go-crm-sync/internal/features/mapping"

	"go.uber.org/zap"
)

type ProcessorService interface {
	ProcessBatch(ctx context.Context, ids []string, limit int64) (*BatchResult, error)
	Retry(ctx context.Context, id string) error
	BulkRetry(ctx context.Context, ids []string) *BulkResult
	Ignore(ctx context.Context, id string, reason string) error
	BulkIgnore(ctx context.Context, ids []string, reason string) *BulkResult
	Stats(ctx context.Context) (map[string]int64, error)
}

type ProcessorServiceImpl struct {
	Repo         EventRepository
	Mapping      mapping.MappingService
	Gate         governance.GateService
	Applier      connectors.CRMApplier
	Publisher    TransitionPublisher
	Logger       *zap.Logger
	applyTimeout time.Duration
}

func NewProcessorService(
	repo EventRepository,
	mappingService mapping.MappingService,
	gate governance.GateService,
	applier connectors.CRMApplier,
	publisher TransitionPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) ProcessorService {
	return &ProcessorServiceImpl{
		Repo:         repo,
		Mapping:      mappingService,
		Gate:         gate,
		Applier:      applier,
		Publisher:    publisher,
		Logger:       logger,
		applyTimeout: time.Duration(cfg.ProviderTimeout) * time.Second,
	}
}

const defaultBatchLimit = 100

// outcome is the terminal decision for one event in one pass.
type outcome struct {
	status common_models.EventStatus
	log    string
}

// ProcessBatch runs one idempotent pass over pending events, either an
// explicit selection or the oldest pending rows. One event failing never
// aborts the pass; each row is durably checkpointed by its own status.
func (s *ProcessorServiceImpl) ProcessBatch(ctx context.Context, ids []string, limit int64) (*BatchResult, error) {
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	var (
		events []InboundEvent
		err    error
	)
	if len(ids) > 0 {
		events, err = s.Repo.FindByIDs(ctx, ids)
	} else {
		events, err = s.Repo.ListPending(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	flags, err := s.Gate.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Errors: map[string]string{}}
	for i := range events {
		event := &events[i]
		if event.Status != common_models.StatusPending {
			// Already moved by a concurrent pass or never reset; no-op
			result.Skipped++
			continue
		}

		out := s.processOne(ctx, event, flags)

		moved, terr := s.Repo.Transition(ctx, event.ID, common_models.StatusPending, out.status, out.log)
		if terr != nil {
			result.Errors[event.ID.Hex()] = terr.Error()
			s.Logger.Error("event transition failed",
				zap.Error(terr),
				zap.String("row_key", event.RowKey),
			)
			continue
		}
		if !moved {
			result.Skipped++
			continue
		}

		s.count(result, out.status)
		if s.Publisher != nil {
			s.Publisher.PublishTransition(event, common_models.StatusPending, out.status)
		}
		s.Logger.Info("event processed",
			zap.String("row_key", event.RowKey),
			zap.String("status", string(out.status)),
		)
	}

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

func (s *ProcessorServiceImpl) count(result *BatchResult, status common_models.EventStatus) {
	switch status {
	case common_models.StatusProcessed:
		result.Processed++
	case common_models.StatusProcessedShadow:
		result.ProcessedShadow++
	case common_models.StatusBlocked:
		result.Blocked++
	case common_models.StatusFailed:
		result.Failed++
	case common_models.StatusIgnored:
		result.Ignored++
	}
}

// processOne decides the terminal status for one pending event. It never
// writes the event row itself; the caller performs the guarded transition.
func (s *ProcessorServiceImpl) processOne(ctx context.Context, event *InboundEvent, flags governance.Flags) outcome {
	allowed, ok := allowedEventTypes[event.EntityType]
	if !ok {
		return outcome{common_models.StatusIgnored, fmt.Sprintf("entity type %q is not handled", event.EntityType)}
	}
	if !allowed[event.EventType] {
		return outcome{common_models.StatusIgnored, fmt.Sprintf("event type %q is not handled for %s", event.EventType, event.EntityType)}
	}

	norm := Normalize(event.Payload)

	switch event.EntityType {
	case EntityContact:
		return s.processContact(ctx, event, norm, flags)
	default:
		return s.processDeal(ctx, event, norm, flags)
	}
}

func (s *ProcessorServiceImpl) processContact(ctx context.Context, event *InboundEvent, norm *NormalizedEvent, flags governance.Flags) outcome {
	contact := connectors.ContactRecord{
		ExternalID: event.ExternalID,
		FirstName:  norm.FirstName,
		LastName:   norm.LastName,
		Email:      norm.Email,
		Phone:      norm.Phone,
		Source:     event.Source,
	}
	if contact.ExternalID == "" {
		contact.ExternalID = norm.ContactID
	}
	if contact.ExternalID == "" && contact.Email == "" {
		return outcome{common_models.StatusFailed, "contact event carries neither external id nor email"}
	}

	return s.applyGated(ctx, flags, contact, func(applyCtx context.Context) (*connectors.ApplyResult, error) {
		return s.Applier.UpsertContact(applyCtx, contact)
	})
}

func (s *ProcessorServiceImpl) processDeal(ctx context.Context, event *InboundEvent, norm *NormalizedEvent, flags governance.Flags) outcome {
	deal := connectors.DealRecord{
		ExternalID:        norm.DealID,
		Title:             norm.Title,
		Status:            norm.DealStatus,
		ContactExternalID: norm.ContactID,
		ContactEmail:      norm.Email,
		Source:            event.Source,
	}
	if deal.ExternalID == "" {
		deal.ExternalID = event.ExternalID
	}
	if norm.Value != "" {
		if v, err := strconv.ParseFloat(norm.Value, 64); err == nil {
			deal.Value = v
		}
	}

	// Pipeline resolution is optional; an unmapped pipeline keeps the
	// external id so the applier can still key the deal.
	internalPipeline, pipelineState, err := s.Mapping.ResolvePipeline(ctx, norm.PipelineID)
	if err != nil {
		return outcome{common_models.StatusFailed, fmt.Sprintf("pipeline lookup failed: %v", err)}
	}
	if pipelineState == mapping.StateIgnored {
		return outcome{common_models.StatusIgnored, fmt.Sprintf("pipeline %s is explicitly ignored", norm.PipelineID)}
	}
	deal.PipelineID = internalPipeline
	if deal.PipelineID == "" {
		deal.PipelineID = norm.PipelineID
	}

	// Stage resolution is required for move events
	internalStage, stageState, err := s.Mapping.ResolveStage(ctx, norm.StageID, norm.PipelineID)
	if err != nil {
		return outcome{common_models.StatusFailed, fmt.Sprintf("stage lookup failed: %v", err)}
	}
	if moveEvents[event.EventType] {
		switch stageState {
		case mapping.StateUnmapped:
			return outcome{common_models.StatusFailed, fmt.Sprintf("unmapped stage %q in pipeline %q", norm.StageID, norm.PipelineID)}
		case mapping.StateIgnored:
			return outcome{common_models.StatusIgnored, fmt.Sprintf("stage %s is explicitly ignored", norm.StageID)}
		}
	}
	deal.StageID = internalStage

	// Owner resolution is best effort
	if norm.OwnerID != "" {
		internalOwner, ownerState, err := s.Mapping.ResolveUser(ctx, norm.OwnerID)
		if err != nil {
			return outcome{common_models.StatusFailed, fmt.Sprintf("owner lookup failed: %v", err)}
		}
		if ownerState == mapping.StateMapped {
			deal.OwnerID = internalOwner
		}
	}

	if len(norm.CustomFields) > 0 {
		deal.MarketingData = map[string]interface{}{}
		unmapped := map[string]string{}
		for fieldID, value := range norm.CustomFields {
			localKey, state, err := s.Mapping.ResolveField(ctx, mapping.DirectionIn, norm.PipelineID, fieldID)
			if err != nil {
				return outcome{common_models.StatusFailed, fmt.Sprintf("field lookup failed: %v", err)}
			}
			switch state {
			case mapping.StateMapped:
				deal.MarketingData[localKey] = value
			case mapping.StateUnmapped:
				unmapped[fieldID] = value
			}
			// Explicitly ignored fields are dropped
		}
		if len(unmapped) > 0 {
			deal.MarketingData["unmapped_fields"] = unmapped
		}
	}

	return s.applyGated(ctx, flags, deal, func(applyCtx context.Context) (*connectors.ApplyResult, error) {
		return s.Applier.UpsertDeal(applyCtx, deal)
	})
}

// applyGated consults the governance flags immediately before the write and
// records the verdict in the log whatever the outcome. Shadow mode computes
// the effect and logs it as a diff without persisting anything.
func (s *ProcessorServiceImpl) applyGated(ctx context.Context, flags governance.Flags, record interface{}, apply func(context.Context) (*connectors.ApplyResult, error)) outcome {
	if flags.ShadowModeEnabled {
		diff, err := json.Marshal(record)
		if err != nil {
			diff = []byte(fmt.Sprintf("%+v", record))
		}
		return outcome{common_models.StatusProcessedShadow, fmt.Sprintf("gate: shadow mode, write suppressed; would apply %s", diff)}
	}
	if !flags.WriteModeEnabled {
		return outcome{common_models.StatusBlocked, "gate: write mode disabled, mutation vetoed"}
	}

	applyCtx := ctx
	if s.applyTimeout > 0 {
		var cancel context.CancelFunc
		applyCtx, cancel = context.WithTimeout(ctx, s.applyTimeout)
		defer cancel()
	}

	res, err := apply(applyCtx)
	if err != nil {
		return outcome{common_models.StatusFailed, fmt.Sprintf("gate: write allowed; apply failed: %v", err)}
	}

	verb := "updated"
	if res.Created {
		verb = "created"
	}
	return outcome{common_models.StatusProcessed, fmt.Sprintf("gate: write allowed; %s internal record %s", verb, res.InternalID)}
}

// Retry resets one event to pending. The processing log is cleared; the
// attempt counter survives for operator visibility.
func (s *ProcessorServiceImpl) Retry(ctx context.Context, id string) error {
	event, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event %s not found", id)
	}

	matched, err := s.Repo.ResetToPending(ctx, event.ID)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("event %s not found", id)
	}

	if s.Publisher != nil {
		s.Publisher.PublishTransition(event, event.Status, common_models.StatusPending)
	}
	return nil
}

func (s *ProcessorServiceImpl) BulkRetry(ctx context.Context, ids []string) *BulkResult {
	result := &BulkResult{Errors: map[string]string{}}
	for _, id := range ids {
		if err := s.Retry(ctx, id); err != nil {
			result.Errors[id] = err.Error()
			continue
		}
		result.Updated++
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result
}

// Ignore is an explicit operator decision; it sticks until the event is
// manually reset to pending.
func (s *ProcessorServiceImpl) Ignore(ctx context.Context, id string, reason string) error {
	if reason == "" {
		reason = "ignored by operator"
	}

	event, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event %s not found", id)
	}

	moved, err := s.Repo.Transition(ctx, event.ID, event.Status, common_models.StatusIgnored, reason)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("event %s changed status concurrently", id)
	}

	if s.Publisher != nil {
		s.Publisher.PublishTransition(event, event.Status, common_models.StatusIgnored)
	}
	return nil
}

func (s *ProcessorServiceImpl) BulkIgnore(ctx context.Context, ids []string, reason string) *BulkResult {
	result := &BulkResult{Errors: map[string]string{}}
	for _, id := range ids {
		if err := s.Ignore(ctx, id, reason); err != nil {
			result.Errors[id] = err.Error()
			continue
		}
		result.Updated++
	}
	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result
}

func (s *ProcessorServiceImpl) Stats(ctx context.Context) (map[string]int64, error) {
	return s.Repo.CountsByStatus(ctx)
}
