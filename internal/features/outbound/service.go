package outbound

import (
	"context"
	"fmt"
	"strings"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/connectors"
	"go-crm-sync/internal/features/audit"
	"go-crm-sync/internal/features/governance"

	"go.uber.org/zap"
)

type DispatcherService interface {
	Enqueue(ctx context.Context, item *OutboundQueueItem) error
	DispatchPending(ctx context.Context, limit int64) (*DispatchResult, error)
	Retry(ctx context.Context, id string) error
	Stats(ctx context.Context) (map[string]int64, error)
}

type DispatcherServiceImpl struct {
	Repo         OutboundRepository
	Gate         governance.GateService
	Provider     connectors.ProviderClient
	AuditService audit.AuditService
	Logger       *zap.Logger
}

func NewDispatcherService(
	repo OutboundRepository,
	gate governance.GateService,
	provider connectors.ProviderClient,
	auditService audit.AuditService,
	logger *zap.Logger,
) DispatcherService {
	return &DispatcherServiceImpl{
		Repo:         repo,
		Gate:         gate,
		Provider:     provider,
		AuditService: auditService,
		Logger:       logger,
	}
}

const defaultDispatchLimit = 100

func (s *DispatcherServiceImpl) Enqueue(ctx context.Context, item *OutboundQueueItem) error {
	if item.Destination.URL == "" {
		return fmt.Errorf("outbound item requires a destination url")
	}
	if item.Destination.Method == "" {
		item.Destination.Method = "POST"
	}
	if item.Destination.PayloadMode == "" {
		item.Destination.PayloadMode = PayloadModeFullObject
	}
	item.Status = common_models.StatusPending

	return s.Repo.Insert(ctx, item)
}

// DispatchPending delivers pending queue items oldest first. The governance
// gate is consulted once per pass, immediately before any network traffic;
// shadow mode logs the rendered body without calling anyone.
func (s *DispatcherServiceImpl) DispatchPending(ctx context.Context, limit int64) (*DispatchResult, error) {
	if limit <= 0 {
		limit = defaultDispatchLimit
	}

	items, err := s.Repo.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}

	flags, err := s.Gate.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Errors: map[string]string{}}
	for i := range items {
		item := &items[i]

		status, log := s.dispatchOne(ctx, item, flags)

		moved, terr := s.Repo.Transition(ctx, item.ID, common_models.StatusPending, status, log)
		if terr != nil {
			result.Errors[item.ID.Hex()] = terr.Error()
			s.Logger.Error("outbound transition failed", zap.Error(terr), zap.String("id", item.ID.Hex()))
			continue
		}
		if !moved {
			result.Skipped++
			continue
		}

		switch status {
		case common_models.StatusSent:
			result.Sent++
		case common_models.StatusProcessedShadow:
			result.ProcessedShadow++
		case common_models.StatusBlocked:
			result.Blocked++
		case common_models.StatusFailed:
			result.Failed++
		}
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionDispatch, "outbound", "dispatch_pass", map[string]common_models.Change{
		"result": {New: result},
	})

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

func (s *DispatcherServiceImpl) dispatchOne(ctx context.Context, item *OutboundQueueItem, flags governance.Flags) (common_models.EventStatus, string) {
	body, err := RenderBody(item)
	if err != nil {
		return common_models.StatusFailed, fmt.Sprintf("body render failed: %v", err)
	}

	if flags.OutboundShadowMode {
		return common_models.StatusProcessedShadow,
			fmt.Sprintf("gate: outbound shadow mode, send suppressed; would %s %s with body %s",
				item.Destination.Method, item.Destination.URL, body)
	}
	if !flags.OutboundSyncEnabled {
		return common_models.StatusBlocked, "gate: outbound sync disabled, send vetoed"
	}

	resp, err := s.Provider.Do(ctx, item.Destination.Method, item.Destination.URL, item.Destination.Headers, body)
	if err != nil {
		return common_models.StatusFailed, fmt.Sprintf("gate: send allowed; dispatch failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(resp.Body)
		if len(detail) > 500 {
			detail = detail[:500]
		}
		return common_models.StatusFailed, fmt.Sprintf("gate: send allowed; provider returned %d: %s", resp.StatusCode, detail)
	}

	return common_models.StatusSent, fmt.Sprintf("gate: send allowed; provider returned %d", resp.StatusCode)
}

func (s *DispatcherServiceImpl) Retry(ctx context.Context, id string) error {
	item, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("outbound item %s not found", id)
	}

	matched, err := s.Repo.ResetToPending(ctx, item.ID)
	if err != nil {
		return err
	}
	if !matched {
		return fmt.Errorf("outbound item %s not found", id)
	}
	return nil
}

func (s *DispatcherServiceImpl) Stats(ctx context.Context) (map[string]int64, error) {
	return s.Repo.CountsByStatus(ctx)
}
