package governance

import (
	"context"
	"fmt"

	common_models "go-crm-sync/internal/common/models"
	"go-crm-sync/internal/features/audit"
)

// PolicyError is a governance veto: expected, not a bug, and always carries
// a human-readable reason that ends up in a processing log.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return e.Reason
}

// GateService is the single mutation and read path for governance flags.
// The mutual-exclusion invariant between shadow and write modes (and the
// outbound pair) is enforced here and nowhere else.
type GateService interface {
	Snapshot(ctx context.Context) (Flags, error)
	SetFlag(ctx context.Context, key FlagKey, value bool) (Flags, error)
}

type GateServiceImpl struct {
	Repo         SettingsRepository
	AuditService audit.AuditService
}

func NewGateService(repo SettingsRepository, auditService audit.AuditService) GateService {
	return &GateServiceImpl{
		Repo:         repo,
		AuditService: auditService,
	}
}

// Snapshot reads all flags, falling back to safe defaults for any flag that
// has never been written.
func (s *GateServiceImpl) Snapshot(ctx context.Context) (Flags, error) {
	flags := DefaultFlags()

	settings, err := s.Repo.GetAll(ctx)
	if err != nil {
		return flags, err
	}

	for _, setting := range settings {
		switch setting.Key {
		case FlagInboundIngestEnabled:
			flags.InboundIngestEnabled = setting.Value
		case FlagShadowModeEnabled:
			flags.ShadowModeEnabled = setting.Value
		case FlagWriteModeEnabled:
			flags.WriteModeEnabled = setting.Value
		case FlagOutboundSyncEnabled:
			flags.OutboundSyncEnabled = setting.Value
		case FlagOutboundShadowMode:
			flags.OutboundShadowMode = setting.Value
		}
	}

	return flags, nil
}

func (s *GateServiceImpl) SetFlag(ctx context.Context, key FlagKey, value bool) (Flags, error) {
	flags, err := s.Snapshot(ctx)
	if err != nil {
		return flags, err
	}

	if err := validateTransition(flags, key, value); err != nil {
		return flags, err
	}

	oldValue := flags.get(key)

	if err := s.Repo.Upsert(ctx, key, value); err != nil {
		return flags, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionSettings, "governance", string(key), map[string]common_models.Change{
		string(key): {Old: oldValue, New: value},
	})

	return s.Snapshot(ctx)
}

// validateTransition rejects flag flips that would break mutual exclusion
func validateTransition(flags Flags, key FlagKey, value bool) error {
	if !value {
		// Disabling a flag can never violate exclusion
		return nil
	}

	switch key {
	case FlagWriteModeEnabled:
		if flags.ShadowModeEnabled {
			return &PolicyError{Reason: "cannot enable write mode while shadow mode is active; disable shadow mode first"}
		}
	case FlagShadowModeEnabled:
		if flags.WriteModeEnabled {
			return &PolicyError{Reason: "cannot enable shadow mode while write mode is active; disable write mode first"}
		}
	case FlagOutboundSyncEnabled:
		if flags.OutboundShadowMode {
			return &PolicyError{Reason: "cannot enable outbound sync while outbound shadow mode is active; disable outbound shadow mode first"}
		}
	case FlagOutboundShadowMode:
		if flags.OutboundSyncEnabled {
			return &PolicyError{Reason: "cannot enable outbound shadow mode while outbound sync is active; disable outbound sync first"}
		}
	case FlagInboundIngestEnabled:
		// No exclusion constraints
	default:
		return fmt.Errorf("unknown governance flag: %s", key)
	}

	return nil
}
