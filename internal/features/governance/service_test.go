package governance

import (
	"context"
	"errors"
	"testing"

	common_models "go-crm-sync/internal/common/models"
)

type mockSettingsRepo struct {
	values map[FlagKey]bool
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{values: map[FlagKey]bool{}}
}

func (m *mockSettingsRepo) GetAll(ctx context.Context) ([]Setting, error) {
	var out []Setting
	for k, v := range m.values {
		out = append(out, Setting{Key: k, Value: v})
	}
	return out, nil
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, key FlagKey, value bool) error {
	m.values[key] = value
	return nil
}

type mockAuditService struct {
	entries int
}

func (m *mockAuditService) LogChange(ctx context.Context, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	m.entries++
	return nil
}

func (m *mockAuditService) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

func TestSnapshotDefaults(t *testing.T) {
	svc := NewGateService(newMockSettingsRepo(), &mockAuditService{})

	flags, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	if !flags.InboundIngestEnabled {
		t.Error("default inbound_ingest_enabled should be true")
	}
	if !flags.ShadowModeEnabled {
		t.Error("default shadow_mode_enabled should be true")
	}
	if flags.WriteModeEnabled {
		t.Error("default write_mode_enabled should be false")
	}
	if flags.CanWrite() {
		t.Error("defaults must not permit writes")
	}
	if flags.CanSend() {
		t.Error("defaults must not permit sends")
	}
}

func TestSetFlagMutualExclusion(t *testing.T) {
	tests := []struct {
		name      string
		pre       map[FlagKey]bool
		key       FlagKey
		value     bool
		wantErr   bool
		wantWrite bool
	}{
		{
			name:    "enable write while shadow active is rejected",
			pre:     map[FlagKey]bool{FlagShadowModeEnabled: true},
			key:     FlagWriteModeEnabled,
			value:   true,
			wantErr: true,
		},
		{
			name:      "enable write after shadow disabled succeeds",
			pre:       map[FlagKey]bool{FlagShadowModeEnabled: false},
			key:       FlagWriteModeEnabled,
			value:     true,
			wantWrite: true,
		},
		{
			name:    "enable shadow while write active is rejected",
			pre:     map[FlagKey]bool{FlagShadowModeEnabled: false, FlagWriteModeEnabled: true},
			key:     FlagShadowModeEnabled,
			value:   true,
			wantErr: true,
		},
		{
			name:    "enable outbound sync while outbound shadow active is rejected",
			pre:     map[FlagKey]bool{FlagOutboundShadowMode: true},
			key:     FlagOutboundSyncEnabled,
			value:   true,
			wantErr: true,
		},
		{
			name:  "enable outbound sync after shadow disabled succeeds",
			pre:   map[FlagKey]bool{FlagOutboundShadowMode: false},
			key:   FlagOutboundSyncEnabled,
			value: true,
		},
		{
			name:  "disabling a flag never violates exclusion",
			pre:   map[FlagKey]bool{FlagShadowModeEnabled: true},
			key:   FlagShadowModeEnabled,
			value: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockSettingsRepo()
			for k, v := range tt.pre {
				repo.values[k] = v
			}
			svc := NewGateService(repo, &mockAuditService{})

			flags, err := svc.SetFlag(context.Background(), tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetFlag() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				var policyErr *PolicyError
				if !errors.As(err, &policyErr) {
					t.Errorf("expected PolicyError, got %T", err)
				}
				if policyErr != nil && policyErr.Reason == "" {
					t.Error("policy error must carry a reason")
				}
				return
			}

			if tt.wantWrite && !flags.CanWrite() {
				t.Error("expected CanWrite() true after transition")
			}
		})
	}
}

func TestSetFlagUnknownKey(t *testing.T) {
	svc := NewGateService(newMockSettingsRepo(), &mockAuditService{})

	if _, err := svc.SetFlag(context.Background(), FlagKey("bogus"), true); err == nil {
		t.Fatal("expected error for unknown flag key")
	}
}

func TestSetFlagAudits(t *testing.T) {
	auditSvc := &mockAuditService{}
	svc := NewGateService(newMockSettingsRepo(), auditSvc)

	if _, err := svc.SetFlag(context.Background(), FlagInboundIngestEnabled, false); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}

	if auditSvc.entries != 1 {
		t.Errorf("expected 1 audit entry, got %d", auditSvc.entries)
	}
}
