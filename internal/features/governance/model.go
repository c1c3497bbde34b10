package governance

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlagKey identifies one governance flag in the settings store
type FlagKey string

const (
	FlagInboundIngestEnabled FlagKey = "inbound_ingest_enabled"
	FlagShadowModeEnabled    FlagKey = "shadow_mode_enabled"
	FlagWriteModeEnabled     FlagKey = "write_mode_enabled"
	FlagOutboundSyncEnabled  FlagKey = "outbound_sync_enabled"
	FlagOutboundShadowMode   FlagKey = "outbound_shadow_mode"
)

// Setting is one persisted flag row
type Setting struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Key       FlagKey            `json:"key" bson:"key"`
	Value     bool               `json:"value" bson:"value"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// Flags is a point-in-time snapshot of the governance settings. Processing
// passes take one snapshot up front and pass it around, so a mid-pass flag
// flip cannot split a batch between policies.
type Flags struct {
	InboundIngestEnabled bool `json:"inbound_ingest_enabled"`
	ShadowModeEnabled    bool `json:"shadow_mode_enabled"`
	WriteModeEnabled     bool `json:"write_mode_enabled"`
	OutboundSyncEnabled  bool `json:"outbound_sync_enabled"`
	OutboundShadowMode   bool `json:"outbound_shadow_mode"`
}

// DefaultFlags returns the safe startup posture: ingestion on, everything
// that mutates the outside world off or shadowed.
func DefaultFlags() Flags {
	return Flags{
		InboundIngestEnabled: true,
		ShadowModeEnabled:    true,
		WriteModeEnabled:     false,
		OutboundSyncEnabled:  false,
		OutboundShadowMode:   true,
	}
}

// CanWrite reports whether real business-table writes are permitted
func (f Flags) CanWrite() bool {
	return f.WriteModeEnabled && !f.ShadowModeEnabled
}

// CanSend reports whether real provider dispatches are permitted
func (f Flags) CanSend() bool {
	return f.OutboundSyncEnabled && !f.OutboundShadowMode
}

func (f Flags) get(key FlagKey) bool {
	switch key {
	case FlagInboundIngestEnabled:
		return f.InboundIngestEnabled
	case FlagShadowModeEnabled:
		return f.ShadowModeEnabled
	case FlagWriteModeEnabled:
		return f.WriteModeEnabled
	case FlagOutboundSyncEnabled:
		return f.OutboundSyncEnabled
	case FlagOutboundShadowMode:
		return f.OutboundShadowMode
	}
	return false
}
