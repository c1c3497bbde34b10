package mapping

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MappingKind selects one of the four external→internal edge collections.
type MappingKind string

const (
	KindPipeline MappingKind = "pipeline"
	KindStage    MappingKind = "stage"
	KindUser     MappingKind = "user"
	KindField    MappingKind = "field"
)

// Field mappings are directional; the other kinds are inbound-only.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// IgnoreSentinel marks a target as explicitly ignored rather than unmapped.
const IgnoreSentinel = "ignore"

// MappingEntry is a directed edge from an external identifier to an internal
// one. ExternalPipelineID scopes stage and field mappings; Direction applies
// to field mappings only. An Ignored entry carries no internal target but is
// still distinguishable from a missing row.
type MappingEntry struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Kind               MappingKind        `json:"kind" bson:"kind"`
	ExternalID         string             `json:"external_id" bson:"external_id"`
	ExternalPipelineID string             `json:"external_pipeline_id,omitempty" bson:"external_pipeline_id,omitempty"`
	Direction          string             `json:"direction,omitempty" bson:"direction,omitempty"`
	InternalID         string             `json:"internal_id" bson:"internal_id"`
	Ignored            bool               `json:"ignored,omitempty" bson:"ignored,omitempty"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// ResolveState is the outcome of a resolver lookup.
type ResolveState string

const (
	StateMapped   ResolveState = "mapped"
	StateUnmapped ResolveState = "unmapped"
	StateIgnored  ResolveState = "ignored"
)

// CoverageStat is per-kind mapping health, computed against catalog counts.
// Observability only; nothing branches on it.
type CoverageStat struct {
	Kind   MappingKind `json:"kind"`
	Mapped int64       `json:"mapped"`
	Total  int64       `json:"total"`
	Ratio  float64     `json:"ratio"`
}
