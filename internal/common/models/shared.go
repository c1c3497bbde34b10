package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

// AuditAction classifies a configuration or sync mutation
type AuditAction string

const (
	AuditActionCreate   AuditAction = "CREATE"
	AuditActionUpdate   AuditAction = "UPDATE"
	AuditActionDelete   AuditAction = "DELETE"
	AuditActionSync     AuditAction = "SYNC"
	AuditActionCron     AuditAction = "CRON"
	AuditActionSettings AuditAction = "SETTINGS"
	AuditActionImport   AuditAction = "IMPORT"
	AuditActionDispatch AuditAction = "DISPATCH"
	AuditActionCatalog  AuditAction = "CATALOG"
	AuditActionMapping  AuditAction = "MAPPING"
)

type Change struct {
	Old any `json:"old,omitempty" bson:"old,omitempty"`
	New any `json:"new,omitempty" bson:"new,omitempty"`
}

type AuditLog struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Action    AuditAction        `json:"action" bson:"action"`
	Module    string             `json:"module" bson:"module"`
	RecordID  string             `json:"record_id" bson:"record_id"`
	ActorID   string             `json:"actor_id" bson:"actor_id"`
	ActorName string             `json:"actor_name,omitempty" bson:"-"`
	Changes   map[string]Change  `json:"changes" bson:"changes"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// EventStatus is the wire-visible lifecycle vocabulary shared by the inbound
// event table and the outbound queue. Dashboards and alerting key off these
// exact strings.
type EventStatus string

const (
	StatusPending         EventStatus = "pending"
	StatusProcessed       EventStatus = "processed"
	StatusProcessedShadow EventStatus = "processed_shadow"
	StatusFailed          EventStatus = "failed"
	StatusBlocked         EventStatus = "blocked"
	StatusIgnored         EventStatus = "ignored"
	StatusRetrying        EventStatus = "retrying"

	// Outbound-only terminal state for a delivered dispatch.
	StatusSent EventStatus = "sent"
)

// EntityType enumerates the external catalog object kinds
type EntityType string

const (
	EntityPipeline EntityType = "pipeline"
	EntityStage    EntityType = "stage"
	EntityUser     EntityType = "user"
	EntityField    EntityType = "field"
)
