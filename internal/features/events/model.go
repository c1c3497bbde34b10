package events

import (
	"time"

	common_models "go-crm-sync/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event sources
const (
	SourceWebhook   = "webhook"
	SourceCSVImport = "csv_import"
)

// Entity types carried by inbound events
const (
	EntityDeal         = "deal"
	EntityContact      = "contact"
	EntityDealActivity = "dealActivity"
)

// Provider event types
const (
	EventDealAdd       = "deal_add"
	EventDealUpdate    = "deal_update"
	EventDealState     = "deal_state"
	EventContactAdd    = "contact_add"
	EventContactUpdate = "contact_update"
	EventFieldChange   = "field_change"
	EventTagChange     = "tag_change"
)

// allowedEventTypes is the processing allow-list per entity. Anything
// outside it is marked ignored with a reason, not failed.
var allowedEventTypes = map[string]map[string]bool{
	EntityDeal: {
		EventDealAdd:     true,
		EventDealUpdate:  true,
		EventDealState:   true,
		EventFieldChange: true,
	},
	EntityDealActivity: {
		EventDealUpdate: true,
		EventDealState:  true,
	},
	EntityContact: {
		EventContactAdd:    true,
		EventContactUpdate: true,
		EventTagChange:     true,
	},
}

// moveEvents are the event types that relocate a deal and therefore
// require a resolvable stage mapping.
var moveEvents = map[string]bool{
	EventDealAdd:    true,
	EventDealUpdate: true,
	EventDealState:  true,
}

// InboundEvent is one unit of change delivered by the external system.
// RowKey is globally unique; redelivery of the same key is a no-op. Rows are
// never physically deleted, only transitioned.
type InboundEvent struct {
	ID            primitive.ObjectID        `json:"id" bson:"_id,omitempty"`
	RowKey        string                    `json:"row_key" bson:"row_key"`
	Source        string                    `json:"source" bson:"source"`
	EntityType    string                    `json:"entity_type" bson:"entity_type"`
	ExternalID    string                    `json:"external_id" bson:"external_id"`
	EventType     string                    `json:"event_type" bson:"event_type"`
	Payload       bson.M                    `json:"payload" bson:"payload"`
	Status        common_models.EventStatus `json:"status" bson:"status"`
	ProcessingLog string                    `json:"processing_log,omitempty" bson:"processing_log,omitempty"`
	Attempts      int                       `json:"attempts" bson:"attempts"`
	CreatedAt     time.Time                 `json:"created_at" bson:"created_at"`
	ProcessedAt   *time.Time                `json:"processed_at,omitempty" bson:"processed_at,omitempty"`
}

// RawEvent is the ingestion boundary shape before a row exists.
type RawEvent struct {
	RowKey     string `json:"row_key"`
	Source     string `json:"source"`
	EntityType string `json:"entity_type"`
	ExternalID string `json:"external_id"`
	EventType  string `json:"event_type"`
	Payload    bson.M `json:"payload"`
}

// BatchResult summarizes one processing pass.
type BatchResult struct {
	Processed       int            `json:"processed"`
	ProcessedShadow int            `json:"processed_shadow"`
	Blocked         int            `json:"blocked"`
	Failed          int            `json:"failed"`
	Ignored         int            `json:"ignored"`
	Skipped         int            `json:"skipped"`
	Errors          map[string]string `json:"errors,omitempty"`
}

// BulkResult reports a per-row bulk operation. Failures never abort the
// remaining rows.
type BulkResult struct {
	Updated int               `json:"updated"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// TransitionPublisher receives status transitions as they happen. The
// websocket feed implements it; a nil publisher is valid.
type TransitionPublisher interface {
	PublishTransition(event *InboundEvent, from, to common_models.EventStatus)
}
