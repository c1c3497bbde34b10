package outbound

import (
	"time"

	common_models "go-crm-sync/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Body rendering modes
const (
	PayloadModeTemplate   = "template"
	PayloadModeFullObject = "full_object"
)

// Destination describes where and how one queue item is delivered.
// BodyTemplate holds {{var}} placeholders resolved against the record at
// send time; Transform is an optional script run over the rendered body.
type Destination struct {
	Method       string            `json:"method" bson:"method"`
	URL          string            `json:"url" bson:"url"`
	Headers      map[string]string `json:"headers,omitempty" bson:"headers,omitempty"`
	PayloadMode  string            `json:"payload_mode" bson:"payload_mode"`
	BodyTemplate string            `json:"body_template,omitempty" bson:"body_template,omitempty"`
	Transform    string            `json:"transform,omitempty" bson:"transform,omitempty"`
}

// OutboundQueueItem is one internal change headed for the external
// provider. One row per logical change; the caller that enqueues decides
// when, so the queue itself never deduplicates.
type OutboundQueueItem struct {
	ID          primitive.ObjectID        `json:"id" bson:"_id,omitempty"`
	Destination Destination               `json:"destination" bson:"destination"`
	Action      string                    `json:"action" bson:"action"`
	Record      bson.M                    `json:"record" bson:"record"`
	Status      common_models.EventStatus `json:"status" bson:"status"`
	RetryCount  int                       `json:"retry_count" bson:"retry_count"`
	ErrorLog    string                    `json:"error_log,omitempty" bson:"error_log,omitempty"`
	CreatedAt   time.Time                 `json:"created_at" bson:"created_at"`
	SentAt      *time.Time                `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
}

// DispatchResult summarizes one dispatch pass.
type DispatchResult struct {
	Sent            int               `json:"sent"`
	ProcessedShadow int               `json:"processed_shadow"`
	Blocked         int               `json:"blocked"`
	Failed          int               `json:"failed"`
	Skipped         int               `json:"skipped"`
	Errors          map[string]string `json:"errors,omitempty"`
}
