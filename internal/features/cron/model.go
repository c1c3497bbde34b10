package cron_feature

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pass names
const (
	PassProcess  = "process"
	PassDispatch = "dispatch"
)

// CronRun records one scheduled invocation of a pass. The passes themselves
// are the same idempotent operations the API exposes; the schedule only
// decides when they fire.
type CronRun struct {
	ID         primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Pass       string                 `json:"pass" bson:"pass"`
	StartedAt  time.Time              `json:"started_at" bson:"started_at"`
	FinishedAt time.Time              `json:"finished_at" bson:"finished_at"`
	Result     map[string]interface{} `json:"result,omitempty" bson:"result,omitempty"`
	Error      string                 `json:"error,omitempty" bson:"error,omitempty"`
}
