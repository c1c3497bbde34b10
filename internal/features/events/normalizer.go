package events

import (
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// NormalizedEvent is the canonical view of an inbound payload. The
// normalizer runs once at the start of processing; nothing downstream ever
// touches raw provider key aliases.
type NormalizedEvent struct {
	DealID     string
	Title      string
	Value      string
	StageID    string
	PipelineID string
	OwnerID    string
	DealStatus string

	ContactID string
	Email     string
	FirstName string
	LastName  string
	Phone     string

	// CustomFields is keyed by the provider's field id.
	CustomFields map[string]string
}

// fieldAliases maps each canonical field to every spelling the provider
// uses. Webhook form posts use the bracketed names, API payloads and the
// replay file use the flat ones.
var fieldAliases = map[string][]string{
	"deal_id":     {"deal[id]", "id", "deal_id", "d_id"},
	"title":       {"deal[title]", "title", "deal_title"},
	"value":       {"deal[value]", "value", "deal_value"},
	"stage_id":    {"deal[stageid]", "stage", "stage_id", "d_stageid"},
	"pipeline_id": {"deal[pipelineid]", "pipeline", "pipeline_id", "d_pipelineid"},
	"owner_id":    {"deal[owner]", "owner", "owner_id", "d_owner"},
	"deal_status": {"deal[status]", "status", "deal_status"},
	"contact_id":  {"contact[id]", "contact_id", "contactid"},
	"email":       {"contact[email]", "email", "contact_email"},
	"first_name":  {"contact[first_name]", "first_name", "firstname"},
	"last_name":   {"contact[last_name]", "last_name", "lastname"},
	"phone":       {"contact[phone]", "phone", "contact_phone"},
}

// customFieldKey matches the bracketed custom-field spelling, capturing the
// field id.
var customFieldKey = regexp.MustCompile(`^deal\[fields\]\[(\d+)\]\[(?:id|value)\]$`)

func payloadString(payload bson.M, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Mongo and JSON decode bare numbers to float64
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case int32:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func firstAlias(payload bson.M, canonical string) string {
	for _, alias := range fieldAliases[canonical] {
		if s := payloadString(payload, alias); s != "" {
			return s
		}
	}
	return ""
}

// Normalize collapses all known key aliases of a raw payload into one
// canonical event. Custom fields arrive as deal[fields][N][id] /
// deal[fields][N][value] pairs; the id names the provider field, the value
// carries the data. When only the value is present the positional index
// stands in for the id.
func Normalize(payload bson.M) *NormalizedEvent {
	norm := &NormalizedEvent{
		DealID:       firstAlias(payload, "deal_id"),
		Title:        firstAlias(payload, "title"),
		Value:        firstAlias(payload, "value"),
		StageID:      firstAlias(payload, "stage_id"),
		PipelineID:   firstAlias(payload, "pipeline_id"),
		OwnerID:      firstAlias(payload, "owner_id"),
		DealStatus:   firstAlias(payload, "deal_status"),
		ContactID:    firstAlias(payload, "contact_id"),
		Email:        firstAlias(payload, "email"),
		FirstName:    firstAlias(payload, "first_name"),
		LastName:     firstAlias(payload, "last_name"),
		Phone:        firstAlias(payload, "phone"),
		CustomFields: map[string]string{},
	}

	ids := map[string]string{}
	values := map[string]string{}
	for key := range payload {
		m := customFieldKey.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		idx := m[1]
		if strings.HasSuffix(key, "[id]") {
			ids[idx] = payloadString(payload, key)
		} else {
			values[idx] = payloadString(payload, key)
		}
	}
	for idx, value := range values {
		fieldID := ids[idx]
		if fieldID == "" {
			fieldID = idx
		}
		norm.CustomFields[fieldID] = value
	}

	return norm
}
