package outbound

import (
	"encoding/json"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestRenderTemplate(t *testing.T) {
	record := bson.M{
		"title": "Big deal",
		"value": 5000,
		"stage": "qualified",
	}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain substitution", `{"name":"{{title}}"}`, `{"name":"Big deal"}`},
		{"numeric value", `value={{value}}`, "value=5000"},
		{"multiple vars", `{{title}} in {{stage}}`, "Big deal in qualified"},
		{"whitespace inside braces", `{{ title }}`, "Big deal"},
		{"unknown var renders empty", `x={{missing}}x`, "x=x"},
		{"no vars", "static body", "static body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := renderTemplate(tt.template, record); got != tt.want {
				t.Errorf("renderTemplate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestRenderBodyFullObject(t *testing.T) {
	item := &OutboundQueueItem{
		Action: "deal_updated",
		Record: bson.M{"title": "Big deal"},
		Destination: Destination{
			PayloadMode: PayloadModeFullObject,
		},
	}

	body, err := RenderBody(item)
	if err != nil {
		t.Fatalf("RenderBody() error = %v", err)
	}

	var envelope struct {
		Event  string                 `json:"event"`
		SentAt string                 `json:"sent_at"`
		Record map[string]interface{} `json:"record"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}
	if envelope.Event != "deal_updated" {
		t.Errorf("event = %q, want deal_updated", envelope.Event)
	}
	if envelope.Record["title"] != "Big deal" {
		t.Errorf("record not embedded: %+v", envelope.Record)
	}
	if envelope.SentAt == "" {
		t.Error("sent_at missing")
	}
}

func TestRenderBodyTransform(t *testing.T) {
	item := &OutboundQueueItem{
		Action: "deal_updated",
		Record: bson.M{"title": "Big deal"},
		Destination: Destination{
			PayloadMode:  PayloadModeTemplate,
			BodyTemplate: `{{title}}`,
			Transform:    `body = "wrapped:" + body`,
		},
	}

	body, err := RenderBody(item)
	if err != nil {
		t.Fatalf("RenderBody() error = %v", err)
	}
	if string(body) != "wrapped:Big deal" {
		t.Errorf("body = %q, want wrapped:Big deal", body)
	}
}

func TestRenderBodyTransformReadsRecord(t *testing.T) {
	item := &OutboundQueueItem{
		Record: bson.M{"stage": "qualified"},
		Destination: Destination{
			PayloadMode:  PayloadModeTemplate,
			BodyTemplate: "x",
			Transform:    `body = record["stage"]`,
		},
	}

	body, err := RenderBody(item)
	if err != nil {
		t.Fatalf("RenderBody() error = %v", err)
	}
	if string(body) != "qualified" {
		t.Errorf("body = %q, want qualified", body)
	}
}

func TestRenderBodyTransformError(t *testing.T) {
	item := &OutboundQueueItem{
		Record: bson.M{},
		Destination: Destination{
			PayloadMode:  PayloadModeTemplate,
			BodyTemplate: "x",
			Transform:    `this is not tengo ((`,
		},
	}

	_, err := RenderBody(item)
	if err == nil || !strings.Contains(err.Error(), "transform") {
		t.Fatalf("expected transform error, got %v", err)
	}
}
