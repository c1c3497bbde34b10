package outbound

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/d5/tengo/v2"

	"go.mongodb.org/mongo-driver/bson"
)

var templateVar = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// renderTemplate substitutes {{var}} placeholders with values from the
// record, resolved at send time. Unknown placeholders render empty rather
// than failing the dispatch.
func renderTemplate(template string, record bson.M) string {
	return templateVar.ReplaceAllStringFunc(template, func(match string) string {
		name := templateVar.FindStringSubmatch(match)[1]
		v, ok := record[name]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprintf("%v", v)
	})
}

// fullObjectEnvelope wraps the whole record for destinations that want
// everything.
func fullObjectEnvelope(action string, record bson.M) ([]byte, error) {
	return json.Marshal(bson.M{
		"event":   action,
		"sent_at": time.Now().UTC().Format(time.RFC3339),
		"record":  record,
	})
}

// applyTransform runs an operator-supplied script over the rendered body.
// The script sees `body` (string) and `record` (map) and reassigns `body`
// to change what is sent.
func applyTransform(script string, body []byte, record bson.M) ([]byte, error) {
	s := tengo.NewScript([]byte(script))

	if err := s.Add("body", string(body)); err != nil {
		return nil, err
	}
	if err := s.Add("record", map[string]interface{}(record)); err != nil {
		return nil, err
	}

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("transform compile failed: %w", err)
	}
	if err := compiled.Run(); err != nil {
		return nil, fmt.Errorf("transform run failed: %w", err)
	}

	out := compiled.Get("body")
	if s, ok := out.Value().(string); ok {
		return []byte(s), nil
	}
	return nil, fmt.Errorf("transform must leave body a string, got %s", out.ValueType())
}

// RenderBody produces the final wire body for one queue item.
func RenderBody(item *OutboundQueueItem) ([]byte, error) {
	var (
		body []byte
		err  error
	)

	switch item.Destination.PayloadMode {
	case PayloadModeTemplate:
		body = []byte(renderTemplate(item.Destination.BodyTemplate, item.Record))
	default:
		body, err = fullObjectEnvelope(item.Action, item.Record)
		if err != nil {
			return nil, err
		}
	}

	if item.Destination.Transform != "" {
		body, err = applyTransform(item.Destination.Transform, body, item.Record)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}
