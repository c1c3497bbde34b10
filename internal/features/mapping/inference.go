package mapping

import "encoding/json"

// BatchRow is the slice of an import row that pipeline inference reads and
// writes. The importer converts to and from its own record type; live
// webhook traffic never goes through here because it always carries an
// explicit pipeline.
type BatchRow struct {
	DealID   string
	Pipeline string
	RawJSON  string
}

// rawEnvelope is the subset of the provider's raw export blob carrying a
// pipeline reference. Exports nest it either at the top level or under
// "deal" depending on export vintage.
type rawEnvelope struct {
	Group string `json:"group"`
	Deal  struct {
		Group string `json:"group"`
	} `json:"deal"`
}

// PipelineFromRaw extracts a pipeline id from a raw export blob by parsing
// it, not by substring matching. Returns "" when the blob is absent,
// malformed, or carries no group.
func PipelineFromRaw(raw string) string {
	if raw == "" {
		return ""
	}

	var env rawEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return ""
	}
	if env.Group != "" {
		return env.Group
	}
	return env.Deal.Group
}

// InferPipelines fills missing pipeline references in a bulk-import batch.
// First each row's raw blob is consulted, then rows sharing a deal id donate
// their pipeline to unlabeled rows. Best effort, applied once per batch;
// rows still unlabeled afterwards are left for validation to flag. Returns
// the number of rows filled.
func InferPipelines(rows []*BatchRow) int {
	filled := 0

	for _, row := range rows {
		if row.Pipeline == "" {
			if p := PipelineFromRaw(row.RawJSON); p != "" {
				row.Pipeline = p
				filled++
			}
		}
	}

	byDeal := make(map[string]string)
	for _, row := range rows {
		if row.DealID != "" && row.Pipeline != "" {
			if _, ok := byDeal[row.DealID]; !ok {
				byDeal[row.DealID] = row.Pipeline
			}
		}
	}

	for _, row := range rows {
		if row.Pipeline == "" && row.DealID != "" {
			if p, ok := byDeal[row.DealID]; ok {
				row.Pipeline = p
				filled++
			}
		}
	}

	return filled
}
