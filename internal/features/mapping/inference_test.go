package mapping

import "testing"

func TestPipelineFromRaw(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"top level group", `{"group":"8","stage":"10"}`, "8"},
		{"nested under deal", `{"deal":{"group":"6"}}`, "6"},
		{"top level wins over nested", `{"group":"8","deal":{"group":"6"}}`, "8"},
		{"no group", `{"stage":"10"}`, ""},
		{"empty blob", "", ""},
		{"malformed json", `{"group":`, ""},
		// A substring match would wrongly extract from this; a typed parse must not
		{"group mentioned in unrelated field", `{"note":"moved to \"group\":\"8\" manually"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PipelineFromRaw(tt.raw); got != tt.want {
				t.Errorf("PipelineFromRaw(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestInferPipelinesFromRaw(t *testing.T) {
	rows := []*BatchRow{
		{DealID: "d1", RawJSON: `{"group":"8"}`},
		{DealID: "d2", Pipeline: "6"},
	}

	if filled := InferPipelines(rows); filled != 1 {
		t.Errorf("filled = %d, want 1", filled)
	}
	if rows[0].Pipeline != "8" {
		t.Errorf("row 0 pipeline = %q, want 8", rows[0].Pipeline)
	}
}

func TestInferPipelinesDealPropagation(t *testing.T) {
	rows := []*BatchRow{
		{DealID: "d1", Pipeline: "8"},
		{DealID: "d1"},
		{DealID: "d1"},
		{DealID: "d2"},
	}

	if filled := InferPipelines(rows); filled != 2 {
		t.Errorf("filled = %d, want 2", filled)
	}
	if rows[1].Pipeline != "8" || rows[2].Pipeline != "8" {
		t.Errorf("deal d1 rows not propagated: %q, %q", rows[1].Pipeline, rows[2].Pipeline)
	}
	// No donor for d2; left for validation to flag
	if rows[3].Pipeline != "" {
		t.Errorf("row without donor got pipeline %q", rows[3].Pipeline)
	}
}

func TestInferPipelinesRawFeedsPropagation(t *testing.T) {
	// A raw-blob pipeline extracted in the first pass donates in the second
	rows := []*BatchRow{
		{DealID: "d1", RawJSON: `{"group":"6"}`},
		{DealID: "d1"},
	}

	if filled := InferPipelines(rows); filled != 2 {
		t.Errorf("filled = %d, want 2", filled)
	}
	if rows[1].Pipeline != "6" {
		t.Errorf("row 1 pipeline = %q, want 6", rows[1].Pipeline)
	}
}

func TestInferPipelinesExplicitWins(t *testing.T) {
	rows := []*BatchRow{
		{DealID: "d1", Pipeline: "8", RawJSON: `{"group":"6"}`},
	}

	if filled := InferPipelines(rows); filled != 0 {
		t.Errorf("filled = %d, want 0", filled)
	}
	if rows[0].Pipeline != "8" {
		t.Errorf("explicit pipeline overwritten: %q", rows[0].Pipeline)
	}
}
