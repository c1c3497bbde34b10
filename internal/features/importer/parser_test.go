package importer

import (
	"strings"
	"testing"
)

func TestParseCSVWithHeader(t *testing.T) {
	csv := strings.Join([]string{
		"row_key,entity,entity_id,change_type,pipeline,stage,deal_id,raw_json_string",
		`k1,deal,123,deal_update,8,10,d1,"{""group"":""8""}"`,
		"k2,contact,77,contact_update,,,,",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.RowKey != "k1" || first.Entity != "deal" || first.EntityID != "123" {
		t.Errorf("identity columns wrong: %+v", first)
	}
	if first.ChangeType != "deal_update" || first.Pipeline != "8" || first.Stage != "10" || first.DealID != "d1" {
		t.Errorf("data columns wrong: %+v", first)
	}
	if first.RawJSON != `{"group":"8"}` {
		t.Errorf("raw json = %q", first.RawJSON)
	}
}

func TestParseCSVHeaderless(t *testing.T) {
	csv := "k1,deal,123,deal_update,8,10,d1,\n"

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Entity != "deal" || rows[0].Pipeline != "8" {
		t.Errorf("positional columns wrong: %+v", rows[0])
	}
}

func TestParseCSVAliasHeaders(t *testing.T) {
	csv := strings.Join([]string{
		"entity_type,entity_id,event_type,pipeline_id,stage_id",
		"deal,123,deal_update,8,10",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Entity != "deal" || rows[0].ChangeType != "deal_update" || rows[0].Pipeline != "8" || rows[0].Stage != "10" {
		t.Errorf("alias headers not folded: %+v", rows[0])
	}
}

func TestParseCSVSkipsRowsMissingIdentity(t *testing.T) {
	csv := strings.Join([]string{
		"row_key,entity,entity_id",
		"k1,deal,123",
		"k2,,456",
		"k3,deal,",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1 (identityless rows skipped)", len(rows))
	}
}

func TestParseCSVGeneratesRowKey(t *testing.T) {
	csv := strings.Join([]string{
		"entity,entity_id,change_type",
		"deal,123,deal_update",
		"deal,124,deal_update",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}

	if rows[0].RowKey != "deal:123:0" {
		t.Errorf("row 0 key = %q, want deal:123:0", rows[0].RowKey)
	}
	if rows[1].RowKey != "deal:124:1" {
		t.Errorf("row 1 key = %q, want deal:124:1", rows[1].RowKey)
	}
}

func TestParseCSVTrimsQuotes(t *testing.T) {
	csv := strings.Join([]string{
		"entity,entity_id,pipeline",
		` deal ,'123',"8"`,
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Entity != "deal" || rows[0].EntityID != "123" || rows[0].Pipeline != "8" {
		t.Errorf("cells not cleaned: %+v", rows[0])
	}
}

func TestParseCSVEmpty(t *testing.T) {
	rows, err := ParseCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows from empty input", len(rows))
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	// Exports truncate trailing empty columns; short rows must not error
	csv := strings.Join([]string{
		"row_key,entity,entity_id,change_type,pipeline",
		"k1,deal,123",
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Pipeline != "" {
		t.Errorf("short row mishandled: %+v", rows)
	}
}
