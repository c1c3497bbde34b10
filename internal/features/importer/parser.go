package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportRow is one parsed replay-file record. Error carries a validation
// marker; flagged rows stay in the batch so one bad row never blocks the
// rest.
type ImportRow struct {
	RowKey     string `json:"row_key"`
	Entity     string `json:"entity"`
	EntityID   string `json:"entity_id"`
	ChangeType string `json:"change_type"`
	Pipeline   string `json:"pipeline"`
	Stage      string `json:"stage"`
	DealID     string `json:"deal_id"`
	RawJSON    string `json:"raw_json_string,omitempty"`
	Error      string `json:"error,omitempty"`
}

// positionalColumns is the column order assumed when the file has no
// header row.
var positionalColumns = []string{
	"row_key", "entity", "entity_id", "change_type",
	"pipeline", "stage", "deal_id", "raw_json_string",
}

// columnAliases folds the header spellings seen in real exports onto the
// canonical column names.
var columnAliases = map[string]string{
	"row_key":         "row_key",
	"rowkey":          "row_key",
	"entity":          "entity",
	"entity_type":     "entity",
	"entity_id":       "entity_id",
	"entityid":        "entity_id",
	"change_type":     "change_type",
	"event_type":      "change_type",
	"pipeline":        "pipeline",
	"pipeline_id":     "pipeline",
	"stage":           "stage",
	"stage_id":        "stage",
	"deal_id":         "deal_id",
	"dealid":          "deal_id",
	"raw_json_string": "raw_json_string",
	"raw_json":        "raw_json_string",
}

func cleanCell(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// isHeaderRow detects an optional header: any cell naming the entity
// column marks the first row as a header.
func isHeaderRow(row []string) bool {
	for _, cell := range row {
		key := strings.ToLower(cleanCell(cell))
		if key == "entity" || key == "entity_type" {
			return true
		}
	}
	return false
}

func columnIndex(header []string) map[int]string {
	index := map[int]string{}
	for i, cell := range header {
		if canonical, ok := columnAliases[strings.ToLower(cleanCell(cell))]; ok {
			index[i] = canonical
		}
	}
	return index
}

func buildRow(cells []string, index map[int]string) ImportRow {
	var row ImportRow
	for i, cell := range cells {
		value := cleanCell(cell)
		switch index[i] {
		case "row_key":
			row.RowKey = value
		case "entity":
			row.Entity = value
		case "entity_id":
			row.EntityID = value
		case "change_type":
			row.ChangeType = value
		case "pipeline":
			row.Pipeline = value
		case "stage":
			row.Stage = value
		case "deal_id":
			row.DealID = value
		case "raw_json_string":
			// Raw blobs keep their quoting; only outer whitespace goes
			row.RawJSON = strings.TrimSpace(cell)
		}
	}
	return row
}

// parseRows turns a rectangular cell grid into import rows. Rows missing
// entity or entity_id are skipped outright; a missing row_key is generated
// from the row's identity and ordinal.
func parseRows(grid [][]string) []ImportRow {
	if len(grid) == 0 {
		return nil
	}

	index := map[int]string{}
	start := 0
	if isHeaderRow(grid[0]) {
		index = columnIndex(grid[0])
		start = 1
	} else {
		for i, name := range positionalColumns {
			index[i] = name
		}
	}

	var rows []ImportRow
	for n, cells := range grid[start:] {
		row := buildRow(cells, index)
		if row.Entity == "" || row.EntityID == "" {
			continue
		}
		if row.RowKey == "" {
			row.RowKey = fmt.Sprintf("%s:%s:%d", row.Entity, row.EntityID, n)
		}
		rows = append(rows, row)
	}
	return rows
}

// ParseCSV reads a delimited replay file. The header row is optional and
// auto-detected.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var grid [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		grid = append(grid, rec)
	}

	return parseRows(grid), nil
}

// ParseXLSX reads the same shape from the first sheet of a workbook.
func ParseXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	grid, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet rows: %w", err)
	}

	return parseRows(grid), nil
}
