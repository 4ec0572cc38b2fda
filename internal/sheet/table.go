// internal/sheet/table.go
package sheet

import (
	"encoding/json"
	"fmt"
)

// Table is a transient snapshot of the published spreadsheet. No uniqueness
// or typing guarantees: any column may contain any shape of text, rows may
// be sparse.
type Table struct {
	Cols []Column `json:"cols"`
	Rows []Row    `json:"rows"`
}

type Column struct {
	Label string `json:"label"`
}

type Row struct {
	Cells []Cell `json:"cells"`
}

// Cell carries the raw value and the sheet's formatted rendering of it.
// A missing or null cell is the zero value.
type Cell struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted,omitempty"`
}

// Text returns the raw value, falling back to the formatted rendering.
func (c Cell) Text() string {
	if c.Value != "" {
		return c.Value
	}
	return c.Formatted
}

// At returns the cell at idx, or a zero Cell when idx is the not-found
// sentinel or the row is shorter than the column map claims.
func (r Row) At(idx int) Cell {
	if idx < 0 || idx >= len(r.Cells) {
		return Cell{}
	}
	return r.Cells[idx]
}

// --- gviz wire format ---

type gvizResponse struct {
	Table gvizTable `json:"table"`
}

type gvizTable struct {
	Cols []gvizCol `json:"cols"`
	Rows []gvizRow `json:"rows"`
}

type gvizCol struct {
	Label string `json:"label"`
}

type gvizRow struct {
	C []*gvizCell `json:"c"`
}

type gvizCell struct {
	V interface{} `json:"v"`
	F string      `json:"f"`
}

func decodeTable(payload []byte) (*Table, error) {
	var resp gvizResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	if resp.Table.Cols == nil && resp.Table.Rows == nil {
		return nil, fmt.Errorf("payload has no table")
	}

	t := &Table{
		Cols: make([]Column, len(resp.Table.Cols)),
		Rows: make([]Row, len(resp.Table.Rows)),
	}
	for i, col := range resp.Table.Cols {
		t.Cols[i] = Column{Label: col.Label}
	}
	for i, row := range resp.Table.Rows {
		cells := make([]Cell, len(row.C))
		for j, cell := range row.C {
			if cell == nil {
				continue
			}
			cells[j] = Cell{Value: stringifyValue(cell.V), Formatted: cell.F}
		}
		t.Rows[i] = Row{Cells: cells}
	}
	return t, nil
}

// stringifyValue flattens a gviz cell value. The sheet has no schema, so
// numbers and booleans show up where text is expected.
func stringifyValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
