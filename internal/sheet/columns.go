// internal/sheet/columns.go
package sheet

import "strings"

// ColumnIndexes maps the roles the funnel needs onto whatever column order
// the operators happen to publish. An index of -1 means the role could not
// be located and reads of it yield empty cells.
type ColumnIndexes struct {
	QRURL    int
	ShopName int
	ShopLogo int
	MapURL   int
	PlaceID  int
}

// Resolve locates each role by keyword heuristics rather than fixed
// positions, so operators can reorder or rename columns without breaking
// the funnel.
func Resolve(t *Table) ColumnIndexes {
	return ColumnIndexes{
		QRURL:    findIndex(t, []string{"qr", "url"}),
		ShopName: findIndex(t, []string{"shop", "name"}, []string{"name"}, []string{"business"}),
		ShopLogo: findIndex(t, []string{"shop", "logo"}, []string{"logo"}, []string{"image"}),
		MapURL:   findIndex(t, []string{"map", "url"}, []string{"google", "url"}),
		PlaceID:  findIndex(t, []string{"place", "id"}, []string{"pid"}, []string{"placeid"}),
	}
}

// findIndex tries the declared header labels first, then falls back to the
// first data row for sheets published without headers, then retries both
// with each looser alternate keyword set in order.
func findIndex(t *Table, keywords []string, alternates ...[]string) int {
	if idx := matchColumns(t.Cols, keywords); idx != -1 {
		return idx
	}
	if idx := matchFirstRow(t.Rows, keywords); idx != -1 {
		return idx
	}
	for _, alt := range alternates {
		if idx := matchColumns(t.Cols, alt); idx != -1 {
			return idx
		}
		if idx := matchFirstRow(t.Rows, alt); idx != -1 {
			return idx
		}
	}
	return -1
}

func matchColumns(cols []Column, keywords []string) int {
	for i, col := range cols {
		if containsAll(normalize(col.Label), keywords) {
			return i
		}
	}
	return -1
}

func matchFirstRow(rows []Row, keywords []string) int {
	if len(rows) == 0 {
		return -1
	}
	for i, cell := range rows[0].Cells {
		if containsAll(normalize(cell.Value), keywords) {
			return i
		}
	}
	return -1
}

func containsAll(label string, keywords []string) bool {
	if label == "" {
		return false
	}
	for _, kw := range keywords {
		if !strings.Contains(label, kw) {
			return false
		}
	}
	return true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
