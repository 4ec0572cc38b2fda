// internal/sheet/csv.go
package sheet

import "strings"

// qrURLColumn is the fixed position of the QR code URL in the CSV export
// layout the automation writes.
const qrURLColumn = 7

// FindQRURL scans a CSV export for the row whose first column equals
// userName and returns that row's QR code URL. The URL must look like an
// absolute http(s) link, otherwise the row is treated as not ready yet.
func FindQRURL(csvText, userName string) (string, bool) {
	lines := strings.Split(csvText, "\n")
	if len(lines) < 2 {
		return "", false
	}
	quoted := `"` + userName + `"`

	// First line is the header row.
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, userName) && !strings.HasPrefix(line, quoted) {
			continue
		}
		fields := splitCSVLine(line)
		if len(fields) <= qrURLColumn {
			continue
		}
		if unquote(fields[0]) != userName {
			continue
		}
		url := strings.TrimSpace(unquote(fields[qrURLColumn]))
		if strings.HasPrefix(url, "http") {
			return url, true
		}
	}
	return "", false
}

// splitCSVLine splits on commas while respecting double-quoted fields, which
// is enough for the export format (no embedded newlines in cells we read).
func splitCSVLine(line string) []string {
	var fields []string
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				field.WriteString(`""`)
				i++
			} else {
				inQuotes = !inQuotes
				field.WriteByte('"')
			}
		case ch == ',' && !inQuotes:
			fields = append(fields, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	fields = append(fields, field.String())
	return fields
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `""`, `"`)
	}
	return s
}
