// internal/shop/matcher.go
package shop

import (
	"fmt"
	"regexp"
	"strings"

	"review-funnel/internal/sheet"
)

// MatchKind names the strategy that bound a landing slug to a record.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchPartial   MatchKind = "partial"
	MatchQRURL     MatchKind = "qrurl"
	MatchStore     MatchKind = "store"
	MatchSynthetic MatchKind = "synthetic"
)

var placeIDToken = regexp.MustCompile(`ChIJ[a-zA-Z0-9_-]+`)

// ExtractPlaceID pulls the place ID candidate out of a landing slug. Slugs
// normally embed a Maps place ID; when they don't, the segment after the
// last hyphen is the best available guess.
func ExtractPlaceID(slug string) string {
	if m := placeIDToken.FindString(slug); m != "" {
		return m
	}
	if i := strings.LastIndex(slug, "-"); i != -1 {
		return slug[i+1:]
	}
	return slug
}

// MatchTable scans a sheet snapshot for the row belonging to slug. Rows are
// checked with three strategies in order and the first hit wins: exact place
// ID equality, place ID contained in the slug, then the row's QR URL
// containing the slug. No hit falls back to a synthetic record so the
// landing page never dead-ends.
//
// All comparisons run on lowercased, trimmed values. That makes the partial
// and QR URL checks a little more permissive than raw substring matching
// against the route identifier, which is intentional: sheet rows are edited
// by hand and case drift must not orphan a printed QR code.
func MatchTable(table *sheet.Table, idx sheet.ColumnIndexes, slug string) (Record, MatchKind) {
	token := ExtractPlaceID(slug)
	normToken := normalize(token)
	normSlug := normalize(slug)

	for _, row := range table.Rows {
		pid := normalize(row.At(idx.PlaceID).Value)
		qrURL := normalize(row.At(idx.QRURL).Value)

		var kind MatchKind
		switch {
		case pid != "" && pid == normToken:
			kind = MatchExact
		case pid != "" && strings.Contains(normSlug, pid):
			kind = MatchPartial
		case qrURL != "" && strings.Contains(qrURL, normSlug):
			kind = MatchQRURL
		default:
			continue
		}
		return recordFromRow(row, idx, token), kind
	}
	return SyntheticRecord(slug), MatchSynthetic
}

func recordFromRow(row sheet.Row, idx sheet.ColumnIndexes, token string) Record {
	rec := Record{
		ShopName: row.At(idx.ShopName).Value,
		ShopLogo: NormalizeDriveURL(row.At(idx.ShopLogo).Text()),
		MapURL:   row.At(idx.MapURL).Value,
		PlaceID:  row.At(idx.PlaceID).Value,
		QRURL:    row.At(idx.QRURL).Value,
	}
	if rec.PlaceID == "" {
		rec.PlaceID = token
	}
	return rec
}

// SyntheticRecord fabricates a permissive record from the slug alone.
func SyntheticRecord(slug string) Record {
	short := slug
	if len(short) > 8 {
		short = short[:8]
	}
	return Record{
		ShopName:  fmt.Sprintf("Shop %s...", short),
		PlaceID:   ExtractPlaceID(slug),
		Synthetic: true,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
