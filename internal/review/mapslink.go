// internal/review/mapslink.go
package review

import (
	"fmt"
	"strings"

	"review-funnel/internal/common/errors"
)

// Target is what the funnel knows about where the finished review should
// land: the shop's place ID and its stored Maps URL, either of which may be
// empty or stale.
type Target struct {
	PlaceID string
	MapURL  string
}

// PostURL picks the destination that drops the customer directly into the
// Google review composer. Candidates are tried most-direct first:
//
//  1. a prebuilt review URL from the drafting provider
//  2. the writereview deep link built from a place ID
//  3. a stored Maps URL that already points at the composer
//  4. a g.page short link, extended with the review suffix
//  5. the stored Maps URL as-is, landing on the listing instead
//
// Only when every candidate is empty is there nothing to open.
func PostURL(writeReviewBase string, drafts Drafts, target Target) (string, error) {
	if drafts.ReviewURL != "" {
		return drafts.ReviewURL, nil
	}

	placeID := drafts.PlaceID
	if placeID == "" {
		placeID = target.PlaceID
	}
	if placeID != "" {
		return fmt.Sprintf("%s?placeid=%s", writeReviewBase, placeID), nil
	}

	mapURL := strings.TrimSpace(target.MapURL)
	if mapURL == "" {
		return "", errors.NewMissingReviewTargetError()
	}
	if strings.Contains(mapURL, "writereview") {
		return mapURL, nil
	}
	if strings.Contains(mapURL, "g.page") {
		if strings.HasSuffix(mapURL, "/") {
			return mapURL + "review", nil
		}
		return mapURL + "/review", nil
	}
	return mapURL, nil
}
