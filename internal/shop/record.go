// internal/shop/record.go
package shop

import (
	"fmt"
	"regexp"
	"time"
)

// Record is the funnel's view of one shop. Synthetic marks records that were
// fabricated from the landing slug because no stored or published row
// matched; they render a degraded but working review page.
type Record struct {
	UserName  string    `json:"user_name,omitempty"`
	ShopName  string    `json:"shop_name"`
	ShopURL   string    `json:"shop_url,omitempty"`
	ShopLogo  string    `json:"shop_logo,omitempty"`
	MapURL    string    `json:"map_url,omitempty"`
	PlaceID   string    `json:"place_id"`
	QRURL     string    `json:"qr_url,omitempty"`
	Synthetic bool      `json:"synthetic,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

var driveFileID = regexp.MustCompile(`/d/([a-zA-Z0-9_-]+)`)
var driveQueryID = regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`)

// NormalizeDriveURL rewrites a Google Drive viewer link into the thumbnail
// endpoint, which serves the image directly. Anything it cannot recognize
// passes through unchanged.
func NormalizeDriveURL(url string) string {
	if url == "" {
		return ""
	}
	m := driveFileID.FindStringSubmatch(url)
	if m == nil {
		m = driveQueryID.FindStringSubmatch(url)
	}
	if m != nil {
		return fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w1000", m[1])
	}
	return url
}
