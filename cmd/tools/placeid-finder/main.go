// cmd/tools/placeid-finder/main.go
//
// Resolves a Google Maps share URL to its place ID via the Places API:
//
//	placeid-finder "https://www.google.com/maps/place/Cafe+Luna/@12.9,77.6,17z"
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/logger"
)

var placePath = regexp.MustCompile(`/maps/place/([^/]+)`)

type findPlaceResponse struct {
	Status     string `json:"status"`
	Candidates []struct {
		PlaceID          string `json:"place_id"`
		Name             string `json:"name"`
		FormattedAddress string `json:"formatted_address"`
	} `json:"candidates"`
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: placeid-finder <google-maps-url>")
		os.Exit(2)
	}
	mapsURL := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}
	if cfg.Maps.APIKey == "" {
		zapLog.Fatal("maps api key is not configured")
	}

	name, err := placeName(mapsURL)
	if err != nil {
		zapLog.Fatal("could not read place name from url", zap.Error(err))
	}
	zapLog.Info("Looking up place", zap.String("name", name))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	placeID, addr, err := findPlaceID(ctx, cfg.Maps, name)
	if err != nil {
		zapLog.Fatal("place lookup failed", zap.Error(err))
	}

	fmt.Printf("Name:     %s\n", name)
	fmt.Printf("Address:  %s\n", addr)
	fmt.Printf("Place ID: %s\n", placeID)
}

// placeName pulls the human-readable name out of the /maps/place/ segment.
// Maps encodes spaces as plus signs on top of the usual percent escaping.
func placeName(mapsURL string) (string, error) {
	m := placePath.FindStringSubmatch(mapsURL)
	if m == nil {
		return "", fmt.Errorf("url has no /maps/place/ segment")
	}
	raw := strings.ReplaceAll(m[1], "+", " ")
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}

func findPlaceID(ctx context.Context, cfg config.MapsConfig, name string) (string, string, error) {
	query := url.Values{}
	query.Set("input", name)
	query.Set("inputtype", "textquery")
	query.Set("fields", "place_id,name,formatted_address")
	query.Set("key", cfg.APIKey)

	endpoint := fmt.Sprintf("%s/findplacefromtext/json?%s", cfg.PlacesAPIBaseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	var parsed findPlaceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", err
	}
	if parsed.Status != "OK" || len(parsed.Candidates) == 0 {
		return "", "", fmt.Errorf("places api returned status %s with %d candidates",
			parsed.Status, len(parsed.Candidates))
	}

	best := parsed.Candidates[0]
	return best.PlaceID, best.FormattedAddress, nil
}
