// internal/review/relay.go
package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/metrics"

	"github.com/xeipuuv/gojsonschema"
)

// GenerateRequest is the payload the drafting webhook expects.
type GenerateRequest struct {
	Review   string `json:"review"`
	ShopName string `json:"shopName"`
	ShopLogo string `json:"shopLogo"`
	URL      string `json:"url"`
	MapURL   string `json:"mapUrl"`
}

// Drafts holds what the webhook produced. PlaceID and ReviewURL are
// optional extras some providers attach alongside the drafted text.
type Drafts struct {
	Short     string `json:"short"`
	Long      string `json:"long"`
	PlaceID   string `json:"place_id,omitempty"`
	ReviewURL string `json:"review_url,omitempty"`
}

// responseShape is the envelope contract for the drafting webhook: a JSON
// object whose known draft fields are strings, either flat or nested under
// "data". A provider that types a known field as anything else is treated
// the same as one that sent nothing.
var responseShape = gojsonschema.NewStringLoader(`{
	"type": "object",
	"allOf": [{"$ref": "#/definitions/draftFields"}],
	"properties": {
		"data": {"$ref": "#/definitions/draftFields"}
	},
	"definitions": {
		"draftFields": {
			"type": "object",
			"properties": {
				"short_review":   {"type": "string"},
				"short":          {"type": "string"},
				"shortReview":    {"type": "string"},
				"long_review":    {"type": "string"},
				"long":           {"type": "string"},
				"review":         {"type": "string"},
				"detailedReview": {"type": "string"},
				"place_id":       {"type": "string"},
				"placeId":        {"type": "string"},
				"placeID":        {"type": "string"},
				"PlaceId":        {"type": "string"},
				"review_url":     {"type": "string"},
				"reviewUrl":      {"type": "string"},
				"writeReviewUrl": {"type": "string"}
			}
		}
	}
}`)

// Relay calls the external drafting webhook. Every call is stretched to a
// configured minimum wall time so the page's generation animation reads as
// deliberate rather than glitchy; the floor applies to failures too.
type Relay struct {
	cfg    config.WebhookConfig
	client *commonhttp.Client
	logger logger.Logger
}

func NewRelay(cfg config.WebhookConfig, client *commonhttp.Client, log logger.Logger) *Relay {
	return &Relay{cfg: cfg, client: client, logger: log}
}

// Generate requests short and long drafts for the given shop.
func (r *Relay) Generate(ctx context.Context, req GenerateRequest) (Drafts, error) {
	start := time.Now()
	drafts, err := r.call(ctx, req)
	r.holdFloor(ctx, start)

	if err != nil {
		metrics.WebhookCalls.WithLabelValues("review", "error").Inc()
		return Drafts{}, err
	}
	metrics.WebhookCalls.WithLabelValues("review", "success").Inc()
	return drafts, nil
}

func (r *Relay) call(ctx context.Context, req GenerateRequest) (Drafts, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Drafts{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.GetTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.cfg.ReviewURL, bytes.NewReader(payload))
	if err != nil {
		return Drafts{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		r.logger.WithError(err).Error("Review webhook request failed", nil)
		return Drafts{}, errors.NewReviewGenerationFailedError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Drafts{}, errors.NewReviewGenerationFailedError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.WithFields(map[string]interface{}{
			"status": resp.StatusCode,
		}).Error("Review webhook rejected request", nil)
		return Drafts{}, errors.NewReviewGenerationFailedError(
			&statusError{status: resp.StatusCode})
	}

	return parseDrafts(body)
}

// holdFloor sleeps out the remainder of the minimum perceived latency.
func (r *Relay) holdFloor(ctx context.Context, start time.Time) {
	remaining := r.cfg.GetMinDelay() - time.Since(start)
	if remaining <= 0 {
		return
	}
	select {
	case <-time.After(remaining):
	case <-ctx.Done():
	}
}

// parseDrafts digs the drafted text out of whatever envelope the provider
// used. Known providers either return the fields flat or nest them under
// "data", and each has its own field spellings.
func parseDrafts(body []byte) (Drafts, error) {
	result, err := gojsonschema.Validate(responseShape, gojsonschema.NewBytesLoader(body))
	if err != nil || !result.Valid() {
		return Drafts{}, errors.NewReviewEmptyResponseError()
	}

	var outer map[string]interface{}
	if err := json.Unmarshal(body, &outer); err != nil {
		return Drafts{}, errors.NewReviewEmptyResponseError()
	}

	fields := outer
	if data, ok := outer["data"].(map[string]interface{}); ok {
		fields = data
	}

	drafts := Drafts{
		Short:     firstString(fields, "short_review", "short", "shortReview"),
		Long:      firstString(fields, "long_review", "long", "review", "detailedReview"),
		PlaceID:   firstString(fields, "place_id", "placeId", "placeID", "PlaceId"),
		ReviewURL: firstString(fields, "review_url", "reviewUrl", "writeReviewUrl"),
	}
	if drafts.Short == "" && drafts.Long == "" {
		return Drafts{}, errors.NewReviewEmptyResponseError()
	}
	return drafts, nil
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.status)
}
