package review

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelay(serverURL string, minDelayMS int) *Relay {
	cfg := config.WebhookConfig{
		ReviewURL: serverURL,
		MinDelay:  minDelayMS,
		Timeout:   2000,
	}
	return NewRelay(cfg, commonhttp.NewClient(2*time.Second), logger.NewNoOpLogger())
}

func TestGenerateNestedDataEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Some Shop", req.ShopName)

		fmt.Fprint(w, `{"data":{"short_review":"Great!","long_review":"Loved it."}}`)
	}))
	defer server.Close()

	drafts, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{
		ShopName: "Some Shop",
	})

	require.NoError(t, err)
	assert.Equal(t, "Great!", drafts.Short)
	assert.Equal(t, "Loved it.", drafts.Long)
}

func TestGenerateFlatFieldSpellings(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantShort string
		wantLong  string
	}{
		{
			name:      "snake case",
			body:      `{"short_review":"s","long_review":"l"}`,
			wantShort: "s",
			wantLong:  "l",
		},
		{
			name:      "bare words",
			body:      `{"short":"s","long":"l"}`,
			wantShort: "s",
			wantLong:  "l",
		},
		{
			name:      "camel case",
			body:      `{"shortReview":"s","detailedReview":"l"}`,
			wantShort: "s",
			wantLong:  "l",
		},
		{
			name:     "review key maps to long",
			body:     `{"review":"l"}`,
			wantLong: "l",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			drafts, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{})

			require.NoError(t, err)
			assert.Equal(t, tt.wantShort, drafts.Short)
			assert.Equal(t, tt.wantLong, drafts.Long)
		})
	}
}

func TestGenerateExtractsProviderExtras(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"short":"s","placeId":"ChIJprovider","review_url":"https://maps.example/write"}`)
	}))
	defer server.Close()

	drafts, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{})

	require.NoError(t, err)
	assert.Equal(t, "ChIJprovider", drafts.PlaceID)
	assert.Equal(t, "https://maps.example/write", drafts.ReviewURL)
}

func TestGenerateEmptySuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	_, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeReviewEmptyResponse, stdErr.Code)
}

func TestGenerateRejectsMistypedDraftFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"numeric short review", `{"short": 123, "long": "fine"}`},
		{"data is not an object", `{"data": "short text here"}`},
		{"nested numeric long review", `{"data":{"long_review": 42}}`},
		{"boolean place id", `{"short":"s","placeId": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{})

			require.Error(t, err)
			stdErr, ok := err.(*errors.StandardError)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeReviewEmptyResponse, stdErr.Code)
		})
	}
}

func TestGenerateNonObjectBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"just a string"`)
	}))
	defer server.Close()

	_, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeReviewEmptyResponse, stdErr.Code)
}

func TestGenerateUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestRelay(server.URL, 0).Generate(context.Background(), GenerateRequest{})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeReviewGenerationFailed, stdErr.Code)
}

func TestGenerateHoldsMinimumDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"short":"s"}`)
	}))
	defer server.Close()

	relay := newTestRelay(server.URL, 150)

	start := time.Now()
	_, err := relay.Generate(context.Background(), GenerateRequest{})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestGenerateHoldsMinimumDelayOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	relay := newTestRelay(server.URL, 150)

	start := time.Now()
	_, err := relay.Generate(context.Background(), GenerateRequest{})

	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestGenerateDelayFloorRespectsCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"short":"s"}`)
	}))
	defer server.Close()

	relay := newTestRelay(server.URL, 5000)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		relay.Generate(ctx, GenerateRequest{})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cancelled generate did not return promptly")
	}
}
