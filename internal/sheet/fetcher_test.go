package sheet

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTableJSON = `{"table":{"cols":[{"label":"Shop Name"},{"label":"Place ID"}],` +
	`"rows":[{"c":[{"v":"Cafe Luna"},{"v":"ChIJFVd0QX4zXDkRsbFF7J2x9Ro"}]},` +
	`{"c":[{"v":"Null Cell Shop"},null]}]}}`

// callbackFromRequest extracts the callback name the client registered.
func callbackFromRequest(r *http.Request) string {
	tqx := r.URL.Query().Get("tqx")
	return strings.TrimPrefix(tqx, "responseHandler:")
}

func newTestFetcher(serverURL string) *Fetcher {
	cfg := config.SheetConfig{
		SpreadsheetID: "sheet-1",
		GvizBaseURL:   serverURL,
		FetchTimeout:  2000,
		CacheTTL:      60000,
	}
	return NewFetcher(cfg, commonhttp.NewClient(2*time.Second), nil, logger.NewNoOpLogger())
}

func TestFetchDecodesEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "/*O_o*/\n%s(%s);", callbackFromRequest(r), sampleTableJSON)
	}))
	defer server.Close()

	table, err := newTestFetcher(server.URL).Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, table.Cols, 2)
	assert.Equal(t, "Shop Name", table.Cols[0].Label)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Cafe Luna", table.Rows[0].At(0).Value)
	assert.Equal(t, "ChIJFVd0QX4zXDkRsbFF7J2x9Ro", table.Rows[0].At(1).Value)
	// A null gviz cell decodes to an empty cell, not a crash.
	assert.Equal(t, "", table.Rows[1].At(1).Value)
}

func TestFetchRejectsForeignCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "someOtherCallback(%s);", sampleTableJSON)
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeStaleResponse, stdErr.Code)
}

func TestFetchRejectsMalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s(this is not json);", callbackFromRequest(r))
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSheetMalformed, stdErr.Code)
}

func TestFetchRejectsNonCallbackBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>sign in required</html>")
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())

	require.Error(t, err)
}

func TestFetchSurfacesTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestFetcher(server.URL).Fetch(context.Background())

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSheetFetchFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestConcurrentFetchesShareOneRequest(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		time.Sleep(100 * time.Millisecond)
		fmt.Fprintf(w, "%s(%s);", callbackFromRequest(r), sampleTableJSON)
	}))
	defer server.Close()

	fetcher := newTestFetcher(server.URL)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := fetcher.Fetch(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, table)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestStripEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		callback string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain envelope",
			body:     `cb_1({"a":1});`,
			callback: "cb_1",
			want:     `{"a":1}`,
		},
		{
			name:     "leading comment and whitespace",
			body:     "/*O_o*/\n  cb_1({\"a\":1})",
			callback: "cb_1",
			want:     `{"a":1}`,
		},
		{
			name:     "wrong callback",
			body:     `cb_2({"a":1});`,
			callback: "cb_1",
			wantErr:  true,
		},
		{
			name:     "no parentheses",
			body:     `{"a":1}`,
			callback: "cb_1",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := stripEnvelope(tt.body, tt.callback)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackNamesAreUnique(t *testing.T) {
	a := newCallbackName()
	b := newCallbackName()

	assert.True(t, strings.HasPrefix(a, callbackPrefix))
	assert.NotEqual(t, a, b)
}
