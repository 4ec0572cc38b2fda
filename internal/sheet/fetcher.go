// internal/sheet/fetcher.go
package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/database"
	"review-funnel/internal/common/errors"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/metrics"

	"github.com/google/uuid"
)

const (
	callbackPrefix   = "sheetCallback_"
	snapshotKey      = "sheet:snapshot:"
	maxEnvelopeBytes = 8 << 20
)

// Fetcher pulls spreadsheet snapshots through the gviz endpoint. Each fetch
// registers a unique callback identity and the envelope must answer to that
// identity, which filters out cached or out-of-order responses. Concurrent
// callers for the same spreadsheet share one in-flight fetch.
type Fetcher struct {
	cfg    config.SheetConfig
	client *commonhttp.Client
	cache  *database.RedisClient
	logger logger.Logger

	mu       sync.Mutex
	inflight map[string]*fetchCall
}

type fetchCall struct {
	done  chan struct{}
	table *Table
	err   error
}

// NewFetcher builds a Fetcher. cache may be nil, which disables snapshot
// caching.
func NewFetcher(cfg config.SheetConfig, client *commonhttp.Client, cache *database.RedisClient, log logger.Logger) *Fetcher {
	return &Fetcher{
		cfg:      cfg,
		client:   client,
		cache:    cache,
		logger:   log,
		inflight: make(map[string]*fetchCall),
	}
}

// Fetch returns the current snapshot of the configured spreadsheet.
func (f *Fetcher) Fetch(ctx context.Context) (*Table, error) {
	if table := f.cachedSnapshot(ctx); table != nil {
		return table, nil
	}

	key := f.cfg.SpreadsheetID

	f.mu.Lock()
	if call, ok := f.inflight[key]; ok {
		f.mu.Unlock()
		select {
		case <-call.done:
			return call.table, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &fetchCall{done: make(chan struct{})}
	f.inflight[key] = call
	f.mu.Unlock()

	call.table, call.err = f.fetchOnce(ctx)

	f.mu.Lock()
	delete(f.inflight, key)
	f.mu.Unlock()
	close(call.done)

	if call.err == nil {
		f.storeSnapshot(ctx, call.table)
		metrics.SheetFetches.WithLabelValues("success").Inc()
	} else {
		metrics.SheetFetches.WithLabelValues("error").Inc()
	}
	return call.table, call.err
}

func (f *Fetcher) fetchOnce(ctx context.Context) (*Table, error) {
	callback := newCallbackName()
	url := f.cfg.GvizQueryURL(callback)

	fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.GetFetchTimeout())
	defer cancel()

	resp, err := f.client.Get(fetchCtx, url)
	if err != nil {
		f.logger.WithError(err).Error("Sheet fetch request failed", nil)
		return nil, errors.NewSheetFetchFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("gviz endpoint returned status %d", resp.StatusCode)
		f.logger.WithError(err).Error("Sheet fetch rejected", nil)
		return nil, errors.NewSheetFetchFailedError(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, errors.NewSheetFetchFailedError(err)
	}

	payload, err := stripEnvelope(string(body), callback)
	if err != nil {
		return nil, err
	}

	table, err := decodeTable([]byte(payload))
	if err != nil {
		f.logger.WithError(err).Error("Sheet payload did not decode", nil)
		return nil, errors.NewSheetMalformedError(err.Error())
	}

	f.logger.WithFields(map[string]interface{}{
		"spreadsheet_id": f.cfg.SpreadsheetID,
		"rows":           len(table.Rows),
	}).Debug("Fetched sheet snapshot", nil)
	return table, nil
}

// stripEnvelope unwraps `callback({...});` and verifies the envelope names
// the callback this request registered. A mismatched name means the payload
// belongs to some other fetch and must not be trusted.
func stripEnvelope(body, callback string) (string, error) {
	s := strings.TrimSpace(body)
	// The endpoint prepends an anti-hijacking comment.
	if strings.HasPrefix(s, "/*") {
		if end := strings.Index(s, "*/"); end != -1 {
			s = strings.TrimSpace(s[end+2:])
		}
	}

	open := strings.Index(s, "(")
	if open == -1 {
		return "", errors.NewSheetMalformedError("payload is not a callback envelope")
	}
	name := strings.TrimSpace(s[:open])
	if name != callback {
		return "", errors.NewStaleResponseError(callback, name)
	}

	end := strings.LastIndex(s, ")")
	if end == -1 || end < open {
		return "", errors.NewSheetMalformedError("callback envelope is not closed")
	}
	return s[open+1 : end], nil
}

func newCallbackName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return callbackPrefix + id[:12]
}

func (f *Fetcher) cachedSnapshot(ctx context.Context) *Table {
	if f.cache == nil {
		return nil
	}
	raw, err := f.cache.Get(ctx, snapshotKey+f.cfg.SpreadsheetID)
	if err != nil {
		return nil
	}
	var table Table
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil
	}
	return &table
}

func (f *Fetcher) storeSnapshot(ctx context.Context, table *Table) {
	if f.cache == nil || table == nil {
		return
	}
	raw, err := json.Marshal(table)
	if err != nil {
		return
	}
	ttl := f.cfg.GetCacheTTL()
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := f.cache.Set(ctx, snapshotKey+f.cfg.SpreadsheetID, raw, ttl); err != nil {
		f.logger.WithError(err).Warn("Failed to cache sheet snapshot", nil)
	}
}
