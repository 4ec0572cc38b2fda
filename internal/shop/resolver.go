// internal/shop/resolver.go
package shop

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"review-funnel/internal/common/database"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/metrics"
	"review-funnel/internal/common/observability"
	"review-funnel/internal/sheet"
)

const resolvedKeyPrefix = "shop:resolved:"

// Resolver binds a landing slug to a shop record. The store is consulted
// first since it is authoritative; the published sheet covers shops that
// were never registered through the dashboard; a synthetic record is the
// permissive last resort. Resolutions are cached per slug.
type Resolver struct {
	store    *Store
	fetcher  *sheet.Fetcher
	cache    *database.RedisClient
	cacheTTL time.Duration
	obs      *observability.Observability
	logger   logger.Logger
}

func NewResolver(store *Store, fetcher *sheet.Fetcher, cache *database.RedisClient, cacheTTL time.Duration,
	obs *observability.Observability, log logger.Logger) *Resolver {
	return &Resolver{
		store:    store,
		fetcher:  fetcher,
		cache:    cache,
		cacheTTL: cacheTTL,
		obs:      obs,
		logger:   log,
	}
}

// Resolve never returns an error for an unknown slug: the review page must
// render something for every QR code ever printed. Errors are reserved for
// infrastructure failures when no fallback produced a record.
func (r *Resolver) Resolve(ctx context.Context, slug string) (Record, MatchKind, error) {
	if rec, kind, ok := r.cachedRecord(ctx, slug); ok {
		return rec, kind, nil
	}

	token := ExtractPlaceID(slug)

	if r.store != nil {
		stored, err := r.store.GetByPlaceID(ctx, token)
		if err == nil {
			r.recordLookup(ctx, string(MatchStore))
			r.cacheRecord(ctx, slug, *stored, MatchStore)
			return *stored, MatchStore, nil
		}
		if !stderrors.Is(err, ErrNotFound) {
			r.logger.WithError(err).Warn("Store lookup failed, falling back to sheet", nil)
		}
	}

	if r.fetcher != nil {
		table, err := r.fetcher.Fetch(ctx)
		if err == nil {
			idx := sheet.Resolve(table)
			rec, kind := MatchTable(table, idx, slug)
			r.recordLookup(ctx, string(kind))
			r.cacheRecord(ctx, slug, rec, kind)
			return rec, kind, nil
		}
		r.logger.WithError(err).Warn("Sheet fetch failed, falling back to synthetic record", nil)
	}

	rec := SyntheticRecord(slug)
	r.recordLookup(ctx, string(MatchSynthetic))
	return rec, MatchSynthetic, nil
}

// recordLookup counts a resolution on both the prometheus counter and, when
// wired, the otel meter.
func (r *Resolver) recordLookup(ctx context.Context, strategy string) {
	metrics.ShopLookups.WithLabelValues(strategy).Inc()
	if r.obs != nil {
		r.obs.RecordLookup(ctx, strategy)
	}
}

type cachedResolution struct {
	Record Record `json:"record"`
	Kind   string `json:"kind"`
}

func (r *Resolver) cachedRecord(ctx context.Context, slug string) (Record, MatchKind, bool) {
	if r.cache == nil {
		return Record{}, "", false
	}
	raw, err := r.cache.Get(ctx, resolvedKeyPrefix+slug)
	if err != nil {
		return Record{}, "", false
	}
	var cached cachedResolution
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return Record{}, "", false
	}
	r.recordLookup(ctx, "cache")
	return cached.Record, MatchKind(cached.Kind), true
}

func (r *Resolver) cacheRecord(ctx context.Context, slug string, rec Record, kind MatchKind) {
	if r.cache == nil || kind == MatchSynthetic {
		return
	}
	raw, err := json.Marshal(cachedResolution{Record: rec, Kind: string(kind)})
	if err != nil {
		return
	}
	ttl := r.cacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.cache.Set(ctx, resolvedKeyPrefix+slug, raw, ttl); err != nil {
		r.logger.WithError(err).Warn("Failed to cache shop resolution", nil)
	}
}
