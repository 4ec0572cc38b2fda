package shop

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/database"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/observability"
	"review-funnel/internal/sheet"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sheetServer(t *testing.T, tableJSON string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tqx := r.URL.Query().Get("tqx")
		callback := strings.TrimPrefix(tqx, "responseHandler:")
		fmt.Fprintf(w, "%s(%s);", callback, tableJSON)
	}))
	t.Cleanup(server.Close)
	return server
}

func testFetcher(t *testing.T, serverURL string, cache *database.RedisClient) *sheet.Fetcher {
	cfg := config.SheetConfig{
		SpreadsheetID: "sheet-1",
		GvizBaseURL:   serverURL,
		FetchTimeout:  2000,
	}
	return sheet.NewFetcher(cfg, commonhttp.NewClient(2*time.Second), cache, logger.NewNoOpLogger())
}

const resolverTableJSON = `{"table":{"cols":[{"label":"Shop Name"},{"label":"Place ID"}],` +
	`"rows":[{"c":[{"v":"Sheet Shop"},{"v":"ChIJFVd0QX4zXDkRsbFF7J2x9Ro"}]}]}}`

func TestResolvePrefersStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM shops WHERE place_id").
		WithArgs(knownPlaceID).
		WillReturnRows(shopRows().AddRow(
			"cafeluna", "Stored Shop", "", "", "", knownPlaceID, "", time.Now(),
		))

	store := NewStore(&database.PostgresClient{DB: db}, logger.NewNoOpLogger())
	server := sheetServer(t, resolverTableJSON)
	resolver := NewResolver(store, testFetcher(t, server.URL, nil), nil, time.Minute, nil, logger.NewNoOpLogger())

	rec, kind, err := resolver.Resolve(context.Background(), knownSlug)

	require.NoError(t, err)
	assert.Equal(t, MatchStore, kind)
	assert.Equal(t, "Stored Shop", rec.ShopName)
}

func TestResolveFallsBackToSheet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .+ FROM shops WHERE place_id").
		WithArgs(knownPlaceID).
		WillReturnRows(shopRows())

	store := NewStore(&database.PostgresClient{DB: db}, logger.NewNoOpLogger())
	server := sheetServer(t, resolverTableJSON)
	resolver := NewResolver(store, testFetcher(t, server.URL, nil), nil, time.Minute, nil, logger.NewNoOpLogger())

	rec, kind, err := resolver.Resolve(context.Background(), knownSlug)

	require.NoError(t, err)
	assert.Equal(t, MatchExact, kind)
	assert.Equal(t, "Sheet Shop", rec.ShopName)
}

func TestResolveSyntheticWhenEverythingFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := NewResolver(nil, testFetcher(t, server.URL, nil), nil, time.Minute, nil, logger.NewNoOpLogger())

	rec, kind, err := resolver.Resolve(context.Background(), knownSlug)

	require.NoError(t, err)
	assert.Equal(t, MatchSynthetic, kind)
	assert.True(t, rec.Synthetic)
	assert.Equal(t, knownPlaceID, rec.PlaceID)
}

func TestResolveCountsLookupOnMeter(t *testing.T) {
	obs := observability.New("resolver-test")
	server := sheetServer(t, resolverTableJSON)
	resolver := NewResolver(nil, testFetcher(t, server.URL, nil), nil, time.Minute, obs, logger.NewNoOpLogger())

	_, kind, err := resolver.Resolve(context.Background(), knownSlug)

	require.NoError(t, err)
	assert.Equal(t, MatchExact, kind)
}

func TestResolveCachesResolution(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	var sheetHits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sheetHits++
		tqx := r.URL.Query().Get("tqx")
		callback := strings.TrimPrefix(tqx, "responseHandler:")
		fmt.Fprintf(w, "%s(%s);", callback, resolverTableJSON)
	}))
	defer server.Close()

	resolver := NewResolver(nil, testFetcher(t, server.URL, nil), cache, time.Minute, nil, logger.NewNoOpLogger())

	rec1, kind1, err := resolver.Resolve(context.Background(), knownSlug)
	require.NoError(t, err)
	assert.Equal(t, MatchExact, kind1)

	rec2, kind2, err := resolver.Resolve(context.Background(), knownSlug)
	require.NoError(t, err)

	assert.Equal(t, 1, sheetHits)
	assert.Equal(t, kind1, kind2)
	assert.Equal(t, rec1.ShopName, rec2.ShopName)
	assert.True(t, mr.Exists(resolvedKeyPrefix + knownSlug))
}

func TestResolveDoesNotCacheSynthetic(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	resolver := NewResolver(nil, testFetcher(t, server.URL, nil), cache, time.Minute, nil, logger.NewNoOpLogger())

	_, kind, err := resolver.Resolve(context.Background(), knownSlug)

	require.NoError(t, err)
	assert.Equal(t, MatchSynthetic, kind)
	assert.False(t, mr.Exists(resolvedKeyPrefix + knownSlug))
}
