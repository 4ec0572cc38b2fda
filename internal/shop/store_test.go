package shop

import (
	"context"
	"testing"
	"time"

	"review-funnel/internal/common/database"
	"review-funnel/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(&database.PostgresClient{DB: db}, logger.NewNoOpLogger())
	return store, mock
}

func shopRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"user_name", "shop_name", "shop_url", "shop_logo",
		"map_url", "place_id", "qr_url", "created_at",
	})
}

func TestStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO shops").
		WithArgs("cafeluna", "Cafe Luna", "cafeluna", "logo.png",
			"https://maps.example/x", knownPlaceID, "").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Create(context.Background(), Record{
		UserName: "cafeluna",
		ShopName: "Cafe Luna",
		ShopURL:  "cafeluna",
		ShopLogo: "logo.png",
		MapURL:   "https://maps.example/x",
		PlaceID:  knownPlaceID,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetByPlaceID(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT .+ FROM shops WHERE place_id").
		WithArgs(knownPlaceID).
		WillReturnRows(shopRows().AddRow(
			"cafeluna", "Cafe Luna", "cafeluna", "logo.png",
			"https://maps.example/x", knownPlaceID, "https://cdn.example/qr.png", created,
		))

	rec, err := store.GetByPlaceID(context.Background(), knownPlaceID)

	require.NoError(t, err)
	assert.Equal(t, "Cafe Luna", rec.ShopName)
	assert.Equal(t, knownPlaceID, rec.PlaceID)
	assert.Equal(t, "https://cdn.example/qr.png", rec.QRURL)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestStoreGetByPlaceIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM shops WHERE place_id").
		WithArgs("ChIJmissing").
		WillReturnRows(shopRows())

	_, err := store.GetByPlaceID(context.Background(), "ChIJmissing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGetByUserNameHandlesNullColumns(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM shops WHERE user_name").
		WithArgs("cafeluna").
		WillReturnRows(shopRows().AddRow(
			"cafeluna", "Cafe Luna", nil, nil, nil, knownPlaceID, nil, time.Now(),
		))

	rec, err := store.GetByUserName(context.Background(), "cafeluna")

	require.NoError(t, err)
	assert.Equal(t, "", rec.ShopLogo)
	assert.Equal(t, "", rec.QRURL)
}

func TestStoreExistsPlaceID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(knownPlaceID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := store.ExistsPlaceID(context.Background(), knownPlaceID)

	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStoreUpdateQRURL(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE shops SET qr_url").
		WithArgs("https://cdn.example/qr.png", "cafeluna").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateQRURL(context.Background(), "cafeluna", "https://cdn.example/qr.png")

	require.NoError(t, err)
}

func TestStoreUpdateQRURLUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE shops SET qr_url").
		WithArgs("https://cdn.example/qr.png", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateQRURL(context.Background(), "ghost", "https://cdn.example/qr.png")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreList(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM shops ORDER BY created_at DESC").
		WillReturnRows(shopRows().
			AddRow("b", "Shop B", "", "", "", "ChIJb", "", time.Now()).
			AddRow("a", "Shop A", "", "", "", "ChIJa", "", time.Now()),
		)

	records, err := store.List(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Shop B", records[0].ShopName)
	assert.Equal(t, "Shop A", records[1].ShopName)
}
