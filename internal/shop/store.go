// internal/shop/store.go
package shop

import (
	"context"
	"database/sql"
	stderrors "errors"

	"review-funnel/internal/common/database"
	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/logger"
)

// ErrNotFound reports that no stored record matched the lookup key.
var ErrNotFound = stderrors.New("shop not found")

const shopColumns = "user_name, shop_name, shop_url, shop_logo, map_url, place_id, qr_url, created_at"

// Store is the authoritative shop registry. The published spreadsheet is a
// read-only mirror for landing-page lookups; accounts created here are the
// source of truth.
type Store struct {
	db     *database.PostgresClient
	logger logger.Logger
}

func NewStore(db *database.PostgresClient, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Create inserts a new shop row.
func (s *Store) Create(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO shops (user_name, shop_name, shop_url, shop_logo, map_url, place_id, qr_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UserName, rec.ShopName, rec.ShopURL, rec.ShopLogo, rec.MapURL, rec.PlaceID, rec.QRURL,
	)
	if err != nil {
		s.logger.WithError(err).Error("Failed to insert shop", nil)
		return errors.NewStoreQueryFailedError(err)
	}
	return nil
}

// GetByPlaceID returns the shop registered under the given place ID.
func (s *Store) GetByPlaceID(ctx context.Context, placeID string) (*Record, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+shopColumns+" FROM shops WHERE place_id = $1", placeID)
	return scanRecord(row)
}

// GetByUserName returns the shop registered under the given user name.
func (s *Store) GetByUserName(ctx context.Context, userName string) (*Record, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+shopColumns+" FROM shops WHERE user_name = $1", userName)
	return scanRecord(row)
}

// ExistsPlaceID reports whether a shop already claims the place ID.
func (s *Store) ExistsPlaceID(ctx context.Context, placeID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM shops WHERE place_id = $1)", placeID).Scan(&exists)
	if err != nil {
		return false, errors.NewStoreQueryFailedError(err)
	}
	return exists, nil
}

// UpdateQRURL records the QR code URL once the export automation has
// produced one.
func (s *Store) UpdateQRURL(ctx context.Context, userName, qrURL string) error {
	res, err := s.db.Exec(ctx,
		"UPDATE shops SET qr_url = $1 WHERE user_name = $2", qrURL, userName)
	if err != nil {
		return errors.NewStoreQueryFailedError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all registered shops, newest first.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+shopColumns+" FROM shops ORDER BY created_at DESC")
	if err != nil {
		return nil, errors.NewStoreQueryFailedError(err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var shopURL, shopLogo, mapURL, qrURL sql.NullString
		if err := rows.Scan(&rec.UserName, &rec.ShopName, &shopURL, &shopLogo,
			&mapURL, &rec.PlaceID, &qrURL, &rec.CreatedAt); err != nil {
			return nil, errors.NewStoreQueryFailedError(err)
		}
		rec.ShopURL = shopURL.String
		rec.ShopLogo = shopLogo.String
		rec.MapURL = mapURL.String
		rec.QRURL = qrURL.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError(err)
	}
	return records, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var rec Record
	var shopURL, shopLogo, mapURL, qrURL sql.NullString
	err := row.Scan(&rec.UserName, &rec.ShopName, &shopURL, &shopLogo,
		&mapURL, &rec.PlaceID, &qrURL, &rec.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.NewStoreQueryFailedError(err)
	}
	rec.ShopURL = shopURL.String
	rec.ShopLogo = shopLogo.String
	rec.MapURL = mapURL.String
	rec.QRURL = qrURL.String
	return &rec, nil
}
