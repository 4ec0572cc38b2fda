// internal/shop/importer.go
package shop

import (
	"context"

	"review-funnel/internal/common/errors"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/sheet"
)

// Importer backfills the store from the published spreadsheet. Landing-page
// lookups tolerate a missing place ID column, but an import without one
// would write rows that can never be matched again, so here it is a hard
// error.
type Importer struct {
	fetcher *sheet.Fetcher
	store   *Store
	index   recordIndexer
	logger  logger.Logger
}

// recordIndexer mirrors imported records into the search index. May be nil.
type recordIndexer interface {
	IndexRecord(ctx context.Context, rec Record) error
}

func NewImporter(fetcher *sheet.Fetcher, store *Store, index recordIndexer, log logger.Logger) *Importer {
	return &Importer{fetcher: fetcher, store: store, index: index, logger: log}
}

// Run fetches the current snapshot and inserts every row that carries a
// place ID not already registered. Returns the number of imported rows.
func (im *Importer) Run(ctx context.Context) (int, error) {
	table, err := im.fetcher.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	idx := sheet.Resolve(table)
	if idx.PlaceID == -1 {
		return 0, errors.NewSheetMalformedError("no place id column found")
	}

	imported := 0
	for _, row := range table.Rows {
		placeID := row.At(idx.PlaceID).Value
		if placeID == "" {
			continue
		}

		exists, err := im.store.ExistsPlaceID(ctx, placeID)
		if err != nil {
			return imported, err
		}
		if exists {
			continue
		}

		rec := Record{
			ShopName: row.At(idx.ShopName).Value,
			ShopLogo: NormalizeDriveURL(row.At(idx.ShopLogo).Text()),
			MapURL:   row.At(idx.MapURL).Value,
			PlaceID:  placeID,
			QRURL:    row.At(idx.QRURL).Value,
			UserName: placeID,
		}
		if err := im.store.Create(ctx, rec); err != nil {
			im.logger.WithError(err).WithFields(map[string]interface{}{
				"place_id": placeID,
			}).Warn("Skipping row that failed to import", nil)
			continue
		}
		if im.index != nil {
			if err := im.index.IndexRecord(ctx, rec); err != nil {
				im.logger.WithError(err).Warn("Failed to index imported shop", nil)
			}
		}
		imported++
	}

	im.logger.WithFields(map[string]interface{}{
		"imported": imported,
		"rows":     len(table.Rows),
	}).Info("Sheet import complete", nil)
	return imported, nil
}
