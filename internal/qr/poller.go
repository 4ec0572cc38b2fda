// internal/qr/poller.go
package qr

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/metrics"
	"review-funnel/internal/sheet"
)

const maxCSVBytes = 8 << 20

// Updater persists a discovered QR URL. Satisfied by the shop store.
type Updater interface {
	UpdateQRURL(ctx context.Context, userName, qrURL string) error
}

// Poller watches the sheet's CSV export for the QR code URL the external
// automation writes after an account is provisioned. Generation takes an
// unpredictable number of seconds, so polling is bounded rather than
// open-ended.
type Poller struct {
	sheetCfg config.SheetConfig
	cfg      config.QRConfig
	client   *commonhttp.Client
	store    Updater
	logger   logger.Logger
}

func NewPoller(sheetCfg config.SheetConfig, cfg config.QRConfig, client *commonhttp.Client, store Updater, log logger.Logger) *Poller {
	return &Poller{
		sheetCfg: sheetCfg,
		cfg:      cfg,
		client:   client,
		store:    store,
		logger:   log,
	}
}

// Check makes a single probe for the user's QR URL.
func (p *Poller) Check(ctx context.Context, userName string) (string, error) {
	csvText, err := p.fetchCSV(ctx)
	if err != nil {
		return "", err
	}
	url, ok := sheet.FindQRURL(csvText, userName)
	if !ok {
		return "", errors.NewQRNotReadyError(userName)
	}
	return url, nil
}

// Wait polls until the QR URL appears, the attempt budget runs out, or the
// context is cancelled. A found URL is synced into the store before being
// returned. A context deadline that fires mid-wait reports the same
// not-ready result as an exhausted budget, so callers can bound the wait
// without changing what the client sees.
func (p *Poller) Wait(ctx context.Context, userName string) (string, error) {
	interval := p.cfg.GetPollInterval()
	attempts := p.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		url, err := p.Check(ctx, userName)
		if err == nil {
			metrics.QRPollAttempts.Observe(float64(attempt))
			p.syncStore(ctx, userName, url)
			p.logger.WithFields(map[string]interface{}{
				"user_name": userName,
				"attempts":  attempt,
			}).Info("QR code available", nil)
			return url, nil
		}
		if ctx.Err() != nil {
			return "", p.waitInterrupted(ctx, userName)
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return "", p.waitInterrupted(ctx, userName)
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"user_name": userName,
		"attempts":  attempts,
	}).Warn("QR code never appeared", nil)
	return "", errors.NewQRNotReadyError(userName)
}

func (p *Poller) waitInterrupted(ctx context.Context, userName string) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewQRNotReadyError(userName)
	}
	return ctx.Err()
}

func (p *Poller) fetchCSV(ctx context.Context) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.sheetCfg.GetFetchTimeout())
	defer cancel()

	resp, err := p.client.Get(fetchCtx, p.sheetCfg.ExportCSVURL())
	if err != nil {
		return "", errors.NewSheetFetchFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewSheetFetchFailedError(
			&statusError{status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBytes))
	if err != nil {
		return "", errors.NewSheetFetchFailedError(err)
	}
	return string(body), nil
}

func (p *Poller) syncStore(ctx context.Context, userName, url string) {
	if p.store == nil {
		return
	}
	if err := p.store.UpdateQRURL(ctx, userName, url); err != nil {
		p.logger.WithError(err).Warn("Failed to persist QR URL", nil)
	}
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("csv export returned status %d", e.status)
}
