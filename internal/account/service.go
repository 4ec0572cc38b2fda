// internal/account/service.go
package account

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	commonhttp "review-funnel/internal/common/http"
	"review-funnel/internal/common/logger"
	"review-funnel/internal/common/metrics"
	"review-funnel/internal/shop"
)

// CreateRequest carries one shop account submission from the dashboard.
type CreateRequest struct {
	UserName string
	PlaceID  string
	MapURL   string
	Password string
	ShopName string
	ShopURL  string
	Logo     *LogoUpload
}

// LogoUpload is the optional shop logo file attached to the submission.
type LogoUpload struct {
	Filename string
	Content  io.Reader
}

// Indexer mirrors created shops into the search index.
type Indexer interface {
	IndexRecord(ctx context.Context, rec shop.Record) error
}

// Notifier announces created accounts to the operators.
type Notifier interface {
	SendPlainEmail(ctx context.Context, from, to, subject, body string) error
}

// Service provisions shop accounts. The external webhook drives the actual
// provisioning (sheet row, QR generation); the local store and search index
// mirror the result so later lookups don't depend on the sheet.
type Service struct {
	cfg      config.WebhookConfig
	sesCfg   config.IntegrationConfig
	client   *commonhttp.Client
	store    *shop.Store
	index    Indexer
	notifier Notifier
	logger   logger.Logger
}

func NewService(cfg config.WebhookConfig, sesCfg config.IntegrationConfig, client *commonhttp.Client,
	store *shop.Store, index Indexer, notifier Notifier, log logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		sesCfg:   sesCfg,
		client:   client,
		store:    store,
		index:    index,
		notifier: notifier,
		logger:   log,
	}
}

// Create validates, provisions and registers one shop account. Validation
// failures return before any network traffic happens.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*shop.Record, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsPlaceID(ctx, req.PlaceID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewDuplicatePlaceIDError(req.PlaceID)
	}

	if err := s.relayCreate(ctx, req); err != nil {
		metrics.WebhookCalls.WithLabelValues("user_create", "error").Inc()
		return nil, err
	}
	metrics.WebhookCalls.WithLabelValues("user_create", "success").Inc()

	rec := shop.Record{
		UserName: req.UserName,
		ShopName: req.ShopName,
		ShopURL:  req.ShopURL,
		MapURL:   req.MapURL,
		PlaceID:  req.PlaceID,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.IndexRecord(ctx, rec); err != nil {
			s.logger.WithError(err).Warn("Failed to index created shop", nil)
		}
	}
	s.notifyCreated(ctx, rec)

	s.logger.WithFields(map[string]interface{}{
		"user_name": req.UserName,
		"place_id":  req.PlaceID,
	}).Info("Shop account created", nil)
	return &rec, nil
}

// relayCreate posts the submission to the provisioning webhook as a
// multipart form, logo included.
func (s *Service) relayCreate(ctx context.Context, req CreateRequest) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"userName": req.UserName,
		"placeId":  req.PlaceID,
		"mapUrl":   req.MapURL,
		"password": req.Password,
		"shopName": req.ShopName,
		"shopUrl":  req.ShopURL,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return errors.NewUserCreateFailedError(err)
		}
	}
	if req.Logo != nil {
		part, err := writer.CreateFormFile("shopLogo", req.Logo.Filename)
		if err != nil {
			return errors.NewUserCreateFailedError(err)
		}
		if _, err := io.Copy(part, req.Logo.Content); err != nil {
			return errors.NewUserCreateFailedError(err)
		}
	}
	if err := writer.Close(); err != nil {
		return errors.NewUserCreateFailedError(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GetTimeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, s.cfg.UserCreateURL, &body)
	if err != nil {
		return errors.NewUserCreateFailedError(err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		s.logger.WithError(err).Error("User create webhook request failed", nil)
		return errors.NewUserCreateFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The provisioning webhook rejects re-registrations of an existing
		// place ID with an opaque failure, so that is the usual culprit.
		s.logger.WithFields(map[string]interface{}{
			"status":   resp.StatusCode,
			"place_id": req.PlaceID,
		}).Warn("User create webhook rejected submission", nil)
		return errors.NewDuplicatePlaceIDError(req.PlaceID)
	}
	return nil
}

func (s *Service) notifyCreated(ctx context.Context, rec shop.Record) {
	ses := s.sesCfg.AWS.SES
	if s.notifier == nil || !ses.Enabled {
		return
	}
	subject := fmt.Sprintf("New shop account: %s", rec.ShopName)
	body := fmt.Sprintf("Shop %q was registered with place ID %s.", rec.ShopName, rec.PlaceID)
	if err := s.notifier.SendPlainEmail(ctx, ses.FromEmail, ses.ToEmail, subject, body); err != nil {
		s.logger.WithError(errors.NewNotificationSendFailedError(err)).
			Warn("Failed to send account notification", nil)
	}
}
