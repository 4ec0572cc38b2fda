// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"review-funnel/internal/account"
	"review-funnel/internal/common/config"
	"review-funnel/internal/common/errors"
	"review-funnel/internal/review"
	"review-funnel/internal/shop"

	"github.com/go-chi/chi/v5"
)

const maxUploadBytes = 10 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.cfg.App.Name,
		"version": s.cfg.App.Version,
	})
}

// handleGetShop resolves a landing slug to the shop the review page should
// render. It always answers 200 for well-formed requests; an unmatched slug
// comes back as a synthetic record.
func (s *Server) handleGetShop(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "shopID")
	if slug == "" {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("shop id is required"))
		return
	}

	rec, kind, err := s.resolver.Resolve(r.Context(), slug)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "valid",
		"shop":   rec,
		"match":  kind,
	})
}

// handlePostURL returns the link that opens the Google review composer for
// the shop, without drafting anything.
func (s *Server) handlePostURL(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "shopID")
	rec, _, err := s.resolver.Resolve(r.Context(), slug)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}

	url, err := review.PostURL(s.cfg.Maps.WriteReviewBaseURL, review.Drafts{}, review.Target{
		PlaceID: rec.PlaceID,
		MapURL:  rec.MapURL,
	})
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"postUrl": url})
}

type generateRequest struct {
	ShopID  string `json:"shopId"`
	Review  string `json:"review"`
	PageURL string `json:"pageUrl"`
	URL     string `json:"url"`
}

// pageURL is the landing page address forwarded to the drafting webhook.
// The page reports its own location; a stored shop URL is the fallback for
// clients that don't.
func (req generateRequest) pageURL(rec shop.Record) string {
	if req.PageURL != "" {
		return req.PageURL
	}
	if req.URL != "" {
		return req.URL
	}
	return rec.ShopURL
}

// handleGenerateReview resolves the shop, asks the drafting webhook for
// review text and attaches the composer link. Drafts are still returned
// when no composer target exists; the page can render text without a
// working post button.
func (s *Server) handleGenerateReview(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("invalid JSON body"))
		return
	}
	if req.ShopID == "" {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("shopId is required"))
		return
	}

	rec, _, err := s.resolver.Resolve(r.Context(), req.ShopID)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}

	drafts, err := s.relay.Generate(r.Context(), review.GenerateRequest{
		Review:   req.Review,
		ShopName: rec.ShopName,
		ShopLogo: rec.ShopLogo,
		URL:      req.pageURL(rec),
		MapURL:   rec.MapURL,
	})
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}

	placeID := drafts.PlaceID
	if placeID == "" {
		placeID = rec.PlaceID
	}
	response := map[string]interface{}{
		"short":   drafts.Short,
		"long":    drafts.Long,
		"placeId": placeID,
	}
	if url, err := review.PostURL(s.cfg.Maps.WriteReviewBaseURL, drafts, review.Target{
		PlaceID: rec.PlaceID,
		MapURL:  rec.MapURL,
	}); err == nil {
		response["postUrl"] = url
	} else {
		// Drafted text still renders; the page just has nowhere to post it.
		response["postUrl"] = ""
		response["notice"] = "no review destination available for this shop"
		s.logger.WithFields(map[string]interface{}{
			"shop_id": req.ShopID,
		}).Warn("No review target for shop", nil)
	}
	s.writeJSON(w, http.StatusOK, response)
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("invalid JSON body"))
		return
	}

	token, operator, err := s.sessions.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"operator": operator,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Logout(r.Context(), sessionToken(r)); err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleCreateShop accepts the dashboard's multipart submission and runs
// the full account provisioning flow.
func (s *Server) handleCreateShop(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("invalid multipart form"))
		return
	}

	req := account.CreateRequest{
		UserName: r.FormValue("userName"),
		PlaceID:  r.FormValue("placeId"),
		MapURL:   r.FormValue("mapUrl"),
		Password: r.FormValue("password"),
		ShopName: r.FormValue("shopName"),
		ShopURL:  r.FormValue("shopUrl"),
	}
	if file, header, err := r.FormFile("shopLogo"); err == nil {
		defer file.Close()
		req.Logo = &account.LogoUpload{Filename: header.Filename, Content: file}
	}

	rec, err := s.accounts.Create(r.Context(), req)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	if op, ok := OperatorFrom(r.Context()); ok {
		s.logger.Info("Shop provisioned from dashboard", map[string]interface{}{
			"operator": op.UserName,
			"place_id": rec.PlaceID,
		})
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"shop": rec})
}

// handleAdminGetShop returns the stored record for one account. Unlike the
// public lookup this is strict: an unknown user name is a miss, not a
// synthetic record.
func (s *Server) handleAdminGetShop(w http.ResponseWriter, r *http.Request) {
	userName := chi.URLParam(r, "userName")
	rec, err := s.store.GetByUserName(r.Context(), userName)
	if err != nil {
		if stderrors.Is(err, shop.ErrNotFound) {
			err = errors.NewShopNotFoundError(userName)
		}
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"shop": rec})
}

func (s *Server) handleListShops(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"shops": records})
}

func (s *Server) handleSearchShops(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("q is required"))
		return
	}
	if s.index == nil {
		s.errHandler.WriteError(w, r, errors.NewSearchQueryFailedError(fmt.Errorf("search index not configured")))
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	records, err := s.index.Search(r.Context(), query, size)
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"shops": records})
}

// handleImportShops backfills the store from the published sheet so shops
// that predate the dashboard become listable and searchable.
func (s *Server) handleImportShops(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.errHandler.WriteError(w, r, errors.NewSheetFetchFailedError(
			fmt.Errorf("sheet import not configured")))
		return
	}
	imported, err := s.importer.Run(r.Context())
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	operator := ""
	if op, ok := OperatorFrom(r.Context()); ok {
		operator = op.UserName
	}
	s.logger.Info("Sheet import finished", map[string]interface{}{
		"operator": operator,
		"imported": imported,
	})
	s.writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

// handleQR reports whether the QR automation has produced a code for the
// user yet. With wait=true it polls until the code appears or the attempt
// budget runs out.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	userName := r.URL.Query().Get("userName")
	if userName == "" {
		s.errHandler.WriteError(w, r, errors.NewValidationFailedError("userName is required"))
		return
	}

	var (
		url string
		err error
	)
	if r.URL.Query().Get("wait") == "true" {
		// The long poll has to answer before the connection's write deadline,
		// or the client sees a dropped connection instead of QR_NOT_READY.
		ctx := r.Context()
		budget := config.GetDuration(s.cfg.Server.WriteTimeout)
		if budget > 2*time.Second {
			budget -= time.Second
		}
		if budget > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, budget)
			defer cancel()
		}
		url, err = s.poller.Wait(ctx, userName)
	} else {
		url, err = s.poller.Check(r.Context(), userName)
	}
	if err != nil {
		s.errHandler.WriteError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"qrUrl": url})
}
