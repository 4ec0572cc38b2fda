package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler writes StandardError values as structured HTTP responses.
type Handler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewHandler(logger Logger) *Handler {
	return &Handler{logger: logger}
}

// WriteError normalizes err to a StandardError, maps its code to an HTTP
// status and writes the JSON body.
func (h *Handler) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := h.normalizeError(err)
	status := StatusForCode(stdErr.Code)

	h.logger.Error("request failed", map[string]interface{}{
		"path":      r.URL.Path,
		"method":    r.Method,
		"errorCode": stdErr.Code,
		"status":    status,
		"details":   stdErr.Details,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": stdErr,
	})
}

func (h *Handler) normalizeError(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// StatusForCode maps internal error codes to HTTP status codes.
func StatusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeInvalidPlaceID:
		return http.StatusBadRequest
	case ErrCodeSessionInvalid, ErrCodeLoginFailed:
		return http.StatusUnauthorized
	case ErrCodeShopNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicatePlaceID:
		return http.StatusConflict
	case ErrCodeQRNotReady:
		return http.StatusAccepted
	case ErrCodeSheetFetchFailed, ErrCodeReviewGenerationFailed,
		ErrCodeReviewEmptyResponse, ErrCodeUserCreateFailed,
		ErrCodePlaceLookupFailed:
		return http.StatusBadGateway
	case ErrCodeSheetMalformed, ErrCodeStaleResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
