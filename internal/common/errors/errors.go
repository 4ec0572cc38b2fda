// Package errors provides standardized error handling for the review funnel.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeSheetFetchFailed ErrorCode = "SHEET_FETCH_FAILED"
	ErrCodeSheetMalformed   ErrorCode = "SHEET_MALFORMED"
	ErrCodeStaleResponse    ErrorCode = "STALE_SHEET_RESPONSE"

	ErrCodeShopNotFound ErrorCode = "SHOP_NOT_FOUND"

	ErrCodeReviewGenerationFailed ErrorCode = "REVIEW_GENERATION_FAILED"
	ErrCodeReviewEmptyResponse    ErrorCode = "REVIEW_EMPTY_RESPONSE"
	ErrCodeMissingReviewTarget    ErrorCode = "MISSING_REVIEW_TARGET"

	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPlaceID    ErrorCode = "INVALID_PLACE_ID"
	ErrCodeDuplicatePlaceID  ErrorCode = "DUPLICATE_PLACE_ID"
	ErrCodeUserCreateFailed  ErrorCode = "USER_CREATE_FAILED"
	ErrCodeSessionInvalid    ErrorCode = "SESSION_INVALID"
	ErrCodeLoginFailed       ErrorCode = "LOGIN_FAILED"
	ErrCodeQRNotReady        ErrorCode = "QR_NOT_READY"

	ErrCodeStoreQueryFailed       ErrorCode = "STORE_QUERY_FAILED"
	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodePlaceLookupFailed      ErrorCode = "PLACE_LOOKUP_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSheetFetchFailedError creates a retryable transport error for the sheet.
func NewSheetFetchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSheetFetchFailed,
		Message:   "Failed to fetch spreadsheet snapshot",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSheetMalformedError creates a non-retryable payload shape error.
func NewSheetMalformedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSheetMalformed,
		Message:   "Spreadsheet payload did not match the expected shape",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStaleResponseError flags a JSONP envelope answering a different request.
func NewStaleResponseError(wanted, got string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStaleResponse,
		Message:   "Sheet response addressed a different callback identity",
		Details:   fmt.Sprintf("wanted %s, got %s", wanted, got),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewShopNotFoundError creates a non-retryable lookup miss. Callers on the
// review path must convert this into the permissive fallback record.
func NewShopNotFoundError(slug string) *StandardError {
	return &StandardError{
		Code:      ErrCodeShopNotFound,
		Message:   "No shop record matched the identifier",
		Details:   fmt.Sprintf("slug: %s", slug),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReviewGenerationFailedError creates a retryable webhook error.
func NewReviewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReviewGenerationFailed,
		Message:   "Review generation webhook call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewReviewEmptyResponseError flags a 2xx webhook response with no usable text.
func NewReviewEmptyResponseError() *StandardError {
	return &StandardError{
		Code:      ErrCodeReviewEmptyResponse,
		Message:   "Webhook accepted the review but returned no content",
		Details:   "neither short nor long review text was present",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingReviewTargetError flags a record with no identifier to deep-link.
func NewMissingReviewTargetError() *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingReviewTarget,
		Message:   "No Place ID or map URL available to open the review composer",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidPlaceIDError creates the 27-character Place ID gate error.
func NewInvalidPlaceIDError() *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidPlaceID,
		Message:   "Place Id must be 27 characters",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicatePlaceIDError creates a non-retryable duplicate registration
// error. Also used to interpret a non-2xx from the user-creation webhook,
// which has no structured error contract.
func NewDuplicatePlaceIDError(placeID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicatePlaceID,
		Message:   "Place ID already registered",
		Details:   fmt.Sprintf("placeId: %s", placeID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserCreateFailedError creates a retryable user-creation relay error.
func NewUserCreateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserCreateFailed,
		Message:   "User creation webhook call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionInvalidError creates a non-retryable auth error.
func NewSessionInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionInvalid,
		Message:   "Session is missing or expired",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLoginFailedError creates a non-retryable credential error.
func NewLoginFailedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeLoginFailed,
		Message:   "Invalid username or password",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQRNotReadyError flags a QR code that has not been generated yet.
func NewQRNotReadyError(userName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQRNotReady,
		Message:   "QR code has not been generated yet",
		Details:   fmt.Sprintf("userName: %s", userName),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreQueryFailedError creates a retryable database error.
func NewStoreQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreQueryFailed,
		Message:   "Shop store query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Shop search query failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Operator notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlaceLookupFailedError creates a retryable Places API error.
func NewPlaceLookupFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePlaceLookupFailed,
		Message:   "Places API lookup failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
