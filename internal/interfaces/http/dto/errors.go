package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Third-party error codes
const (
	ErrCodeIntegration        = "ERR_INTEGRATION"
	ErrCodeNotConfigured      = "ERR_NOT_CONFIGURED"
	ErrCodeInvalidSignature   = "ERR_INVALID_SIGNATURE"
	ErrCodeRateLimited        = "ERR_RATE_LIMITED"
	ErrCodeServiceUnavailable = "ERR_SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeIntegration:        http.StatusBadGateway,
	ErrCodeNotConfigured:      http.StatusServiceUnavailable,
	ErrCodeInvalidSignature:   http.StatusUnauthorized,
	ErrCodeRateLimited:        http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
}

// LegacyErrorCodeMapping maps domain error codes to standardized codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":                  ErrCodeNotFound,
	"ALREADY_EXISTS":             ErrCodeAlreadyExists,
	"INVALID_INPUT":              ErrCodeInvalidInput,
	"INVALID_STATE":              ErrCodeInvalidState,
	"UNAUTHORIZED":               ErrCodeUnauthorized,
	"FORBIDDEN":                  ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":       ErrCodeConcurrencyConflict,
	"VALIDATION_ERROR":           ErrCodeValidation,
	"BAD_REQUEST":                ErrCodeBadRequest,
	"INTERNAL_ERROR":             ErrCodeInternal,
	"INTEGRATION_FAILED":         ErrCodeIntegration,
	"INTEGRATION_NOT_CONFIGURED": ErrCodeNotConfigured,
	"TOKEN_EXPIRED":              ErrCodeTokenExpired,
	"TOKEN_INVALID":              ErrCodeTokenInvalid,
	"INVALID_TOKEN":              ErrCodeTokenInvalid,
	"TOKEN_REVOKED":              ErrCodeTokenRevoked,
}

// domainStatus holds domain codes whose status the naming rules in
// GetHTTPStatus would get wrong
var domainStatus = map[string]int{
	"INVALID_CREDENTIALS":    http.StatusUnauthorized,
	"ACCOUNT_DEACTIVATED":    http.StatusUnauthorized,
	"INVALID_SESSION":        http.StatusUnauthorized,
	"REFRESH_UNAVAILABLE":    http.StatusUnauthorized,
	"TOKEN_MAX_REFRESH":      http.StatusUnauthorized,
	"SESSION_NOT_FOUND":      http.StatusUnauthorized,
	"SCHEDULE_CONFLICT":      http.StatusConflict,
	"HOME_ALREADY_IN_CART":   http.StatusConflict,
	"CALENDAR_NOT_CONNECTED": http.StatusConflict,
	"ADDRESS_NOT_FOUND":      http.StatusUnprocessableEntity,
	"INVALID_OAUTH_STATE":    http.StatusBadRequest,
}

// NormalizeErrorCode converts a domain error code to the standardized format.
// Specific domain codes (INVALID_EMAIL, SCHEDULE_CONFLICT, ...) pass through.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// GetHTTPStatus returns the HTTP status for a standardized or domain code.
// Unknown codes ending in _NOT_FOUND are 404, _CONFLICT 409, INVALID_* 400;
// any other domain code is a business rule violation (422).
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if status, ok := domainStatus[code]; ok {
		return status
	}
	switch {
	case strings.HasPrefix(code, "ERR_"), code == "":
		return http.StatusInternalServerError
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_CONFLICT"), strings.HasPrefix(code, "ALREADY_"), strings.HasPrefix(code, "DUPLICATE_"):
		return http.StatusConflict
	case strings.HasPrefix(code, "INVALID_"):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
