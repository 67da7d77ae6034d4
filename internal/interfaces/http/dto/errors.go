package dto

import "net/http"

// Error codes surfaced by the access subsystem. The services attach these
// codes to domain errors; this table decides the HTTP status each maps to.

// Validation
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeEmailRequired = "EMAIL_REQUIRED"
	ErrCodeEmailInvalid  = "EMAIL_INVALID"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInvalidJSON   = "INVALID_JSON"
)

// Authentication
const (
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountLocked      = "ACCOUNT_LOCKED"
)

// Authorization
const (
	ErrCodeNoAccess  = "NO_ACCESS"
	ErrCodeForbidden = "FORBIDDEN"
)

// Invite lifecycle
const (
	ErrCodeInviteNotFound       = "INVITE_NOT_FOUND"
	ErrCodeInviteExpired        = "INVITE_EXPIRED"
	ErrCodeInviteUsed           = "INVITE_USED"
	ErrCodeInviteRevoked        = "INVITE_REVOKED"
	ErrCodeInviteAlreadyPending = "INVITE_ALREADY_PENDING"
	ErrCodeInviteMailFailed     = "INVITE_MAIL_FAILED"
	ErrCodeOTPExpired           = "OTP_EXPIRED"
	ErrCodeOTPInvalid           = "OTP_INVALID"
)

// Resources and state
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "INVALID_STATE"
)

// Throttling and infrastructure
const (
	ErrCodeRateLimited           = "RATE_LIMITED"
	ErrCodeSessionCreationFailed = "SESSION_CREATION_FAILED"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Validation errors -> 400 Bad Request
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeEmailRequired: http.StatusBadRequest,
	ErrCodeEmailInvalid:  http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,

	// Authentication
	ErrCodeNotAuthenticated:   http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeAccountLocked:      http.StatusLocked,

	// Authorization
	ErrCodeNoAccess:  http.StatusForbidden,
	ErrCodeForbidden: http.StatusForbidden,

	// Invite lifecycle. Terminal invites are Gone rather than Not Found:
	// the resource existed and will never come back.
	ErrCodeInviteNotFound:       http.StatusNotFound,
	ErrCodeInviteExpired:        http.StatusGone,
	ErrCodeInviteUsed:           http.StatusGone,
	ErrCodeInviteRevoked:        http.StatusGone,
	ErrCodeInviteAlreadyPending: http.StatusConflict,
	ErrCodeInviteMailFailed:     http.StatusBadGateway,
	ErrCodeOTPExpired:           http.StatusUnprocessableEntity,
	ErrCodeOTPInvalid:           http.StatusUnprocessableEntity,

	// Resources and state
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeEmailTaken:          http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,

	// Throttling and infrastructure
	ErrCodeRateLimited:           http.StatusTooManyRequests,
	ErrCodeSessionCreationFailed: http.StatusInternalServerError,
	ErrCodeInternal:              http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes read as 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
