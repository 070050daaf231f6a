package dto

import (
	"net/http"

	"github.com/academy/backend/internal/domain/shared"
)

// Error codes returned on the wire. Domain failures keep the code of the
// shared.DomainError that caused them; the codes below cover failures that
// happen before a request reaches the application layer.
const (
	// ErrCodeInternal is used for unexpected server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed bodies and path parameters
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeTokenExpired is used when the bearer token has expired
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the bearer token cannot be validated
	ErrCodeTokenInvalid = "INVALID_TOKEN"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	shared.CodeValidation:             http.StatusBadRequest,
	shared.CodeUnauthorized:           http.StatusUnauthorized,
	shared.CodeNotFound:               http.StatusNotFound,
	shared.CodeInvalidStateTransition: http.StatusUnprocessableEntity,
	shared.CodeChainIntegrity:         http.StatusConflict,
	shared.CodeConcurrencyConflict:    http.StatusConflict,
	shared.CodeDuplicateSubmission:    http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
