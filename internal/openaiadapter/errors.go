package openaiadapter

import (
	"net/http"
)

// OpenAI error types.
const (
	ErrorTypeInvalidRequest    = "invalid_request_error"
	ErrorTypeAuthentication    = "authentication_error"
	ErrorTypePermission        = "permission_denied"
	ErrorTypeRateLimit         = "rate_limit_error"
	ErrorTypeInsufficientQuota = "insufficient_quota"
	ErrorTypeServer            = "server_error"
	ErrorTypeAPI               = "api_error"
)

// NewErrorResponse builds an OpenAI error envelope.
func NewErrorResponse(message, errType string) *ErrorResponse {
	return &ErrorResponse{
		Err: Error{
			Message: message,
			Type:    errType,
		},
	}
}

// ErrorTypeForStatus maps an upstream HTTP status to the OpenAI error type
// clients expect for it.
func ErrorTypeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
		return ErrorTypeInvalidRequest
	case http.StatusUnauthorized:
		return ErrorTypeAuthentication
	case http.StatusForbidden:
		return ErrorTypePermission
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	default:
		return ErrorTypeServer
	}
}

// StatusForErrorType maps an OpenAI error type to the HTTP status it is
// served with.
func StatusForErrorType(errType string) int {
	switch errType {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypePermission:
		return http.StatusForbidden
	case ErrorTypeRateLimit, ErrorTypeInsufficientQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
