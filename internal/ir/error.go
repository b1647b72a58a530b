package ir

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorType is the closed taxonomy every dialect's errors classify into.
type ErrorType string

const (
	ErrValidation     ErrorType = "validation"
	ErrAuthentication ErrorType = "authentication"
	ErrPermission     ErrorType = "permission"
	ErrNotFound       ErrorType = "not_found"
	ErrRateLimit      ErrorType = "rate_limit"
	ErrServer         ErrorType = "server"
	ErrNetwork        ErrorType = "network"
	ErrTimeout        ErrorType = "timeout"
	ErrCancelled      ErrorType = "cancelled"
	ErrUnknown        ErrorType = "unknown"
)

// StatusCode returns the HTTP status this error type surfaces as, per the
// fixed mapping the bridge uses when relaying an error to the client.
func (t ErrorType) StatusCode() int {
	switch t {
	case ErrValidation:
		return http.StatusBadRequest
	case ErrAuthentication:
		return http.StatusUnauthorized
	case ErrPermission:
		return http.StatusForbidden
	case ErrNotFound:
		return http.StatusNotFound
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrServer:
		return http.StatusInternalServerError
	case ErrNetwork:
		return http.StatusBadGateway
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrCancelled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// Error is the neutral form of a dialect's error envelope.
type Error struct {
	Type    ErrorType
	Message string
	Code    string
	Status  int
	Raw     []byte
	Cause   error
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError wraps cause, classifying it by message pattern when no more
// specific signal (status code, provider error code) is available.
func NewError(message string, cause error) *Error {
	e := &Error{Message: message, Cause: cause, Type: ErrUnknown}
	if message == "" && cause != nil {
		e.Message = cause.Error()
	}
	e.Type = ClassifyMessage(e.Message)
	return e
}

// WithStatus attaches an upstream HTTP status and reclassifies by it.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	if t := ClassifyStatus(status); t != ErrUnknown {
		e.Type = t
	}
	return e
}

// WithCode attaches a dialect-specific error code and reclassifies by it
// when the code maps to something more specific than the current guess.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	if t := ClassifyCode(code); t != ErrUnknown {
		e.Type = t
	}
	return e
}

// ClassifyStatus maps an upstream HTTP status code to an ErrorType.
func ClassifyStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthentication
	case status == http.StatusForbidden:
		return ErrPermission
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return ErrTimeout
	case status == 499:
		return ErrCancelled
	case status >= 500:
		return ErrServer
	default:
		return ErrUnknown
	}
}

// ClassifyCode maps a dialect-specific error-code string to an ErrorType.
// Every dialect's parseError calls this on its own code vocabulary after
// first trying ClassifyStatus, so the cascade lives in one place instead
// of being rewritten per dialect.
func ClassifyCode(code string) ErrorType {
	switch strings.ToLower(code) {
	case "invalid_request_error", "invalid_argument", "bad_request":
		return ErrValidation
	case "authentication_error", "invalid_api_key", "unauthenticated":
		return ErrAuthentication
	case "permission_error", "permission_denied", "forbidden":
		return ErrPermission
	case "not_found_error", "model_not_found", "404":
		return ErrNotFound
	case "rate_limit_error", "rate_limit_exceeded", "resource_exhausted":
		return ErrRateLimit
	case "api_error", "internal_error", "server_error":
		return ErrServer
	case "timeout", "deadline_exceeded":
		return ErrTimeout
	case "cancelled", "canceled":
		return ErrCancelled
	case "overloaded_error":
		return ErrServer
	default:
		return ErrUnknown
	}
}

// ClassifyMessage inspects a raw error string and guesses an ErrorType.
// Used only when neither a status code nor a dialect error code is
// available (network errors, malformed bodies).
func ClassifyMessage(msg string) ErrorType {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "context canceled") || strings.Contains(lower, "context cancelled"):
		return ErrCancelled
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "timeout"):
		return ErrTimeout
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests"):
		return ErrRateLimit
	case strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") || strings.Contains(lower, "authentication"):
		return ErrAuthentication
	case strings.Contains(lower, "forbidden") || strings.Contains(lower, "permission"):
		return ErrPermission
	case strings.Contains(lower, "not found"):
		return ErrNotFound
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host") || strings.Contains(lower, "eof") || strings.Contains(lower, "connection reset"):
		return ErrNetwork
	case strings.Contains(lower, "internal server") || strings.Contains(lower, "server error") || strings.Contains(lower, "bad gateway"):
		return ErrServer
	default:
		return ErrUnknown
	}
}
