package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Error codes rendered in the error envelope.
const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeRefreshTokenNotFound = "REFRESH_TOKEN_NOT_FOUND"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeDirectoryUnavailable = "USER_SERVICE_UNAVAILABLE"
	CodeStoreUnavailable     = "STORE_UNAVAILABLE"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeAccessDenied         = "ACCESS_DENIED"
	CodeNotFound             = "NOT_FOUND"
	CodeInternal             = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
	// RetryAfter is emitted as a Retry-After header when positive.
	RetryAfter time.Duration
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *DomainError) RetryAfterSeconds() string {
	secs := int64((e.RetryAfter + time.Second - 1) / time.Second)
	return strconv.FormatInt(secs, 10)
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeAccessDenied, message, http.StatusForbidden, nil)
}

func NewAuthenticationFailed(message string, err error) error {
	return &DomainError{Code: CodeAuthenticationFailed, Message: message, HTTPStatus: http.StatusUnauthorized, Err: err}
}

func NewInvalidToken(message string, err error) error {
	return &DomainError{Code: CodeInvalidToken, Message: message, HTTPStatus: http.StatusUnauthorized, Err: err}
}

func NewTokenExpired(message string, err error) error {
	return &DomainError{Code: CodeTokenExpired, Message: message, HTTPStatus: http.StatusUnauthorized, Err: err}
}

func NewRefreshTokenNotFound(err error) error {
	return &DomainError{
		Code:       CodeRefreshTokenNotFound,
		Message:    "refresh token not found or revoked",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func NewRateLimitExceeded(operation string, retryAfter time.Duration, err error) error {
	de := &DomainError{
		Code:       CodeRateLimitExceeded,
		Message:    fmt.Sprintf("too many %s attempts, try again later", operation),
		HTTPStatus: http.StatusTooManyRequests,
		Err:        err,
		RetryAfter: retryAfter,
	}
	secs, _ := strconv.ParseInt(de.RetryAfterSeconds(), 10, 64)
	de.Details = map[string]any{"operation": operation, "retry_after_seconds": secs}
	return de
}

func NewServiceUnavailable(code, message string, err error) error {
	return &DomainError{Code: code, Message: message, HTTPStatus: http.StatusServiceUnavailable, Err: err}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
