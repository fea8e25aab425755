package service

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidToken         = errors.New("invalid token")
	ErrTokenExpired         = errors.New("token expired")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrDirectoryUnavailable = errors.New("user directory unavailable")
	ErrStoreUnavailable     = errors.New("credential store unavailable")
	ErrUserNotFound         = errors.New("user not found")
)

// Reasons attached to ErrAuthenticationFailed.
const (
	ReasonInvalidCredentials = "invalid email or password"
	ReasonNotActive          = "account is not active"
	ReasonLocked             = "account is locked"
	ReasonExpired            = "account has expired"
	ReasonCredentialsExpired = "credentials have expired"
	ReasonUserNotFound       = "user not found"
)

// AuthFailure is an ErrAuthenticationFailed carrying a caller-safe reason.
type AuthFailure struct {
	Reason string
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("%s: %s", ErrAuthenticationFailed, e.Reason)
}

func (e *AuthFailure) Unwrap() error {
	return ErrAuthenticationFailed
}

func authFailure(reason string) error {
	return &AuthFailure{Reason: reason}
}

func tokenError(kind error, detail string, cause error) error {
	if cause != nil {
		return fmt.Errorf("%w: %s: %w", kind, detail, cause)
	}
	return fmt.Errorf("%w: %s", kind, detail)
}
