package handlers

import (
	"errors"

	"github.com/lqviet45/light-novel-BE/internal/ratelimit"
	"github.com/lqviet45/light-novel-BE/internal/service"
	apperrors "github.com/lqviet45/light-novel-BE/pkg/util/errorutil"
)

// mapServiceError translates service and limiter errors into the rendered
// error envelope. Messages never echo token material.
func mapServiceError(err error) error {
	if err == nil {
		return nil
	}

	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		return apperrors.NewRateLimitExceeded(exceeded.Operation, exceeded.RetryAfter, err)
	}
	var failure *service.AuthFailure
	if errors.As(err, &failure) {
		return apperrors.NewAuthenticationFailed(failure.Reason, err)
	}

	switch {
	case errors.Is(err, ratelimit.ErrUnknownOperation):
		return apperrors.NewValidationError("unknown rate limit operation", nil)
	case errors.Is(err, service.ErrTokenExpired):
		return apperrors.NewTokenExpired("token has expired", err)
	case errors.Is(err, service.ErrInvalidToken):
		return apperrors.NewInvalidToken("invalid token", err)
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewNotFound("user", nil)
	case errors.Is(err, service.ErrRefreshTokenNotFound):
		return apperrors.NewRefreshTokenNotFound(err)
	case errors.Is(err, service.ErrDirectoryUnavailable):
		return apperrors.NewServiceUnavailable(apperrors.CodeDirectoryUnavailable, "user service is unavailable", err)
	case errors.Is(err, service.ErrStoreUnavailable):
		return apperrors.NewServiceUnavailable(apperrors.CodeStoreUnavailable, "session store is unavailable", err)
	case errors.Is(err, service.ErrAuthenticationFailed):
		return apperrors.NewAuthenticationFailed("authentication failed", err)
	}
	return apperrors.MapError(err)
}
