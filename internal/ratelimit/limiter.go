package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/config"
	"github.com/lqviet45/light-novel-BE/internal/domain"
	"github.com/lqviet45/light-novel-BE/internal/observability"
	"github.com/lqviet45/light-novel-BE/internal/store"
)

// KeyPrefix namespaces counters in the shared store.
const KeyPrefix = "rate_limit:"

// ErrUnknownOperation is returned for operations without a policy.
var ErrUnknownOperation = errors.New("no rate limit policy for operation")

// ExceededError rejects an attempt; RetryAfter is the counter's remaining TTL.
type ExceededError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Operation, e.RetryAfter.Round(time.Second))
}

// Policy is a fixed-window (max, window) pair.
type Policy struct {
	MaxRequests int
	Window      time.Duration
	// SensitiveID marks identifiers that are credentials and must only be
	// logged as fingerprints.
	SensitiveID bool
}

// PoliciesFromConfig builds the login and refresh policies.
func PoliciesFromConfig(cfg config.RateLimitConfig) map[string]Policy {
	return map[string]Policy{
		domain.OperationLogin: {
			MaxRequests: cfg.Login.MaxRequests,
			Window:      cfg.Login.Window(),
		},
		domain.OperationRefresh: {
			MaxRequests: cfg.Refresh.MaxRequests,
			Window:      cfg.Refresh.Window(),
			SensitiveID: true,
		},
	}
}

// Key builds the counter key for (operation, identifier).
func Key(operation, identifier string) string {
	return KeyPrefix + operation + ":" + identifier
}

// Limiter enforces fixed-window attempt counts. Store failures fail open.
type Limiter struct {
	store    store.Store
	policies map[string]Policy
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewLimiter constructs a limiter.
func NewLimiter(s store.Store, policies map[string]Policy, logger *zap.Logger, metrics *observability.Metrics) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: s, policies: policies, logger: logger, metrics: metrics}
}

// Policy returns the policy for operation.
func (l *Limiter) Policy(operation string) (Policy, error) {
	p, ok := l.policies[operation]
	if !ok {
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}
	return p, nil
}

func (l *Limiter) idField(p Policy, identifier string) zap.Field {
	if p.SensitiveID {
		return zap.String("identifier_fp", observability.Fingerprint(identifier))
	}
	return zap.String("identifier", identifier)
}

// Check counts one attempt, rejecting it with *ExceededError once the window
// holds MaxRequests attempts.
func (l *Limiter) Check(ctx context.Context, operation, identifier string) error {
	p, err := l.Policy(operation)
	if err != nil {
		return err
	}
	key := Key(operation, identifier)

	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		// fail open: limiter outages must not block authentication
		l.logger.Warn("rate limit read failed, allowing attempt",
			zap.String("operation", operation), l.idField(p, identifier), zap.Error(err))
		return nil
	}
	if ok {
		count, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr == nil && count >= int64(p.MaxRequests) {
			return l.reject(ctx, p, operation, identifier, key)
		}
	}

	n, err := l.store.Increment(ctx, key)
	if err != nil {
		// fail open
		l.logger.Warn("rate limit increment failed, allowing attempt",
			zap.String("operation", operation), l.idField(p, identifier), zap.Error(err))
		return nil
	}
	if n == 1 {
		if _, err := l.store.Expire(ctx, key, p.Window); err != nil {
			l.logger.Warn("rate limit window not set",
				zap.String("operation", operation), l.idField(p, identifier), zap.Error(err))
		}
	}
	if n > int64(p.MaxRequests) {
		return l.reject(ctx, p, operation, identifier, key)
	}
	return nil
}

func (l *Limiter) reject(ctx context.Context, p Policy, operation, identifier, key string) error {
	retryAfter := p.Window
	ttl, err := l.store.TTL(ctx, key)
	switch {
	case err != nil:
	case ttl > 0:
		retryAfter = ttl
	case ttl == store.NoExpiry:
		// counter lost its window; restore it so it cannot lock out forever
		if _, err := l.store.Expire(ctx, key, p.Window); err != nil {
			l.logger.Warn("rate limit window repair failed",
				zap.String("operation", operation), l.idField(p, identifier), zap.Error(err))
		}
	}

	l.metrics.RecordRateLimited(operation)
	l.logger.Info("rate limit exceeded",
		zap.String("operation", operation),
		l.idField(p, identifier),
		zap.Duration("retry_after", retryAfter),
	)
	return &ExceededError{Operation: operation, RetryAfter: retryAfter}
}

// Reset deletes the counter.
func (l *Limiter) Reset(ctx context.Context, operation, identifier string) error {
	if _, err := l.Policy(operation); err != nil {
		return err
	}
	return l.store.Delete(ctx, Key(operation, identifier))
}

// Info reports the counter state without mutating it. Store failures degrade
// to an unthrottled view.
func (l *Limiter) Info(ctx context.Context, operation, identifier string) (domain.RateLimitInfo, error) {
	p, err := l.Policy(operation)
	if err != nil {
		return domain.RateLimitInfo{}, err
	}
	info := domain.RateLimitInfo{Operation: operation, MaxRequests: p.MaxRequests, Remaining: p.MaxRequests}
	key := Key(operation, identifier)

	raw, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit info unavailable",
			zap.String("operation", operation), l.idField(p, identifier), zap.Error(err))
		return info, nil
	}
	if !ok {
		return info, nil
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return info, nil
	}
	info.Remaining = max(p.MaxRequests-count, 0)
	info.Limited = count >= p.MaxRequests

	if ttl, err := l.store.TTL(ctx, key); err == nil && ttl > 0 {
		info.ResetInSeconds = int64((ttl + time.Second - 1) / time.Second)
	}
	return info, nil
}
