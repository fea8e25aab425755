package repository

import (
	"context"
	"strings"
	"time"

	"github.com/lqviet45/light-novel-BE/internal/store"
)

// Key namespaces shared with every service instance.
const (
	RefreshTokenPrefix = "refresh_token:"
	BlacklistPrefix    = "blacklisted_token:"
	SessionSetPrefix   = "user_sessions:"

	blacklistMarker = "blacklisted"
)

func refreshKey(token string) string { return RefreshTokenPrefix + token }
func blacklistKey(token string) string { return BlacklistPrefix + token }
func sessionKey(email string) string { return SessionSetPrefix + email }

// SessionRepository persists refresh tokens, their per-identity session sets
// and revoked access tokens.
type SessionRepository interface {
	SaveRefreshToken(ctx context.Context, token, email string, ttl time.Duration) error
	RefreshTokenOwner(ctx context.Context, token string) (string, bool, error)
	ExtendRefreshToken(ctx context.Context, token, email string, ttl time.Duration) error
	RevokeRefreshToken(ctx context.Context, token, fallbackOwner string) error
	RevokeAll(ctx context.Context, email string) (int, error)
	SessionCount(ctx context.Context, email string) (int64, error)

	BlacklistAccessToken(ctx context.Context, token string, remaining time.Duration) error
	IsBlacklisted(ctx context.Context, token string) (bool, error)

	SessionOwners(ctx context.Context) ([]string, error)
	PruneOrphans(ctx context.Context, email string) (int, error)
}

type sessionRepository struct {
	store store.Store
}

// NewSessionRepository constructs repository.
func NewSessionRepository(s store.Store) SessionRepository {
	return &sessionRepository{store: s}
}

// SaveRefreshToken writes the token mapping first and the session set second.
func (r *sessionRepository) SaveRefreshToken(ctx context.Context, token, email string, ttl time.Duration) error {
	if err := r.store.Put(ctx, refreshKey(token), email, ttl); err != nil {
		return err
	}
	return r.store.SetAdd(ctx, sessionKey(email), token, ttl)
}

func (r *sessionRepository) RefreshTokenOwner(ctx context.Context, token string) (string, bool, error) {
	return r.store.Get(ctx, refreshKey(token))
}

func (r *sessionRepository) ExtendRefreshToken(ctx context.Context, token, email string, ttl time.Duration) error {
	if _, err := r.store.Expire(ctx, refreshKey(token), ttl); err != nil {
		return err
	}
	return r.store.SetAdd(ctx, sessionKey(email), token, ttl)
}

// RevokeRefreshToken deletes the mapping and removes the token from its
// owner's set. The stored owner wins over fallbackOwner.
func (r *sessionRepository) RevokeRefreshToken(ctx context.Context, token, fallbackOwner string) error {
	owner, ok, err := r.store.Get(ctx, refreshKey(token))
	if err != nil {
		return err
	}
	if !ok {
		owner = fallbackOwner
	}
	if err := r.store.Delete(ctx, refreshKey(token)); err != nil {
		return err
	}
	if owner == "" {
		return nil
	}
	return r.store.SetRemove(ctx, sessionKey(owner), token)
}

// RevokeAll deletes every refresh token in the identity's set, then the set.
func (r *sessionRepository) RevokeAll(ctx context.Context, email string) (int, error) {
	members, err := r.store.SetMembers(ctx, sessionKey(email))
	if err != nil {
		return 0, err
	}
	if len(members) > 0 {
		keys := make([]string, len(members))
		for i, m := range members {
			keys[i] = refreshKey(m)
		}
		if err := r.store.Delete(ctx, keys...); err != nil {
			return 0, err
		}
	}
	if err := r.store.Delete(ctx, sessionKey(email)); err != nil {
		return 0, err
	}
	return len(members), nil
}

func (r *sessionRepository) SessionCount(ctx context.Context, email string) (int64, error) {
	return r.store.SetSize(ctx, sessionKey(email))
}

// BlacklistAccessToken records a revoked access token for its remaining
// lifetime. Already-expired tokens are not recorded.
func (r *sessionRepository) BlacklistAccessToken(ctx context.Context, token string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	return r.store.Put(ctx, blacklistKey(token), blacklistMarker, remaining)
}

func (r *sessionRepository) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	return r.store.Exists(ctx, blacklistKey(token))
}

// SessionOwners lists every identity with a session set.
func (r *sessionRepository) SessionOwners(ctx context.Context) ([]string, error) {
	keys, err := r.store.Scan(ctx, SessionSetPrefix+"*")
	if err != nil {
		return nil, err
	}
	owners := make([]string, 0, len(keys))
	for _, k := range keys {
		owners = append(owners, strings.TrimPrefix(k, SessionSetPrefix))
	}
	return owners, nil
}

// PruneOrphans removes set members whose refresh token mapping has expired.
func (r *sessionRepository) PruneOrphans(ctx context.Context, email string) (int, error) {
	members, err := r.store.SetMembers(ctx, sessionKey(email))
	if err != nil {
		return 0, err
	}
	var orphans []string
	for _, m := range members {
		ok, err := r.store.Exists(ctx, refreshKey(m))
		if err != nil {
			return 0, err
		}
		if !ok {
			orphans = append(orphans, m)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}
	if err := r.store.SetRemove(ctx, sessionKey(email), orphans...); err != nil {
		return 0, err
	}
	return len(orphans), nil
}
