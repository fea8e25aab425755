package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lqviet45/light-novel-BE/internal/store"
)

func newTestRepo(t *testing.T) (SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepository(store.NewRedisStore(client, time.Second)), mr
}

func TestSaveRefreshTokenWritesBothSides(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-1", "a@x.com", time.Hour))

	owner, ok, err := repo.RefreshTokenOwner(ctx, "rt-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", owner)

	ok, err = mr.SIsMember("user_sessions:a@x.com", "rt-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Hour, mr.TTL("refresh_token:rt-1"))
}

func TestExtendRefreshTokenRaisesBothTTLs(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-1", "a@x.com", time.Hour))
	require.NoError(t, repo.ExtendRefreshToken(ctx, "rt-1", "a@x.com", 30*24*time.Hour))

	assert.Equal(t, 30*24*time.Hour, mr.TTL("refresh_token:rt-1"))
	assert.Equal(t, 30*24*time.Hour, mr.TTL("user_sessions:a@x.com"))
}

func TestRevokeRefreshTokenUsesStoredOwner(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-1", "a@x.com", time.Hour))
	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-2", "a@x.com", time.Hour))
	require.NoError(t, repo.RevokeRefreshToken(ctx, "rt-1", "wrong@x.com"))

	assert.False(t, mr.Exists("refresh_token:rt-1"))
	members, err := mr.Members("user_sessions:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"rt-2"}, members)
}

func TestRevokeRefreshTokenFallsBackToSubject(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	_, err := mr.SAdd("user_sessions:a@x.com", "rt-orphan", "rt-live")
	require.NoError(t, err)
	require.NoError(t, repo.RevokeRefreshToken(ctx, "rt-orphan", "a@x.com"))

	members, err := mr.Members("user_sessions:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"rt-live"}, members)
}

func TestRevokeAllClearsEverySession(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	for _, token := range []string{"rt-1", "rt-2", "rt-3"} {
		require.NoError(t, repo.SaveRefreshToken(ctx, token, "a@x.com", time.Hour))
	}
	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-other", "b@x.com", time.Hour))

	n, err := repo.RevokeAll(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, token := range []string{"rt-1", "rt-2", "rt-3"} {
		assert.False(t, mr.Exists("refresh_token:"+token))
	}
	assert.False(t, mr.Exists("user_sessions:a@x.com"))
	assert.True(t, mr.Exists("refresh_token:rt-other"))

	count, err := repo.SessionCount(ctx, "b@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestBlacklistAccessToken(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.BlacklistAccessToken(ctx, "at-1", 10*time.Minute))
	require.NoError(t, repo.BlacklistAccessToken(ctx, "at-expired", -time.Second))

	ok, err := repo.IsBlacklisted(ctx, "at-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Minute, mr.TTL("blacklisted_token:at-1"))

	ok, err = repo.IsBlacklisted(ctx, "at-expired")
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(11 * time.Minute)
	ok, err = repo.IsBlacklisted(ctx, "at-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPruneOrphansRestoresConsistency(t *testing.T) {
	repo, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-short", "a@x.com", time.Minute))
	require.NoError(t, repo.SaveRefreshToken(ctx, "rt-long", "a@x.com", time.Hour))
	mr.FastForward(2 * time.Minute)

	owners, err := repo.SessionOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, owners)

	n, err := repo.PruneOrphans(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	members, err := mr.Members("user_sessions:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"rt-long"}, members)
}
