package ratelimit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lqviet45/light-novel-BE/internal/domain"
	"github.com/lqviet45/light-novel-BE/internal/observability"
	"github.com/lqviet45/light-novel-BE/internal/store"
)

var testPolicies = map[string]Policy{
	domain.OperationLogin:   {MaxRequests: 5, Window: 15 * time.Minute},
	domain.OperationRefresh: {MaxRequests: 10, Window: time.Hour, SensitiveID: true},
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newMemoryLimiter(t *testing.T) (*Limiter, *store.MemoryStore, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore(clk.Now)
	return NewLimiter(mem, testPolicies, zaptest.NewLogger(t), nil), mem, clk
}

func newRedisLimiter(t *testing.T, metrics *observability.Metrics) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(store.NewRedisStore(client, time.Second), testPolicies, zaptest.NewLogger(t), metrics), mr
}

func TestSixthLoginWithinWindowIsRejected(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	limiter, mr := newRedisLimiter(t, metrics)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"), "attempt %d", i+1)
	}

	err = limiter.Check(ctx, domain.OperationLogin, "a@x.com")
	var exceeded *ExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, domain.OperationLogin, exceeded.Operation)
	assert.LessOrEqual(t, exceeded.RetryAfter, 900*time.Second)
	assert.Positive(t, exceeded.RetryAfter)

	assert.Equal(t, "5", mustGet(t, mr, "rate_limit:login:a@x.com"))
	assert.Equal(t, 15*time.Minute, mr.TTL("rate_limit:login:a@x.com"))
	assert.Equal(t, 1, mustCount(t, reg, "auth_ratelimit_rejections_total"))
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	val, err := mr.Get(key)
	require.NoError(t, err)
	return val
}

func TestWindowIsFixedAndResetsAfterExpiry(t *testing.T) {
	limiter, _, clk := newMemoryLimiter(t)
	ctx := context.Background()

	require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	clk.Advance(10 * time.Minute)
	for i := 0; i < 4; i++ {
		require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	}
	err := limiter.Check(ctx, domain.OperationLogin, "a@x.com")
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 5*time.Minute, exceeded.RetryAfter)

	clk.Advance(5*time.Minute + time.Second)
	require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
}

func TestIdentifiersAndOperationsAreIndependent(t *testing.T) {
	limiter, _, _ := newMemoryLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	}
	require.Error(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "b@x.com"))
	require.NoError(t, limiter.Check(ctx, domain.OperationRefresh, "a@x.com"))
}

func TestConcurrentAttemptsNeverOvershoot(t *testing.T) {
	limiter, _ := newRedisLimiter(t, nil)
	ctx := context.Background()

	var (
		allowed atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Check(ctx, domain.OperationLogin, "burst@x.com") == nil {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 5, allowed.Load())
}

func TestStoreFailureFailsOpen(t *testing.T) {
	limiter, mem, _ := newMemoryLimiter(t)
	mem.SetUnavailable(true)

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Check(context.Background(), domain.OperationLogin, "a@x.com"))
	}

	info, err := limiter.Info(context.Background(), domain.OperationLogin, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, info.Remaining)
	assert.False(t, info.Limited)
}

func TestInfoIsReadOnly(t *testing.T) {
	limiter, _, _ := newMemoryLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	}
	for i := 0; i < 3; i++ {
		info, err := limiter.Info(ctx, domain.OperationLogin, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, 5, info.MaxRequests)
		assert.Equal(t, 2, info.Remaining)
		assert.False(t, info.Limited)
		assert.EqualValues(t, 900, info.ResetInSeconds)
	}

	fresh, err := limiter.Info(ctx, domain.OperationLogin, "new@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, fresh.Remaining)
	assert.Zero(t, fresh.ResetInSeconds)
}

func TestResetClearsCounter(t *testing.T) {
	limiter, _, _ := newMemoryLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	}
	require.Error(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))

	require.NoError(t, limiter.Reset(ctx, domain.OperationLogin, "a@x.com"))
	require.NoError(t, limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
}

func TestUnknownOperation(t *testing.T) {
	limiter, _, _ := newMemoryLimiter(t)
	require.ErrorIs(t, limiter.Check(context.Background(), "signup", "a@x.com"), ErrUnknownOperation)
	_, err := limiter.Info(context.Background(), "signup", "a@x.com")
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestCounterWithoutWindowIsRepaired(t *testing.T) {
	limiter, mr := newRedisLimiter(t, nil)
	require.NoError(t, mr.Set("rate_limit:login:stuck@x.com", "9"))

	err := limiter.Check(context.Background(), domain.OperationLogin, "stuck@x.com")
	var exceeded *ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 15*time.Minute, mr.TTL("rate_limit:login:stuck@x.com"))
}

func mustCount(t *testing.T, reg *prometheus.Registry, name string) int {
	t.Helper()
	n, err := testutil.GatherAndCount(reg, name)
	require.NoError(t, err)
	return n
}
