package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 200

// RedisStore implements Store on go-redis. Every call is bounded by opTimeout.
type RedisStore struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

// NewRedisStore wraps client. A non-positive opTimeout falls back to 500ms.
func NewRedisStore(client redis.UniversalClient, opTimeout time.Duration) *RedisStore {
	if opTimeout <= 0 {
		opTimeout = 500 * time.Millisecond
	}
	return &RedisStore{client: client, opTimeout: opTimeout}
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func (s *RedisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", err)
	}
	return val, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable("exists", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, unavailable("expire", err)
	}
	return ok, nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, unavailable("pttl", err)
	}
	// go-redis reports the -1/-2 replies as raw nanosecond durations.
	switch ttl {
	case -1, -1 * time.Millisecond:
		return NoExpiry, nil
	case -2, -2 * time.Millisecond:
		return KeyMissing, nil
	}
	return ttl, nil
}

func (s *RedisStore) SetAdd(ctx context.Context, key, member string, ttl time.Duration) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var current *redis.DurationCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, member)
		current = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil {
		return unavailable("sadd", err)
	}
	if ttl <= 0 {
		return nil
	}
	existing := current.Val()
	if existing > 0 && existing >= ttl {
		return nil
	}
	if err := s.client.PExpire(ctx, key, ttl).Err(); err != nil {
		return unavailable("pexpire", err)
	}
	return nil
}

func (s *RedisStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable("smembers", err)
	}
	return members, nil
}

func (s *RedisStore) SetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if err := s.client.SRem(ctx, key, args...).Err(); err != nil {
		return unavailable("srem", err)
	}
	return nil
}

func (s *RedisStore) SetSize(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable("scard", err)
	}
	return n, nil
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, unavailable("incr", err)
	}
	return n, nil
}

func (s *RedisStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		cctx, cancel := s.withTimeout(ctx)
		batch, next, err := s.client.Scan(cctx, cursor, pattern, scanBatch).Result()
		cancel()
		if err != nil {
			return nil, unavailable("scan", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
