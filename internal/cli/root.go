package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/auth"
	"github.com/lqviet45/light-novel-BE/internal/config"
	"github.com/lqviet45/light-novel-BE/internal/observability"
	"github.com/lqviet45/light-novel-BE/internal/persistence"
	"github.com/lqviet45/light-novel-BE/internal/ratelimit"
	"github.com/lqviet45/light-novel-BE/internal/repository"
	"github.com/lqviet45/light-novel-BE/internal/store"
)

// Env is the set of collaborators commands operate on.
type Env struct {
	Sessions repository.SessionRepository
	Limiter  *ratelimit.Limiter
	Tokens   *auth.TokenManager
	Logger   *zap.Logger

	// BcryptCost is the work factor for hashes minted by the CLI.
	BcryptCost int
	Close      func()
}

// EnvFactory builds an Env; tests swap it for an in-memory one.
type EnvFactory func(ctx context.Context) (*Env, error)

type envKey struct{}

// NewRootCommand assembles the authctl command tree.
func NewRootCommand(factory EnvFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "authctl",
		Short:         "Operate on auth-service sessions, rate limits, tokens and password hashes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if env, ok := cmd.Context().Value(envKey{}).(*Env); ok && env.Close != nil {
				env.Close()
			}
		},
	}

	root.AddCommand(
		newRateLimitCommand(),
		newSessionsCommand(),
		newTokenCommand(),
		newJanitorCommand(),
		newPasswordCommand(),
	)
	return root
}

func envFrom(cmd *cobra.Command) (*Env, error) {
	env, ok := cmd.Context().Value(envKey{}).(*Env)
	if !ok || env == nil {
		return nil, fmt.Errorf("command environment not initialized")
	}
	return env, nil
}

// FromConfig connects to the shared store described by the service env.
func FromConfig(ctx context.Context) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	if err := redis.Ping(ctx); err != nil {
		redis.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.Redis.Addr, err)
	}
	kv := store.NewRedisStore(redis.Client, cfg.Redis.OpTimeout())

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		redis.Close()
		return nil, err
	}

	return &Env{
		Sessions:   repository.NewSessionRepository(kv),
		Limiter:    ratelimit.NewLimiter(kv, ratelimit.PoliciesFromConfig(cfg.RateLimit), logger, nil),
		Tokens:     tokens,
		Logger:     logger,
		BcryptCost: cfg.Auth.BcryptCost,
		Close: func() {
			redis.Close()
			_ = logger.Sync()
		},
	}, nil
}
