package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/lqviet45/light-novel-BE/internal/api/http"
	"github.com/lqviet45/light-novel-BE/internal/api/http/handlers"
	"github.com/lqviet45/light-novel-BE/internal/auth"
	"github.com/lqviet45/light-novel-BE/internal/config"
	"github.com/lqviet45/light-novel-BE/internal/directory"
	"github.com/lqviet45/light-novel-BE/internal/events"
	"github.com/lqviet45/light-novel-BE/internal/messaging/kafka"
	"github.com/lqviet45/light-novel-BE/internal/observability"
	"github.com/lqviet45/light-novel-BE/internal/persistence"
	"github.com/lqviet45/light-novel-BE/internal/ratelimit"
	"github.com/lqviet45/light-novel-BE/internal/repository"
	"github.com/lqviet45/light-novel-BE/internal/service"
	"github.com/lqviet45/light-novel-BE/internal/store"
	"github.com/lqviet45/light-novel-BE/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	kv := store.NewRedisStore(redis.Client, cfg.Redis.OpTimeout())
	sessions := repository.NewSessionRepository(kv)
	limiter := ratelimit.NewLimiter(kv, ratelimit.PoliciesFromConfig(cfg.RateLimit), logger, metrics)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	readiness := map[string]handlers.Pinger{"redis": redis}

	var dir directory.Directory
	switch cfg.Directory.Driver {
	case "postgres":
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		dir = directory.NewPostgresDirectory(pg.Pool, cfg.Directory.Timeout())
		readiness["postgres"] = pg
	default:
		dir = directory.NewHTTPClient(cfg.Directory.BaseURL,
			directory.WithTimeout(cfg.Directory.Timeout()),
			directory.WithRateLimit(cfg.Directory.RatePerSecond),
			directory.WithLogger(logger),
		)
	}

	dispatcher := events.NewInMemoryDispatcher(logger)

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka, cfg.App, logger)
		if err != nil {
			logger.Fatal("failed to init kafka producer", zap.Error(err))
		}
		defer producer.Close() //nolint:errcheck
		publisher = producer
	}
	worker.StartAuditWorker(service.NewAuditService(dispatcher, publisher, logger))

	authService := service.NewAuthService(service.SettingsFromConfig(cfg.Auth), service.AuthDependencies{
		Directory: dir,
		Sessions:  sessions,
		Limiter:   limiter,
		Tokens:    tokens,
		Events:    dispatcher,
		Metrics:   metrics,
		Logger:    logger,
	})

	janitor := worker.NewSessionJanitor(sessions, cfg.Janitor.Interval(), logger, metrics)
	go janitor.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Auth:    handlers.NewAuthHandler(authService, cfg.Auth.AccessTokenTTL(), logger),
		Gateway: auth.NewGateway(authService, cfg.Auth.PublicPaths, logger),
		Metrics: promhttp.Handler(),
	})

	go func() {
		logger.Info("auth service listening", zap.String("addr", cfg.App.Addr()), zap.String("directory", cfg.Directory.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
