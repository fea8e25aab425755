package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/lqviet45/light-novel-BE/internal/api/http/handlers"
	"github.com/lqviet45/light-novel-BE/internal/auth"
	"github.com/lqviet45/light-novel-BE/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Gateway *auth.Gateway
	// Metrics serves the Prometheus exposition; nil disables /metrics.
	Metrics http.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Gateway.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	authGroup := app.Group("/api/v1/auth")
	authGroup.Get("/health", cfg.Health.Status)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/validate", cfg.Auth.Validate)

	// Guards are attached per route so unknown paths under the group still 404.
	authenticated := auth.RequireAuthenticated()
	authGroup.Post("/logout-all", authenticated, cfg.Auth.LogoutAll)
	authGroup.Get("/user-info", authenticated, cfg.Auth.UserInfo)
	authGroup.Get("/sessions", authenticated, cfg.Auth.Sessions)
	authGroup.Get("/rate-limit/:identifier", authenticated, cfg.Auth.RateLimitInfo)

	admin := auth.RequireRole(domain.RoleAdmin)
	authGroup.Post("/admin/reset-rate-limit", admin, cfg.Auth.AdminResetRateLimit)
	authGroup.Post("/admin/logout-user", admin, cfg.Auth.AdminLogoutUser)
}
