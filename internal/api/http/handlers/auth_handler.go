package handlers

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/api/dto"
	"github.com/lqviet45/light-novel-BE/internal/auth"
	"github.com/lqviet45/light-novel-BE/internal/domain"
	"github.com/lqviet45/light-novel-BE/internal/service"
	apperrors "github.com/lqviet45/light-novel-BE/pkg/util/errorutil"
)

const tokenTypeBearer = "Bearer"

// AuthHandler exposes the session lifecycle endpoints.
type AuthHandler struct {
	auth      *service.AuthService
	accessTTL time.Duration
	logger    *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, accessTTL time.Duration, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: authService, accessTTL: accessTTL, logger: logger}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperrors.NewValidationError("email is malformed", map[string]any{"field": "email"})
	}

	pair, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"data": dto.AuthResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			TokenType:    tokenTypeBearer,
			ExpiresIn:    int64(h.accessTTL / time.Second),
			User:         toUserInfo(pair.Identity),
			LoginTime:    pair.AccessTokenExpiresAt.Add(-h.accessTTL),
		},
	})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if req.RefreshToken == "" {
		return apperrors.NewValidationError("refreshToken required", nil)
	}

	grant, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"data": dto.TokenResponse{
			AccessToken: grant.AccessToken,
			TokenType:   tokenTypeBearer,
			ExpiresIn:   int64(h.accessTTL / time.Second),
			IssuedAt:    grant.ExpiresAt.Add(-h.accessTTL),
			ExpiresAt:   grant.ExpiresAt,
		},
	})
}

// Logout handles POST /api/v1/auth/logout. It always succeeds.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if req.AccessToken == "" {
		if token, ok := auth.BearerToken(c); ok {
			req.AccessToken = token
		}
	}

	h.auth.Logout(c.UserContext(), strings.TrimSpace(req.AccessToken), strings.TrimSpace(req.RefreshToken))
	return c.JSON(fiber.Map{"message": "logged out"})
}

// LogoutAll handles POST /api/v1/auth/logout-all for the authenticated caller.
func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	n, err := h.auth.LogoutAll(c.UserContext(), principal.Email)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{
		"message": "all sessions revoked",
		"data":    fiber.Map{"revokedSessions": n},
	})
}

// Validate handles GET /api/v1/auth/validate. Token problems yield
// valid=false; an unreachable store is surfaced.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c)
	if !ok {
		return c.JSON(fiber.Map{"data": dto.ValidationResponse{Valid: false, Token: "missing"}})
	}

	claims, err := h.auth.ValidateAccessToken(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, service.ErrStoreUnavailable) {
			return mapServiceError(err)
		}
		return c.JSON(fiber.Map{"data": dto.ValidationResponse{Valid: false, Token: "provided"}})
	}

	return c.JSON(fiber.Map{"data": dto.ValidationResponse{
		Valid:       true,
		Token:       "provided",
		Username:    claims.Subject,
		Authorities: claims.Roles,
	}})
}

// UserInfo handles GET /api/v1/auth/user-info.
func (h *AuthHandler) UserInfo(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	identity, err := h.auth.UserInfo(c.UserContext(), principal.Token)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": toUserInfo(identity)})
}

// Sessions handles GET /api/v1/auth/sessions.
func (h *AuthHandler) Sessions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	n, err := h.auth.ActiveSessionCount(c.UserContext(), principal.Email)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.SessionsResponse{
		ActiveSessionCount: n,
		UserEmail:          principal.Email,
	}})
}

// RateLimitInfo handles GET /api/v1/auth/rate-limit/:identifier?operation=login.
func (h *AuthHandler) RateLimitInfo(c *fiber.Ctx) error {
	identifier := strings.TrimSpace(c.Params("identifier"))
	if identifier == "" {
		return apperrors.NewValidationError("identifier required", nil)
	}
	operation := c.Query("operation", domain.OperationLogin)

	info, err := h.auth.RateLimitInfo(c.UserContext(), operation, identifier)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"data": dto.RateLimitInfoResponse{
		MaxRequests:       info.MaxRequests,
		RemainingRequests: info.Remaining,
		ResetTimeSeconds:  info.ResetInSeconds,
		IsLimited:         info.Limited,
		Operation:         info.Operation,
	}})
}

// AdminResetRateLimit handles POST /api/v1/auth/admin/reset-rate-limit.
func (h *AuthHandler) AdminResetRateLimit(c *fiber.Ctx) error {
	identifier := strings.TrimSpace(c.Query("identifier"))
	if identifier == "" {
		return apperrors.NewValidationError("identifier required", nil)
	}
	operation := c.Query("operation", domain.OperationLogin)

	if err := h.auth.ResetRateLimit(c.UserContext(), operation, identifier); err != nil {
		return mapServiceError(err)
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		h.logger.Info("admin reset rate limit", zap.String("admin", principal.Email), zap.String("operation", operation))
	}
	return c.JSON(fiber.Map{"message": "rate limit reset"})
}

// AdminLogoutUser handles POST /api/v1/auth/admin/logout-user.
func (h *AuthHandler) AdminLogoutUser(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.Query("userEmail"))
	if email == "" {
		return apperrors.NewValidationError("userEmail required", nil)
	}

	n, err := h.auth.RevokeUserSessions(c.UserContext(), email)
	if err != nil {
		return mapServiceError(err)
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		h.logger.Info("admin revoked sessions", zap.String("admin", principal.Email), zap.String("email", email), zap.Int("sessions", n))
	}
	return c.JSON(fiber.Map{
		"message": "user sessions revoked",
		"data":    fiber.Map{"revokedSessions": n},
	})
}

func toUserInfo(identity *domain.Identity) dto.UserInfo {
	if identity == nil {
		return dto.UserInfo{}
	}
	roles := identity.Roles
	if roles == nil {
		roles = []string{}
	}
	return dto.UserInfo{
		ID:            identity.ID,
		Email:         identity.Email,
		Username:      identity.Username,
		FirstName:     identity.FirstName,
		LastName:      identity.LastName,
		FullName:      identity.DisplayName(),
		Roles:         roles,
		EmailVerified: identity.EmailVerified,
		Enabled:       identity.Enabled,
	}
}
