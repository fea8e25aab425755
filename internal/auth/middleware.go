package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/observability"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	Email    string
	UserID   int64
	Username string
	Roles    []string
	Token    string
	Claims   *Claims
}

// HasRole reports whether the principal carries role (case-insensitive).
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// AccessValidator validates access tokens against signature, kind, expiry and
// the revocation list.
type AccessValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*Claims, error)
}

// Gateway attaches a Principal to requests bearing a valid access token. It
// never rejects a request; guards further down the chain do.
type Gateway struct {
	validator   AccessValidator
	publicPaths []string
	logger      *zap.Logger
}

// NewGateway constructs middleware.
func NewGateway(validator AccessValidator, publicPaths []string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{validator: validator, publicPaths: publicPaths, logger: logger}
}

// Handle runs once per request.
func (g *Gateway) Handle(c *fiber.Ctx) error {
	if g.isPublic(c.Path()) {
		return c.Next()
	}
	g.authenticate(c)
	return c.Next()
}

func (g *Gateway) authenticate(c *fiber.Ctx) {
	defer func() {
		if r := recover(); r != nil {
			c.Locals(principalKey, nil)
			g.logger.Error("authentication panicked",
				zap.String("request_id", c.GetRespHeader(observability.RequestIDHeader)), zap.Any("panic", r))
		}
	}()

	token, ok := BearerToken(c)
	if !ok {
		return
	}

	claims, err := g.validator.ValidateAccessToken(c.UserContext(), token)
	if err != nil {
		c.Locals(principalKey, nil)
		g.logger.Debug("bearer token rejected",
			zap.String("request_id", c.GetRespHeader(observability.RequestIDHeader)),
			zap.String("token_fp", observability.Fingerprint(token)),
			zap.Error(err),
		)
		return
	}

	c.Locals(principalKey, &Principal{
		Email:    claims.Subject,
		UserID:   claims.UserID,
		Username: claims.Username,
		Roles:    claims.Roles,
		Token:    token,
		Claims:   claims,
	})
}

func (g *Gateway) isPublic(path string) bool {
	for _, p := range g.publicPaths {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil
}
