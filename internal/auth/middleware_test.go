package auth

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/lqviet45/light-novel-BE/pkg/util/errorutil"
)

type fakeValidator struct {
	claims *Claims
	err    error
	panics bool
	calls  int
}

func (f *fakeValidator) ValidateAccessToken(_ context.Context, _ string) (*Claims, error) {
	f.calls++
	if f.panics {
		panic("validator exploded")
	}
	return f.claims, f.err
}

func newGatewayApp(t *testing.T, v AccessValidator, guards ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).SendString(de.Code)
		},
	})
	gw := NewGateway(v, []string{"/api/v1/auth/login", "/health"}, zaptest.NewLogger(t))
	app.Use(gw.Handle)

	handlers := append(guards, func(c *fiber.Ctx) error {
		if p, ok := PrincipalFromContext(c); ok {
			return c.SendString(p.Email)
		}
		return c.SendString("anonymous")
	})
	app.Get("/*", handlers...)
	return app
}

func doGet(t *testing.T, app *fiber.App, path, authz string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestGatewayAttachesPrincipal(t *testing.T) {
	v := &fakeValidator{claims: &Claims{UserID: 1, Roles: []string{"USER"}}}
	v.claims.Subject = "a@x.com"
	app := newGatewayApp(t, v)

	status, body := doGet(t, app, "/api/v1/auth/user-info", "Bearer abc")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "a@x.com", body)
}

func TestGatewayNeverRejects(t *testing.T) {
	cases := map[string]*fakeValidator{
		"invalid": {err: errors.New("bad")},
		"panic":   {panics: true},
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			app := newGatewayApp(t, v)
			status, body := doGet(t, app, "/api/v1/auth/user-info", "Bearer abc")
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, "anonymous", body)
		})
	}
}

func TestGatewaySkipsPublicPathsAndMissingHeader(t *testing.T) {
	v := &fakeValidator{claims: &Claims{}}
	app := newGatewayApp(t, v)

	_, body := doGet(t, app, "/api/v1/auth/login", "Bearer abc")
	assert.Equal(t, "anonymous", body)
	_, body = doGet(t, app, "/health/ready", "Bearer abc")
	assert.Equal(t, "anonymous", body)
	_, body = doGet(t, app, "/api/v1/auth/validate", "Basic abc")
	assert.Equal(t, "anonymous", body)
	assert.Zero(t, v.calls)
}

func TestRoleGuards(t *testing.T) {
	user := &fakeValidator{claims: &Claims{Roles: []string{"USER"}}}
	user.claims.Subject = "u@x.com"
	admin := &fakeValidator{claims: &Claims{Roles: []string{"admin"}}}
	admin.claims.Subject = "root@x.com"

	status, body := doGet(t, newGatewayApp(t, user, RequireAuthenticated()), "/x", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, apperrors.CodeUnauthorized, body)

	status, body = doGet(t, newGatewayApp(t, user, RequireRole("ADMIN")), "/x", "Bearer t")
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeAccessDenied, body)

	status, body = doGet(t, newGatewayApp(t, admin, RequireRole("ADMIN")), "/x", "Bearer t")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "root@x.com", body)
}
