package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/lqviet45/light-novel-BE/internal/auth"
	"github.com/lqviet45/light-novel-BE/internal/domain"
	"github.com/lqviet45/light-novel-BE/internal/ratelimit"
	"github.com/lqviet45/light-novel-BE/internal/repository"
	"github.com/lqviet45/light-novel-BE/internal/store"
)

const cliSecret = "cli-test-secret-cli-test-secret-cli-test"

type harness struct {
	env    *Env
	closed bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemoryStore(time.Now)
	tokens, err := auth.NewTokenManager(cliSecret, "auth-service")
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)

	h := &harness{}
	h.env = &Env{
		Sessions: repository.NewSessionRepository(mem),
		Limiter: ratelimit.NewLimiter(mem, map[string]ratelimit.Policy{
			domain.OperationLogin: {MaxRequests: 5, Window: time.Minute},
		}, logger, nil),
		Tokens:     tokens,
		Logger:     logger,
		BcryptCost: bcrypt.MinCost,
		Close:      func() { h.closed = true },
	}
	return h
}

func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return h.runWithInput(t, "", args...)
}

func (h *harness) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(func(context.Context) (*Env, error) { return h.env, nil })
	root.SetIn(strings.NewReader(input))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRateLimitInfoAndReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.env.Limiter.Check(ctx, domain.OperationLogin, "a@x.com"))
	require.NoError(t, h.env.Limiter.Check(ctx, domain.OperationLogin, "a@x.com"))

	out, err := h.run(t, "ratelimit", "info", "a@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "login")
	assert.Contains(t, out, "3")
	assert.True(t, h.closed)

	out, err = h.run(t, "ratelimit", "reset", "a@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	info, err := h.env.Limiter.Info(ctx, domain.OperationLogin, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 5, info.Remaining)
}

func TestRateLimitRejectsUnknownOperation(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "ratelimit", "reset", "a@x.com", "--operation", "bogus")
	require.ErrorIs(t, err, ratelimit.ErrUnknownOperation)
}

func TestSessionsCountAndRevoke(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.env.Sessions.SaveRefreshToken(ctx, "r1", "a@x.com", time.Hour))
	require.NoError(t, h.env.Sessions.SaveRefreshToken(ctx, "r2", "a@x.com", time.Hour))

	out, err := h.run(t, "sessions", "count", "a@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "2 active session(s)")

	out, err = h.run(t, "sessions", "revoke", "a@x.com")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked 2 session(s)")

	n, err := h.env.Sessions.SessionCount(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenInspect(t *testing.T) {
	h := newHarness(t)
	token, _, err := h.env.Tokens.Issue(auth.Claims{
		UserID: 7,
		Roles:  []string{domain.RoleAdmin},
		Kind:   domain.TokenKindAccess,
	}, "admin@x.com", time.Minute)
	require.NoError(t, err)

	out, err := h.run(t, "token", "inspect", token)
	require.NoError(t, err)
	assert.Contains(t, out, "admin@x.com")
	assert.Contains(t, out, "ADMIN")
	assert.Contains(t, out, "access")

	_, err = h.run(t, "token", "inspect", "not-a-jwt")
	require.ErrorIs(t, err, auth.ErrMalformedToken)
}

func TestJanitorRun(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.env.Sessions.SaveRefreshToken(context.Background(), "r1", "a@x.com", time.Hour))

	out, err := h.run(t, "janitor", "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Owners")
}

func TestRequiresArguments(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "sessions", "count")
	require.Error(t, err)
}

func TestPasswordHashUsesConfiguredCost(t *testing.T) {
	h := newHarness(t)

	out, err := h.runWithInput(t, "correct horse\n", "password", "hash")
	require.NoError(t, err)
	hashed := strings.TrimSpace(out)

	require.NoError(t, auth.ComparePassword(hashed, "correct horse"))
	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	_, err = h.runWithInput(t, "", "password", "hash")
	require.Error(t, err)
}
