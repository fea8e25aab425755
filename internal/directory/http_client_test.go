package directory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const userJSON = `{
  "success": true,
  "message": "ok",
  "timestamp": "2024-05-01T12:00:00",
  "data": {
    "id": 42,
    "email": "a@x.com",
    "username": "alice",
    "fullName": "Alice Nguyen",
    "status": "ACTIVE",
    "emailVerified": true,
    "accountNonExpired": true,
    "accountNonLocked": true,
    "credentialsNonExpired": true,
    "enabled": true,
    "roles": ["USER"],
    "passwordHash": "$2a$10$abc"
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...ClientOption) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]ClientOption{WithLogger(zaptest.NewLogger(t))}, opts...)
	return NewHTTPClient(srv.URL+"/", opts...)
}

func TestHTTPClient_GetByEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/users/email/a@x.com", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(userJSON))
	})

	identity, err := client.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.EqualValues(t, 42, identity.ID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, []string{"USER"}, identity.Roles)
	assert.Equal(t, "$2a$10$abc", identity.PasswordHash)
	assert.True(t, identity.Active())
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"success":false}`, ErrNotFound},
		{"unsuccessful envelope", http.StatusOK, `{"success":false,"data":null}`, ErrNotFound},
		{"server error", http.StatusBadGateway, ``, ErrUnavailable},
		{"garbage", http.StatusOK, `<html>`, ErrUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := client.GetByID(context.Background(), 1)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHTTPClient_TimeoutIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := client.GetByEmail(context.Background(), "slow@x.com")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_UpdateLastLogin(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/users/42/last-login", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}, WithRateLimit(100))

	require.NoError(t, client.UpdateLastLogin(context.Background(), 42))
	assert.EqualValues(t, 1, calls.Load())
}
