package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// RefreshTokenRequest payload for refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LogoutRequest payload for logout. Both fields are optional.
type LogoutRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserInfo is the public view of an identity.
type UserInfo struct {
	ID            int64    `json:"id"`
	Email         string   `json:"email"`
	Username      string   `json:"username,omitempty"`
	FirstName     string   `json:"firstName,omitempty"`
	LastName      string   `json:"lastName,omitempty"`
	FullName      string   `json:"fullName,omitempty"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"emailVerified"`
	Enabled       bool     `json:"enabled"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresIn    int64     `json:"expiresIn"`
	User         UserInfo  `json:"user"`
	LoginTime    time.Time `json:"loginTime"`
}

// TokenResponse is returned by refresh.
type TokenResponse struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresIn   int64     `json:"expiresIn"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ValidationResponse is returned by token validation.
type ValidationResponse struct {
	Valid       bool     `json:"valid"`
	Token       string   `json:"token"`
	Username    string   `json:"username,omitempty"`
	Authorities []string `json:"authorities,omitempty"`
}

// SessionsResponse reports the caller's active sessions.
type SessionsResponse struct {
	ActiveSessionCount int64  `json:"activeSessionCount"`
	UserEmail          string `json:"userEmail"`
}

// RateLimitInfoResponse reports one rate-limit counter.
type RateLimitInfoResponse struct {
	MaxRequests       int    `json:"maxRequests"`
	RemainingRequests int    `json:"remainingRequests"`
	ResetTimeSeconds  int64  `json:"resetTimeSeconds"`
	IsLimited         bool   `json:"isLimited"`
	Operation         string `json:"operation"`
}
