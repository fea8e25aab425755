package domain

import "time"

// TokenKind discriminates access and refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Role names recognized by route guards.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Rate-limited operations.
const (
	OperationLogin   = "login"
	OperationRefresh = "refresh"
)

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	Identity              *Identity
}

// AccessGrant is returned by a successful refresh.
type AccessGrant struct {
	AccessToken string
	ExpiresAt   time.Time
	Identity    *Identity
}

// RateLimitInfo is a read-only view of one counter.
type RateLimitInfo struct {
	Operation      string
	MaxRequests    int
	Remaining      int
	ResetInSeconds int64
	Limited        bool
}
