package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lqviet45/light-novel-BE/internal/domain"
)

// MinSecretLength is the smallest accepted HMAC key in bytes.
const MinSecretLength = 32

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrUntrustedIssuer  = errors.New("untrusted token issuer")
	ErrClaimMissing     = errors.New("claim missing")
	ErrWeakSigningKey   = errors.New("signing key shorter than 256 bits")
)

// Claims is the JWT payload. Recognized fields are typed; anything else goes
// through Extra. Numbers in Extra come back from Verify as json.Number so
// integers keep their exact value.
type Claims struct {
	UserID        int64            `json:"userId,omitempty"`
	Email         string           `json:"email,omitempty"`
	Username      string           `json:"username,omitempty"`
	Roles         []string         `json:"roles,omitempty"`
	EmailVerified bool             `json:"emailVerified,omitempty"`
	Kind          domain.TokenKind `json:"type"`
	Extra         map[string]any   `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS512 tokens.
type TokenManager struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret, issuer string, opts ...TokenOption) (*TokenManager, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSigningKey
	}
	tm := &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
		// Expiry is checked separately so callers can tell "expired" from "bad".
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithJSONNumber(),
		),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Issue signs claims for subject, valid for ttl from now.
func (tm *TokenManager) Issue(claims Claims, subject string, ttl time.Duration) (string, time.Time, error) {
	now := tm.now()
	expiresAt := now.Add(ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    tm.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, &claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks signature and structure. It does not check expiry.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := tm.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil || claims.Kind == "" {
		return nil, ErrMalformedToken
	}
	if claims.Issuer != tm.issuer {
		return nil, ErrUntrustedIssuer
	}
	return claims, nil
}

// Expired reports whether the claims' expiry has passed.
func (tm *TokenManager) Expired(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !tm.now().Before(claims.ExpiresAt.Time)
}

// Remaining is the time left before expiry, zero when already expired.
func (tm *TokenManager) Remaining(claims *Claims) time.Duration {
	if tm.Expired(claims) {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(tm.now())
}

// IsExpired reports whether tokenStr is past its expiry. Tokens that fail
// verification are treated as expired.
func (tm *TokenManager) IsExpired(tokenStr string) bool {
	claims, err := tm.Verify(tokenStr)
	if err != nil {
		return true
	}
	return tm.Expired(claims)
}

// Extract returns a single claim from a verified token.
func (tm *TokenManager) Extract(tokenStr, name string) (any, error) {
	claims, err := tm.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.Lookup(name)
}

// Lookup returns the named claim from the typed fields or Extra.
func (c *Claims) Lookup(name string) (any, error) {
	var (
		val     any
		present bool
	)
	switch name {
	case "sub":
		val, present = c.Subject, c.Subject != ""
	case "iss":
		val, present = c.Issuer, c.Issuer != ""
	case "jti":
		val, present = c.ID, c.ID != ""
	case "exp":
		if c.ExpiresAt != nil {
			val, present = c.ExpiresAt.Time, true
		}
	case "iat":
		if c.IssuedAt != nil {
			val, present = c.IssuedAt.Time, true
		}
	case "type":
		val, present = c.Kind, c.Kind != ""
	case "userId":
		val, present = c.UserID, c.UserID != 0
	case "email":
		val, present = c.Email, c.Email != ""
	case "username":
		val, present = c.Username, c.Username != ""
	case "roles":
		val, present = c.Roles, c.Roles != nil
	case "emailVerified":
		val, present = c.EmailVerified, true
	default:
		val, present = c.Extra[name]
	}
	if !present {
		return nil, fmt.Errorf("%w: %s", ErrClaimMissing, name)
	}
	return val, nil
}
