package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lqviet45/light-novel-BE/internal/auth"
	"github.com/lqviet45/light-novel-BE/internal/config"
	"github.com/lqviet45/light-novel-BE/internal/directory"
	"github.com/lqviet45/light-novel-BE/internal/domain"
	"github.com/lqviet45/light-novel-BE/internal/events"
	"github.com/lqviet45/light-novel-BE/internal/observability"
	"github.com/lqviet45/light-novel-BE/internal/ratelimit"
	"github.com/lqviet45/light-novel-BE/internal/repository"
)

// AuthSettings carries token lifetimes and login policy.
type AuthSettings struct {
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	RememberMeTTL    time.Duration
	VerifyPassword   bool
	LastLoginTimeout time.Duration
}

// SettingsFromConfig maps env configuration onto AuthSettings.
func SettingsFromConfig(cfg config.AuthConfig) AuthSettings {
	return AuthSettings{
		AccessTokenTTL:   cfg.AccessTokenTTL(),
		RefreshTokenTTL:  cfg.RefreshTokenTTL(),
		RememberMeTTL:    cfg.RememberMeTTL(),
		VerifyPassword:   cfg.VerifyPassword,
		LastLoginTimeout: cfg.LastLoginTimeout(),
	}
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Directory directory.Directory
	Sessions  repository.SessionRepository
	Limiter   *ratelimit.Limiter
	Tokens    *auth.TokenManager
	Events    events.Dispatcher
	Metrics   *observability.Metrics
	Logger    *zap.Logger
}

// AuthService drives the session lifecycle: login, refresh, logout and
// access-token validation.
type AuthService struct {
	directory directory.Directory
	sessions  repository.SessionRepository
	limiter   *ratelimit.Limiter
	tokens    *auth.TokenManager
	events    events.Dispatcher
	metrics   *observability.Metrics
	logger    *zap.Logger
	settings  AuthSettings
}

// NewAuthService builds the service.
func NewAuthService(settings AuthSettings, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.LastLoginTimeout <= 0 {
		settings.LastLoginTimeout = time.Second
	}
	return &AuthService{
		directory: deps.Directory,
		sessions:  deps.Sessions,
		limiter:   deps.Limiter,
		tokens:    deps.Tokens,
		events:    deps.Events,
		metrics:   deps.Metrics,
		logger:    logger,
		settings:  settings,
	}
}

// LoginInput is the credential submitted by the caller.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

// Login authenticates the caller and opens a session.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.TokenPair, error) {
	email := normalizeEmail(in.Email)

	if err := s.checkLimit(ctx, domain.OperationLogin, email, email); err != nil {
		return nil, err
	}

	identity, err := s.lookupByEmail(ctx, email, ReasonInvalidCredentials)
	if err != nil {
		s.loginFailed(ctx, email, err)
		return nil, err
	}

	if s.settings.VerifyPassword {
		if err := auth.ComparePassword(identity.PasswordHash, in.Password); err != nil {
			s.logger.Info("login rejected", zap.String("email", email), zap.Error(err))
			failure := authFailure(ReasonInvalidCredentials)
			s.loginFailed(ctx, email, failure)
			return nil, failure
		}
	}

	if err := checkAccountState(identity); err != nil {
		s.loginFailed(ctx, email, err)
		return nil, err
	}

	accessToken, accessExp, err := s.tokens.Issue(accessClaims(identity), identity.Email, s.settings.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshLifetime := s.settings.RefreshTokenTTL
	if in.RememberMe {
		refreshLifetime = s.settings.RememberMeTTL
	}
	refreshToken, refreshExp, err := s.tokens.Issue(auth.Claims{
		UserID: identity.ID,
		Kind:   domain.TokenKindRefresh,
	}, identity.Email, refreshLifetime)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := s.sessions.SaveRefreshToken(ctx, refreshToken, identity.Email, s.settings.RefreshTokenTTL); err != nil {
		s.metrics.RecordAuthOutcome(domain.OperationLogin, observability.OutcomeFailure)
		return nil, fmt.Errorf("%w: store refresh token: %w", ErrStoreUnavailable, err)
	}
	if in.RememberMe {
		// Extension failure leaves a valid session with the default lifetime.
		if err := s.sessions.ExtendRefreshToken(ctx, refreshToken, identity.Email, s.settings.RememberMeTTL); err != nil {
			s.logger.Warn("remember-me extension failed",
				zap.String("email", identity.Email),
				zap.String("token_fp", observability.Fingerprint(refreshToken)),
				zap.Error(err))
		}
	}

	// Best effort: attempt, log, ignore. Login succeeds regardless.
	s.touchLastLogin(ctx, identity)

	s.logger.Info("login succeeded", zap.String("email", identity.Email), zap.Int64("user_id", identity.ID))
	s.metrics.RecordAuthOutcome(domain.OperationLogin, observability.OutcomeSuccess)
	s.emit(ctx, events.New(events.EventLoginSucceeded, identity.Email, identity.ID, map[string]string{
		"remember_me": strconv.FormatBool(in.RememberMe),
	}))

	return &domain.TokenPair{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		Identity:              identity,
	}, nil
}

// Refresh issues a new access token for a registered refresh token. The
// refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.AccessGrant, error) {
	if refreshToken == "" {
		return nil, tokenError(ErrInvalidToken, "refresh token missing", nil)
	}
	fp := observability.Fingerprint(refreshToken)

	if err := s.checkLimit(ctx, domain.OperationRefresh, refreshToken, ""); err != nil {
		return nil, err
	}

	owner, ok, err := s.sessions.RefreshTokenOwner(ctx, refreshToken)
	if err != nil {
		return nil, s.refreshFailed(fmt.Errorf("%w: lookup refresh token: %w", ErrStoreUnavailable, err))
	}
	if !ok {
		s.logger.Info("refresh token not registered", zap.String("token_fp", fp))
		return nil, s.refreshFailed(ErrRefreshTokenNotFound)
	}

	revoked, err := s.sessions.IsBlacklisted(ctx, refreshToken)
	if err != nil {
		return nil, s.refreshFailed(fmt.Errorf("%w: blacklist lookup: %w", ErrStoreUnavailable, err))
	}
	if revoked {
		return nil, s.refreshFailed(tokenError(ErrInvalidToken, "refresh token revoked", nil))
	}

	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		s.logger.Info("refresh token rejected", zap.String("token_fp", fp), zap.Error(err))
		return nil, s.refreshFailed(tokenError(ErrInvalidToken, "refresh token", err))
	}
	if claims.Kind != domain.TokenKindRefresh {
		return nil, s.refreshFailed(tokenError(ErrInvalidToken, "not a refresh token", nil))
	}
	if s.tokens.Expired(claims) {
		return nil, s.refreshFailed(tokenError(ErrTokenExpired, "refresh token", nil))
	}
	if owner != claims.Subject {
		s.logger.Warn("refresh token owner mismatch", zap.String("token_fp", fp), zap.String("subject", claims.Subject))
		return nil, s.refreshFailed(tokenError(ErrInvalidToken, "refresh token owner mismatch", nil))
	}

	identity, err := s.lookupByEmail(ctx, claims.Subject, ReasonUserNotFound)
	if err != nil {
		return nil, s.refreshFailed(err)
	}
	if err := checkAccountState(identity); err != nil {
		return nil, s.refreshFailed(err)
	}

	accessToken, expiresAt, err := s.tokens.Issue(accessClaims(identity), identity.Email, s.settings.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.metrics.RecordAuthOutcome(domain.OperationRefresh, observability.OutcomeSuccess)
	s.emit(ctx, events.New(events.EventTokenRefreshed, identity.Email, identity.ID, nil))
	return &domain.AccessGrant{AccessToken: accessToken, ExpiresAt: expiresAt, Identity: identity}, nil
}

// Logout revokes whichever tokens are supplied. It never fails: every store
// error is logged and swallowed.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) {
	subject := ""

	if accessToken != "" {
		claims, err := s.tokens.Verify(accessToken)
		if err != nil {
			s.logger.Debug("logout access token not verifiable, skipping blacklist",
				zap.String("token_fp", observability.Fingerprint(accessToken)), zap.Error(err))
		} else {
			subject = claims.Subject
			// Best effort: a failed blacklist write leaves the token valid until expiry.
			if err := s.sessions.BlacklistAccessToken(ctx, accessToken, s.tokens.Remaining(claims)); err != nil {
				s.logger.Warn("logout blacklist failed",
					zap.String("email", subject),
					zap.String("token_fp", observability.Fingerprint(accessToken)),
					zap.Error(err))
			}
		}
	}

	if refreshToken != "" {
		fallbackOwner := ""
		if claims, err := s.tokens.Verify(refreshToken); err == nil {
			fallbackOwner = claims.Subject
		}
		// Best effort: a failed delete leaves the session until its TTL.
		if err := s.sessions.RevokeRefreshToken(ctx, refreshToken, fallbackOwner); err != nil {
			s.logger.Warn("logout refresh revocation failed",
				zap.String("token_fp", observability.Fingerprint(refreshToken)),
				zap.Error(err))
		}
		if subject == "" {
			subject = fallbackOwner
		}
	}

	s.metrics.RecordAuthOutcome("logout", observability.OutcomeSuccess)
	s.emit(ctx, events.New(events.EventLoggedOut, subject, 0, nil))
}

// LogoutAll revokes every refresh token of email (the token subject).
// Failures are surfaced.
func (s *AuthService) LogoutAll(ctx context.Context, email string) (int, error) {
	email = strings.TrimSpace(email)
	n, err := s.sessions.RevokeAll(ctx, email)
	if err != nil {
		s.metrics.RecordAuthOutcome("logout_all", observability.OutcomeFailure)
		s.logger.Error("logout all failed", zap.String("email", email), zap.Error(err))
		return 0, fmt.Errorf("%w: revoke sessions: %w", ErrStoreUnavailable, err)
	}
	s.logger.Info("all sessions revoked", zap.String("email", email), zap.Int("sessions", n))
	s.metrics.RecordAuthOutcome("logout_all", observability.OutcomeSuccess)
	s.emit(ctx, events.New(events.EventAllSessionsRevoked, email, 0, map[string]string{
		"sessions": strconv.Itoa(n),
	}))
	return n, nil
}

// RevokeUserSessions is the administrative LogoutAll. The email is resolved
// through the directory so sessions are found under the stored spelling.
func (s *AuthService) RevokeUserSessions(ctx context.Context, email string) (int, error) {
	identity, err := s.directory.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return 0, ErrUserNotFound
	case err != nil:
		s.logger.Error("user directory lookup failed", zap.String("email", email), zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
	return s.LogoutAll(ctx, identity.Email)
}

// ValidateAccessToken checks, in order: revocation, signature, kind, expiry.
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*auth.Claims, error) {
	if accessToken == "" {
		return nil, tokenError(ErrInvalidToken, "access token missing", nil)
	}

	revoked, err := s.sessions.IsBlacklisted(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: blacklist lookup: %w", ErrStoreUnavailable, err)
	}
	if revoked {
		return nil, tokenError(ErrInvalidToken, "access token revoked", nil)
	}

	claims, err := s.tokens.Verify(accessToken)
	if err != nil {
		return nil, tokenError(ErrInvalidToken, "access token", err)
	}
	if claims.Kind != domain.TokenKindAccess {
		return nil, tokenError(ErrInvalidToken, "not an access token", nil)
	}
	if s.tokens.Expired(claims) {
		return nil, tokenError(ErrTokenExpired, "access token", nil)
	}
	return claims, nil
}

// UserInfo resolves the identity behind a valid access token.
func (s *AuthService) UserInfo(ctx context.Context, accessToken string) (*domain.Identity, error) {
	claims, err := s.ValidateAccessToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.lookupByEmail(ctx, claims.Subject, ReasonUserNotFound)
}

// ActiveSessionCount reports the size of the identity's session set.
func (s *AuthService) ActiveSessionCount(ctx context.Context, email string) (int64, error) {
	n, err := s.sessions.SessionCount(ctx, strings.TrimSpace(email))
	if err != nil {
		return 0, fmt.Errorf("%w: count sessions: %w", ErrStoreUnavailable, err)
	}
	return n, nil
}

// RateLimitInfo reports the counter for (operation, identifier).
func (s *AuthService) RateLimitInfo(ctx context.Context, operation, identifier string) (domain.RateLimitInfo, error) {
	return s.limiter.Info(ctx, operation, identifier)
}

// ResetRateLimit clears the counter for (operation, identifier).
func (s *AuthService) ResetRateLimit(ctx context.Context, operation, identifier string) error {
	if err := s.limiter.Reset(ctx, operation, identifier); err != nil {
		if errors.Is(err, ratelimit.ErrUnknownOperation) {
			return err
		}
		return fmt.Errorf("%w: reset rate limit: %w", ErrStoreUnavailable, err)
	}
	s.logger.Info("rate limit reset", zap.String("operation", operation))
	return nil
}

func (s *AuthService) checkLimit(ctx context.Context, operation, identifier, subject string) error {
	err := s.limiter.Check(ctx, operation, identifier)
	if err == nil {
		return nil
	}
	var exceeded *ratelimit.ExceededError
	if errors.As(err, &exceeded) {
		s.metrics.RecordAuthOutcome(operation, observability.OutcomeLimited)
		s.emit(ctx, events.New(events.EventRateLimited, subject, 0, map[string]string{
			"operation":           operation,
			"retry_after_seconds": strconv.FormatInt(int64(exceeded.RetryAfter.Seconds()), 10),
		}))
	}
	return err
}

// lookupByEmail fails closed: directory outages deny the operation.
func (s *AuthService) lookupByEmail(ctx context.Context, email, notFoundReason string) (*domain.Identity, error) {
	identity, err := s.directory.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return identity, nil
	case errors.Is(err, directory.ErrNotFound):
		return nil, authFailure(notFoundReason)
	default:
		s.logger.Error("user directory lookup failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}
}

func (s *AuthService) touchLastLogin(ctx context.Context, identity *domain.Identity) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.settings.LastLoginTimeout)
	defer cancel()
	if err := s.directory.UpdateLastLogin(ctx, identity.ID); err != nil {
		s.logger.Warn("last login update failed", zap.Int64("user_id", identity.ID), zap.Error(err))
	}
}

func (s *AuthService) loginFailed(ctx context.Context, email string, err error) {
	s.metrics.RecordAuthOutcome(domain.OperationLogin, observability.OutcomeFailure)
	reason := "unavailable"
	var failure *AuthFailure
	if errors.As(err, &failure) {
		reason = failure.Reason
	}
	s.emit(ctx, events.New(events.EventLoginFailed, email, 0, map[string]string{"reason": reason}))
}

func (s *AuthService) refreshFailed(err error) error {
	s.metrics.RecordAuthOutcome(domain.OperationRefresh, observability.OutcomeFailure)
	return err
}

func (s *AuthService) emit(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// checkAccountState applies the account predicates in a fixed order and
// stops at the first failure.
func checkAccountState(identity *domain.Identity) error {
	switch {
	case !identity.Active():
		return authFailure(ReasonNotActive)
	case !identity.AccountNonLocked:
		return authFailure(ReasonLocked)
	case !identity.AccountNonExpired:
		return authFailure(ReasonExpired)
	case !identity.CredentialsNonExpired:
		return authFailure(ReasonCredentialsExpired)
	}
	return nil
}

func accessClaims(identity *domain.Identity) auth.Claims {
	return auth.Claims{
		UserID:        identity.ID,
		Email:         identity.Email,
		Username:      identity.Username,
		Roles:         identity.Roles,
		EmailVerified: identity.EmailVerified,
		Kind:          domain.TokenKindAccess,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
