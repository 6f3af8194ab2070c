package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/metrics"
	"github.com/clinicwise/clinic-backend/internal/models"
	pkgauth "github.com/clinicwise/clinic-backend/pkg/auth"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

const tokenTypeBearer = "bearer"

// dummyPassword is hashed once and compared against when the username is
// unknown, so that branch costs one bcrypt comparison like a wrong password
const dummyPassword = "timing-equalisation-placeholder"

// AuthServiceDeps are the collaborators of the AuthService
type AuthServiceDeps struct {
	Users       UserRepository
	Limiter     *RateLimitService
	Audit       *AuditService
	Tokens      *auth.TokenManager
	Hasher      *pkgauth.Hasher
	Timing      *auth.TimingDelay // optional
	Notifier    LockoutNotifier   // optional
	Metrics     *metrics.Metrics  // optional
	AuditLogger *pkglogger.AuditLogger
	Logger      *slog.Logger
}

// AuthService implements login, logout, refresh and self-registration
type AuthService struct {
	users       UserRepository
	limiter     *RateLimitService
	audit       *AuditService
	tokens      *auth.TokenManager
	hasher      *pkgauth.Hasher
	timing      *auth.TimingDelay
	notifier    LockoutNotifier
	metrics     *metrics.Metrics
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger

	dummyOnce   sync.Once
	dummyDigest string

	notifications sync.WaitGroup
}

// NewAuthService creates a new AuthService
func NewAuthService(deps AuthServiceDeps) *AuthService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(deps.Logger)
	}
	return &AuthService{
		users:       deps.Users,
		limiter:     deps.Limiter,
		audit:       deps.Audit,
		tokens:      deps.Tokens,
		hasher:      deps.Hasher,
		timing:      deps.Timing,
		notifier:    notifier,
		metrics:     deps.Metrics,
		auditLogger: deps.AuditLogger,
		logger:      deps.Logger,
	}
}

// LoginInput carries the credentials and request metadata of a login
type LoginInput struct {
	Username   string
	Password   string
	RememberMe bool
	IPAddress  string
	UserAgent  string
}

// Login authenticates the credentials and issues a token pair.
//
// The rate limiter is consulted before any user lookup or password
// comparison. Unknown usernames and wrong passwords both fail with
// ErrInvalidCredentials. Inactive accounts fail with ErrAccountInactive only
// after the password has been verified.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := time.Now()

	decision, err := s.limiter.Check(ctx, in.Username, in.IPAddress)
	if err != nil {
		s.logger.ErrorContext(ctx, "rate limit check failed", slog.Any("error", err))
		s.metrics.LoginAttempt(metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	if !decision.Allowed {
		if decision.Transitioned {
			s.onLockout(ctx, in, decision)
		}
		s.recordAudit(ctx, AuditEntry{
			Username:      in.Username,
			Action:        models.AuditActionLoginFailed,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: "rate_limited",
		})
		s.metrics.LoginAttempt(metrics.OutcomeRateLimited)
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrRateLimited
	}

	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to load user for login", slog.Any("error", err))
		s.metrics.LoginAttempt(metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	if user == nil {
		s.hasher.Verify(in.Password, s.dummyHash())
		s.failCredentials(ctx, in, nil, "unknown_user")
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrInvalidCredentials
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.failCredentials(ctx, in, &user.ID, "invalid_password")
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrInvalidCredentials
	}

	if !user.IsActive {
		s.recordAudit(ctx, AuditEntry{
			UserID:        &user.ID,
			Username:      in.Username,
			Action:        models.AuditActionLoginFailed,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: "account_inactive",
		})
		s.metrics.LoginAttempt(metrics.OutcomeInactive)
		s.timing.WaitFrom(ctx, start, false)
		return nil, models.ErrAccountInactive
	}

	if err := s.limiter.Clear(ctx, in.Username, in.IPAddress); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear login failures", slog.Any("error", err))
		s.metrics.LoginAttempt(metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	err = s.audit.Record(ctx, AuditEntry{
		UserID:    &user.ID,
		Username:  in.Username,
		Action:    models.AuditActionLogin,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})
	if err != nil {
		s.metrics.LoginAttempt(metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	pair, err := s.issuePair(user, in.RememberMe)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		s.metrics.LoginAttempt(metrics.OutcomeError)
		return nil, models.ErrInternalServer
	}

	s.metrics.LoginAttempt(metrics.OutcomeSuccess)
	s.timing.WaitFrom(ctx, start, true)

	return &LoginResult{TokenPair: *pair, User: NewUserResponse(user)}, nil
}

// Logout records the logout of the refresh token's subject. The token itself
// stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context, refreshToken, ipAddress, userAgent string) error {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.InfoContext(ctx, "logout with invalid refresh token", slog.Any("error", err))
		return models.ErrInvalidToken
	}

	userID := claims.UserID()
	err = s.audit.Record(ctx, AuditEntry{
		UserID:    &userID,
		Username:  claims.Username,
		Action:    models.AuditActionLogout,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})
	if err != nil {
		return models.ErrInternalServer
	}

	return nil
}

// Refresh rotates a valid refresh token into a new token pair. The subject
// must still be a live, active user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.InfoContext(ctx, "refresh with invalid token", slog.Any("error", err))
		return nil, models.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidToken
		}
		s.logger.ErrorContext(ctx, "failed to load user for refresh", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.IsActive {
		s.logger.InfoContext(ctx, "refresh for inactive user", slog.String("user_id", user.ID))
		return nil, models.ErrInvalidToken
	}

	err = s.audit.Record(ctx, AuditEntry{
		UserID:    &user.ID,
		Username:  user.Username,
		Action:    models.AuditActionRefresh,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})
	if err != nil {
		return nil, models.ErrInternalServer
	}

	pair, err := s.issuePair(user, s.tokens.Remembered(claims))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return pair, nil
}

// RegisterInput carries a self-registration request
type RegisterInput struct {
	Username        string
	Password        string
	ConfirmPassword string
	IPAddress       string
	UserAgent       string
}

// Register creates an active user with no role. Usernames are compared
// exactly, so "Alice" and "alice" are different accounts.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisteredUser, error) {
	if in.Password != in.ConfirmPassword {
		return nil, models.ErrPasswordMismatch
	}
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	exists, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if exists {
		return nil, models.ErrUserExists
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		// a concurrent registration can still win the unique constraint
		if errors.Is(err, models.ErrUserExists) {
			return nil, models.ErrUserExists
		}
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	err = s.audit.Record(ctx, AuditEntry{
		UserID:    &user.ID,
		Username:  user.Username,
		Action:    models.AuditActionRegister,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})
	if err != nil {
		return nil, models.ErrInternalServer
	}

	return &RegisteredUser{ID: user.ID, Username: user.Username}, nil
}

// WaitNotifications blocks until in-flight lockout notices have been handled
func (s *AuthService) WaitNotifications() {
	s.notifications.Wait()
}

func (s *AuthService) issuePair(user *models.User, remember bool) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID, user.Username, remember)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int(s.tokens.AccessExpiry().Seconds()),
	}, nil
}

// failCredentials counts the failure and records it. Both writes are
// attempted even though the login has already failed.
func (s *AuthService) failCredentials(ctx context.Context, in LoginInput, userID *string, reason string) {
	if _, err := s.limiter.RecordFailure(ctx, in.Username, in.IPAddress); err != nil {
		s.logger.ErrorContext(ctx, "failed to record login failure", slog.Any("error", err))
	}
	s.recordAudit(ctx, AuditEntry{
		UserID:        userID,
		Username:      in.Username,
		Action:        models.AuditActionLoginFailed,
		IPAddress:     in.IPAddress,
		UserAgent:     in.UserAgent,
		FailureReason: reason,
	})
	s.metrics.LoginAttempt(metrics.OutcomeInvalid)
}

// recordAudit writes a failure-path entry; the error is already logged by
// the audit service and does not change the outcome
func (s *AuthService) recordAudit(ctx context.Context, entry AuditEntry) {
	_ = s.audit.Record(ctx, entry)
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare dummy password digest", slog.Any("error", err))
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

// onLockout runs once per transition into the blocked state
func (s *AuthService) onLockout(ctx context.Context, in LoginInput, decision models.RateLimitDecision) {
	s.metrics.Lockout()

	blockedUntil := time.Now()
	if decision.BlockedUntil != nil {
		blockedUntil = *decision.BlockedUntil
	}
	s.auditLogger.LogLockout(ctx, in.Username, in.IPAddress, decision.Attempts, blockedUntil)

	user, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil || user.Email == nil || *user.Email == "" {
		return
	}

	email, username := *user.Email, user.Username
	notifyCtx := context.WithoutCancel(ctx)

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()

		sendCtx, cancel := context.WithTimeout(notifyCtx, 10*time.Second)
		defer cancel()

		if err := s.notifier.NotifyLockout(sendCtx, email, username, blockedUntil); err != nil {
			s.logger.Warn("failed to send lockout notice", slog.Any("error", err))
		}
	}()
}
