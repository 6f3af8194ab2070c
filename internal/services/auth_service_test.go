package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/metrics"
	"github.com/clinicwise/clinic-backend/internal/models"
	pkgauth "github.com/clinicwise/clinic-backend/pkg/auth"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

const (
	testSecret   = "test-secret-32-characters-long!!"
	testIP       = "203.0.113.7"
	testUA       = "Mozilla/5.0"
	testPassword = "Secret123"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type authFixture struct {
	svc       *AuthService
	users     *MockUserRepository
	attempts  *MockLoginAttemptRepository
	auditRepo *MockAuditLogRepository
	tokens    *auth.TokenManager
	clock     *testClock
	notifier  *recordingNotifier
	hasher    *pkgauth.Hasher
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthFixture(t *testing.T, users *MockUserRepository) *authFixture {
	t.Helper()

	logger := discardLogger()
	clock := &testClock{t: time.Now()}
	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:                testSecret,
		AccessExpiry:          30 * time.Minute,
		RefreshExpiry:         7 * 24 * time.Hour,
		RefreshExpiryRemember: 30 * 24 * time.Hour,
	}).WithClock(clock.Now)

	attempts := NewMockLoginAttemptRepository()
	auditRepo := &MockAuditLogRepository{}
	notifier := &recordingNotifier{}
	hasher := pkgauth.NewHasher(4)
	auditLogger := pkglogger.NewAuditLogger(logger)

	svc := NewAuthService(AuthServiceDeps{
		Users:       users,
		Limiter:     NewRateLimitService(attempts, RateLimitConfig{MaxAttempts: 5, Window: 15 * time.Minute}, logger).WithClock(clock.Now),
		Audit:       NewAuditService(auditRepo, auditLogger, logger),
		Tokens:      tokens,
		Hasher:      hasher,
		Notifier:    notifier,
		Metrics:     metrics.New(prometheus.NewRegistry()),
		AuditLogger: auditLogger,
		Logger:      logger,
	})

	return &authFixture{
		svc:       svc,
		users:     users,
		attempts:  attempts,
		auditRepo: auditRepo,
		tokens:    tokens,
		clock:     clock,
		notifier:  notifier,
		hasher:    hasher,
	}
}

func (f *authFixture) userWithPassword(t *testing.T, id, username, password string) *models.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return NewTestUser(id, username, hash)
}

func usersByName(users ...*models.User) *MockUserRepository {
	byName := make(map[string]*models.User, len(users))
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byName[u.Username] = u
		byID[u.ID] = u
	}
	return &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			if u, ok := byName[username]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if u, ok := byID[id]; ok {
				return u, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func login(f *authFixture, username, password string) (*LoginResult, error) {
	return f.svc.Login(context.Background(), LoginInput{
		Username:  username,
		Password:  password,
		IPAddress: testIP,
		UserAgent: testUA,
	})
}

// ============================================================================
// Login
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	alice := f.userWithPassword(t, "user-1", "alice", testPassword)
	alice.RoleID, alice.RoleName = strPtr("role-1"), strPtr(models.RoleDoctor)
	*f.users = *usersByName(alice)

	result, err := login(f, "alice", testPassword)
	require.NoError(t, err)

	assert.Equal(t, "bearer", result.TokenType)
	assert.Equal(t, 1800, result.ExpiresIn)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, "alice", result.User.Username)
	require.NotNil(t, result.User.Role)
	assert.Equal(t, models.RoleDoctor, result.User.Role.Name)

	access, err := f.tokens.VerifyAccess(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.UserID())

	refresh, err := f.tokens.VerifyRefresh(result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, refresh.ExpiresAt.Sub(refresh.IssuedAt.Time))

	last := f.auditRepo.Last()
	require.NotNil(t, last)
	assert.Equal(t, models.AuditActionLogin, last.Action)
	assert.True(t, last.Success)
	assert.Equal(t, "user-1", *last.UserID)
	assert.Equal(t, testIP, *last.IPAddress)
	assert.Equal(t, testUA, *last.UserAgent)
}

func TestAuthService_Login_RememberMeExtendsRefresh(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	result, err := f.svc.Login(context.Background(), LoginInput{
		Username: "alice", Password: testPassword, RememberMe: true, IPAddress: testIP,
	})
	require.NoError(t, err)

	refresh, err := f.tokens.VerifyRefresh(result.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, refresh.ExpiresAt.Sub(refresh.IssuedAt.Time))
}

func TestAuthService_Login_UnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	_, unknownErr := login(f, "mallory", testPassword)
	_, wrongErr := login(f, "alice", "wrong-password")

	assert.ErrorIs(t, unknownErr, models.ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, models.ErrInvalidCredentials)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())

	assert.Equal(t, 1, f.attempts.Count("mallory", testIP))
	assert.Equal(t, 1, f.attempts.Count("alice", testIP))

	require.Len(t, f.auditRepo.Entries, 2)
	assert.Nil(t, f.auditRepo.Entries[0].UserID)
	assert.Equal(t, "user-1", *f.auditRepo.Entries[1].UserID)
	for _, e := range f.auditRepo.Entries {
		assert.Equal(t, models.AuditActionLoginFailed, e.Action)
		assert.False(t, e.Success)
	}
}

func TestAuthService_Login_UsernameIsCaseSensitive(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	_, err := login(f, "Alice", testPassword)
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Login_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	alice := f.userWithPassword(t, "user-1", "alice", testPassword)
	alice.IsActive = false
	*f.users = *usersByName(alice)

	_, err := login(f, "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrAccountInactive)

	assert.Equal(t, 0, f.attempts.Count("alice", testIP))
	last := f.auditRepo.Last()
	require.NotNil(t, last)
	assert.Equal(t, models.AuditActionLoginFailed, last.Action)
	assert.Equal(t, "user-1", *last.UserID)
}

func TestAuthService_Login_InactiveWithWrongPasswordIsInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	alice := f.userWithPassword(t, "user-1", "alice", testPassword)
	alice.IsActive = false
	*f.users = *usersByName(alice)

	_, err := login(f, "alice", "wrong-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestAuthService_Login_SixthAttemptRateLimitedEvenWithCorrectPassword(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	alice := f.userWithPassword(t, "user-1", "alice", testPassword)
	alice.Email = strPtr("alice@clinic.test")
	*f.users = *usersByName(alice)

	for i := 0; i < 5; i++ {
		_, err := login(f, "alice", "wrong-password")
		require.ErrorIs(t, err, models.ErrInvalidCredentials, "attempt %d", i+1)
	}
	assert.Equal(t, 5, f.attempts.Count("alice", testIP))

	_, err := login(f, "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrRateLimited)

	_, err = login(f, "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrRateLimited)

	f.svc.WaitNotifications()
	assert.Equal(t, []string{"alice@clinic.test"}, f.notifier.sent(), "one notice per lockout")

	last := f.auditRepo.Last()
	require.NotNil(t, last)
	assert.Equal(t, models.AuditActionLoginFailed, last.Action)
	assert.Nil(t, last.UserID)

	// another address is unaffected
	_, err = f.svc.Login(context.Background(), LoginInput{Username: "alice", Password: testPassword, IPAddress: "198.51.100.1"})
	assert.NoError(t, err)
}

func TestAuthService_Login_BlockLiftsAfterWindow(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	for i := 0; i < 5; i++ {
		_, _ = login(f, "alice", "wrong-password")
	}
	_, err := login(f, "alice", testPassword)
	require.ErrorIs(t, err, models.ErrRateLimited)

	f.clock.Advance(16 * time.Minute)

	_, err = login(f, "alice", testPassword)
	assert.NoError(t, err)
}

func TestAuthService_Login_SuccessClearsCounter(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	for i := 0; i < 4; i++ {
		_, _ = login(f, "alice", "wrong-password")
	}
	require.Equal(t, 4, f.attempts.Count("alice", testIP))

	_, err := login(f, "alice", testPassword)
	require.NoError(t, err)
	assert.Equal(t, 0, f.attempts.Count("alice", testIP))

	_, _ = login(f, "alice", "wrong-password")
	assert.Equal(t, 1, f.attempts.Count("alice", testIP))
}

func TestAuthService_Login_CheckFailureIsInternal(t *testing.T) {
	lookups := 0
	f := newAuthFixture(t, &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			lookups++
			return nil, models.ErrNotFound
		},
	})
	f.attempts.CheckErr = errors.New("connection refused")

	_, err := login(f, "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.NotContains(t, err.Error(), "connection refused")
	assert.Zero(t, lookups, "credentials must not be touched before the rate limit check")
}

func TestAuthService_Login_SuccessAuditFailureFailsLogin(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))
	f.auditRepo.CreateErr = errors.New("disk full")

	result, err := login(f, "alice", testPassword)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_Login_FailureAuditErrorKeepsCredentialError(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))
	f.auditRepo.CreateErr = errors.New("disk full")

	_, err := login(f, "alice", "wrong-password")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, 1, f.attempts.Count("alice", testIP))
}

func TestAuthService_Login_LookupFailureIsInternal(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			return nil, errors.New("pool closed")
		},
	})

	_, err := login(f, "alice", testPassword)
	assert.ErrorIs(t, err, models.ErrInternalServer)
}

// ============================================================================
// Logout
// ============================================================================

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})

	refresh, err := f.tokens.IssueRefresh("user-1", "alice", false)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), refresh, testIP, testUA))

	last := f.auditRepo.Last()
	require.NotNil(t, last)
	assert.Equal(t, models.AuditActionLogout, last.Action)
	assert.Equal(t, "user-1", *last.UserID)

	// stateless: the refresh token still verifies after logout
	_, err = f.tokens.VerifyRefresh(refresh)
	assert.NoError(t, err)
}

func TestAuthService_Logout_RejectsNonRefreshTokens(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})

	access, err := f.tokens.IssueAccess("user-1", "alice")
	require.NoError(t, err)

	for _, token := range []string{access, "not-a-token", ""} {
		err := f.svc.Logout(context.Background(), token, testIP, testUA)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	}
	assert.Empty(t, f.auditRepo.Entries)
}

// ============================================================================
// Refresh
// ============================================================================

func TestAuthService_Refresh_Rotates(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{})
	*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword))

	refresh, err := f.tokens.IssueRefresh("user-1", "alice", true)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	pair, err := f.svc.Refresh(context.Background(), refresh, testIP, testUA)
	require.NoError(t, err)

	assert.Equal(t, "bearer", pair.TokenType)
	assert.Equal(t, 1800, pair.ExpiresIn)
	assert.NotEqual(t, refresh, pair.RefreshToken)

	claims, err := f.tokens.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, f.tokens.Remembered(claims), "rotation keeps the remember-me lifetime")

	assert.Equal(t, models.AuditActionRefresh, f.auditRepo.Last().Action)
}

func TestAuthService_Refresh_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *authFixture) string
	}{
		{
			name: "access token",
			setup: func(f *authFixture) string {
				tok, _ := f.tokens.IssueAccess("user-1", "alice")
				return tok
			},
		},
		{
			name: "expired refresh token",
			setup: func(f *authFixture) string {
				tok, _ := f.tokens.IssueRefresh("user-1", "alice", false)
				f.clock.Advance(7*24*time.Hour + time.Second)
				return tok
			},
		},
		{
			name: "deleted user",
			setup: func(f *authFixture) string {
				tok, _ := f.tokens.IssueRefresh("user-gone", "ghost", false)
				return tok
			},
		},
		{
			name: "inactive user",
			setup: func(f *authFixture) string {
				tok, _ := f.tokens.IssueRefresh("user-2", "bob", false)
				return tok
			},
		},
		{
			name:  "garbage",
			setup: func(f *authFixture) string { return "a.b.c" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, &MockUserRepository{})
			bob := f.userWithPassword(t, "user-2", "bob", testPassword)
			bob.IsActive = false
			*f.users = *usersByName(f.userWithPassword(t, "user-1", "alice", testPassword), bob)

			pair, err := f.svc.Refresh(context.Background(), tt.setup(f), testIP, testUA)
			assert.Nil(t, pair)
			assert.ErrorIs(t, err, models.ErrInvalidToken)
		})
	}
}

// ============================================================================
// Register
// ============================================================================

func registeringUsers() *MockUserRepository {
	var mu sync.Mutex
	taken := map[string]bool{}
	return &MockUserRepository{
		UsernameExistsFunc: func(ctx context.Context, username string) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			return taken[username], nil
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			mu.Lock()
			defer mu.Unlock()
			if taken[user.Username] {
				return nil, models.ErrUserExists
			}
			taken[user.Username] = true
			stored := *user
			stored.ID = "user-" + user.Username
			return &stored, nil
		},
	}
}

func TestAuthService_Register_Scenario(t *testing.T) {
	f := newAuthFixture(t, registeringUsers())

	in := RegisterInput{Username: "alice", Password: "Secret123", ConfirmPassword: "Secret123", IPAddress: testIP}

	user, err := f.svc.Register(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, &RegisteredUser{ID: "user-alice", Username: "alice"}, user)
	assert.Equal(t, []string{models.AuditActionRegister}, f.auditRepo.Actions())

	_, err = f.svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, models.ErrUserExists)

	// a different case is a different username
	in.Username = "Alice"
	_, err = f.svc.Register(context.Background(), in)
	assert.NoError(t, err)
}

func TestAuthService_Register_CreatesActiveUserWithoutRole(t *testing.T) {
	var created *models.User
	f := newAuthFixture(t, &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			created = user
			stored := *user
			stored.ID = "user-1"
			return &stored, nil
		},
	})

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "Secret123", ConfirmPassword: "Secret123"})
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.True(t, created.IsActive)
	assert.Nil(t, created.RoleID)
	assert.False(t, created.IsAdmin)
	assert.NotEqual(t, "Secret123", created.PasswordHash)
	assert.True(t, f.hasher.Verify("Secret123", created.PasswordHash))
}

func TestAuthService_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      RegisterInput
		wantErr error
	}{
		{name: "mismatch", in: RegisterInput{Username: "alice", Password: "Secret123", ConfirmPassword: "Secret124"}, wantErr: models.ErrPasswordMismatch},
		{name: "too short", in: RegisterInput{Username: "alice", Password: "abc", ConfirmPassword: "abc"}, wantErr: models.ErrValidation},
		{name: "too long", in: RegisterInput{Username: "alice", Password: string(make([]byte, 51)), ConfirmPassword: string(make([]byte, 51))}, wantErr: models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, registeringUsers())
			_, err := f.svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.auditRepo.Entries)
		})
	}
}

func TestAuthService_Register_ConcurrentDuplicateMapsToUserExists(t *testing.T) {
	f := newAuthFixture(t, &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			return nil, models.ErrUserExists
		},
	})

	_, err := f.svc.Register(context.Background(), RegisterInput{Username: "alice", Password: "Secret123", ConfirmPassword: "Secret123"})
	assert.ErrorIs(t, err, models.ErrUserExists)
}
