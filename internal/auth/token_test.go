package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-32-characters-long!!"

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTokenManager() (*TokenManager, *fakeClock) {
	clock := &fakeClock{t: time.Now()}
	tm := NewTokenManager(TokenConfig{
		Secret:                testSecret,
		AccessExpiry:          30 * time.Minute,
		RefreshExpiry:         7 * 24 * time.Hour,
		RefreshExpiryRemember: 30 * 24 * time.Hour,
	}).WithClock(clock.Now)
	return tm, clock
}

func TestTokenManager_IssueAccess_RoundTrip(t *testing.T) {
	tm, _ := newTestTokenManager()

	token, err := tm.IssueAccess("user-1", "alice")
	require.NoError(t, err)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_AccessValidUntilExpiry(t *testing.T) {
	tm, clock := newTestTokenManager()

	token, err := tm.IssueAccess("user-1", "alice")
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = tm.Verify(token)
	assert.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
	assert.True(t, IsExpired(err))
}

func TestTokenManager_RefreshLifetimes(t *testing.T) {
	tm, _ := newTestTokenManager()

	short, err := tm.IssueRefresh("user-1", "alice", false)
	require.NoError(t, err)
	long, err := tm.IssueRefresh("user-1", "alice", true)
	require.NoError(t, err)

	shortClaims, err := tm.VerifyRefresh(short)
	require.NoError(t, err)
	longClaims, err := tm.VerifyRefresh(long)
	require.NoError(t, err)

	shortLife := shortClaims.ExpiresAt.Sub(shortClaims.IssuedAt.Time)
	longLife := longClaims.ExpiresAt.Sub(longClaims.IssuedAt.Time)
	assert.Equal(t, 7*24*time.Hour, shortLife)
	assert.Equal(t, 30*24*time.Hour, longLife)
	assert.False(t, tm.Remembered(shortClaims))
	assert.True(t, tm.Remembered(longClaims))
}

func TestTokenManager_RefreshExpires(t *testing.T) {
	tm, clock := newTestTokenManager()

	token, err := tm.IssueRefresh("user-1", "alice", false)
	require.NoError(t, err)

	clock.Advance(7*24*time.Hour + time.Minute)
	_, err = tm.VerifyRefresh(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_TypeChecks(t *testing.T) {
	tm, _ := newTestTokenManager()

	access, err := tm.IssueAccess("user-1", "alice")
	require.NoError(t, err)
	refresh, err := tm.IssueRefresh("user-1", "alice", false)
	require.NoError(t, err)

	_, err = tm.VerifyRefresh(access)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = tm.VerifyAccess(refresh)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = tm.VerifyAccess(access)
	assert.NoError(t, err)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	tm, _ := newTestTokenManager()
	other := NewTokenManager(TokenConfig{Secret: "another-secret-32-characters-long", AccessExpiry: time.Minute})

	token, err := other.IssueAccess("user-1", "alice")
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsMalformed(t *testing.T) {
	tm, _ := newTestTokenManager()

	for _, token := range []string{"", "garbage", "a.b.c", strings.Repeat("x", 300)} {
		_, err := tm.Verify(token)
		assert.ErrorIs(t, err, models.ErrInvalidToken, "token %q", token)
	}
}

func TestTokenManager_RejectsTamperedPayload(t *testing.T) {
	tm, _ := newTestTokenManager()

	token, err := tm.IssueAccess("user-1", "alice")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	parts[1] = parts[1][:len(parts[1])-2] + "AA"

	_, err = tm.Verify(strings.Join(parts, "."))
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsNoneAlgorithm(t *testing.T) {
	tm, _ := newTestTokenManager()

	claims := &models.TokenClaims{
		Type: models.TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestTokenManager_RejectsMissingTypeOrSubject(t *testing.T) {
	tm, _ := newTestTokenManager()

	sign := func(c *models.TokenClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err := tm.Verify(sign(&models.TokenClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: exp}}))
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = tm.Verify(sign(&models.TokenClaims{Type: models.TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}))
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = tm.Verify(sign(&models.TokenClaims{Type: models.TokenTypeAccess, RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}}))
	assert.ErrorIs(t, err, models.ErrInvalidToken, "tokens without expiry are rejected")
}

func TestTokenManager_IssueRequiresSubject(t *testing.T) {
	tm, _ := newTestTokenManager()

	_, err := tm.IssueAccess("", "alice")
	assert.Error(t, err)
}
