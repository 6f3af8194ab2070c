package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenConfig holds token lifetimes and the signing secret
type TokenConfig struct {
	Secret                string
	AccessExpiry          time.Duration
	RefreshExpiry         time.Duration
	RefreshExpiryRemember time.Duration
}

// TokenManager signs and verifies HS256 tokens. Tokens are stateless: a token
// stays valid until it expires, there is no server-side revocation.
type TokenManager struct {
	secret                []byte
	accessExpiry          time.Duration
	refreshExpiry         time.Duration
	refreshExpiryRemember time.Duration
	now                   func() time.Time
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(cfg TokenConfig) *TokenManager {
	return &TokenManager{
		secret:                []byte(cfg.Secret),
		accessExpiry:          cfg.AccessExpiry,
		refreshExpiry:         cfg.RefreshExpiry,
		refreshExpiryRemember: cfg.RefreshExpiryRemember,
		now:                   time.Now,
	}
}

// WithClock replaces the time source. Used by tests to move past expiry.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// AccessExpiry returns the access token lifetime
func (tm *TokenManager) AccessExpiry() time.Duration {
	return tm.accessExpiry
}

// Remembered reports whether a refresh token was issued with the longer
// remember-me lifetime, so rotation can keep it
func (tm *TokenManager) Remembered(claims *models.TokenClaims) bool {
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return false
	}
	return claims.ExpiresAt.Sub(claims.IssuedAt.Time) > tm.refreshExpiry
}

// IssueAccess creates a short-lived access token for the subject
func (tm *TokenManager) IssueAccess(userID, username string) (string, error) {
	return tm.issue(models.TokenTypeAccess, userID, username, tm.accessExpiry)
}

// IssueRefresh creates a refresh token. remember selects the longer lifetime.
func (tm *TokenManager) IssueRefresh(userID, username string, remember bool) (string, error) {
	expiry := tm.refreshExpiry
	if remember {
		expiry = tm.refreshExpiryRemember
	}
	return tm.issue(models.TokenTypeRefresh, userID, username, expiry)
}

func (tm *TokenManager) issue(tokenType, userID, username string, expiry time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("cannot issue %s token without subject", tokenType)
	}

	now := tm.now()
	claims := &models.TokenClaims{
		Type:     tokenType,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// Verify checks signature, structure and expiry. Every failure is reported
// as models.ErrInvalidToken wrapping the parser error.
func (tm *TokenManager) Verify(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", models.ErrInvalidToken)
	}

	switch claims.Type {
	case models.TokenTypeAccess, models.TokenTypeRefresh:
	default:
		return nil, fmt.Errorf("%w: unknown token type %q", models.ErrInvalidToken, claims.Type)
	}

	return claims, nil
}

// VerifyAccess verifies a token and requires the access type tag
func (tm *TokenManager) VerifyAccess(tokenString string) (*models.TokenClaims, error) {
	return tm.verifyType(tokenString, models.TokenTypeAccess)
}

// VerifyRefresh verifies a token and requires the refresh type tag
func (tm *TokenManager) VerifyRefresh(tokenString string) (*models.TokenClaims, error) {
	return tm.verifyType(tokenString, models.TokenTypeRefresh)
}

func (tm *TokenManager) verifyType(tokenString, want string) (*models.TokenClaims, error) {
	claims, err := tm.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token, got %s", models.ErrInvalidToken, want, claims.Type)
	}
	return claims, nil
}

// IsExpired reports whether err came from an expired token
func IsExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
