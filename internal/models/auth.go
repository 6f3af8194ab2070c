package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token type tags carried in every signed token
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the signed payload. The subject claim carries the user id.
type TokenClaims struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *TokenClaims) UserID() string {
	return c.Subject
}
