package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the work factor used when none is configured
	DefaultBcryptCost = 10
	MinPasswordLen    = 6
	MaxPasswordLen    = 50

	// bcrypt rejects inputs longer than 72 bytes
	maxBcryptBytes = 72
)

var ErrInvalidPasswordLength = fmt.Errorf("password must be between %d and %d characters", MinPasswordLen, MaxPasswordLen)

// Hasher hashes and verifies passwords with bcrypt at a fixed work factor.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs outside bcrypt's range fall back to the default.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest. Two calls with the same input never return the same digest.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches digest. A malformed digest is a mismatch.
func (h *Hasher) Verify(password, digest string) bool {
	return ComparePassword(digest, password) == nil
}

// HashPassword hashes with the default cost.
func HashPassword(password string) (string, error) {
	return NewHasher(DefaultBcryptCost).Hash(password)
}

// ComparePassword returns nil on a match and an error otherwise.
func ComparePassword(hashedPassword, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("malformed password digest: %w", err)
	}
	return err
}

// ValidatePassword enforces the length bounds accepted at registration.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen || n > MaxPasswordLen || len(password) > maxBcryptBytes {
		return ErrInvalidPasswordLength
	}
	return nil
}
