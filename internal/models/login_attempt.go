package models

import "time"

// FailedLoginAttempt tracks failures for one (username, ip_address) key.
// Rows are created on the first failure, incremented on later ones, deleted
// on a successful login and purged once the last attempt leaves the window.
type FailedLoginAttempt struct {
	ID             string     `db:"id"`
	Username       string     `db:"username"`
	IPAddress      string     `db:"ip_address"`
	AttemptCount   int        `db:"attempt_count"`
	FirstAttemptAt time.Time  `db:"first_attempt_at"`
	LastAttemptAt  time.Time  `db:"last_attempt_at"`
	IsBlocked      bool       `db:"is_blocked"`
	BlockedUntil   *time.Time `db:"blocked_until"`
}

// BlockedAt reports whether the key is still blocked at the given instant.
func (a *FailedLoginAttempt) BlockedAt(now time.Time) bool {
	return a.IsBlocked && a.BlockedUntil != nil && a.BlockedUntil.After(now)
}

// RateLimitDecision is the outcome of a rate-limit check.
type RateLimitDecision struct {
	Allowed bool
	// Transitioned is true only for the check that moved the key into the
	// blocked state.
	Transitioned bool
	BlockedUntil *time.Time
	Attempts     int
}
