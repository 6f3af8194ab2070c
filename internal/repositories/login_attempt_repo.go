package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
)

const attemptColumns = `id, username, ip_address, attempt_count, first_attempt_at, last_attempt_at, is_blocked, blocked_until`

// LoginAttemptRepository stores failed login counters per (username, ip_address)
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

func scanAttemptRow(scanner rowScanner) (*models.FailedLoginAttempt, error) {
	var a models.FailedLoginAttempt
	err := scanner.Scan(
		&a.ID, &a.Username, &a.IPAddress, &a.AttemptCount,
		&a.FirstAttemptAt, &a.LastAttemptAt, &a.IsBlocked, &a.BlockedUntil,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &a, nil
}

// Check decides whether a login may proceed for the key. Inside one
// transaction it purges stale rows, locks the key's row and, when the count
// has reached threshold, moves the key into the blocked state. Only the call
// that performs that move reports Transitioned.
func (r *LoginAttemptRepository) Check(ctx context.Context, username, ipAddress string, threshold int, window time.Duration, now time.Time) (models.RateLimitDecision, error) {
	var decision models.RateLimitDecision

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := purgeStale(ctx, tx, now.Add(-window), now); err != nil {
			return err
		}

		row := tx.QueryRow(ctx,
			`SELECT `+attemptColumns+` FROM failed_login_attempts WHERE username = $1 AND ip_address = $2 FOR UPDATE`,
			username, ipAddress,
		)
		attempt, err := scanAttemptRow(row)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				decision = models.RateLimitDecision{Allowed: true}
				return nil
			}
			return fmt.Errorf("failed to load login attempts: %w", err)
		}

		decision.Attempts = attempt.AttemptCount

		if attempt.BlockedAt(now) {
			decision.BlockedUntil = attempt.BlockedUntil
			return nil
		}

		if attempt.AttemptCount < threshold {
			decision.Allowed = true
			return nil
		}

		blockedUntil := now.Add(window)
		_, err = tx.Exec(ctx,
			`UPDATE failed_login_attempts SET is_blocked = TRUE, blocked_until = $1 WHERE id = $2`,
			blockedUntil, attempt.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to block login key: %w", err)
		}

		decision.Transitioned = true
		decision.BlockedUntil = &blockedUntil
		return nil
	})
	if err != nil {
		return models.RateLimitDecision{}, err
	}

	return decision, nil
}

// RecordFailure atomically creates or increments the key's counter and
// returns the new count. Concurrent calls never lose an increment.
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, username, ipAddress string, now time.Time) (int, error) {
	query := `
		INSERT INTO failed_login_attempts (username, ip_address, attempt_count, first_attempt_at, last_attempt_at)
		VALUES ($1, $2, 1, $3, $3)
		ON CONFLICT ON CONSTRAINT failed_login_attempts_key DO UPDATE
		SET attempt_count = failed_login_attempts.attempt_count + 1,
		    last_attempt_at = EXCLUDED.last_attempt_at
		RETURNING attempt_count
	`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, username, ipAddress, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to record login failure: %w", err)
	}
	return count, nil
}

// Clear removes the key's counter after a successful login
func (r *LoginAttemptRepository) Clear(ctx context.Context, username, ipAddress string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM failed_login_attempts WHERE username = $1 AND ip_address = $2`,
		username, ipAddress,
	)
	if err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// Get returns the key's counter row
func (r *LoginAttemptRepository) Get(ctx context.Context, username, ipAddress string) (*models.FailedLoginAttempt, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM failed_login_attempts WHERE username = $1 AND ip_address = $2`,
		username, ipAddress,
	)
	return scanAttemptRow(row)
}

// PurgeStale deletes rows whose last attempt is before cutoff and whose block,
// if any, has lapsed
func (r *LoginAttemptRepository) PurgeStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	return purgeStale(ctx, r.db.Pool, cutoff, now)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func purgeStale(ctx context.Context, e execer, cutoff, now time.Time) (int64, error) {
	tag, err := e.Exec(ctx, `
		DELETE FROM failed_login_attempts
		WHERE last_attempt_at < $1
		  AND (blocked_until IS NULL OR blocked_until <= $2)
	`, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge stale login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
