package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clinicwise/clinic-backend/internal/models"
)

// LoginAttemptRepository stores failed-login counters per (username, ip_address)
type LoginAttemptRepository interface {
	Check(ctx context.Context, username, ipAddress string, threshold int, window time.Duration, now time.Time) (models.RateLimitDecision, error)
	RecordFailure(ctx context.Context, username, ipAddress string, now time.Time) (int, error)
	Clear(ctx context.Context, username, ipAddress string) error
	PurgeStale(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// RateLimitConfig holds the login throttling parameters
type RateLimitConfig struct {
	MaxAttempts int           // failures that trigger a block
	Window      time.Duration // observation window and block length
}

// RateLimitService throttles repeated login failures per (username, ip_address)
type RateLimitService struct {
	repo   LoginAttemptRepository
	config RateLimitConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimitService creates a new RateLimitService
func NewRateLimitService(repo LoginAttemptRepository, config RateLimitConfig, logger *slog.Logger) *RateLimitService {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.Window <= 0 {
		config.Window = 15 * time.Minute
	}
	return &RateLimitService{
		repo:   repo,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (s *RateLimitService) WithClock(now func() time.Time) *RateLimitService {
	s.now = now
	return s
}

// Check reports whether a login attempt for the key may proceed
func (s *RateLimitService) Check(ctx context.Context, username, ipAddress string) (models.RateLimitDecision, error) {
	decision, err := s.repo.Check(ctx, username, ipAddress, s.config.MaxAttempts, s.config.Window, s.now())
	if err != nil {
		return models.RateLimitDecision{}, fmt.Errorf("rate limit check: %w", err)
	}

	if !decision.Allowed {
		s.logger.DebugContext(ctx, "login attempt rate limited",
			slog.String("ip_address", ipAddress),
			slog.Int("attempts", decision.Attempts),
			slog.Bool("transitioned", decision.Transitioned),
		)
	}
	return decision, nil
}

// RecordFailure counts a failed login for the key
func (s *RateLimitService) RecordFailure(ctx context.Context, username, ipAddress string) (int, error) {
	count, err := s.repo.RecordFailure(ctx, username, ipAddress, s.now())
	if err != nil {
		return 0, fmt.Errorf("record login failure: %w", err)
	}
	return count, nil
}

// Clear resets the key after a successful login
func (s *RateLimitService) Clear(ctx context.Context, username, ipAddress string) error {
	if err := s.repo.Clear(ctx, username, ipAddress); err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	return nil
}

// PurgeStale removes counters whose last failure left the window
func (s *RateLimitService) PurgeStale(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.repo.PurgeStale(ctx, now.Add(-s.config.Window), now)
	if err != nil {
		return 0, fmt.Errorf("purge stale login failures: %w", err)
	}
	return n, nil
}
