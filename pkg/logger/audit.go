package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuthEvent is a security event mirrored to the structured log
type AuthEvent struct {
	Action        string
	UserID        string
	Username      string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// AuditLogger writes security events to slog. It complements the database
// audit trail; usernames and emails are masked before they reach the log.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthEvent logs login, logout, refresh and registration outcomes
func (al *AuditLogger) LogAuthEvent(ctx context.Context, event AuthEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("action", event.Action),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Username != "" {
		attrs = append(attrs, slog.String("username", MaskUsername(event.Username)))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogLockout logs a (username, address) key entering the blocked state
func (al *AuditLogger) LogLockout(ctx context.Context, username, ipAddress string, attempts int, blockedUntil time.Time) {
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit",
		slog.String("audit_type", "rate_limit"),
		slog.String("action", "lockout"),
		slog.String("username", MaskUsername(username)),
		slog.String("ip_address", ipAddress),
		slog.Int("attempts", attempts),
		slog.String("blocked_until", blockedUntil.UTC().Format(time.RFC3339)),
	)
}

// LogAccountAction logs administrative changes to accounts and roles
func (al *AuditLogger) LogAccountAction(ctx context.Context, action, actorID, targetID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "account"),
		slog.String("action", action),
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
