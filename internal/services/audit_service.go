package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinicwise/clinic-backend/internal/models"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// AuditLogRepository persists the authentication audit trail
type AuditLogRepository interface {
	Create(ctx context.Context, log *models.AuthAuditLog) (*models.AuthAuditLog, error)
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error)
}

// AuditEntry is one authentication event to record
type AuditEntry struct {
	UserID        *string
	Username      string // logged masked, never persisted
	Action        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string // logged only
}

// AuditService records authentication events with a dual write: the
// structured log first, then the auth_audit_log table.
type AuditService struct {
	repo        AuditLogRepository
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditLogRepository, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:        repo,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Record writes the entry. The database write is synchronous; its error is
// returned so the caller decides whether the request may still succeed.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) error {
	event := pkglogger.AuthEvent{
		Action:        entry.Action,
		Username:      entry.Username,
		IPAddress:     entry.IPAddress,
		UserAgent:     entry.UserAgent,
		Success:       entry.Success,
		FailureReason: entry.FailureReason,
	}
	if entry.UserID != nil {
		event.UserID = *entry.UserID
	}
	s.auditLogger.LogAuthEvent(ctx, event)

	_, err := s.repo.Create(ctx, &models.AuthAuditLog{
		UserID:    entry.UserID,
		Action:    entry.Action,
		IPAddress: optionalString(entry.IPAddress),
		UserAgent: optionalString(entry.UserAgent),
		Success:   entry.Success,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("action", entry.Action),
			slog.Any("error", err))
		return fmt.Errorf("record audit entry: %w", err)
	}

	return nil
}

// List returns a page of audit entries for reporting
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error) {
	filter.Limit, filter.Offset = NormalizePage(filter.Limit, filter.Offset)

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit logs", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return logs, total, nil
}

// NormalizePage applies the default page size and caps limit and offset
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
