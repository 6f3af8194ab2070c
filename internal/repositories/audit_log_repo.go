package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
)

// AuditLogRepository handles authentication audit log data access
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

func scanAuditLogRow(row rowScanner) (*models.AuthAuditLog, error) {
	var log models.AuthAuditLog

	err := row.Scan(&log.ID, &log.UserID, &log.Action, &log.IPAddress, &log.UserAgent, &log.Success, &log.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &log, nil
}

func scanAuditLogRows(rows pgx.Rows) ([]*models.AuthAuditLog, error) {
	defer rows.Close()

	logs := make([]*models.AuthAuditLog, 0)

	for rows.Next() {
		log, err := scanAuditLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// Create appends an audit entry
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuthAuditLog) (*models.AuthAuditLog, error) {
	query := `
		INSERT INTO auth_audit_log (user_id, action, ip_address, user_agent, success)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, action, ip_address, user_agent, success, created_at
	`

	result, err := scanAuditLogRow(r.pool.QueryRow(ctx, query,
		log.UserID, log.Action, log.IPAddress, log.UserAgent, log.Success,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return result, nil
}

// List returns a page of entries, newest first, and the total matching count
func (r *AuditLogRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error) {
	var where whereClause
	if filter.UserID != nil {
		where.add("user_id = $%d", *filter.UserID)
	}
	if filter.Action != nil {
		where.add("action = $%d", *filter.Action)
	}
	if filter.Success != nil {
		where.add("success = $%d", *filter.Success)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM auth_audit_log `+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := `
		SELECT id, user_id, action, ip_address, user_agent, success, created_at
		FROM auth_audit_log ` + where.String() + `
		ORDER BY created_at DESC ` + where.paging(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}

	logs, err := scanAuditLogRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
