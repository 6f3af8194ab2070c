package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// AuditServiceInterface defines the audit reporting operations
type AuditServiceInterface interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuthAuditLog, int, error)
}

// AuditHandler handles audit log HTTP requests
type AuditHandler struct {
	service AuditServiceInterface
	logger  *slog.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service AuditServiceInterface, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{service: service, logger: logger}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"user_id"`
	Action    string    `json:"action"`
	IPAddress *string   `json:"ip_address,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"created_at"`
}

// ListAuditLogs handles GET /admin/audit-logs?user_id=&action=&success=&limit=&offset=
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset, fields := pageParams(r)
	if fields == nil {
		fields = map[string]string{}
	}

	success, err := queryBool(r, "success")
	if err != nil {
		fields["success"] = err.Error()
	}

	userID := queryString(r, "user_id")
	if userID != nil {
		if _, err := uuid.Parse(*userID); err != nil {
			fields["user_id"] = "must be a valid UUID"
		}
	}

	if len(fields) > 0 {
		pkghttp.WriteValidationError(w, "Invalid query parameters", fields)
		return
	}

	logs, total, err := h.service.List(r.Context(), models.AuditLogFilter{
		UserID:  userID,
		Action:  queryString(r, "action"),
		Success: success,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	response := make([]*AuditLogResponse, len(logs))
	for i, log := range logs {
		response[i] = auditLogToResponse(log)
	}

	limit, offset = services.NormalizePage(limit, offset)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"logs":   response,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// auditLogToResponse converts an audit log model to a response DTO
func auditLogToResponse(log *models.AuthAuditLog) *AuditLogResponse {
	return &AuditLogResponse{
		ID:        log.ID,
		UserID:    log.UserID,
		Action:    log.Action,
		IPAddress: log.IPAddress,
		UserAgent: log.UserAgent,
		Success:   log.Success,
		CreatedAt: log.CreatedAt,
	}
}
