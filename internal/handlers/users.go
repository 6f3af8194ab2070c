package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// UserAdminServiceInterface defines the administrative user operations
type UserAdminServiceInterface interface {
	CreateUser(ctx context.Context, actorID string, in services.CreateUserInput) (*services.UserResponse, error)
	GetUser(ctx context.Context, id string) (*services.UserResponse, error)
	ListUsers(ctx context.Context, filter models.UserListFilter) ([]*services.UserResponse, int, error)
	SetStatus(ctx context.Context, actorID, userID string, active bool) (*services.UserResponse, error)
	AssignRole(ctx context.Context, actorID, userID string, roleID *string) (*services.UserResponse, error)
	DeleteUser(ctx context.Context, actorID, userID string) error
}

// UserHandler handles user administration HTTP requests
type UserHandler struct {
	service  UserAdminServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserAdminServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request/Response DTOs

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=6,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	IsActive *bool   `json:"is_active"`
	IsAdmin  bool    `json:"is_admin"`
	RoleID   *string `json:"role_id" validate:"omitempty,uuid"`
}

// UpdateStatusRequest represents the request body for activating or deactivating a user
type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// AssignRoleRequest sets a user's role; a null role_id clears it
type AssignRoleRequest struct {
	RoleID *string `json:"role_id" validate:"omitempty,uuid"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users  []*services.UserResponse `json:"users"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// CreateUser handles POST /admin/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client := pkghttp.ExtractClientInfo(r, h.ipConfig)

	user, err := h.service.CreateUser(r.Context(), p.UserID(), services.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		FullName:  req.FullName,
		IsActive:  req.IsActive,
		IsAdmin:   req.IsAdmin,
		RoleID:    req.RoleID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, user)
}

// ListUsers handles GET /admin/users?search=&role_id=&is_active=&limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, fields := pageParams(r)
	active, err := queryBool(r, "is_active")
	if err != nil {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["is_active"] = err.Error()
	}
	if fields != nil {
		pkghttp.WriteValidationError(w, "Invalid query parameters", fields)
		return
	}

	filter := models.UserListFilter{
		Search:   strings.TrimSpace(r.URL.Query().Get("search")),
		RoleID:   queryString(r, "role_id"),
		IsActive: active,
		Limit:    limit,
		Offset:   offset,
	}

	users, total, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	limit, offset = services.NormalizePage(limit, offset)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	pkghttp.WriteJSON(w, http.StatusOK, ListUsersResponse{
		Users:  users,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetUser handles GET /admin/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// UpdateStatus handles PATCH /admin/users/{id}/status
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.SetStatus(r.Context(), p.UserID(), id, *req.IsActive)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// AssignRole handles PUT /admin/users/{id}/role
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AssignRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.AssignRole(r.Context(), p.UserID(), id, req.RoleID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), p.UserID(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
