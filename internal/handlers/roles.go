package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/models"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// RoleServiceInterface defines the role administration operations
type RoleServiceInterface interface {
	ListRoles(ctx context.Context) ([]*models.Role, error)
	CreateRole(ctx context.Context, actorID, name string, description *string) (*models.Role, error)
	SetPermissions(ctx context.Context, actorID, roleID string, names []string) (*models.Role, error)
	ListPermissions(ctx context.Context) ([]*models.Permission, error)
}

// RoleHandler handles role and permission administration
type RoleHandler struct {
	service RoleServiceInterface
	logger  *slog.Logger
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(service RoleServiceInterface, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{service: service, logger: logger}
}

// CreateRoleRequest represents the request body for creating a role
type CreateRoleRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=50"`
	Description *string `json:"description" validate:"omitempty,max=255"`
}

// SetPermissionsRequest replaces a role's permission grants
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,required,max=100"`
}

// RoleResponse represents a role in HTTP responses
type RoleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionResponse represents a permission in HTTP responses
type PermissionResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	IsActive    bool    `json:"is_active"`
}

func roleToResponse(role *models.Role) *RoleResponse {
	perms := role.Permissions
	if perms == nil {
		perms = []string{}
	}
	return &RoleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		IsActive:    role.IsActive,
		Permissions: perms,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

// ListRoles handles GET /admin/roles
func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]*RoleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, roleToResponse(role))
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"roles": resp})
}

// CreateRole handles POST /admin/roles
func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CreateRoleRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role, err := h.service.CreateRole(r.Context(), p.UserID(), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, roleToResponse(role))
}

// SetPermissions handles PUT /admin/roles/{id}/permissions
func (h *RoleHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req SetPermissionsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	role, err := h.service.SetPermissions(r.Context(), p.UserID(), id, req.Permissions)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, roleToResponse(role))
}

// ListPermissions handles GET /admin/permissions
func (h *RoleHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]*PermissionResponse, 0, len(perms))
	for _, perm := range perms {
		resp = append(resp, &PermissionResponse{
			ID:          perm.ID,
			Name:        perm.Name,
			Description: perm.Description,
			IsActive:    perm.IsActive,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"permissions": resp})
}
