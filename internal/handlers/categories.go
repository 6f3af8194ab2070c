package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// CategoryServiceInterface defines the category operations
type CategoryServiceInterface interface {
	List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, actorID string, in services.CategoryInput) (*models.Category, error)
	Update(ctx context.Context, actorID, id string, in services.CategoryInput) (*models.Category, error)
	Delete(ctx context.Context, actorID, id string) error
}

// CategoryHandler handles reference-data category requests
type CategoryHandler struct {
	service CategoryServiceInterface
	logger  *slog.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(service CategoryServiceInterface, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{service: service, logger: logger}
}

// CategoryRequest is the body of category create and update
type CategoryRequest struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Code        string  `json:"code" validate:"required,max=100"`
	Value       *string `json:"value" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
	IsActive    *bool   `json:"is_active"`
}

// CategoryResponse represents a category in HTTP responses
type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Value       *string   `json:"value"`
	Description *string   `json:"description"`
	ParentID    *string   `json:"parent_id"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func categoryToResponse(c *models.Category) *CategoryResponse {
	return &CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Code:        c.Code,
		Value:       c.Value,
		Description: c.Description,
		ParentID:    c.ParentID,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (req CategoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Name:        req.Name,
		Code:        req.Code,
		Value:       req.Value,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    req.IsActive,
	}
}

// List handles GET /categories?parent_id=&active=&limit=&offset=
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset, fields := pageParams(r)
	active, err := queryBool(r, "active")
	if err != nil {
		if fields == nil {
			fields = map[string]string{}
		}
		fields["active"] = err.Error()
	}
	if fields != nil {
		pkghttp.WriteValidationError(w, "Invalid query parameters", fields)
		return
	}

	categories, total, err := h.service.List(r.Context(), models.CategoryFilter{
		ParentID: queryString(r, "parent_id"),
		Active:   active,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	resp := make([]*CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, categoryToResponse(c))
	}

	limit, offset = services.NormalizePage(limit, offset)
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
		"categories": resp,
		"total":      total,
		"limit":      limit,
		"offset":     offset,
	})
}

// Get handles GET /categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, categoryToResponse(c))
}

// Create handles POST /categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req CategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), p.UserID(), req.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, categoryToResponse(c))
}

// Update handles PUT /categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), p.UserID(), id, req.input())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, categoryToResponse(c))
}

// Delete handles DELETE /categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), p.UserID(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
