package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// AccountServiceInterface defines the self-service account operations
type AccountServiceInterface interface {
	UpdateAccount(ctx context.Context, userID string, in services.UpdateAccountInput) (*services.UserResponse, error)
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, in services.ProfileInput) (*models.UserProfile, error)
}

// AccountHandler serves the caller's own account and profile
type AccountHandler struct {
	service AccountServiceInterface
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service AccountServiceInterface, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: service, logger: logger}
}

// MeResponse is the current user plus the permissions of their role
type MeResponse struct {
	*services.UserResponse
	Permissions []string `json:"permissions"`
}

// UpdateMeRequest holds the self-editable account fields
type UpdateMeRequest struct {
	Email     *string `json:"email" validate:"omitempty,max=255"`
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,max=500"`
}

// ProfileRequest replaces the caller's profile
type ProfileRequest struct {
	Phone       *string    `json:"phone" validate:"omitempty,max=20"`
	Address     *string    `json:"address"`
	Bio         *string    `json:"bio"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender" validate:"omitempty,oneof=male female other"`
	Preferences *string    `json:"preferences"`
}

// ProfileResponse represents a profile in HTTP responses
type ProfileResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Phone       *string    `json:"phone"`
	Address     *string    `json:"address"`
	Bio         *string    `json:"bio"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      *string    `json:"gender"`
	Preferences *string    `json:"preferences"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func profileToResponse(p *models.UserProfile) *ProfileResponse {
	return &ProfileResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Phone:       p.Phone,
		Address:     p.Address,
		Bio:         p.Bio,
		DateOfBirth: p.DateOfBirth,
		Gender:      p.Gender,
		Preferences: p.Preferences,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// Me returns the authenticated user
// @Router /auth/me [get]
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MeResponse{
		UserResponse: services.NewUserResponse(p.User),
		Permissions:  p.Permissions.Names(),
	})
}

// UpdateMe updates the authenticated user's account fields
// @Router /auth/me [put]
func (h *AccountHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req UpdateMeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	// an empty email clears the address
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		if err := validate.Var(strings.TrimSpace(*req.Email), "email"); err != nil {
			pkghttp.WriteValidationError(w, "Request validation failed",
				map[string]string{"email": "must be a valid email address"})
			return
		}
	}

	user, err := h.service.UpdateAccount(r.Context(), p.UserID(), services.UpdateAccountInput{
		Email:     req.Email,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// GetProfile returns the caller's profile, creating it empty on first read
// @Router /auth/profile [get]
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), p.UserID())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profileToResponse(profile))
}

// UpdateProfile replaces the caller's profile
// @Router /auth/profile [put]
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := auth.GetPrincipal(r)
	if p == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), p.UserID(), services.ProfileInput{
		Phone:       req.Phone,
		Address:     req.Address,
		Bio:         req.Bio,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Preferences: req.Preferences,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, profileToResponse(profile))
}
