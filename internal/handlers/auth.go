package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/clinicwise/clinic-backend/internal/services"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Logout(ctx context.Context, refreshToken, ipAddress, userAgent string) error
	Refresh(ctx context.Context, refreshToken, ipAddress, userAgent string) (*services.TokenPair, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisteredUser, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username   string `json:"username" validate:"required,max=100"`
	Password   string `json:"password" validate:"required,max=100"`
	RememberMe bool   `json:"remember_me"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Password        string `json:"password" validate:"required,min=6,max=50"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// RefreshTokenRequest represents the request body for token refresh and logout
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// MessageResponse is a body carrying only a message
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterResponse is the body returned by self-registration
type RegisterResponse struct {
	Message string                   `json:"message"`
	User    *services.RegisteredUser `json:"user"`
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.LoginResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client := pkghttp.ExtractClientInfo(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Username:   req.Username,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Logout handles user logout. Tokens are stateless, so this records the
// event and the client discards its tokens.
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client := pkghttp.ExtractClientInfo(r, h.ipConfig)

	if err := h.service.Logout(r.Context(), req.RefreshToken, client.IPAddress, client.UserAgent); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}

// Refresh rotates a refresh token into a new token pair
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client := pkghttp.ExtractClientInfo(r, h.ipConfig)

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken, client.IPAddress, client.UserAgent)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, pair)
}

// Register handles self-registration
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client := pkghttp.ExtractClientInfo(r, h.ipConfig)

	user, err := h.service.Register(r.Context(), services.RegisterInput{
		Username:        req.Username,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		IPAddress:       client.IPAddress,
		UserAgent:       client.UserAgent,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, RegisterResponse{
		Message: "User registered successfully",
		User:    user,
	})
}
