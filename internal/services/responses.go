package services

import (
	"time"

	"github.com/clinicwise/clinic-backend/internal/models"
)

// RoleRef is the role summary embedded in user responses
type RoleRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserResponse is the public projection of a user. It never carries the
// password digest.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     *string   `json:"email"`
	FullName  *string   `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	IsActive  bool      `json:"is_active"`
	IsAdmin   bool      `json:"is_admin"`
	Role      *RoleRef  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserResponse projects a user for API output
func NewUserResponse(u *models.User) *UserResponse {
	resp := &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.HasRole() {
		resp.Role = &RoleRef{ID: *u.RoleID, Name: *u.RoleName}
	}
	return resp
}

// RegisteredUser is the minimal projection returned by self-registration
type RegisteredUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// TokenPair is a freshly issued access and refresh token
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime in seconds
}

// LoginResult is a token pair plus the authenticated user
type LoginResult struct {
	TokenPair
	User *UserResponse `json:"user"`
}
