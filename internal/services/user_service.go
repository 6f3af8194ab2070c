package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clinicwise/clinic-backend/internal/models"
	pkgauth "github.com/clinicwise/clinic-backend/pkg/auth"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateAccount(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context, filter models.UserListFilter) ([]*models.User, int, error)
	SetActive(ctx context.Context, id string, active bool, actorID string) (*models.User, error)
	SetRole(ctx context.Context, id string, roleID *string, actorID string) (*models.User, error)
	SoftDelete(ctx context.Context, id, actorID string) error
}

// ProfileRepository defines the interface for user profile data access
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
	Upsert(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
}

// RoleLookup finds live roles
type RoleLookup interface {
	GetByID(ctx context.Context, id string) (*models.Role, error)
}

// UserService handles account self-service and user administration
type UserService struct {
	users       UserRepository
	profiles    ProfileRepository
	roles       RoleLookup
	audit       *AuditService
	hasher      *pkgauth.Hasher
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewUserService creates a new UserService
func NewUserService(users UserRepository, profiles ProfileRepository, roles RoleLookup, audit *AuditService, hasher *pkgauth.Hasher, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *UserService {
	return &UserService{
		users:       users,
		profiles:    profiles,
		roles:       roles,
		audit:       audit,
		hasher:      hasher,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// CreateUserInput is an administrative account creation
type CreateUserInput struct {
	Username  string
	Password  string
	Email     *string
	FullName  *string
	IsActive  *bool // defaults to true
	IsAdmin   bool
	RoleID    *string
	IPAddress string
	UserAgent string
}

// CreateUser provisions an account on behalf of an administrator and
// returns the full projection
func (s *UserService) CreateUser(ctx context.Context, actorID string, in CreateUserInput) (*UserResponse, error) {
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	exists, err := s.users.UsernameExists(ctx, in.Username)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if exists {
		return nil, models.ErrUserExists
	}

	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	if in.RoleID != nil {
		if err := s.ensureRole(ctx, *in.RoleID); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        email,
		PasswordHash: hash,
		FullName:     in.FullName,
		IsActive:     active,
		IsAdmin:      in.IsAdmin,
		RoleID:       in.RoleID,
		CreatedBy:    &actorID,
	})
	if err != nil {
		if errors.Is(err, models.ErrUserExists) || errors.Is(err, models.ErrEmailTaken) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	err = s.audit.Record(ctx, AuditEntry{
		UserID:    &user.ID,
		Username:  user.Username,
		Action:    models.AuditActionUserCreated,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})
	if err != nil {
		return nil, models.ErrInternalServer
	}
	s.auditLogger.LogAccountAction(ctx, models.AuditActionUserCreated, actorID, user.ID, nil)

	return NewUserResponse(user), nil
}

// GetUser returns a live user by id
func (s *UserService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewUserResponse(user), nil
}

// UpdateAccountInput holds the self-service account fields. Nil fields are
// left unchanged.
type UpdateAccountInput struct {
	Email     *string
	FullName  *string
	AvatarURL *string
}

// UpdateAccount updates the caller's own account
func (s *UserService) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*UserResponse, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := normalizeEmail(in.Email)
		if err := s.ensureEmailFree(ctx, email, userID); err != nil {
			return nil, err
		}
		user.Email = email
	}
	if in.FullName != nil {
		user.FullName = in.FullName
	}
	if in.AvatarURL != nil {
		user.AvatarURL = in.AvatarURL
	}
	user.UpdatedBy = &userID

	updated, err := s.users.UpdateAccount(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) || errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to update account", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return NewUserResponse(updated), nil
}

// GetProfile returns the caller's profile, creating an empty one on first read
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to load profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	profile, err = s.profiles.Upsert(ctx, &models.UserProfile{UserID: userID})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return profile, nil
}

// ProfileInput holds the profile fields. The profile is replaced as a whole.
type ProfileInput struct {
	Phone       *string
	Address     *string
	Bio         *string
	DateOfBirth *time.Time
	Gender      *string
	Preferences *string
}

// UpdateProfile replaces the caller's profile fields
func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.UserProfile, error) {
	if in.Gender != nil && !validGender(*in.Gender) {
		return nil, fmt.Errorf("%w: gender must be one of %s, %s, %s",
			models.ErrValidation, models.GenderMale, models.GenderFemale, models.GenderOther)
	}

	profile, err := s.profiles.Upsert(ctx, &models.UserProfile{
		UserID:      userID,
		Phone:       in.Phone,
		Address:     in.Address,
		Bio:         in.Bio,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		Preferences: in.Preferences,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return profile, nil
}

// ListUsers returns a page of users and the total count
func (s *UserService) ListUsers(ctx context.Context, filter models.UserListFilter) ([]*UserResponse, int, error) {
	filter.Limit, filter.Offset = NormalizePage(filter.Limit, filter.Offset)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}

	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return out, total, nil
}

// SetStatus activates or deactivates an account. Administrators cannot
// deactivate themselves.
func (s *UserService) SetStatus(ctx context.Context, actorID, userID string, active bool) (*UserResponse, error) {
	if actorID == userID && !active {
		return nil, models.NewBadRequest("cannot deactivate your own account")
	}

	user, err := s.users.SetActive(ctx, userID, active, actorID)
	if err != nil {
		return nil, s.adminWriteError(ctx, "set user status", userID, err)
	}

	action := "user_deactivated"
	if active {
		action = "user_activated"
	}
	s.auditLogger.LogAccountAction(ctx, action, actorID, userID, nil)

	return NewUserResponse(user), nil
}

// AssignRole sets the user's single role, or clears it when roleID is nil
func (s *UserService) AssignRole(ctx context.Context, actorID, userID string, roleID *string) (*UserResponse, error) {
	if roleID != nil {
		if err := s.ensureRole(ctx, *roleID); err != nil {
			return nil, err
		}
	}

	user, err := s.users.SetRole(ctx, userID, roleID, actorID)
	if err != nil {
		return nil, s.adminWriteError(ctx, "assign role", userID, err)
	}

	role := ""
	if roleID != nil {
		role = *roleID
	}
	s.auditLogger.LogAccountAction(ctx, "user_role_changed", actorID, userID, map[string]string{"role_id": role})

	return NewUserResponse(user), nil
}

// DeleteUser soft-deletes an account. Administrators cannot delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	if actorID == userID {
		return models.NewBadRequest("cannot delete your own account")
	}

	if err := s.users.SoftDelete(ctx, userID, actorID); err != nil {
		return s.adminWriteError(ctx, "delete user", userID, err)
	}

	s.auditLogger.LogAccountAction(ctx, "user_deleted", actorID, userID, nil)
	return nil
}

func (s *UserService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email *string, excludeUserID string) error {
	if email == nil {
		return nil
	}
	taken, err := s.users.EmailTaken(ctx, *email, excludeUserID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check email", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if taken {
		return models.ErrEmailTaken
	}
	return nil
}

func (s *UserService) ensureRole(ctx context.Context, roleID string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.NewBadRequest("role does not exist")
		}
		s.logger.ErrorContext(ctx, "failed to load role", slog.String("role_id", roleID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

func (s *UserService) adminWriteError(ctx context.Context, op, userID string, err error) error {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrBadRequest) {
		return err
	}
	s.logger.ErrorContext(ctx, "failed to "+op, slog.String("user_id", userID), slog.Any("error", err))
	return models.ErrInternalServer
}

// normalizeEmail trims and lowercases; an empty address becomes nil
func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

func validGender(g string) bool {
	switch g {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
		return true
	}
	return false
}
