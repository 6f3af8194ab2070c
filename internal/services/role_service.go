package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/clinicwise/clinic-backend/internal/models"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

// RoleRepository manages roles and their permission grants
type RoleRepository interface {
	GetByID(ctx context.Context, id string) (*models.Role, error)
	List(ctx context.Context) ([]*models.Role, error)
	Create(ctx context.Context, name string, description *string) (*models.Role, error)
	ReplacePermissions(ctx context.Context, roleID string, names []string) error
	ListPermissions(ctx context.Context) ([]*models.Permission, error)
}

// RoleInvalidator drops cached permission sets for a role
type RoleInvalidator interface {
	InvalidateRole(ctx context.Context, roleID string)
}

// RoleService handles role administration
type RoleService struct {
	repo        RoleRepository
	invalidator RoleInvalidator
	auditLogger *pkglogger.AuditLogger
	logger      *slog.Logger
}

// NewRoleService creates a new RoleService
func NewRoleService(repo RoleRepository, invalidator RoleInvalidator, auditLogger *pkglogger.AuditLogger, logger *slog.Logger) *RoleService {
	return &RoleService{
		repo:        repo,
		invalidator: invalidator,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// ListRoles returns every live role with its permissions
func (s *RoleService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	roles, err := s.repo.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list roles", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return roles, nil
}

// CreateRole adds a role with no permissions. Names are unique among live roles.
func (s *RoleService) CreateRole(ctx context.Context, actorID, name string, description *string) (*models.Role, error) {
	name = strings.TrimSpace(name)

	role, err := s.repo.Create(ctx, name, description)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to create role", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, "role_created", actorID, role.ID, map[string]string{"role_name": role.Name})
	return role, nil
}

// SetPermissions replaces the role's grants and evicts its cached set
func (s *RoleService) SetPermissions(ctx context.Context, actorID, roleID string, names []string) (*models.Role, error) {
	if err := s.repo.ReplacePermissions(ctx, roleID, names); err != nil {
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrBadRequest) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "failed to replace role permissions", slog.String("role_id", roleID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateRole(ctx, roleID)
	}

	role, err := s.repo.GetByID(ctx, roleID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to reload role", slog.String("role_id", roleID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction(ctx, "role_permissions_changed", actorID, roleID,
		map[string]string{"permissions": strings.Join(role.Permissions, ",")})
	return role, nil
}

// ListPermissions returns the permission catalogue
func (s *RoleService) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list permissions", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return perms, nil
}
