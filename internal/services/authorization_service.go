package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/cache"
	"github.com/clinicwise/clinic-backend/internal/metrics"
	"github.com/clinicwise/clinic-backend/internal/models"
)

// RolePermissionReader loads the permission names granted to a role
type RolePermissionReader interface {
	GetPermissionNames(ctx context.Context, roleID string) ([]string, error)
}

// PermissionCache caches role permission sets. Get returns cache.ErrCacheMiss
// when the role has no entry.
type PermissionCache interface {
	Get(ctx context.Context, roleID string) (models.PermissionSet, error)
	Set(ctx context.Context, roleID string, permissions []string) error
	Invalidate(ctx context.Context, roleID string) error
}

// AuthorizationService resolves bearer tokens into principals for the guard
type AuthorizationService struct {
	users   UserRepository
	roles   RolePermissionReader
	tokens  *auth.TokenManager
	cache   PermissionCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAuthorizationService creates the resolver. cache and m may be nil.
func NewAuthorizationService(users UserRepository, roles RolePermissionReader, tokens *auth.TokenManager, cache PermissionCache, m *metrics.Metrics, logger *slog.Logger) *AuthorizationService {
	return &AuthorizationService{
		users:   users,
		roles:   roles,
		tokens:  tokens,
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

// Resolve verifies the access token, reloads the user and loads the role's
// permissions. The user is read on every call, so deactivation and role
// changes apply to tokens that were issued earlier.
func (s *AuthorizationService) Resolve(ctx context.Context, accessToken string) (*auth.Principal, error) {
	claims, err := s.tokens.VerifyAccess(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, fmt.Errorf("load principal: %w", err)
	}

	if !user.IsActive {
		return nil, models.ErrAccountInactive
	}

	principal := &auth.Principal{User: user, Permissions: models.NewPermissionSet()}
	if !user.HasRole() {
		return principal, nil
	}

	principal.RoleName = *user.RoleName
	principal.Permissions, err = s.rolePermissions(ctx, *user.RoleID)
	if err != nil {
		return nil, err
	}

	return principal, nil
}

// InvalidateRole drops a role's cached permissions after its grants change
func (s *AuthorizationService) InvalidateRole(ctx context.Context, roleID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, roleID); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate permission cache",
			slog.String("role_id", roleID), slog.Any("error", err))
	}
}

func (s *AuthorizationService) rolePermissions(ctx context.Context, roleID string) (models.PermissionSet, error) {
	if s.cache != nil {
		set, err := s.cache.Get(ctx, roleID)
		switch {
		case err == nil:
			s.metrics.PermissionCache("hit")
			return set, nil
		case errors.Is(err, cache.ErrCacheMiss):
			s.metrics.PermissionCache("miss")
		default:
			s.metrics.PermissionCache("error")
			s.logger.WarnContext(ctx, "permission cache unavailable", slog.Any("error", err))
		}
	}

	names, err := s.roles.GetPermissionNames(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, roleID, names); err != nil {
			s.logger.WarnContext(ctx, "failed to cache role permissions", slog.Any("error", err))
		}
	}

	return models.NewPermissionSet(names...), nil
}
