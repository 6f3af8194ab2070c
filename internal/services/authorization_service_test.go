package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/metrics"
	"github.com/clinicwise/clinic-backend/internal/models"
)

func newTestTokens() *auth.TokenManager {
	return auth.NewTokenManager(auth.TokenConfig{
		Secret:                testSecret,
		AccessExpiry:          30 * time.Minute,
		RefreshExpiry:         7 * 24 * time.Hour,
		RefreshExpiryRemember: 30 * 24 * time.Hour,
	})
}

func userWithRole(id, username, roleID, roleName string) *models.User {
	u := NewTestUser(id, username, "")
	u.RoleID, u.RoleName = &roleID, &roleName
	return u
}

func TestAuthorizationService_Resolve(t *testing.T) {
	tokens := newTestTokens()
	doctor := userWithRole("user-1", "drhouse", "role-doctor", models.RoleDoctor)
	admin := userWithRole("user-2", "root", "role-admin", models.RoleAdmin)
	noRole := NewTestUser("user-3", "newbie", "")
	inactive := userWithRole("user-4", "gone", "role-doctor", models.RoleDoctor)
	inactive.IsActive = false

	users := usersByName(doctor, admin, noRole, inactive)
	roles := &MockRoleRepository{
		GetPermissionNamesFunc: func(ctx context.Context, roleID string) ([]string, error) {
			switch roleID {
			case "role-doctor":
				return []string{models.PermViewPatients, models.PermViewMedicalRecords}, nil
			case "role-admin":
				return []string{models.PermissionAll}, nil
			}
			return nil, nil
		},
	}
	svc := NewAuthorizationService(users, roles, tokens, nil, nil, discardLogger())

	token := func(id, name string) string {
		tok, err := tokens.IssueAccess(id, name)
		require.NoError(t, err)
		return tok
	}

	t.Run("role permissions", func(t *testing.T) {
		p, err := svc.Resolve(context.Background(), token("user-1", "drhouse"))
		require.NoError(t, err)
		assert.Equal(t, "user-1", p.UserID())
		assert.Equal(t, models.RoleDoctor, p.RoleName)
		assert.True(t, p.HasPermission(models.PermViewPatients))
		assert.False(t, p.HasPermission(models.PermDeletePatients))
	})

	t.Run("wildcard", func(t *testing.T) {
		p, err := svc.Resolve(context.Background(), token("user-2", "root"))
		require.NoError(t, err)
		assert.True(t, p.HasPermission(models.PermDeleteUsers))
		assert.True(t, p.HasRole(models.RoleDoctor))
	})

	t.Run("no role holds nothing", func(t *testing.T) {
		p, err := svc.Resolve(context.Background(), token("user-3", "newbie"))
		require.NoError(t, err)
		assert.Empty(t, p.RoleName)
		assert.False(t, p.HasPermission(models.PermViewPatients))
	})

	t.Run("inactive", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), token("user-4", "gone"))
		assert.ErrorIs(t, err, models.ErrAccountInactive)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.Resolve(context.Background(), token("user-404", "ghost"))
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		tok, err := tokens.IssueRefresh("user-1", "drhouse", false)
		require.NoError(t, err)
		_, err = svc.Resolve(context.Background(), tok)
		assert.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("user lookup failure", func(t *testing.T) {
		broken := NewAuthorizationService(&MockUserRepository{
			GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
				return nil, errors.New("pool closed")
			},
		}, roles, tokens, nil, nil, discardLogger())
		_, err := broken.Resolve(context.Background(), token("user-1", "drhouse"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestAuthorizationService_RoleChangeAppliesToExistingToken(t *testing.T) {
	tokens := newTestTokens()
	user := userWithRole("user-1", "nurse1", "role-nurse", models.RoleNurse)
	users := usersByName(user)
	roles := &MockRoleRepository{
		GetPermissionNamesFunc: func(ctx context.Context, roleID string) ([]string, error) {
			if roleID == "role-staff" {
				return []string{models.PermViewAppointments}, nil
			}
			return []string{models.PermViewPatients}, nil
		},
	}
	svc := NewAuthorizationService(users, roles, tokens, nil, nil, discardLogger())

	tok, err := tokens.IssueAccess("user-1", "nurse1")
	require.NoError(t, err)

	p, err := svc.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, p.HasPermission(models.PermViewPatients))

	user.RoleID, user.RoleName = strPtr("role-staff"), strPtr(models.RoleStaff)

	p, err = svc.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, p.RoleName)
	assert.False(t, p.HasPermission(models.PermViewPatients))
	assert.True(t, p.HasPermission(models.PermViewAppointments))
}

func TestAuthorizationService_PermissionCache(t *testing.T) {
	tokens := newTestTokens()
	users := usersByName(userWithRole("user-1", "drhouse", "role-doctor", models.RoleDoctor))
	tok, err := tokens.IssueAccess("user-1", "drhouse")
	require.NoError(t, err)

	t.Run("miss then hit", func(t *testing.T) {
		roles := &MockRoleRepository{
			GetPermissionNamesFunc: func(ctx context.Context, roleID string) ([]string, error) {
				return []string{models.PermViewPatients}, nil
			},
		}
		c := NewMockPermissionCache()
		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		svc := NewAuthorizationService(users, roles, tokens, c, m, discardLogger())

		for i := 0; i < 3; i++ {
			p, err := svc.Resolve(context.Background(), tok)
			require.NoError(t, err)
			assert.True(t, p.HasPermission(models.PermViewPatients))
		}

		assert.Equal(t, 1, roles.PermissionLoads)
		expected := `
# HELP clinic_auth_permission_cache_total Role permission cache lookups by result.
# TYPE clinic_auth_permission_cache_total counter
clinic_auth_permission_cache_total{result="hit"} 2
clinic_auth_permission_cache_total{result="miss"} 1
`
		assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "clinic_auth_permission_cache_total"))
	})

	t.Run("invalidate forces reload", func(t *testing.T) {
		granted := []string{models.PermViewPatients}
		roles := &MockRoleRepository{
			GetPermissionNamesFunc: func(ctx context.Context, roleID string) ([]string, error) {
				return granted, nil
			},
		}
		c := NewMockPermissionCache()
		svc := NewAuthorizationService(users, roles, tokens, c, nil, discardLogger())

		_, err := svc.Resolve(context.Background(), tok)
		require.NoError(t, err)

		granted = []string{models.PermDeletePatients}
		svc.InvalidateRole(context.Background(), "role-doctor")
		assert.Equal(t, []string{"role-doctor"}, c.Invalidated)

		p, err := svc.Resolve(context.Background(), tok)
		require.NoError(t, err)
		assert.True(t, p.HasPermission(models.PermDeletePatients))
		assert.False(t, p.HasPermission(models.PermViewPatients))
	})

	t.Run("empty grant is cached", func(t *testing.T) {
		roles := &MockRoleRepository{}
		c := NewMockPermissionCache()
		svc := NewAuthorizationService(users, roles, tokens, c, nil, discardLogger())

		for i := 0; i < 2; i++ {
			p, err := svc.Resolve(context.Background(), tok)
			require.NoError(t, err)
			assert.Empty(t, p.Permissions)
		}
		assert.Equal(t, 1, roles.PermissionLoads)
	})

	t.Run("cache failure falls back to database", func(t *testing.T) {
		roles := &MockRoleRepository{
			GetPermissionNamesFunc: func(ctx context.Context, roleID string) ([]string, error) {
				return []string{models.PermViewPatients}, nil
			},
		}
		c := NewMockPermissionCache()
		c.GetErr = errors.New("redis down")
		svc := NewAuthorizationService(users, roles, tokens, c, nil, discardLogger())

		p, err := svc.Resolve(context.Background(), tok)
		require.NoError(t, err)
		assert.True(t, p.HasPermission(models.PermViewPatients))
	})

	t.Run("database failure", func(t *testing.T) {
		roles := &MockRoleRepository{
			GetPermissionNamesFunc: func(ctx context.Context, roleID string) ([]string, error) {
				return nil, errors.New("timeout")
			},
		}
		svc := NewAuthorizationService(users, roles, tokens, NewMockPermissionCache(), nil, discardLogger())

		_, err := svc.Resolve(context.Background(), tok)
		assert.Error(t, err)
	})
}
