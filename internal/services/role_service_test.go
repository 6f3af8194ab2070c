package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicwise/clinic-backend/internal/models"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

type invalidationRecorder struct {
	roles []string
}

func (r *invalidationRecorder) InvalidateRole(ctx context.Context, roleID string) {
	r.roles = append(r.roles, roleID)
}

func newRoleService(repo *MockRoleRepository, inv RoleInvalidator) *RoleService {
	logger := discardLogger()
	return NewRoleService(repo, inv, pkglogger.NewAuditLogger(logger), logger)
}

func TestRoleService_CreateRole(t *testing.T) {
	var gotName string
	repo := &MockRoleRepository{
		CreateFunc: func(ctx context.Context, name string, description *string) (*models.Role, error) {
			gotName = name
			return &models.Role{ID: "role-1", Name: name, IsActive: true}, nil
		},
	}
	svc := newRoleService(repo, nil)

	role, err := svc.CreateRole(context.Background(), "admin-1", "  pharmacist ", nil)
	require.NoError(t, err)
	assert.Equal(t, "pharmacist", gotName)
	assert.Equal(t, "role-1", role.ID)
}

func TestRoleService_CreateRoleConflict(t *testing.T) {
	repo := &MockRoleRepository{
		CreateFunc: func(ctx context.Context, name string, description *string) (*models.Role, error) {
			return nil, models.ErrConflict
		},
	}
	_, err := newRoleService(repo, nil).CreateRole(context.Background(), "admin-1", "doctor", nil)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestRoleService_SetPermissions(t *testing.T) {
	var replaced []string
	repo := &MockRoleRepository{
		ReplacePermissionsFunc: func(ctx context.Context, roleID string, names []string) error {
			replaced = names
			return nil
		},
		GetByIDFunc: func(ctx context.Context, id string) (*models.Role, error) {
			return &models.Role{ID: id, Name: models.RoleNurse, Permissions: replaced}, nil
		},
	}
	inv := &invalidationRecorder{}
	svc := newRoleService(repo, inv)

	names := []string{models.PermViewPatients, models.PermUpdatePatients}
	role, err := svc.SetPermissions(context.Background(), "admin-1", "role-nurse", names)
	require.NoError(t, err)

	assert.Equal(t, names, role.Permissions)
	assert.Equal(t, []string{"role-nurse"}, inv.roles)
}

func TestRoleService_SetPermissionsErrors(t *testing.T) {
	tests := []struct {
		name    string
		repoErr error
		wantErr error
	}{
		{name: "unknown role", repoErr: models.ErrNotFound, wantErr: models.ErrNotFound},
		{name: "unknown permission", repoErr: models.ErrBadRequest, wantErr: models.ErrBadRequest},
		{name: "store failure", repoErr: errors.New("deadlock"), wantErr: models.ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRoleRepository{
				ReplacePermissionsFunc: func(ctx context.Context, roleID string, names []string) error {
					return tt.repoErr
				},
			}
			inv := &invalidationRecorder{}

			_, err := newRoleService(repo, inv).SetPermissions(context.Background(), "admin-1", "role-1", []string{"NOPE"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, inv.roles, "cache is untouched when the write fails")
		})
	}
}

func TestRoleService_Listing(t *testing.T) {
	repo := &MockRoleRepository{
		ListFunc: func(ctx context.Context) ([]*models.Role, error) {
			return []*models.Role{{ID: "r1", Name: models.RoleAdmin, Permissions: []string{models.PermissionAll}}}, nil
		},
		ListPermissionsFunc: func(ctx context.Context) ([]*models.Permission, error) {
			return nil, errors.New("closed")
		},
	}
	svc := newRoleService(repo, nil)

	roles, err := svc.ListRoles(context.Background())
	require.NoError(t, err)
	require.Len(t, roles, 1)

	_, err = svc.ListPermissions(context.Background())
	assert.ErrorIs(t, err, models.ErrInternalServer)
}
