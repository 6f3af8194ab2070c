package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
)

const roleColumns = `
	r.id, r.name, r.description, r.is_active, r.is_deleted,
	COALESCE(array_agg(p.name ORDER BY p.name) FILTER (WHERE p.name IS NOT NULL), '{}'),
	r.created_at, r.updated_at`

const roleFrom = `
	FROM roles r
	LEFT JOIN role_permissions rp ON rp.role_id = r.id
	LEFT JOIN permissions p ON p.id = rp.permission_id AND p.is_active AND NOT p.is_deleted`

// RoleRepository handles roles, the permission catalogue and their grants
type RoleRepository struct {
	db *database.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *database.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func scanRoleRow(scanner rowScanner) (*models.Role, error) {
	var role models.Role

	err := scanner.Scan(
		&role.ID, &role.Name, &role.Description, &role.IsActive, &role.IsDeleted,
		&role.Permissions, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &role, nil
}

// GetPermissionNames returns the permissions granted to an active, live role.
// Inactive or deleted roles grant nothing.
func (r *RoleRepository) GetPermissionNames(ctx context.Context, roleID string) ([]string, error) {
	query := `
		SELECT p.name
		FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		  AND r.is_active AND NOT r.is_deleted
		  AND p.is_active AND NOT p.is_deleted
		ORDER BY p.name
	`

	rows, err := r.db.Pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query role permissions: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan role permissions: %w", err)
	}
	return names, nil
}

// GetByID returns a live role with its granted permissions
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + roleFrom + `
		WHERE r.id = $1 AND NOT r.is_deleted
		GROUP BY r.id`
	return scanRoleRow(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByName returns a live role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + roleFrom + `
		WHERE r.name = $1 AND NOT r.is_deleted
		GROUP BY r.id`
	return scanRoleRow(r.db.Pool.QueryRow(ctx, query, name))
}

// List returns all live roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	query := `SELECT ` + roleColumns + roleFrom + `
		WHERE NOT r.is_deleted
		GROUP BY r.id
		ORDER BY r.name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*models.Role, 0)
	for rows.Next() {
		role, err := scanRoleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role rows: %w", err)
	}

	return roles, nil
}

// Create inserts a role. A live role with the same name yields ErrConflict.
func (r *RoleRepository) Create(ctx context.Context, name string, description *string) (*models.Role, error) {
	var id string
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`,
		name, description,
	).Scan(&id)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.GetByID(ctx, id)
}

// ReplacePermissions sets the role's grants to exactly the named permissions.
// Unknown permission names fail the whole operation with ErrBadRequest.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, names []string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx,
			`SELECT id FROM roles WHERE id = $1 AND NOT is_deleted FOR UPDATE`, roleID,
		).Scan(&locked)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}

		names = uniqueNames(names)
		if len(names) == 0 {
			return nil
		}

		result, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, p.id FROM permissions p
			WHERE p.name = ANY($2) AND NOT p.is_deleted
		`, roleID, names)
		if err != nil {
			return database.MapPostgresError(err)
		}

		if int(result.RowsAffected()) != len(names) {
			return models.NewBadRequest(fmt.Sprintf("unknown permission in %v", names))
		}

		_, err = tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
		return err
	})
}

// ListPermissions returns the live permission catalogue ordered by name
func (r *RoleRepository) ListPermissions(ctx context.Context) ([]*models.Permission, error) {
	query := `
		SELECT id, name, description, is_active, created_at
		FROM permissions
		WHERE NOT is_deleted
		ORDER BY name
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}

	perms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Permission, error) {
		var p models.Permission
		err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.CreatedAt)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan permissions: %w", err)
	}
	return perms, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
