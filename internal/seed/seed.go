// Package seed loads the permission catalogue, built-in roles, an optional
// bootstrap administrator and starter categories. Every statement is
// idempotent so the seeder can run on each deploy.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	pkgauth "github.com/clinicwise/clinic-backend/pkg/auth"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

const (
	insertPermission = `INSERT INTO permissions (name, description)
VALUES ($1, $2)
ON CONFLICT (name) WHERE NOT is_deleted DO NOTHING`

	insertRole = `INSERT INTO roles (name, description)
VALUES ($1, $2)
ON CONFLICT (name) WHERE NOT is_deleted DO NOTHING`

	grantPermissions = `INSERT INTO role_permissions (role_id, permission_id)
SELECT r.id, p.id
FROM roles r
JOIN permissions p ON p.name = ANY($2) AND NOT p.is_deleted
WHERE r.name = $1 AND NOT r.is_deleted
ON CONFLICT DO NOTHING`

	insertAdmin = `INSERT INTO users (username, email, hashed_password, full_name, is_active, is_admin, role_id)
SELECT $1, $2, $3, $4, TRUE, TRUE, r.id
FROM roles r
WHERE r.name = 'admin' AND NOT r.is_deleted
ON CONFLICT (username) DO NOTHING`

	insertCategory = `INSERT INTO categories (name, code, value, description, parent_id)
VALUES ($1, $2, $3, $4, (SELECT id FROM categories WHERE code = $5 AND NOT is_deleted))
ON CONFLICT (code) WHERE NOT is_deleted DO NOTHING`
)

// Admin describes the optional bootstrap administrator
type Admin struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Result counts the rows each step inserted
type Result struct {
	Permissions  int64
	Roles        int64
	Grants       int64
	Categories   int64
	AdminCreated bool
}

// Seeder writes seed data through database/sql
type Seeder struct {
	db     *sql.DB
	hasher *pkgauth.Hasher
	logger *slog.Logger
}

// New creates a seeder
func New(db *sql.DB, hasher *pkgauth.Hasher, logger *slog.Logger) *Seeder {
	return &Seeder{db: db, hasher: hasher, logger: logger}
}

// Run seeds everything in one transaction. admin may be nil.
func (s *Seeder) Run(ctx context.Context, admin *Admin) (res *Result, err error) {
	var adminHash string
	if admin != nil {
		if err := pkgauth.ValidatePassword(admin.Password); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
		if adminHash, err = s.hasher.Hash(admin.Password); err != nil {
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res = &Result{}

	for _, p := range Permissions {
		n, err := exec(ctx, tx, insertPermission, p.Name, p.Description)
		if err != nil {
			return nil, fmt.Errorf("seed permission %s: %w", p.Name, err)
		}
		res.Permissions += n
	}

	for _, r := range Roles {
		n, err := exec(ctx, tx, insertRole, r.Name, r.Description)
		if err != nil {
			return nil, fmt.Errorf("seed role %s: %w", r.Name, err)
		}
		res.Roles += n

		n, err = exec(ctx, tx, grantPermissions, r.Name, pq.Array(r.Permissions))
		if err != nil {
			return nil, fmt.Errorf("grant permissions to %s: %w", r.Name, err)
		}
		res.Grants += n
	}

	if admin != nil {
		n, err := exec(ctx, tx, insertAdmin,
			strings.TrimSpace(admin.Username), nullable(strings.ToLower(strings.TrimSpace(admin.Email))),
			adminHash, nullable(admin.FullName))
		if err != nil {
			return nil, fmt.Errorf("seed admin user: %w", err)
		}
		res.AdminCreated = n > 0
	}

	for _, c := range Categories {
		n, err := exec(ctx, tx, insertCategory,
			c.Name, c.Code, nullable(c.Value), nullable(c.Description), nullable(c.Parent))
		if err != nil {
			return nil, fmt.Errorf("seed category %s: %w", c.Code, err)
		}
		res.Categories += n
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit seed transaction: %w", err)
	}

	attrs := []any{
		slog.Int64("permissions", res.Permissions),
		slog.Int64("roles", res.Roles),
		slog.Int64("grants", res.Grants),
		slog.Int64("categories", res.Categories),
	}
	if admin != nil {
		attrs = append(attrs,
			slog.String("admin", pkglogger.MaskUsername(admin.Username)),
			slog.Bool("admin_created", res.AdminCreated))
	}
	s.logger.InfoContext(ctx, "seed completed", attrs...)
	return res, nil
}

func exec(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
