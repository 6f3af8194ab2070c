package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
)

const (
	constraintUsername = "users_username_key"
	constraintEmail    = "users_email_key"
)

const userColumns = `
	u.id, u.username, u.email, u.hashed_password, u.full_name, u.avatar_url,
	u.is_active, u.is_admin, u.role_id, r.name,
	u.created_by, u.updated_by, u.deleted_by,
	u.created_at, u.updated_at, u.deleted_at, u.is_deleted`

const userFrom = `
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id AND NOT r.is_deleted`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// scanUserRow populates a User from a row selected with userColumns
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.FullName, &user.AvatarURL,
		&user.IsActive, &user.IsAdmin, &user.RoleID, &user.RoleName,
		&user.CreatedBy, &user.UpdatedBy, &user.DeletedBy,
		&user.CreatedAt, &user.UpdatedAt, &user.DeletedAt, &user.IsDeleted,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// mapUserWriteError turns unique violations into the user-facing sentinels
func mapUserWriteError(err error) error {
	switch {
	case database.IsUniqueViolation(err, constraintUsername):
		return models.ErrUserExists
	case database.IsUniqueViolation(err, constraintEmail):
		return models.ErrEmailTaken
	default:
		return database.MapPostgresError(err)
	}
}

// GetByID returns a live user. Soft-deleted users are reported as not found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + userFrom + ` WHERE u.id = $1 AND NOT u.is_deleted`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername returns a live user by exact, case-sensitive username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + userFrom + ` WHERE u.username = $1 AND NOT u.is_deleted`
	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

// UsernameExists reports whether any row, deleted or not, holds the username
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return exists, nil
}

// EmailTaken reports whether another live user already uses the email
func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeUserID string) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM users WHERE email = $1 AND NOT is_deleted AND ($2 = '' OR id::text <> $2)
	)`

	var taken bool
	if err := r.pool.QueryRow(ctx, query, email, excludeUserID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

// Create inserts the user and returns the stored row with its role name
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, hashed_password, full_name, avatar_url, is_active, is_admin, role_id, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id
	`

	var id string
	err := r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.FullName, user.AvatarURL,
		user.IsActive, user.IsAdmin, user.RoleID, user.CreatedBy,
	).Scan(&id)
	if err != nil {
		return nil, mapUserWriteError(err)
	}

	return r.GetByID(ctx, id)
}

// UpdateAccount updates the self-service account fields
func (r *UserRepository) UpdateAccount(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		UPDATE users SET email = $1, full_name = $2, avatar_url = $3, updated_by = $4, updated_at = $5
		WHERE id = $6 AND NOT is_deleted
	`

	result, err := r.pool.Exec(ctx, query,
		user.Email, user.FullName, user.AvatarURL, user.UpdatedBy, time.Now(), user.ID,
	)
	if err != nil {
		return nil, mapUserWriteError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	return r.GetByID(ctx, user.ID)
}

// List returns a page of live users and the total matching count
func (r *UserRepository) List(ctx context.Context, filter models.UserListFilter) ([]*models.User, int, error) {
	var where whereClause
	where.addRaw("NOT u.is_deleted")
	if s := strings.TrimSpace(filter.Search); s != "" {
		where.add(`(u.username ILIKE $%[1]d OR u.full_name ILIKE $%[1]d OR u.email ILIKE $%[1]d)`, "%"+escapeLike(s)+"%")
	}
	if filter.RoleID != nil {
		where.add("u.role_id = $%d", *filter.RoleID)
	}
	if filter.IsActive != nil {
		where.add("u.is_active = $%d", *filter.IsActive)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users u ` + where.String()
	if err := r.pool.QueryRow(ctx, countQuery, where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query := `SELECT ` + userColumns + userFrom + ` ` + where.String() +
		` ORDER BY u.created_at DESC ` + where.paging(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}

	users, err := scanUserRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetActive activates or deactivates a live user
func (r *UserRepository) SetActive(ctx context.Context, id string, active bool, actorID string) (*models.User, error) {
	query := `UPDATE users SET is_active = $1, updated_by = $2, updated_at = $3 WHERE id = $4 AND NOT is_deleted`
	return r.updateAndReload(ctx, id, query, active, actorID, time.Now(), id)
}

// SetRole assigns a role, or clears it when roleID is nil
func (r *UserRepository) SetRole(ctx context.Context, id string, roleID *string, actorID string) (*models.User, error) {
	query := `UPDATE users SET role_id = $1, updated_by = $2, updated_at = $3 WHERE id = $4 AND NOT is_deleted`
	return r.updateAndReload(ctx, id, query, roleID, actorID, time.Now(), id)
}

// SoftDelete marks the user deleted and inactive. The row is kept.
func (r *UserRepository) SoftDelete(ctx context.Context, id, actorID string) error {
	query := `
		UPDATE users SET is_deleted = TRUE, is_active = FALSE, deleted_by = $1, deleted_at = $2, updated_at = $2
		WHERE id = $3 AND NOT is_deleted
	`

	result, err := r.pool.Exec(ctx, query, actorID, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) updateAndReload(ctx context.Context, id, query string, args ...any) (*models.User, error) {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}
	return r.GetByID(ctx, id)
}
