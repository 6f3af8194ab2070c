package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
)

const categoryColumns = `id, name, code, value, description, parent_id, is_active, is_deleted, created_by, updated_by, created_at, updated_at`

// CategoryRepository handles reference-data categories
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *database.DB) *CategoryRepository {
	return &CategoryRepository{pool: db.Pool}
}

func scanCategoryRow(row rowScanner) (*models.Category, error) {
	var c models.Category
	err := row.Scan(
		&c.ID, &c.Name, &c.Code, &c.Value, &c.Description, &c.ParentID,
		&c.IsActive, &c.IsDeleted, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &c, nil
}

// GetByID returns a live category
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND NOT is_deleted`
	return scanCategoryRow(r.pool.QueryRow(ctx, query, id))
}

// List returns live categories ordered by name, and the total matching count
func (r *CategoryRepository) List(ctx context.Context, filter models.CategoryFilter) ([]*models.Category, int, error) {
	var where whereClause
	where.addRaw("NOT is_deleted")
	if filter.ParentID != nil {
		where.add("parent_id = $%d", *filter.ParentID)
	}
	if filter.Active != nil {
		where.add("is_active = $%d", *filter.Active)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM categories `+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	query := `SELECT ` + categoryColumns + ` FROM categories ` + where.String() +
		` ORDER BY name ` + where.paging(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Category, error) {
		return scanCategoryRow(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan categories: %w", err)
	}
	return categories, total, nil
}

// Create inserts a category. A live category with the same code yields ErrConflict.
func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	query := `
		INSERT INTO categories (name, code, value, description, parent_id, is_active, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING ` + categoryColumns

	return scanCategoryRow(r.pool.QueryRow(ctx, query,
		c.Name, c.Code, c.Value, c.Description, c.ParentID, c.IsActive, c.CreatedBy,
	))
}

// Update overwrites a live category's editable fields
func (r *CategoryRepository) Update(ctx context.Context, c *models.Category) (*models.Category, error) {
	query := `
		UPDATE categories
		SET name = $1, code = $2, value = $3, description = $4, parent_id = $5, is_active = $6,
		    updated_by = $7, updated_at = $8
		WHERE id = $9 AND NOT is_deleted
		RETURNING ` + categoryColumns

	return scanCategoryRow(r.pool.QueryRow(ctx, query,
		c.Name, c.Code, c.Value, c.Description, c.ParentID, c.IsActive, c.UpdatedBy, time.Now(), c.ID,
	))
}

// SoftDelete marks a live category deleted
func (r *CategoryRepository) SoftDelete(ctx context.Context, id, actorID string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE categories SET is_deleted = TRUE, updated_by = $1, updated_at = $2 WHERE id = $3 AND NOT is_deleted`,
		actorID, time.Now(), id,
	)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
