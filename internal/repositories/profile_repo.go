package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
)

const profileColumns = `id, user_id, phone, address, bio, date_of_birth, gender, preferences, created_at, updated_at`

// ProfileRepository handles user profile rows
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db *database.DB) *ProfileRepository {
	return &ProfileRepository{pool: db.Pool}
}

func scanProfileRow(row rowScanner) (*models.UserProfile, error) {
	var p models.UserProfile
	err := row.Scan(
		&p.ID, &p.UserID, &p.Phone, &p.Address, &p.Bio,
		&p.DateOfBirth, &p.Gender, &p.Preferences, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &p, nil
}

// GetByUserID returns the user's profile or ErrNotFound
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`
	return scanProfileRow(r.pool.QueryRow(ctx, query, userID))
}

// Upsert creates the profile or overwrites its fields
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.UserProfile) (*models.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (user_id, phone, address, bio, date_of_birth, gender, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT user_profiles_user_id_key DO UPDATE
		SET phone = EXCLUDED.phone,
		    address = EXCLUDED.address,
		    bio = EXCLUDED.bio,
		    date_of_birth = EXCLUDED.date_of_birth,
		    gender = EXCLUDED.gender,
		    preferences = EXCLUDED.preferences,
		    updated_at = NOW()
		RETURNING ` + profileColumns

	return scanProfileRow(r.pool.QueryRow(ctx, query,
		p.UserID, p.Phone, p.Address, p.Bio, p.DateOfBirth, p.Gender, p.Preferences,
	))
}
