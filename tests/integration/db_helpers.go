//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/models"
	"github.com/clinicwise/clinic-backend/internal/repositories"
	"github.com/clinicwise/clinic-backend/internal/seed"
	"github.com/clinicwise/clinic-backend/migrations"
	"github.com/clinicwise/clinic-backend/pkg/auth"
)

// TestDB manages the PostgreSQL testcontainer and the migrated database
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	DB         *database.DB
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDatabase creates a PostgreSQL testcontainer and applies the migrations
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("clinic"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := database.NewFromPool(pool, quietLogger())

	sqlDB := db.SQLDB()
	defer sqlDB.Close()
	if err := database.Migrate(ctx, sqlDB, migrations.FS); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{Container: container, ConnString: connStr, DB: db}, nil
}

// Teardown closes the pool and removes the container
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.DB != nil {
		db.DB.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables empties every table between tests
func (db *TestDB) CleanupTables(ctx context.Context) error {
	_, err := db.DB.Pool.Exec(ctx, `
		TRUNCATE auth_audit_log, failed_login_attempts, user_profiles, categories,
		         users, role_permissions, permissions, roles
		CASCADE
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// SeedCatalogue loads permissions, roles and starter categories, plus the admin when given
func (db *TestDB) SeedCatalogue(ctx context.Context, admin *seed.Admin) (*seed.Result, error) {
	sqlDB := db.DB.SQLDB()
	defer sqlDB.Close()
	return seed.New(sqlDB, auth.NewHasher(4), quietLogger()).Run(ctx, admin)
}

// SeedUser inserts an active user holding the named role; an empty role leaves it unassigned
func (db *TestDB) SeedUser(ctx context.Context, username, password, roleName string) (*models.User, error) {
	digest, err := auth.NewHasher(4).Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: digest, IsActive: true}
	if roleName != "" {
		role, err := repositories.NewRoleRepository(db.DB).GetByName(ctx, roleName)
		if err != nil {
			return nil, fmt.Errorf("failed to find role %s: %w", roleName, err)
		}
		user.RoleID = &role.ID
	}

	return repositories.NewUserRepository(db.DB).Create(ctx, user)
}
