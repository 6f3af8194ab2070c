//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clinicwise/clinic-backend/internal/seed"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration database unavailable: %v\n", err)
		os.Exit(1)
	}
	testDB = db

	code := m.Run()

	if err := testDB.Teardown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to tear down database: %v\n", err)
	}
	os.Exit(code)
}

// resetDatabase empties the tables and reloads the catalogue with the admin account
func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, testDB.CleanupTables(ctx))
	_, err := testDB.SeedCatalogue(ctx, &seed.Admin{
		Username: AdminUsername,
		Password: AdminPassword,
		Email:    "root@clinic.test",
		FullName: "System Administrator",
	})
	require.NoError(t, err)
}
