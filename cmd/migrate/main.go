package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/clinicwise/clinic-backend/internal/config"
	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/migrations"
)

const usage = "usage: migrate up|down|status"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.LoadTooling()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	sqlDB := db.SQLDB()
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch command {
	case "up":
		err = database.Migrate(ctx, sqlDB, migrations.FS)
	case "down":
		err = database.Rollback(ctx, sqlDB, migrations.FS)
	case "status":
		err = database.Status(ctx, sqlDB, migrations.FS)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("migration failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migration finished", slog.String("command", command))
}
