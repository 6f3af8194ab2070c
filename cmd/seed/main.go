package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/clinicwise/clinic-backend/internal/config"
	"github.com/clinicwise/clinic-backend/internal/seed"
	pkgauth "github.com/clinicwise/clinic-backend/pkg/auth"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadTooling()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to reach database", slog.Any("error", err))
		os.Exit(1)
	}

	var admin *seed.Admin
	if cfg.Admin.Enabled() {
		admin = &seed.Admin{
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
			Email:    cfg.Admin.Email,
			FullName: cfg.Admin.FullName,
		}
	} else {
		logger.Info("ADMIN_USERNAME not set, skipping bootstrap admin")
	}

	if _, err := seed.New(db, pkgauth.NewHasher(cfg.BcryptCost), logger).Run(ctx, admin); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}
