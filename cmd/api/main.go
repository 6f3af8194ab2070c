package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/background"
	"github.com/clinicwise/clinic-backend/internal/cache"
	"github.com/clinicwise/clinic-backend/internal/config"
	"github.com/clinicwise/clinic-backend/internal/database"
	"github.com/clinicwise/clinic-backend/internal/handlers"
	"github.com/clinicwise/clinic-backend/internal/metrics"
	"github.com/clinicwise/clinic-backend/internal/repositories"
	"github.com/clinicwise/clinic-backend/internal/routes"
	"github.com/clinicwise/clinic-backend/internal/services"
	pkgauth "github.com/clinicwise/clinic-backend/pkg/auth"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
	pkglogger "github.com/clinicwise/clinic-backend/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	healthChecks := map[string]handlers.HealthCheck{"database": db.HealthCheck}

	// Optional Redis permission cache
	var permissionCache services.PermissionCache
	if cfg.Redis.Enabled() {
		client, err := cache.NewClient(context.Background(), &cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer client.Close()

		permissionCache = cache.NewPermissionCache(client, cfg.Redis.PermissionCacheTTL)
		healthChecks["redis"] = redisCheck(client)
		logger.Info("permission cache enabled", slog.Duration("ttl", cfg.Redis.PermissionCacheTTL))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewWithDefaults()
		if err := m.ObservePool(poolStats(db)); err != nil {
			logger.Error("failed to register pool metrics", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	profileRepo := repositories.NewProfileRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	categoryRepo := repositories.NewCategoryRepository(db)

	// Initialize security primitives
	tokenManager := auth.NewTokenManager(auth.TokenConfig{
		Secret:                cfg.Auth.JWTSecret,
		AccessExpiry:          cfg.Auth.AccessTokenExpiry,
		RefreshExpiry:         cfg.Auth.RefreshTokenExpiry,
		RefreshExpiryRemember: cfg.Auth.RefreshTokenExpiryRemember,
	})
	hasher := pkgauth.NewHasher(cfg.Auth.BcryptCost)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Lockout notices go through SES when enabled
	var notifier services.LockoutNotifier = services.NewLogNotifier(logger)
	if cfg.Email.Enabled {
		ses, err := services.NewSESNotifier(context.Background(), cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize SES notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = ses
	}

	// Initialize services
	rateLimitService := services.NewRateLimitService(attemptRepo, services.RateLimitConfig{
		MaxAttempts: cfg.RateLimit.MaxLoginAttempts,
		Window:      cfg.RateLimit.LockoutWindow,
	}, logger)
	auditService := services.NewAuditService(auditRepo, auditLogger, logger)
	authService := services.NewAuthService(services.AuthServiceDeps{
		Users:       userRepo,
		Limiter:     rateLimitService,
		Audit:       auditService,
		Tokens:      tokenManager,
		Hasher:      hasher,
		Timing:      timingDelay,
		Notifier:    notifier,
		Metrics:     m,
		AuditLogger: auditLogger,
		Logger:      logger,
	})
	authzService := services.NewAuthorizationService(userRepo, roleRepo, tokenManager, permissionCache, m, logger)
	userService := services.NewUserService(userRepo, profileRepo, roleRepo, auditService, hasher, auditLogger, logger)
	roleService := services.NewRoleService(roleRepo, authzService, auditLogger, logger)
	categoryService := services.NewCategoryService(categoryRepo, logger)

	// Initialize handlers
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, ipConfig, logger),
		Account:    handlers.NewAccountHandler(userService, logger),
		Users:      handlers.NewUserHandler(userService, ipConfig, logger),
		Roles:      handlers.NewRoleHandler(roleService, logger),
		Audit:      handlers.NewAuditHandler(auditService, logger),
		Categories: handlers.NewCategoryHandler(categoryService, logger),
		Health:     handlers.NewHealthHandler(healthChecks, logger),
	}

	var denied auth.DenialObserver
	if m != nil {
		denied = m.GuardDenied
	}
	guard := auth.NewGuard(authzService, logger, denied)

	router := routes.NewRouter(h, guard, routes.Options{
		APIPrefix:         cfg.Server.APIPrefix,
		Env:               cfg.Server.Env,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		IPConfig:          ipConfig,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		RequestTimeout:    60 * time.Second,
		Metrics:           m,
		MetricsPath:       cfg.Metrics.Path,
		Logger:            logger,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	var purged background.PurgeObserver
	if m != nil {
		purged = m.AttemptsPurged
	}
	cleanupManager := background.NewCleanupManager(rateLimitService, purged, logger, cfg.RateLimit.CleanupInterval)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Let in-flight lockout notices finish before the pool closes
	authService.WaitNotifications()

	logger.Info("server stopped gracefully")
}

func redisCheck(client *redis.Client) handlers.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

func poolStats(db *database.DB) func() metrics.PoolStats {
	return func() metrics.PoolStats {
		s := db.Stats()
		return metrics.PoolStats{
			Acquired: s.AcquiredConns(),
			Idle:     s.IdleConns(),
			Total:    s.TotalConns(),
			Max:      s.MaxConns(),
		}
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
