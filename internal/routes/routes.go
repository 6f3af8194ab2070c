package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/clinicwise/clinic-backend/internal/auth"
	"github.com/clinicwise/clinic-backend/internal/handlers"
	"github.com/clinicwise/clinic-backend/internal/metrics"
	"github.com/clinicwise/clinic-backend/internal/middleware"
	"github.com/clinicwise/clinic-backend/internal/models"
	pkghttp "github.com/clinicwise/clinic-backend/pkg/http"
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth       *handlers.AuthHandler
	Account    *handlers.AccountHandler
	Users      *handlers.UserHandler
	Roles      *handlers.RoleHandler
	Audit      *handlers.AuditHandler
	Categories *handlers.CategoryHandler
	Health     *handlers.HealthHandler
}

// Options carries the cross-cutting router settings
type Options struct {
	APIPrefix      string
	Env            string
	AllowedOrigins []string
	IPConfig       *pkghttp.IPConfig
	// RequestsPerMinute throttles the public auth endpoints per client IP
	RequestsPerMinute int
	RequestTimeout    time.Duration
	// Metrics may be nil, in which case nothing is mounted at MetricsPath
	Metrics     *metrics.Metrics
	MetricsPath string
	Logger      *slog.Logger
}

// NewRouter builds the application router
func NewRouter(h Handlers, guard *auth.Guard, opts Options) http.Handler {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(middleware.SecureLogger(opts.Logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: opts.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.AllowedOrigins)))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Instrument)
	}
	router.Use(chimw.Timeout(opts.RequestTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	if h.Health != nil {
		router.Get("/health", h.Health.Health)
	}
	if opts.Metrics != nil {
		router.Method(http.MethodGet, opts.MetricsPath, opts.Metrics.Handler())
	}

	router.Route(opts.APIPrefix, func(api chi.Router) {
		RegisterRoutes(api, h, guard, opts)
	})

	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, guard *auth.Guard, opts Options) {
	throttle := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestsPerMinute: opts.RequestsPerMinute,
		IPConfig:          opts.IPConfig,
	})

	// Public routes - no authentication required
	router.Route("/auth", func(r chi.Router) {
		r.With(throttle).Post("/login", h.Auth.Login)
		r.With(throttle).Post("/refresh", h.Auth.Refresh)
		r.With(throttle).Post("/register", h.Auth.Register)
		r.Post("/logout", h.Auth.Logout)

		// Current user
		r.Group(func(r chi.Router) {
			r.Use(guard.Authenticate)
			r.Get("/me", h.Account.Me)
			r.Put("/me", h.Account.UpdateMe)
			r.Get("/profile", h.Account.GetProfile)
			r.Put("/profile", h.Account.UpdateProfile)
		})
	})

	router.Route("/admin", func(r chi.Router) {
		r.Use(guard.Authenticate)

		r.With(guard.RequirePermission(models.PermCreateUsers)).Post("/users", h.Users.CreateUser)
		r.With(guard.RequirePermission(models.PermViewUsers)).Get("/users", h.Users.ListUsers)
		r.With(guard.RequirePermission(models.PermViewUsers)).Get("/users/{id}", h.Users.GetUser)
		r.With(guard.RequirePermission(models.PermToggleUserStatus)).Patch("/users/{id}/status", h.Users.UpdateStatus)
		r.With(guard.RequirePermission(models.PermUpdateUsers)).Put("/users/{id}/role", h.Users.AssignRole)
		r.With(guard.RequirePermission(models.PermDeleteUsers)).Delete("/users/{id}", h.Users.DeleteUser)

		r.With(guard.RequirePermission(models.PermViewRoles)).Get("/roles", h.Roles.ListRoles)
		r.With(guard.RequirePermission(models.PermCreateRoles)).Post("/roles", h.Roles.CreateRole)
		r.With(guard.RequirePermission(models.PermUpdateRoles)).Put("/roles/{id}/permissions", h.Roles.SetPermissions)
		r.With(guard.RequirePermission(models.PermViewPermissions)).Get("/permissions", h.Roles.ListPermissions)

		r.With(guard.RequirePermission(models.PermViewReports)).Get("/audit-logs", h.Audit.ListAuditLogs)
	})

	// Reference data: any authenticated user reads, settings admins write
	router.Route("/categories", func(r chi.Router) {
		r.Use(guard.Authenticate)
		r.Get("/", h.Categories.List)
		r.Get("/{id}", h.Categories.Get)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequirePermission(models.PermUpdateSystemSettings))
			r.Post("/", h.Categories.Create)
			r.Put("/{id}", h.Categories.Update)
			r.Delete("/{id}", h.Categories.Delete)
		})
	})
}
