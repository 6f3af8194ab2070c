//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/clinicwise/clinic-backend/internal/auth"
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

// TestServer is the full HTTP stack over a real database
type TestServer struct {
	Server      *httptest.Server
	AuthService *services.AuthService
	Limiter     *services.RateLimitService
	Metrics     *metrics.Metrics
}

// NewTestServer wires repositories, services, handlers and the router the way cmd/api does
func NewTestServer(db *database.DB) *TestServer {
	logger := quietLogger()

	userRepo := repositories.NewUserRepository(db)
	roleRepo := repositories.NewRoleRepository(db)
	attemptRepo := repositories.NewLoginAttemptRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)

	tokens := auth.NewTokenManager(auth.TokenConfig{
		Secret:                "integration-secret-32-characters!!",
		AccessExpiry:          15 * time.Minute,
		RefreshExpiry:         7 * 24 * time.Hour,
		RefreshExpiryRemember: 30 * 24 * time.Hour,
	})
	hasher := pkgauth.NewHasher(4)
	auditLogger := pkglogger.NewAuditLogger(logger)
	m := metrics.New(prometheus.NewRegistry())

	limiter := services.NewRateLimitService(attemptRepo, services.RateLimitConfig{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
	}, logger)
	auditService := services.NewAuditService(auditRepo, auditLogger, logger)
	authService := services.NewAuthService(services.AuthServiceDeps{
		Users:       userRepo,
		Limiter:     limiter,
		Audit:       auditService,
		Tokens:      tokens,
		Hasher:      hasher,
		Metrics:     m,
		AuditLogger: auditLogger,
		Logger:      logger,
	})
	authz := services.NewAuthorizationService(userRepo, roleRepo, tokens, nil, m, logger)
	userService := services.NewUserService(userRepo, repositories.NewProfileRepository(db), roleRepo, auditService, hasher, auditLogger, logger)
	roleService := services.NewRoleService(roleRepo, authz, auditLogger, logger)
	categoryService := services.NewCategoryService(repositories.NewCategoryRepository(db), logger)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"127.0.0.0/8"}}
	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, ipConfig, logger),
		Account:    handlers.NewAccountHandler(userService, logger),
		Users:      handlers.NewUserHandler(userService, ipConfig, logger),
		Roles:      handlers.NewRoleHandler(roleService, logger),
		Audit:      handlers.NewAuditHandler(auditService, logger),
		Categories: handlers.NewCategoryHandler(categoryService, logger),
		Health:     handlers.NewHealthHandler(map[string]handlers.HealthCheck{"database": db.HealthCheck}, logger),
	}

	router := routes.NewRouter(h, auth.NewGuard(authz, logger, m.GuardDenied), routes.Options{
		Env:               "test",
		IPConfig:          ipConfig,
		RequestsPerMinute: 10000,
		Metrics:           m,
		Logger:            logger,
	})

	return &TestServer{
		Server:      httptest.NewServer(router),
		AuthService: authService,
		Limiter:     limiter,
		Metrics:     m,
	}
}

// Close shuts down the test server and waits for background notices
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.AuthService.WaitNotifications()
}

// Request sends a JSON request. Requests appear to come from ClientIP through the local proxy.
func (ts *TestServer) Request(method, path string, body any, headers map[string]string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", ClientIP)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return ts.Server.Client().Do(req)
}

// RequestWithAuth sends a request carrying a bearer token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body any) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{"Authorization": "Bearer " + accessToken})
}

// ParseJSONResponse decodes and closes the response body
func ParseJSONResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// Login performs a login and returns the status and decoded result
func (ts *TestServer) Login(username, password string) (int, *services.LoginResult, error) {
	resp, err := ts.Request("POST", "/api/auth/login", map[string]any{"username": username, "password": password}, nil)
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return resp.StatusCode, nil, nil
	}
	var result services.LoginResult
	if err := ParseJSONResponse(resp, &result); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, &result, nil
}
