package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Email     EmailConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	URL               string
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	APIPrefix      string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret                  string
	AccessTokenExpiry          time.Duration
	RefreshTokenExpiry         time.Duration
	RefreshTokenExpiryRemember time.Duration
	BcryptCost                 int
	TimingDelayBaseMs          int
	TimingDelayRandomMs        int
}

// RateLimitConfig covers both the per-account lockout and the per-IP request throttle
type RateLimitConfig struct {
	MaxLoginAttempts  int
	LockoutWindow     time.Duration
	CleanupInterval   time.Duration
	RequestsPerMinute int
}

type RedisConfig struct {
	Addr               string
	Password           string
	DB                 int
	TLS                bool
	PermissionCacheTTL time.Duration
}

// Enabled reports whether a Redis address was configured
func (c *RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: loadDatabase(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			APIPrefix:      getEnv("API_PREFIX", "/api"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:                  jwtSecret,
			AccessTokenExpiry:          getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 30*time.Minute),
			RefreshTokenExpiry:         getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			RefreshTokenExpiryRemember: getEnvAsDuration("REFRESH_TOKEN_EXPIRY_REMEMBER", 30*24*time.Hour),
			BcryptCost:                 getEnvAsInt("BCRYPT_COST", 10),
			TimingDelayBaseMs:          getEnvAsInt("TIMING_DELAY_BASE_MS", 0),
			TimingDelayRandomMs:        getEnvAsInt("TIMING_DELAY_RANDOM_MS", 0),
		},
		RateLimit: RateLimitConfig{
			MaxLoginAttempts:  getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutWindow:     getEnvAsDuration("LOCKOUT_WINDOW", 15*time.Minute),
			CleanupInterval:   getEnvAsDuration("ATTEMPT_CLEANUP_INTERVAL", 5*time.Minute),
			RequestsPerMinute: getEnvAsInt("AUTH_REQUESTS_PER_MINUTE", 20),
		},
		Redis: RedisConfig{
			Addr:               getEnv("REDIS_ADDR", ""),
			Password:           getEnv("REDIS_PASSWORD", ""),
			DB:                 getEnvAsInt("REDIS_DB", 0),
			TLS:                getEnvAsBool("REDIS_TLS", false),
			PermissionCacheTTL: getEnvAsDuration("PERMISSION_CACHE_TTL", 5*time.Minute),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if cfg.RateLimit.MaxLoginAttempts < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1")
	}

	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_ENABLED is set")
	}

	return cfg, nil
}

// ToolConfig is what cmd/migrate and cmd/seed need. It does not require JWT_SECRET.
type ToolConfig struct {
	Database   DatabaseConfig
	BcryptCost int
	Admin      AdminConfig
}

// AdminConfig describes the optional bootstrap administrator created by cmd/seed
type AdminConfig struct {
	Username string
	Password string
	Email    string
	FullName string
}

// Enabled reports whether a bootstrap admin was configured
func (c *AdminConfig) Enabled() bool {
	return c.Username != ""
}

// LoadTooling loads the configuration used by the migration and seed commands
func LoadTooling() (*ToolConfig, error) {
	_ = godotenv.Load()

	cfg := &ToolConfig{
		Database:   loadDatabase(),
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
		Admin: AdminConfig{
			Username: strings.TrimSpace(getEnv("ADMIN_USERNAME", "")),
			Password: getEnv("ADMIN_PASSWORD", ""),
			Email:    getEnv("ADMIN_EMAIL", ""),
			FullName: getEnv("ADMIN_FULL_NAME", "System Administrator"),
		},
	}

	if err := cfg.Database.validate(); err != nil {
		return nil, err
	}
	if cfg.Admin.Enabled() && cfg.Admin.Password == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}

	return cfg, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		URL:               normalizeDatabaseURL(getEnv("DATABASE_URL", "")),
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "clinic"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
	}
}

func (c *DatabaseConfig) validate() error {
	if c.URL == "" && c.Password == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASSWORD is required")
	}
	return nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"your-secret-key-here", "secret", "changeme", "password", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// DSN returns DATABASE_URL when set, otherwise a keyword/value string built from the DB_* parts
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// normalizeDatabaseURL rewrites the postgres:// scheme some hosts hand out
func normalizeDatabaseURL(url string) string {
	if strings.HasPrefix(url, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(url, "postgres://")
	}
	return url
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := splitList(getEnv("ALLOWED_ORIGINS", "")); len(origins) > 0 || env == "production" {
		return origins
	}

	// Development: local frontends
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
