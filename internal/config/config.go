package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	devJWTSecret    = "dev-jwt-secret-change-me"
	devCookieSecret = "dev-cookie-secret-change-me-32by"
)

// Config holds the application configuration
type Config struct {
	Environment string
	LogLevel    string
	LogFile     string
	LogRotation LogRotation

	Port            string
	RPSLimit        float64
	RPSBurst        int
	ShutdownTimeout time.Duration
	FrontendURL     string

	// DBConfig is a JSON document understood by database.ProviderFactory
	DBConfig string

	UploadRoot     string
	ArchiveDir     string
	MaxUploadBytes int64

	JWTSecret     string
	JWTExpiration time.Duration
	CookieSecret  string
	CookieSecure  bool
	ResetTokenTTL time.Duration

	ArchiveMaxDepth       int
	ArchiveValidateParent bool
}

type LogRotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads .env files (when present) and then the process environment.
// Missing values fall back to defaults, each fallback is logged.
func Load(logger *zap.Logger, envFiles ...string) *Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env", ".env.local"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			logger.Debug("env file not loaded", zap.String("file", f), zap.Error(err))
		}
	}

	l := loader{logger: logger.Named("config")}

	cfg := &Config{
		Environment: l.getString("ENVIRONMENT", "production"),
		LogLevel:    l.getString("LOG_LEVEL", "info"),
		LogFile:     l.getString("LOG_FILE", ""),
		LogRotation: LogRotation{
			MaxSizeMB:  l.getInt("LOG_MAX_SIZE_MB", 128),
			MaxBackups: l.getInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: l.getInt("LOG_MAX_AGE_DAYS", 16),
		},
		Port: l.getString("PORT", "3000"),
		// 500 requests per 15 minutes
		RPSLimit:        l.getFloat("RPS_LIMIT", 500.0/(15*60)),
		RPSBurst:        l.getInt("RPS_BURST", 500),
		ShutdownTimeout: l.getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		FrontendURL:     l.getString("FRONTEND_URL", "http://localhost:5173"),

		DBConfig: l.getString("DB_CONFIG", `{"db_type":"memory","extra_details":{}}`),

		UploadRoot:     l.getString("UPLOAD_ROOT", "uploads"),
		ArchiveDir:     l.getString("ARCHIVE_DIR", "archives"),
		MaxUploadBytes: int64(l.getInt("MAX_UPLOAD_BYTES", 50<<20)),

		JWTSecret:     l.getSecret("JWT_SECRET", devJWTSecret),
		JWTExpiration: l.getDuration("JWT_EXPIRATION", 24*time.Hour),
		CookieSecret:  l.getSecret("COOKIE_SECRET", devCookieSecret),
		CookieSecure:  l.getBool("COOKIE_SECURE", false),
		ResetTokenTTL: l.getDuration("RESET_TOKEN_TTL", 15*time.Minute),

		ArchiveMaxDepth:       l.getInt("ARCHIVE_MAX_DEPTH", 256),
		ArchiveValidateParent: l.getBool("ARCHIVE_VALIDATE_PARENT", true),
	}

	if cfg.IsProduction() && (cfg.JWTSecret == devJWTSecret || cfg.CookieSecret == devCookieSecret) {
		logger.Warn("running in production with development secrets, set JWT_SECRET and COOKIE_SECRET")
	}

	return cfg
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

type loader struct {
	logger *zap.Logger
}

func (l loader) getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	if def != "" {
		l.logger.Info("using default", zap.String("key", key), zap.String("value", def))
	}
	return def
}

// getSecret is like getString but never logs the value
func (l loader) getSecret(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	l.logger.Warn("secret not set, using development default", zap.String("key", key))
	return def
}

func (l loader) getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.logger.Warn("invalid integer, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", def))
		return def
	}
	return n
}

func (l loader) getFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		l.logger.Warn("invalid float, using default", zap.String("key", key), zap.String("value", v), zap.Float64("default", def))
		return def
	}
	return f
}

func (l loader) getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.logger.Warn("invalid boolean, using default", zap.String("key", key), zap.String("value", v), zap.Bool("default", def))
		return def
	}
	return b
}

func (l loader) getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.logger.Warn("invalid duration, using default", zap.String("key", key), zap.String("value", v), zap.Duration("default", def))
		return def
	}
	return d
}
