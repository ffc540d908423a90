// Package config loads application configuration from environment
// variables, after reading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env  string // APP_ENV (dev, test, prod)
	Port string // APP_PORT

	DBDriver   string // DB_DRIVER: mysql (default) or sqlite3
	SQLitePath string // SQLITE_PATH, used when DB_DRIVER=sqlite3
	DBUser     string
	DBPass     string // may be empty
	DBHost     string
	DBPort     string
	DBName     string

	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int

	UploadDir          string // UPLOAD_DIR, where report photos are kept
	MaxUploadBytes     int64  // MAX_UPLOAD_BYTES
	RabbitURL          string // RABBITMQ_URL; empty stores notifications directly
	FuelAlertThreshold decimal.Decimal
	MetricsEnabled     bool
}

// Load reads .env (if present) and the environment. All missing or
// malformed required variables are reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	var l loader
	cfg := Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		DBDriver:       strings.ToLower(envStr("DB_DRIVER", "mysql")),
		SQLitePath:     envStr("SQLITE_PATH", "fleet.db"),
		JWTSecret:      l.must("JWT_SECRET"),
		AccessTTLMin:   l.mustInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: l.mustInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     l.mustInt("BCRYPT_COST", 12),
		UploadDir:      envStr("UPLOAD_DIR", "uploads"),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		MetricsEnabled: envBool("METRICS_ENABLED", true),
	}
	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = l.must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = l.must("DB_NAME")
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
	default:
		l.fail("DB_DRIVER must be mysql or sqlite3, got %q", cfg.DBDriver)
	}

	threshold, err := decimal.NewFromString(envStr("FUEL_ALERT_THRESHOLD", "500"))
	if err != nil || threshold.IsNegative() {
		l.fail("invalid decimal for FUEL_ALERT_THRESHOLD")
	}
	cfg.FuelAlertThreshold = threshold
	if cfg.MaxUploadBytes <= 0 {
		l.fail("MAX_UPLOAD_BYTES must be positive")
	}
	return cfg, l.err()
}

// loader collects problems instead of stopping at the first one.
type loader struct {
	problems []string
}

func (l *loader) fail(format string, args ...interface{}) {
	l.problems = append(l.problems, fmt.Sprintf(format, args...))
}

// must retrieves a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.fail("missing required env var: %s", key)
	}
	return v
}

// mustInt reads an optional integer variable; a value that is set but
// does not parse is an error rather than silently replaced by def.
func (l *loader) mustInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail("invalid int for %s: %q", key, s)
	}
	return n
}

func (l *loader) err() error {
	if len(l.problems) == 0 {
		return nil
	}
	return errors.New("config: " + strings.Join(l.problems, "; "))
}
