package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends understood by the server.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when the
// MySQL storage backend is selected.
type Config struct {
	Env             string        // application environment (dev/test/prod)
	Port            string        // HTTP port to listen on
	Storage         string        // "mysql" or "memory"
	AutoMigrate     bool          // run embedded migrations on startup
	DBUser          string        // database username
	DBPass          string        // database password (optional)
	DBHost          string        // database host address
	DBPort          string        // database port number
	DBName          string        // database name
	JWTSecret       string        // secret used to sign JWTs
	AccessTTLMin    int           // access token time-to-live in minutes
	RefreshTTLDays  int           // refresh token time-to-live in days
	BcryptCost      int           // bcrypt cost for password hashing
	AMQPURL         string        // RabbitMQ URL; empty disables booking events
	AuditConsumer   bool          // run the booking audit consumer in-process
	LogLevel        string        // debug/info/warn/error
	LogFormat       string        // json or console
	ShutdownTimeout time.Duration // grace period for in-flight requests
}

// Load reads an optional .env file and then the process environment.  All
// missing or malformed required variables are reported together.
func Load() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var r reader
	cfg := Config{
		Env:             r.opt("APP_ENV", "dev"),
		Port:            r.must("APP_PORT"),
		Storage:         strings.ToLower(r.opt("STORAGE", StorageMySQL)),
		AutoMigrate:     envBool("DB_AUTO_MIGRATE", true),
		JWTSecret:       r.must("JWT_SECRET"),
		AccessTTLMin:    r.intOr("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:  r.intOr("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:      r.intOr("BCRYPT_COST", 10),
		AMQPURL:         os.Getenv("RABBITMQ_URL"),
		AuditConsumer:   envBool("AUDIT_CONSUMER_ENABLED", false),
		LogLevel:        r.opt("LOG_LEVEL", "info"),
		LogFormat:       os.Getenv("LOG_FORMAT"),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	switch cfg.Storage {
	case StorageMySQL:
		cfg.DBUser = r.must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = r.must("DB_HOST")
		cfg.DBPort = r.must("DB_PORT")
		cfg.DBName = r.must("DB_NAME")
	case StorageMemory:
	default:
		r.errs = append(r.errs, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMySQL, StorageMemory, cfg.Storage))
	}

	if cfg.AccessTTLMin < 1 {
		r.errs = append(r.errs, errors.New("ACCESS_TOKEN_TTL_MIN must be positive"))
	}
	if cfg.RefreshTTLDays < 1 {
		r.errs = append(r.errs, errors.New("REFRESH_TOKEN_TTL_DAYS must be positive"))
	}

	if len(r.errs) > 0 {
		return Config{}, errors.Join(r.errs...)
	}
	return cfg, nil
}

// AccessTTL returns the access token lifetime.
func (c Config) AccessTTL() time.Duration { return time.Duration(c.AccessTTLMin) * time.Minute }

// RefreshTTL returns the refresh token lifetime.
func (c Config) RefreshTTL() time.Duration { return time.Duration(c.RefreshTTLDays) * 24 * time.Hour }

// reader collects errors instead of exiting on the first missing variable.
type reader struct {
	errs []error
}

// must retrieves the value of a required environment variable.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env var: %s", key))
		return ""
	}
	return v
}

func (r *reader) opt(key, def string) string {
	return envStr(key, def)
}

// intOr parses an optional integer; a present but malformed value is an error.
func (r *reader) intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, s))
		return def
	}
	return n
}
