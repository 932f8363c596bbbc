// Package config loads server settings from defaults, an optional YAML file,
// a .env file and MINDBRIDGE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/soaringjerry/mindbridge/internal/utils"
)

// Storage backends.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

type StorageConfig struct {
	Backend          string `yaml:"backend"`
	SQLitePath       string `yaml:"sqlite_path"`
	MigrationsDir    string `yaml:"migrations_dir"`
	FirestoreProject string `yaml:"firestore_project"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	// RateLimit is requests per second per client IP on /api/auth/*.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Config holds all server settings.
type Config struct {
	Addr        string        `yaml:"addr"`
	LogLevel    string        `yaml:"log_level"`
	StaticDir   string        `yaml:"static_dir"`
	CORSOrigins []string      `yaml:"cors_origins"`
	Storage     StorageConfig `yaml:"storage"`
	Auth        AuthConfig    `yaml:"auth"`
	Session     SessionConfig `yaml:"session"`

	// Build metadata, env only.
	Commit    string `yaml:"-"`
	BuildTime string `yaml:"-"`
}

// DefaultConfig returns a Config with defaults suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Addr:     ":8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Backend:    BackendMemory,
			SQLitePath: "./data/mindbridge.db",
		},
		Auth: AuthConfig{
			JWTSecret: "devsecret-change-me",
			TokenTTL:  30 * 24 * time.Hour,
			RateLimit: 1,
			RateBurst: 10,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			SweepInterval: 10 * time.Minute,
		},
		Commit:    "dev",
		BuildTime: "",
	}
}

// Load builds the configuration. A missing file at path is not an error;
// an empty path skips the file entirely.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Addr = utils.SafeEnv("MINDBRIDGE_ADDR", c.Addr)
	// PORT is what most container platforms inject
	if p := utils.SafeEnv("PORT", ""); p != "" && os.Getenv("MINDBRIDGE_ADDR") == "" {
		c.Addr = ":" + p
	}
	c.LogLevel = utils.SafeEnv("MINDBRIDGE_LOG_LEVEL", c.LogLevel)
	c.StaticDir = utils.SafeEnv("MINDBRIDGE_STATIC_DIR", c.StaticDir)
	if origins := utils.SafeEnv("MINDBRIDGE_CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}

	c.Storage.Backend = strings.ToLower(utils.SafeEnv("MINDBRIDGE_STORAGE", c.Storage.Backend))
	c.Storage.SQLitePath = utils.SafeEnv("MINDBRIDGE_DB_PATH", c.Storage.SQLitePath)
	c.Storage.MigrationsDir = utils.SafeEnv("MINDBRIDGE_MIGRATIONS_DIR", c.Storage.MigrationsDir)
	c.Storage.FirestoreProject = utils.SafeEnv("MINDBRIDGE_FIRESTORE_PROJECT", utils.SafeEnv("GOOGLE_CLOUD_PROJECT", c.Storage.FirestoreProject))

	c.Auth.JWTSecret = utils.SafeEnv("MINDBRIDGE_JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = utils.EnvDuration("MINDBRIDGE_TOKEN_TTL", c.Auth.TokenTTL)
	c.Auth.RateLimit = utils.EnvFloat("MINDBRIDGE_AUTH_RATE_LIMIT", c.Auth.RateLimit)
	c.Auth.RateBurst = utils.EnvInt("MINDBRIDGE_AUTH_RATE_BURST", c.Auth.RateBurst)

	c.Session.TTL = utils.EnvDuration("MINDBRIDGE_SESSION_TTL", c.Session.TTL)
	c.Session.SweepInterval = utils.EnvDuration("MINDBRIDGE_SESSION_SWEEP", c.Session.SweepInterval)

	c.Commit = utils.SafeEnv("COMMIT", c.Commit)
	c.BuildTime = utils.SafeEnv("BUILD_TIME", c.BuildTime)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for the sqlite backend")
		}
	case BackendFirestore:
		if c.Storage.FirestoreProject == "" {
			return errors.New("storage.firestore_project is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.RateLimit < 0 || c.Auth.RateBurst < 0 {
		return errors.New("auth rate limit must not be negative")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Session.SweepInterval <= 0 {
		return errors.New("session.sweep_interval must be positive")
	}
	return nil
}
