// Package main provides the incidentdesk server CLI.
package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/incidentdesk/internal/housekeeping"
	"github.com/good-yellow-bee/incidentdesk/internal/session"
	"github.com/good-yellow-bee/incidentdesk/internal/storage"
)

// Config represents the server configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Session      SessionConfig      `yaml:"session"`
	Auth         AuthConfig         `yaml:"auth"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Log          LogConfig          `yaml:"log"`
	Verbose      bool               `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	HTTPAddress    string    `yaml:"http_address" env:"INCIDENTDESK_HTTP_ADDRESS"`
	SecureCookies  bool      `yaml:"secure_cookies" env:"INCIDENTDESK_SECURE_COOKIES"`
	CSRFKey        string    `yaml:"csrf_key" env:"INCIDENTDESK_CSRF_KEY"` // base64, 32 bytes decoded
	TrustedOrigins []string  `yaml:"trusted_origins" env:"INCIDENTDESK_TRUSTED_ORIGINS"`
	TLS            TLSConfig `yaml:"tls"`
}

// TLSConfig contains HTTPS settings.
type TLSConfig struct {
	Enabled      bool   `yaml:"enabled" env:"INCIDENTDESK_TLS_ENABLED"`
	CertFile     string `yaml:"cert_file" env:"INCIDENTDESK_TLS_CERT_FILE"`
	KeyFile      string `yaml:"key_file" env:"INCIDENTDESK_TLS_KEY_FILE"`
	ClientCAFile string `yaml:"client_ca_file" env:"INCIDENTDESK_TLS_CLIENT_CA_FILE"` // optional mTLS
}

// DatabaseConfig selects the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"INCIDENTDESK_DB_DRIVER"` // sqlite or postgres
	Path   string `yaml:"path" env:"INCIDENTDESK_DB_PATH"`
	DSN    string `yaml:"dsn" env:"INCIDENTDESK_DB_DSN"`
}

// SessionConfig selects the session backend.
type SessionConfig struct {
	Mode   string        `yaml:"mode" env:"INCIDENTDESK_SESSION_MODE"` // token or store
	TTL    time.Duration `yaml:"ttl" env:"INCIDENTDESK_SESSION_TTL"`
	Secret string        `yaml:"secret" env:"INCIDENTDESK_SESSION_SECRET"` // token mode signing key
}

// AuthConfig contains login protection settings.
type AuthConfig struct {
	LockoutThreshold   int           `yaml:"lockout_threshold" env:"INCIDENTDESK_LOCKOUT_THRESHOLD"`
	LockoutDuration    time.Duration `yaml:"lockout_duration" env:"INCIDENTDESK_LOCKOUT_DURATION"`
	LoginRatePerIP     int           `yaml:"login_rate_per_ip" env:"INCIDENTDESK_LOGIN_RATE_PER_IP"` // per minute
	RequestRatePerUser int           `yaml:"request_rate_per_user" env:"INCIDENTDESK_REQUEST_RATE_PER_USER"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"INCIDENTDESK_METRICS_ENABLED"`
	Address string `yaml:"address" env:"INCIDENTDESK_METRICS_ADDRESS"`
}

// HousekeepingConfig contains background job schedules.
type HousekeepingConfig struct {
	SessionPurgeSchedule string `yaml:"session_purge_schedule" env:"INCIDENTDESK_SESSION_PURGE_SCHEDULE"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"INCIDENTDESK_LOG_LEVEL"`
	Format string `yaml:"format" env:"INCIDENTDESK_LOG_FORMAT"` // json or console
}

// LoadConfig loads configuration from a YAML file, then applies
// INCIDENTDESK_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// ReadEnv only assigns fields whose variable is set, so YAML values
	// survive when the environment is silent.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = string(storage.DialectSQLite)
	}
	if c.Database.Path == "" && c.Database.Driver == string(storage.DialectSQLite) {
		c.Database.Path = "data/incidentdesk.db"
	}
	if c.Session.Mode == "" {
		c.Session.Mode = sessionModeToken
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = session.DefaultTTL
	}
	if c.Auth.LockoutThreshold == 0 {
		c.Auth.LockoutThreshold = 5
	}
	if c.Auth.LockoutDuration == 0 {
		c.Auth.LockoutDuration = 15 * time.Minute
	}
	if c.Auth.LoginRatePerIP == 0 {
		c.Auth.LoginRatePerIP = 10
	}
	if c.Auth.RequestRatePerUser == 0 {
		c.Auth.RequestRatePerUser = 300
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Housekeeping.SessionPurgeSchedule == "" {
		c.Housekeeping.SessionPurgeSchedule = housekeeping.DefaultSessionPurgeSchedule
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

const (
	sessionModeToken = "token"
	sessionModeStore = "store"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return errors.New("server.http_address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return errors.New("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return errors.New("server.tls.key_file is required when TLS is enabled")
		}
	}
	if c.Server.CSRFKey != "" {
		if _, err := c.CSRFKeyBytes(); err != nil {
			return err
		}
	}

	switch storage.Dialect(c.Database.Driver) {
	case storage.DialectSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case storage.DialectPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Session.Mode {
	case sessionModeToken:
		if len(c.Session.Secret) < 32 {
			return errors.New("session.secret must be at least 32 characters in token mode")
		}
	case sessionModeStore:
	default:
		return fmt.Errorf("session.mode must be token or store, got %q", c.Session.Mode)
	}
	if c.Session.TTL < time.Minute {
		return errors.New("session.ttl must be at least 1m")
	}

	if err := housekeeping.ValidateSchedule(c.Housekeeping.SessionPurgeSchedule); err != nil {
		return fmt.Errorf("housekeeping.session_purge_schedule: %w", err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// CSRFKeyBytes decodes the base64 CSRF key. An empty key returns nil.
func (c *Config) CSRFKeyBytes() ([]byte, error) {
	if c.Server.CSRFKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Server.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("server.csrf_key must be base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("server.csrf_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
