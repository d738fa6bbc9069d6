package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment variables read on top of the config file.
const (
	EnvDatabasePassword = "BRIDGE_DATABASE_PASSWORD"
	DefaultJWTSecretEnv = "BRIDGE_JWT_SECRET"
)

// Store and ledger drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Nonce failure policies.
const (
	NoncePolicyRollback = "rollback"
	NoncePolicyConsume  = "consume"
)

// Config represents the bridge service configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Bridge     BridgeConfig     `yaml:"bridge"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Auth       AuthConfig       `yaml:"auth"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"30s" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s" validate:"gt=0"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host           string        `yaml:"host" default:"localhost"`
	Port           int           `yaml:"port" default:"5432" validate:"min=1,max=65535"`
	User           string        `yaml:"user" default:"postgres"`
	Password       string        `yaml:"password"`
	Database       string        `yaml:"database" default:"spiral_bridge"`
	SSLMode        string        `yaml:"ssl_mode" default:"disable" validate:"oneof=disable require verify-ca verify-full"`
	MaxOpenConns   int           `yaml:"max_open_conns" default:"10" validate:"min=0"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
}

// BridgeConfig contains the accounting core settings
type BridgeConfig struct {
	Store                string `yaml:"store" default:"memory" validate:"oneof=memory postgres"`
	LocalChainID         uint16 `yaml:"local_chain_id" default:"102" validate:"gt=0"`
	MaxNonces            int    `yaml:"max_nonces" default:"1000" validate:"gt=0"`
	MaxSupplyCeiling     uint64 `yaml:"max_supply_ceiling" default:"1000000000000000000" validate:"gt=0,lte=1000000000000000000"`
	NonceFailurePolicy   string `yaml:"nonce_failure_policy" default:"rollback" validate:"oneof=rollback consume"`
	StrictTrustedRemotes bool   `yaml:"strict_trusted_remotes"`
}

// LedgerConfig selects the Token Ledger Service driver
type LedgerConfig struct {
	Driver string `yaml:"driver" default:"memory" validate:"oneof=memory postgres"`
}

// AuthConfig contains caller authentication settings. The HS256 secret is only
// ever read from the environment variable named by SecretEnv.
type AuthConfig struct {
	Enabled   bool   `yaml:"enabled" default:"true"`
	SecretEnv string `yaml:"secret_env" default:"BRIDGE_JWT_SECRET"`
	Issuer    string `yaml:"issuer" default:"spiral-bridge"`
	Secret    string `yaml:"-" validate:"omitempty,min=32"`
}

// RateLimitConfig contains per-IP request limits
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" default:"true"`
	RequestsPerMinute int  `yaml:"requests_per_minute" default:"120" validate:"gt=0"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse applies defaults, decodes data as YAML over them, applies environment
// overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnv(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Auth.Enabled && cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("config validation failed: %s must be set when auth is enabled", cfg.Auth.SecretEnv)
	}
	if cfg.Bridge.Store != cfg.Ledger.Driver {
		return nil, fmt.Errorf("config validation failed: bridge.store (%s) and ledger.driver (%s) must match", cfg.Bridge.Store, cfg.Ledger.Driver)
	}
	if cfg.UsesPostgres() && cfg.Database.Host == "" {
		return nil, fmt.Errorf("config validation failed: database.host is required for the postgres driver")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if pw, ok := os.LookupEnv(EnvDatabasePassword); ok {
		cfg.Database.Password = pw
	}
	if cfg.Auth.SecretEnv == "" {
		cfg.Auth.SecretEnv = DefaultJWTSecretEnv
	}
	cfg.Auth.Secret = os.Getenv(cfg.Auth.SecretEnv)
}

// UsesPostgres reports whether any component needs a database connection.
func (c *Config) UsesPostgres() bool {
	return c.Bridge.Store == DriverPostgres || c.Ledger.Driver == DriverPostgres
}

// Address returns the host:port the HTTP server listens on.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadDatabase reads only the database section of the config file. The migration
// tool uses it so it does not need the service secrets.
func LoadDatabase(configPath string) (*DatabaseConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg struct {
		Database DatabaseConfig `yaml:"database"`
	}
	if err := defaults.Set(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if pw, ok := os.LookupEnv(EnvDatabasePassword); ok {
		cfg.Database.Password = pw
	}
	if err := validator.New().Struct(&cfg.Database); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg.Database, nil
}
