package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Session   SessionConfig   `yaml:"session"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Logging   LoggingConfig   `yaml:"logging"`
	Redis     RedisConfig     `yaml:"redis"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Readiness ReadinessConfig `yaml:"readiness"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver     string `yaml:"driver"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Name       string `yaml:"name"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	SSLMode    string `yaml:"sslmode"`
	Migrations string `yaml:"migrations"`
	// Path is the database file when Driver is sqlite.
	Path string `yaml:"path"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type SessionConfig struct {
	AutosaveInterval  time.Duration `yaml:"autosave_interval"`
	TickInterval      time.Duration `yaml:"tick_interval"`
	CheckpointTimeout time.Duration `yaml:"checkpoint_timeout"`
	AsyncCheckpoints  bool          `yaml:"async_checkpoints"`
	// Timezone names the IANA zone used for day-based streaks.
	Timezone string `yaml:"timezone"`
}

type CatalogConfig struct {
	Path    string `yaml:"path"`
	CacheMB int    `yaml:"cache_mb"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

type ReadinessConfig struct {
	WeeklyTarget int `yaml:"weekly_target"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Location resolves Session.Timezone, defaulting to UTC.
func (s SessionConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// LoadDotEnv loads variables from a .env file into the process
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix LIVEREPS_ and underscore-separated paths:
//
//	LIVEREPS_SERVER_HOST, LIVEREPS_SERVER_PORT,
//	LIVEREPS_DB_DRIVER, LIVEREPS_DB_HOST, LIVEREPS_DB_PORT, LIVEREPS_DB_NAME,
//	LIVEREPS_DB_USER, LIVEREPS_DB_PASSWORD, LIVEREPS_DB_SSLMODE, LIVEREPS_DB_PATH,
//	LIVEREPS_AUTH_API_KEY,
//	LIVEREPS_TAILSCALE_ENABLED, LIVEREPS_TAILSCALE_HOSTNAME,
//	LIVEREPS_REDIS_ADDR, LIVEREPS_REDIS_PASSWORD,
//	LIVEREPS_TRACING_ENDPOINT, LIVEREPS_LOG_LEVEL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("LIVEREPS_SERVER_HOST", &cfg.Server.Host)
	num("LIVEREPS_SERVER_PORT", &cfg.Server.Port)
	str("LIVEREPS_DB_DRIVER", &cfg.Database.Driver)
	str("LIVEREPS_DB_HOST", &cfg.Database.Host)
	num("LIVEREPS_DB_PORT", &cfg.Database.Port)
	str("LIVEREPS_DB_NAME", &cfg.Database.Name)
	str("LIVEREPS_DB_USER", &cfg.Database.User)
	str("LIVEREPS_DB_PASSWORD", &cfg.Database.Password)
	str("LIVEREPS_DB_SSLMODE", &cfg.Database.SSLMode)
	str("LIVEREPS_DB_PATH", &cfg.Database.Path)
	str("LIVEREPS_AUTH_API_KEY", &cfg.Auth.APIKey)
	flag("LIVEREPS_TAILSCALE_ENABLED", &cfg.Tailscale.Enabled)
	str("LIVEREPS_TAILSCALE_HOSTNAME", &cfg.Tailscale.Hostname)
	str("LIVEREPS_REDIS_ADDR", &cfg.Redis.Addr)
	str("LIVEREPS_REDIS_PASSWORD", &cfg.Redis.Password)
	str("LIVEREPS_TRACING_ENDPOINT", &cfg.Tracing.Endpoint)
	str("LIVEREPS_LOG_LEVEL", &cfg.Logging.Level)
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Migrations == "" {
		c.Database.Migrations = "migrations"
	}
	if c.Session.AutosaveInterval == 0 {
		c.Session.AutosaveInterval = 30 * time.Second
	}
	if c.Session.TickInterval == 0 {
		c.Session.TickInterval = time.Second
	}
	if c.Session.CheckpointTimeout == 0 {
		c.Session.CheckpointTimeout = 5 * time.Second
	}
	if c.Catalog.CacheMB == 0 {
		c.Catalog.CacheMB = 8
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "livereps"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "livereps"
	}
	if c.Readiness.WeeklyTarget == 0 {
		c.Readiness.WeeklyTarget = 3
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Session.TickInterval < 0 || c.Session.AutosaveInterval < 0 {
		return fmt.Errorf("session intervals must be positive")
	}
	if c.Session.TickInterval > c.Session.AutosaveInterval {
		return fmt.Errorf("session.tick_interval (%s) must not exceed session.autosave_interval (%s)",
			c.Session.TickInterval, c.Session.AutosaveInterval)
	}
	if _, err := c.Session.Location(); err != nil {
		return fmt.Errorf("session.timezone: %w", err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}
	return nil
}
