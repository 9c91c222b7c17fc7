// Package config loads the CLI configuration from YAML with environment
// overrides for deployment-sensitive values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Cache   CacheConfig   `yaml:"cache"`
	HTTP    HTTPConfig    `yaml:"http"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects the persistence backend. Backend "bolt" uses Path;
// backend "postgres" uses DatabaseURL and encrypts credential rows with
// StorePassword.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	Path          string `yaml:"path"`
	DatabaseURL   string `yaml:"database_url"`
	StorePassword string `yaml:"store_password"`
}

// CacheConfig selects the domain cache backend: "memory" (default) or "redis".
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// HTTPConfig tunes the shared provider HTTP helper.
type HTTPConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the YAML file when path is non-empty, applies defaults and
// environment overrides, and validates the result. A missing path yields a
// default configuration, so the CLI runs without a config file.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "bolt"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = defaultStorePath()
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.HTTP.MaxAttempts == 0 {
		c.HTTP.MaxAttempts = 2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// applyEnv lets deployments override file values without editing the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DNSBRIDGE_DB_URL"); v != "" {
		c.Storage.DatabaseURL = v
		c.Storage.Backend = "postgres"
	}
	if v := os.Getenv("DNSBRIDGE_STORE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("DNSBRIDGE_STORE_PASSWORD"); v != "" {
		c.Storage.StorePassword = v
	}
	if v := os.Getenv("DNSBRIDGE_REDIS_ADDR"); v != "" {
		c.Cache.RedisAddr = v
		c.Cache.Backend = "redis"
	}
	if v := os.Getenv("DNSBRIDGE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cache.RedisDB = n
		}
	}
	if v := os.Getenv("DNSBRIDGE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects combinations the adapters cannot serve.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "bolt":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the bolt backend")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage.database_url is required for the postgres backend")
		}
		if c.Storage.StorePassword == "" {
			return fmt.Errorf("storage.store_password is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "dnsbridge.db"
	}
	return home + "/.dnsbridge/dnsbridge.db"
}
