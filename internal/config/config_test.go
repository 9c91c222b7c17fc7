package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Storage.Path)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 2, cfg.HTTP.MaxAttempts)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: bolt
  path: /var/lib/dnsbridge/store.db
cache:
  backend: memory
  ttl: 5m
http:
  max_attempts: 4
logging:
  level: debug
  format: text
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/dnsbridge/store.db", cfg.Storage.Path)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4, cfg.HTTP.MaxAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DNSBRIDGE_DB_URL", "postgres://localhost/dnsbridge")
	t.Setenv("DNSBRIDGE_STORE_PASSWORD", "s3cret")
	t.Setenv("DNSBRIDGE_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("DNSBRIDGE_REDIS_DB", "3")
	t.Setenv("DNSBRIDGE_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	// Setting the URL switches the backend, same for redis.
	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/dnsbridge", cfg.Storage.DatabaseURL)
	assert.Equal(t, "s3cret", cfg.Storage.StorePassword)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, 3, cfg.Cache.RedisDB)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.setDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "dynamo" }, "unknown storage backend"},
		{"bolt without path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"postgres without url", func(c *Config) { c.Storage.Backend = "postgres" }, "storage.database_url"},
		{"postgres without password", func(c *Config) {
			c.Storage.Backend = "postgres"
			c.Storage.DatabaseURL = "postgres://x"
		}, "storage.store_password"},
		{"redis without addr", func(c *Config) { c.Cache.Backend = "redis" }, "cache.redis_addr"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache backend"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }, "unknown log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
