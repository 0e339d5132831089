package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithDefaults(t *testing.T) {
	for _, v := range []string{"APP_NAME", "APP_ENVIRONMENT", "SERVER_PORT", "PORT", "JWT_SECRET", "REDIS_ADDR", "KAFKA_BROKERS"} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "guestvoice", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 12*time.Hour, cfg.JWT.AccessTokenTTL)
	assert.Equal(t, uint64(512), cfg.Monitor.WarnMB)
	assert.Equal(t, uint64(1024), cfg.Monitor.CriticalMB)
	assert.False(t, cfg.Redis.Enabled())
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_WithEnvOverride(t *testing.T) {
	t.Setenv("APP_NAME", "test-app")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("MONITOR_WARN_MB", "100")
	t.Setenv("MONITOR_CRITICAL_MB", "200")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-app", cfg.App.Name)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, uint64(100), cfg.Monitor.WarnMB)
}

func TestLoad_CloudRunPortWins(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_VERSION=9.9.9\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("APP_VERSION") })

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "9.9.9", cfg.App.Version)

	_, err = LoadWithPath(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:      AppConfig{Name: "guestvoice", Environment: "development"},
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{DBName: "guestvoice"},
			JWT:      JWTConfig{Secret: "secret", AccessTokenTTL: time.Hour},
			Monitor:  MonitorConfig{Enabled: true, WarnMB: 10, CriticalMB: 20},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing app name", func(c *Config) { c.App.Name = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"missing db name", func(c *Config) { c.Database.DBName = "" }, true},
		{"memory store needs no db", func(c *Config) { c.Database.DBName = ""; c.Database.UseMemoryStore = true }, false},
		{"empty secret", func(c *Config) { c.JWT.Secret = "" }, true},
		{"default secret in production", func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, true},
		{"zero ttl", func(c *Config) { c.JWT.AccessTokenTTL = 0 }, true},
		{"inverted monitor thresholds", func(c *Config) { c.Monitor.CriticalMB = 5 }, true},
		{"monitor disabled ignores thresholds", func(c *Config) { c.Monitor.Enabled = false; c.Monitor.CriticalMB = 5 }, false},
		{"short bootstrap password", func(c *Config) { c.Bootstrap = BootstrapConfig{AdminEmail: "root@x.io", AdminPassword: "short"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.InstanceConnectionName = "proj:region:inst"
	assert.Equal(t, "host=/cloudsql/proj:region:inst user=u password=p dbname=n sslmode=disable", d.DSN())
}
