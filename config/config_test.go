package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/vacation-calendar/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "vacations.db", cfg.Store.Path)
	assert.Equal(t, "deepseek-chat", cfg.Oracle.Model)
	assert.Equal(t, 200, cfg.Oracle.MaxTokens)
	assert.Equal(t, 2026, cfg.Oracle.DefaultYear)
	assert.Equal(t, time.Duration(0), cfg.Oracle.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, time.Minute, cfg.Import.WatchInterval)
	assert.Equal(t, "manual_", cfg.Manual.IDPrefix)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	// GIVEN: A config file and an env override for the port
	path := writeConfig(t, `
server:
  port: 8081
  cors:
    allow_origins: ["https://calendar.example.com"]
store:
  path: /var/lib/vacations/db.sqlite
oracle:
  timeout: 20s
import:
  rate: 0.5
  watch_dir: /srv/exports
log:
  format: console
`)
	t.Setenv("VACATIONS_SERVER_PORT", "9090")
	t.Setenv("VACATIONS_ORACLE_DEFAULT_YEAR", "2027")

	// WHEN: Loading
	cfg, err := config.Load(path)

	// THEN: Env beats file, file beats defaults
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://calendar.example.com"}, cfg.Server.CORS.AllowOrigins)
	assert.Equal(t, "/var/lib/vacations/db.sqlite", cfg.Store.Path)
	assert.Equal(t, 2027, cfg.Oracle.DefaultYear)
	assert.Equal(t, 20*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 0.5, cfg.Import.Rate)
	assert.Equal(t, "/srv/exports", cfg.Import.WatchDir)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_APIKeyFallback(t *testing.T) {
	t.Setenv("VACATIONS_ORACLE_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	cfg, err := config.Load("")

	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValue(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 70000\n")

	_, err := config.Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Server: config.ServerConfig{Port: 3000},
			Store:  config.StoreConfig{Path: ":memory:"},
			Oracle: config.OracleConfig{DefaultYear: 2026, MaxTokens: 200},
			Import: config.ImportConfig{Burst: 1},
			Log:    config.LogConfig{Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"year too small", func(c *config.Config) { c.Oracle.DefaultYear = 26 }},
		{"zero max tokens", func(c *config.Config) { c.Oracle.MaxTokens = 0 }},
		{"negative rate", func(c *config.Config) { c.Import.Rate = -1 }},
		{"zero import burst", func(c *config.Config) { c.Import.Burst = 0 }},
		{"webhook without burst", func(c *config.Config) { c.Webhook.Rate = 1 }},
		{"unknown log format", func(c *config.Config) { c.Log.Format = "xml" }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
