package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taleweaver.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "taleweaver-db", cfg.Store.Name)
	assert.Equal(t, "https://story-api.dicoding.dev/v1", cfg.Remote.BaseURL)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: redis
  redis_addr: localhost:6379
  require_photo: true
remote:
  token: abc
  page_size: 5
  timeout: 5s
  retries: 2
server:
  addr: ":9090"
  max_views: 16
log:
  level: debug
locale: id-ID
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.True(t, cfg.Store.RequirePhoto)
	assert.Equal(t, "abc", cfg.Remote.Token)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, uint(2), cfg.Remote.Retries)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 16, cfg.Server.MaxViews)
	assert.Equal(t, int64(8<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 5, cfg.Query().Size)

	level, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	tag, err := cfg.Language()
	require.NoError(t, err)
	base, _ := tag.Base()
	assert.Equal(t, "id", base.String())

	assert.Equal(t, "https://story-api.dicoding.dev/v1", cfg.Remote.BaseURL, "unset keys keep defaults")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  drvier: memory\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drvier")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TALEWEAVER_STORE_DRIVER", "memory")
	t.Setenv("TALEWEAVER_REMOTE_TOKEN", "from-env")
	t.Setenv("TALEWEAVER_REMOTE_TIMEOUT", "2s")
	t.Setenv("TALEWEAVER_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "remote:\n  token: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "from-env", cfg.Remote.Token)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("TALEWEAVER_REMOTE_PAGE_SIZE", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"sqlite without path", func(c *Config) { c.Store.Path = "" }},
		{"redis without addr", func(c *Config) { c.Store.Driver = DriverRedis }},
		{"empty name", func(c *Config) { c.Store.Name = "" }},
		{"zero page size", func(c *Config) { c.Remote.PageSize = 0 }},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }},
		{"zero body cap", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
		{"zero view cap", func(c *Config) { c.Server.MaxViews = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad locale", func(c *Config) { c.Locale = "not a locale!" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestLanguage_Default(t *testing.T) {
	tag, err := Default().Language()
	require.NoError(t, err)
	assert.Equal(t, language.English, tag)
}
