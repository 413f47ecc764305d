// Package config loads taleweaver settings from a YAML file with
// environment overrides (prefix TALEWEAVER_).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/taleweaver/internal/remote"
	"github.com/roach88/taleweaver/internal/store"
)

// EnvPrefix starts every environment override.
const EnvPrefix = "TALEWEAVER_"

// DefaultLanguage is used for text output when no locale is configured.
var DefaultLanguage = language.English

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is the full configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" envPrefix:"STORE_"`
	Remote RemoteConfig `yaml:"remote" envPrefix:"REMOTE_"`
	Server ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	Log    LogConfig    `yaml:"log" envPrefix:"LOG_"`
	// Locale is a BCP 47 tag used for numbers and dates in text output.
	Locale string `yaml:"locale" env:"LOCALE"`
}

// StoreConfig selects and configures the local story store.
type StoreConfig struct {
	Driver       string `yaml:"driver" env:"DRIVER"`
	Path         string `yaml:"path" env:"PATH"`
	Name         string `yaml:"name" env:"NAME"`
	RedisAddr    string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RequirePhoto bool   `yaml:"require_photo" env:"REQUIRE_PHOTO"`
}

// RemoteConfig configures the story API client.
type RemoteConfig struct {
	BaseURL      string        `yaml:"base_url" env:"BASE_URL"`
	Token        string        `yaml:"token" env:"TOKEN"`
	PageSize     int           `yaml:"page_size" env:"PAGE_SIZE"`
	Location     bool          `yaml:"location" env:"LOCATION"`
	Timeout      time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Retries      uint          `yaml:"retries" env:"RETRIES"`
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF"`
}

// ServerConfig configures the local HTTP surface.
type ServerConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	MaxViews     int    `yaml:"max_views" env:"MAX_VIEWS"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" env:"LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "taleweaver.db",
			Name:   store.DefaultName,
		},
		Remote: RemoteConfig{
			BaseURL:      remote.DefaultBaseURL,
			PageSize:     remote.DefaultQuery.Size,
			Location:     remote.DefaultQuery.WithLocation,
			Timeout:      30 * time.Second,
			RetryBackoff: 500 * time.Millisecond,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8080",
			MaxBodyBytes: 8 << 20,
			MaxViews:     256,
		},
		Log:    LogConfig{Level: "info"},
		Locale: "en",
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML rejects unknown keys so typos are caught.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration for values no component can use.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite, memory or redis)", c.Store.Driver)
	}
	if c.Store.Name == "" {
		return fmt.Errorf("store.name must not be empty")
	}
	if c.Remote.PageSize < 1 {
		return fmt.Errorf("remote.page_size must be positive, got %d", c.Remote.PageSize)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if c.Server.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.MaxViews < 1 {
		return fmt.Errorf("server.max_views must be positive, got %d", c.Server.MaxViews)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if _, err := c.Language(); err != nil {
		return err
	}
	return nil
}

// Query returns the remote feed page the configuration asks for.
func (c Config) Query() remote.Query {
	return remote.Query{Page: 1, Size: c.Remote.PageSize, WithLocation: c.Remote.Location}
}

// Language parses Locale.
func (c Config) Language() (language.Tag, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	return tag, nil
}
