// Package config loads wallyscope settings.
//
// Settings are resolved in three layers, each overriding the previous one:
//
//  1. built-in defaults ([Default])
//  2. a TOML file, by default $XDG_CONFIG_HOME/wallyscope/config.toml
//  3. environment variables prefixed with WALLYSCOPE_ (GITHUB_TOKEN is also
//     accepted for the token)
//
// Example file:
//
//	registry = "https://github.com/UpliftGames/wally-index"
//	github_token = "ghp_..."
//
//	[diagnostics]
//	enabled = true
//	concurrency = 8
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/kelseyhightower/envconfig"

	"github.com/matzehuels/wallyscope/pkg/cache"
	"github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/registry"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

const (
	appName = "wallyscope"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "WALLYSCOPE"
)

// Config holds all application configuration.
type Config struct {
	// Registry is queried by the registry commands and API endpoints when
	// no other registry is requested.
	Registry string `toml:"registry" split_words:"true"`

	// GitHubToken authenticates registry reads. Read from
	// WALLYSCOPE_GITHUB_TOKEN or GITHUB_TOKEN.
	GitHubToken string `toml:"github_token" envconfig:"GITHUB_TOKEN"`

	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Log         LogConfig         `toml:"log"`
	Cache       CacheConfig       `toml:"cache"`
	Notify      NotifyConfig      `toml:"notify"`
	Server      ServerConfig      `toml:"server"`
}

// DiagnosticsConfig controls manifest checking.
type DiagnosticsConfig struct {
	Enabled     bool `toml:"enabled"`
	Concurrency int  `toml:"concurrency"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `toml:"level"`
}

// CacheConfig selects where registry content is kept between runs.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr" split_words:"true"`
	RedisPassword string `toml:"redis_password" split_words:"true"`
	RedisDB       int    `toml:"redis_db" split_words:"true"`
}

// NotifyConfig controls registry failure notices.
type NotifyConfig struct {
	Cooldown time.Duration `toml:"cooldown"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	dir, _ := CacheDir()
	return &Config{
		Registry: wally.PublicRegistry,
		Diagnostics: DiagnosticsConfig{
			Enabled:     true,
			Concurrency: 8,
		},
		Log: LogConfig{Level: "info"},
		Cache: CacheConfig{
			Backend:   cache.BackendFile,
			Dir:       dir,
			RedisAddr: "localhost:6379",
		},
		Notify: NotifyConfig{Cooldown: registry.DefaultNotifyCooldown},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
	}
}

// Load resolves the configuration. An empty path reads the default file if
// it exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if err := cfg.readFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if _, err := registry.ParseRepo(c.Registry); err != nil {
		return err
	}
	if c.Diagnostics.Concurrency < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "diagnostics.concurrency must be at least 1, got %d", c.Diagnostics.Concurrency)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case cache.BackendFile, cache.BackendRedis, cache.BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == cache.BackendFile && c.Cache.Dir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache.dir is required for the file backend")
	}
	return nil
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "log.level")
	}
	return lvl, nil
}

// CacheOptions converts the cache section for [cache.Open].
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{
		Dir:           c.Cache.Dir,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/wallyscope/config.toml, falling back
// to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate config: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the cache directory using XDG standard (~/.cache/wallyscope/).
func CacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
