// Package config loads flashplan settings from a TOML file and FLASHPLAN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/matzehuels/flashplan/pkg/catalog"
	"github.com/matzehuels/flashplan/pkg/planner"
	"github.com/matzehuels/flashplan/pkg/session"
	"github.com/matzehuels/flashplan/pkg/size"
)

// EnvConfig names the variable that points at an explicit config file.
const EnvConfig = "FLASHPLAN_CONFIG"

// Config holds application configuration.
type Config struct {
	Device  string       `mapstructure:"device"`
	Catalog string       `mapstructure:"catalog"`
	Layout  LayoutConfig `mapstructure:"layout"`
	Cache   CacheConfig  `mapstructure:"cache"`
	Server  ServerConfig `mapstructure:"server"`
	Log     LogConfig    `mapstructure:"log"`
}

// LayoutConfig holds planner defaults.
type LayoutConfig struct {
	PageSize string `mapstructure:"page_size"`
	PadName  string `mapstructure:"pad_name"`
	Align    bool   `mapstructure:"align"`
	Strict   bool   `mapstructure:"strict"`
}

// CacheConfig holds render cache settings.
type CacheConfig struct {
	Dir     string        `mapstructure:"dir"`
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr        string        `mapstructure:"addr"`
	MaxSessions int           `mapstructure:"max_sessions"`
	IdleTTL     time.Duration `mapstructure:"idle_ttl"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DefaultPath returns ~/.config/flashplan/config.toml, honouring
// XDG_CONFIG_HOME.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, "flashplan", "config.toml")
}

func defaults(v *viper.Viper) {
	v.SetDefault("device", "")
	v.SetDefault("catalog", "")
	v.SetDefault("layout.page_size", "4K")
	v.SetDefault("layout.pad_name", "mcuboot_pad")
	v.SetDefault("layout.align", true)
	v.SetDefault("layout.strict", false)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_sessions", session.DefaultMaxSessions)
	v.SetDefault("server.idle_ttl", session.DefaultIdleTTL.String())
	v.SetDefault("log.level", "info")
}

func newViper() *viper.Viper {
	v := viper.New()
	defaults(v)
	v.SetConfigType("toml")
	v.SetEnvPrefix("FLASHPLAN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Default returns the built-in defaults with environment overrides applied,
// ignoring any config file.
func Default() (Config, error) {
	return decode(newViper())
}

// Load reads configuration. An explicit path, or else FLASHPLAN_CONFIG, must
// exist; the default file is optional. Env var overrides use prefix
// FLASHPLAN_, with dots in keys replaced by underscores.
func Load(path string) (Config, error) {
	v := newViper()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// Save writes cfg to path, creating the directory if needed. An empty path
// means FLASHPLAN_CONFIG or the default location.
func Save(cfg Config, path string) error {
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("device", cfg.Device)
	v.Set("catalog", cfg.Catalog)
	v.Set("layout.page_size", cfg.Layout.PageSize)
	v.Set("layout.pad_name", cfg.Layout.PadName)
	v.Set("layout.align", cfg.Layout.Align)
	v.Set("layout.strict", cfg.Layout.Strict)
	v.Set("cache.dir", cfg.Cache.Dir)
	v.Set("cache.enabled", cfg.Cache.Enabled)
	v.Set("cache.ttl", cfg.Cache.TTL.String())
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.max_sessions", cfg.Server.MaxSessions)
	v.Set("server.idle_ttl", cfg.Server.IdleTTL.String())
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// PlannerOptions converts the layout settings into planner options.
func (c Config) PlannerOptions() []planner.Option {
	var opts []planner.Option
	if c.Layout.PageSize != "" {
		if n := size.Parse(c.Layout.PageSize); n > 0 {
			opts = append(opts, planner.WithPageSize(n))
		}
	}
	if c.Layout.PadName != "" {
		opts = append(opts, planner.WithPadName(c.Layout.PadName))
	}
	if !c.Layout.Align {
		opts = append(opts, planner.WithoutAlignment())
	}
	if c.Layout.Strict {
		opts = append(opts, planner.WithStrictSizes())
	}
	return opts
}

// LoadCatalog returns the builtin catalog, extended by the configured
// catalog file when one is set.
func (c Config) LoadCatalog() (*catalog.Catalog, error) {
	return catalog.Load(c.Catalog)
}
