// Package config loads fieldgraph settings from defaults, an optional config
// file, FIELDGRAPH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "FIELDGRAPH"

type Config struct {
	Schema         []string      `mapstructure:"schema"`
	LogLevel       string        `mapstructure:"log_level"`
	LogDevelopment bool          `mapstructure:"log_development"`
	Server         ServerConfig  `mapstructure:"server"`
	OTel           OTelConfig    `mapstructure:"otel"`
	Metrics        MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	Pretty       bool          `mapstructure:"pretty"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	CacheSize    int           `mapstructure:"cache_size"`
	Watch        bool          `mapstructure:"watch"`
}

type OTelConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Service  string `mapstructure:"service"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without defaults are invisible to Unmarshal unless bound
	_ = v.BindEnv("schema")
	_ = v.BindEnv("server.cors_origins")
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.pretty", false)
	v.SetDefault("server.cache_size", 1024)
	v.SetDefault("server.watch", false)
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service", "fieldgraph")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// ReadFile merges the config file at path into v. The format follows the
// file extension (yaml, json, toml).
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if len(c.Schema) == 0 {
		return errors.New("config: at least one schema file is required")
	}
	if c.Server.Addr == "" {
		return errors.New("config: server.addr must not be empty")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("config: server.timeout must not be negative, got %s", c.Server.Timeout)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("config: server.max_body_bytes must not be negative, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("config: server.cache_size must not be negative, got %d", c.Server.CacheSize)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config: metrics.path must start with '/', got %q", c.Metrics.Path)
	}
	return nil
}
