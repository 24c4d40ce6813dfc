// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Admin     AdminConfig     `yaml:"admin"`
	Room      RoomConfig      `yaml:"room"`
	Queue     QueueConfig     `yaml:"queue"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Store     StoreConfig     `yaml:"store"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Transport TransportConfig `yaml:"transport"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// AdminConfig represents admin authentication configuration.
type AdminConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// RoomConfig represents listening room configuration.
type RoomConfig struct {
	// Target identifies the transport destination the room streams to
	// (a voice channel ID, an output device, a mount point).
	Target string `yaml:"target" validate:"required"`
}

// QueueConfig represents queue behaviour configuration.
type QueueConfig struct {
	// RetentionWindow is how many ids of history are kept; rows whose id
	// is older than newest-id minus this window are deleted on enqueue.
	RetentionWindow int64 `yaml:"retention_window" default:"100" validate:"gte=1"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	DisconnectGraceMs int `yaml:"disconnect_grace_ms" default:"5000" validate:"gte=0,lte=60000"`
	TickIntervalMs    int `yaml:"tick_interval_ms" default:"1000" validate:"gte=100,lte=10000"`
}

// StoreConfig represents the queue store configuration.
type StoreConfig struct {
	Path string `yaml:"path" default:"roombox.db"`
}

// ResolverConfig represents the song resolver service configuration.
type ResolverConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	APIKey    string `yaml:"api_key"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=60000"`
}

// TransportConfig represents the audio transport configuration.
type TransportConfig struct {
	Type     string         `yaml:"type" default:"exec" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("ADMIN_TOKEN"); v != "" {
		c.Admin.Token = v
	}
	if v := os.Getenv("RESOLVER_API_KEY"); v != "" {
		c.Resolver.APIKey = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}
