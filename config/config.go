// Package config loads process configuration for an event client from a
// YAML file, overridden by MMATE_EVENTS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "MMATE_EVENTS_"

// Config describes schemas, modifiers and sinks for one event client
type Config struct {
	Schemas   []string    `yaml:"schemas" env:"SCHEMAS" envSeparator:","`
	Modifiers []string    `yaml:"modifiers" env:"MODIFIERS" envSeparator:","`
	AllowPII  bool        `yaml:"allow_pii" env:"ALLOW_PII"`
	LogLevel  string      `yaml:"log_level" env:"LOG_LEVEL"`
	Sinks     SinksConfig `yaml:"sinks" envPrefix:"SINK_"`
}

// SinksConfig selects the sinks a client creates
type SinksConfig struct {
	Stdout bool        `yaml:"stdout" env:"STDOUT"`
	File   string      `yaml:"file" env:"FILE"`
	Buffer int         `yaml:"buffer" env:"BUFFER"`
	AMQP   AMQPConfig  `yaml:"amqp" envPrefix:"AMQP_"`
	Redis  RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

// AMQPConfig configures the RabbitMQ sink; an empty URL disables it
type AMQPConfig struct {
	URL        string `yaml:"url" env:"URL"`
	Exchange   string `yaml:"exchange" env:"EXCHANGE"`
	Persistent bool   `yaml:"persistent" env:"PERSISTENT"`
}

// RedisConfig configures the Redis stream sink; an empty URL disables it
type RedisConfig struct {
	URL    string `yaml:"url" env:"URL"`
	Stream string `yaml:"stream" env:"STREAM"`
	MaxLen int64  `yaml:"max_len" env:"MAX_LEN"`
}

// Default returns a configuration with no sinks
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Sinks: SinksConfig{
			AMQP: AMQPConfig{
				Exchange:   "mmate.events",
				Persistent: true,
			},
			Redis: RedisConfig{
				Stream: "mmate:events",
			},
		},
	}
}

// Load reads path (when not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	var errs []error

	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Sinks.Buffer < 0 {
		errs = append(errs, fmt.Errorf("sinks.buffer must not be negative, got %d", c.Sinks.Buffer))
	}
	if c.Sinks.AMQP.URL != "" && c.Sinks.AMQP.Exchange == "" {
		errs = append(errs, errors.New("sinks.amqp.exchange is required when sinks.amqp.url is set"))
	}
	if c.Sinks.Redis.URL != "" && c.Sinks.Redis.Stream == "" {
		errs = append(errs, errors.New("sinks.redis.stream is required when sinks.redis.url is set"))
	}
	if c.Sinks.Redis.MaxLen < 0 {
		errs = append(errs, fmt.Errorf("sinks.redis.max_len must not be negative, got %d", c.Sinks.Redis.MaxLen))
	}
	for i, path := range c.Schemas {
		if path == "" {
			errs = append(errs, fmt.Errorf("schemas[%d] is empty", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SlogLevel returns the configured log level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// HasSinks reports whether any sink is configured
func (c *Config) HasSinks() bool {
	s := c.Sinks
	return s.Stdout || s.File != "" || s.AMQP.URL != "" || s.Redis.URL != ""
}

func parseLevel(raw string) (slog.Level, error) {
	if raw == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", raw, err)
	}
	return level, nil
}
