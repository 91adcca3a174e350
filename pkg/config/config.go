// Package config provides the configuration system for slackhub.
package config

import (
	"time"

	"github.com/kart-io/slackhub/pkg/logger"
)

// DefaultEndpointURL is the Slack Web API method messages are posted to when
// no incoming webhook is configured.
const DefaultEndpointURL = "https://slack.com/api/chat.postMessage"

// Backend names understood by backend.New.
const (
	BackendHTTP     = "http"
	BackendMemory   = "memory"
	BackendConsole  = "console"
	BackendDisabled = "disabled"
	BackendRedis    = "redis"
)

// Config represents the slackhub configuration.
type Config struct {
	// Slack defaults, applied when a template does not render the field.
	Token       string `json:"token" yaml:"token"`
	Channel     string `json:"channel" yaml:"channel"`
	Username    string `json:"username" yaml:"username"`
	IconEmoji   string `json:"icon_emoji" yaml:"icon_emoji"`
	IconURL     string `json:"icon_url" yaml:"icon_url"`
	AsUser      bool   `json:"as_user" yaml:"as_user"`
	EndpointURL string `json:"endpoint_url" yaml:"endpoint_url"`

	// Delivery
	Backend      string        `json:"backend" yaml:"backend"`
	FailSilently bool          `json:"fail_silently" yaml:"fail_silently"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`

	// TemplateDir is searched for templates by file name.
	TemplateDir string `json:"template_dir" yaml:"template_dir"`

	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	LogLevel string        `json:"log_level" yaml:"log_level"`
	Logger   logger.Logger `json:"-" yaml:"-"`
}

// RedisConfig configures the redis queue backend.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Key      string `json:"key" yaml:"key"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool              `json:"enabled" yaml:"enabled"`
	ServiceName    string            `json:"service_name" yaml:"service_name"`
	ServiceVersion string            `json:"service_version" yaml:"service_version"`
	Environment    string            `json:"environment" yaml:"environment"`
	OTLPEndpoint   string            `json:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPHeaders    map[string]string `json:"otlp_headers" yaml:"otlp_headers"`
	SampleRate     float64           `json:"sample_rate" yaml:"sample_rate"`
}

// Option defines a functional option for configuration
type Option func(*Config) error

// Default returns a configuration holding only defaults.
func Default() *Config {
	return &Config{
		Channel:     "#general",
		Username:    "bot",
		EndpointURL: DefaultEndpointURL,
		Backend:     BackendHTTP,
		Timeout:     30 * time.Second,
		Redis: RedisConfig{
			Key: "slackhub:messages",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "slackhub",
			ServiceVersion: "0.1.0",
			Environment:    "development",
			OTLPEndpoint:   "localhost:4318",
			SampleRate:     1.0,
		},
		LogLevel: "warn",
	}
}

// New creates a configuration from defaults and the given options, then
// validates it.
func New(opts ...Option) (*Config, error) {
	cfg := Default()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsWebhook reports whether messages go to an incoming webhook rather than
// the Web API.
func (c *Config) IsWebhook() bool {
	return c.EndpointURL != "" && c.EndpointURL != DefaultEndpointURL
}

// GetLogger returns the configured logger, building one from LogLevel when
// none was set.
func (c *Config) GetLogger() logger.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		level = logger.Warn
	}
	return logger.New(level)
}
