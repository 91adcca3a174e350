package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kart-io/slackhub/pkg/logger"
)

// WithToken sets the Web API token sent with every message
func WithToken(token string) Option {
	return func(cfg *Config) error {
		cfg.Token = token
		return nil
	}
}

// WithChannel sets the default channel
func WithChannel(channel string) Option {
	return func(cfg *Config) error {
		cfg.Channel = channel
		return nil
	}
}

// WithUsername sets the default bot username
func WithUsername(username string) Option {
	return func(cfg *Config) error {
		cfg.Username = username
		return nil
	}
}

// WithIconEmoji sets the default bot icon emoji
func WithIconEmoji(emoji string) Option {
	return func(cfg *Config) error {
		cfg.IconEmoji = emoji
		return nil
	}
}

// WithIconURL sets the default bot icon URL
func WithIconURL(url string) Option {
	return func(cfg *Config) error {
		cfg.IconURL = url
		return nil
	}
}

// WithAsUser posts as the authed user instead of the bot
func WithAsUser(asUser bool) Option {
	return func(cfg *Config) error {
		cfg.AsUser = asUser
		return nil
	}
}

// WithEndpointURL sets the destination. Anything other than
// DefaultEndpointURL is treated as an incoming webhook.
func WithEndpointURL(url string) Option {
	return func(cfg *Config) error {
		cfg.EndpointURL = url
		return nil
	}
}

// WithBackend selects the delivery backend by name
func WithBackend(name string) Option {
	return func(cfg *Config) error {
		cfg.Backend = name
		return nil
	}
}

// WithFailSilently makes delivery errors log instead of return
func WithFailSilently(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.FailSilently = enabled
		return nil
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		cfg.Timeout = timeout
		return nil
	}
}

// WithTemplateDir sets the directory templates are loaded from
func WithTemplateDir(dir string) Option {
	return func(cfg *Config) error {
		cfg.TemplateDir = dir
		return nil
	}
}

// WithRedis configures the redis queue backend and selects it
func WithRedis(addr, password string, db int) Option {
	return func(cfg *Config) error {
		cfg.Backend = BackendRedis
		cfg.Redis.Addr = addr
		cfg.Redis.Password = password
		cfg.Redis.DB = db
		return nil
	}
}

// WithTelemetry enables OTLP export to endpoint
func WithTelemetry(endpoint string) Option {
	return func(cfg *Config) error {
		cfg.Telemetry.Enabled = true
		if endpoint != "" {
			cfg.Telemetry.OTLPEndpoint = endpoint
		}
		return nil
	}
}

// WithLogger sets a custom logger instance
func WithLogger(l logger.Logger) Option {
	return func(cfg *Config) error {
		cfg.Logger = l
		return nil
	}
}

// WithLogLevel sets the level of the default logger
func WithLogLevel(level string) Option {
	return func(cfg *Config) error {
		if _, err := logger.ParseLevel(level); err != nil {
			return err
		}
		cfg.LogLevel = level
		return nil
	}
}

// WithEnv loads SLACK_* environment variables over the current values.
func WithEnv() Option {
	return func(cfg *Config) error {
		str := map[string]*string{
			"SLACK_TOKEN":          &cfg.Token,
			"SLACK_CHANNEL":        &cfg.Channel,
			"SLACK_USERNAME":       &cfg.Username,
			"SLACK_ICON_EMOJI":     &cfg.IconEmoji,
			"SLACK_ICON_URL":       &cfg.IconURL,
			"SLACK_ENDPOINT_URL":   &cfg.EndpointURL,
			"SLACK_BACKEND":        &cfg.Backend,
			"SLACK_TEMPLATE_DIR":   &cfg.TemplateDir,
			"SLACK_REDIS_ADDR":     &cfg.Redis.Addr,
			"SLACK_REDIS_PASSWORD": &cfg.Redis.Password,
			"SLACK_REDIS_KEY":      &cfg.Redis.Key,
			"SLACK_LOG_LEVEL":      &cfg.LogLevel,
		}
		for key, dst := range str {
			if v, ok := os.LookupEnv(key); ok {
				*dst = v
			}
		}

		bools := map[string]*bool{
			"SLACK_AS_USER":       &cfg.AsUser,
			"SLACK_FAIL_SILENTLY": &cfg.FailSilently,
		}
		for key, dst := range bools {
			if v := os.Getenv(key); v != "" {
				b, err := strconv.ParseBool(v)
				if err != nil {
					return fmt.Errorf("invalid %s %q: %w", key, v, err)
				}
				*dst = b
			}
		}

		if v := os.Getenv("SLACK_TIMEOUT"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid SLACK_TIMEOUT %q: %w", v, err)
			}
			cfg.Timeout = d
		}

		if v := os.Getenv("SLACK_REDIS_DB"); v != "" {
			db, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid SLACK_REDIS_DB %q: %w", v, err)
			}
			cfg.Redis.DB = db
		}

		if v := os.Getenv("SLACK_OTLP_ENDPOINT"); v != "" {
			cfg.Telemetry.Enabled = true
			cfg.Telemetry.OTLPEndpoint = v
		}

		return nil
	}
}

// WithDotEnv loads the given .env files (".env" when none) into the process
// environment, then applies WithEnv. Missing files are skipped.
func WithDotEnv(paths ...string) Option {
	return func(cfg *Config) error {
		if len(paths) == 0 {
			paths = []string{".env"}
		}
		for _, p := range paths {
			if err := godotenv.Load(p); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return fmt.Errorf("load %s: %w", p, err)
			}
		}
		return WithEnv()(cfg)
	}
}

// WithFile overlays a YAML configuration file. Keys absent from the file keep
// their current values.
func WithFile(path string) Option {
	return func(cfg *Config) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithTestDefaults provides safe defaults for testing: the in-memory
// recorder and no telemetry.
func WithTestDefaults() Option {
	return func(cfg *Config) error {
		cfg.Backend = BackendMemory
		cfg.Timeout = 5 * time.Second
		cfg.Telemetry.Enabled = false
		cfg.Logger = logger.Discard
		return nil
	}
}
