package config

import (
	"net/url"
	"strings"

	"github.com/kart-io/slackhub/pkg/errors"
)

var backendNames = map[string]bool{
	BackendHTTP:     true,
	BackendMemory:   true,
	BackendConsole:  true,
	BackendDisabled: true,
	BackendRedis:    true,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.EndpointURL == "" {
		return errors.NewConfigError("endpoint_url is required")
	}
	u, err := url.Parse(c.EndpointURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.NewConfigError("endpoint_url must be an absolute http(s) URL, got %q", c.EndpointURL)
	}

	if c.Token != "" {
		if !strings.HasPrefix(c.Token, "xoxb-") && !strings.HasPrefix(c.Token, "xoxp-") {
			return errors.NewConfigError("token must be a bot token (xoxb-) or user token (xoxp-)")
		}
	}

	if c.Channel != "" {
		switch c.Channel[0] {
		case '#', '@', 'C', 'D', 'G':
		default:
			return errors.NewConfigError("channel must start with # (public), @ (user), C (channel ID), D (DM ID) or G (group ID)")
		}
	}

	if !backendNames[c.Backend] {
		return errors.Newf(errors.ErrUnknownBackend, "unknown backend %q", c.Backend)
	}

	if c.Backend == BackendRedis && c.Redis.Addr == "" {
		return errors.NewConfigError("redis.addr is required for the redis backend")
	}

	if c.Timeout < 0 {
		return errors.NewConfigError("timeout cannot be negative")
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return errors.NewConfigError("telemetry.sample_rate must be within [0, 1]")
	}

	return nil
}
