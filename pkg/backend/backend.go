// Package backend delivers rendered Slack payloads.
package backend

import (
	"context"
	"fmt"

	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
)

// Backend delivers one rendered payload to url.
type Backend interface {
	Send(ctx context.Context, url string, data map[string]string) error
}

// Payload is a rendered message as handed to a backend.
type Payload struct {
	URL  string            `json:"url"`
	Data map[string]string `json:"data"`
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close() error
}

// New creates the backend named by name. The memory backend is always the
// process-wide Default recorder.
func New(name string, cfg *config.Config, log logger.Logger) (Backend, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("config cannot be nil")
	}
	if log == nil {
		log = logger.Discard
	}

	log.Debug("Creating backend", "backend", name)

	switch name {
	case config.BackendHTTP, "":
		return NewHTTPBackend(cfg.Timeout, log), nil
	case config.BackendMemory:
		return Default, nil
	case config.BackendConsole:
		return NewConsoleBackend(log), nil
	case config.BackendDisabled:
		return DisabledBackend{}, nil
	case config.BackendRedis:
		b, err := NewRedisBackend(cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis backend: %w", err)
		}
		return b, nil
	default:
		return nil, errors.Newf(errors.ErrUnknownBackend, "unknown backend %q", name)
	}
}

// DisabledBackend drops every payload.
type DisabledBackend struct{}

// Send implements Backend.
func (DisabledBackend) Send(context.Context, string, map[string]string) error {
	return nil
}

func copyData(data map[string]string) map[string]string {
	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
