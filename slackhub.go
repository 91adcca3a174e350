// Package slackhub sends Slack messages rendered from Django-syntax templates.
//
// A template defines the message fields as named blocks:
//
//	{% block channel %}#deploys{% endblock %}
//	{% block text %}{{ service }} {{ version }} is live{% endblock %}
//
// Interpolated values are HTML-escaped. Wrap a block body in
// {% escapeslack %}...{% endescapeslack %} to apply Slack's own escaping
// instead, which leaves quotes untouched.
//
// Basic usage:
//
//	if err := slackhub.Configure(config.WithEnv(), config.WithTemplateDir("templates")); err != nil {
//		log.Fatal(err)
//	}
//
//	err := slackhub.SendMessage(ctx, "deploy.slack", map[string]any{
//		"service": "api",
//		"version": "v1.4.0",
//	})
//
// In tests select the memory backend and inspect backend.Default:
//
//	slackhub.Configure(config.WithTestDefaults())
//	defer backend.Default.Reset()
package slackhub

import (
	"context"
	"sync"

	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/slack"
)

var (
	mu            sync.RWMutex
	defaultClient *slack.Client
)

// Configure builds the package-level client from defaults plus opts,
// replacing (and closing) any previous one.
func Configure(opts ...config.Option) error {
	cfg, err := config.New(opts...)
	if err != nil {
		return err
	}
	c, err := slack.New(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	previous := defaultClient
	defaultClient = c
	mu.Unlock()

	if previous != nil {
		cfg.GetLogger().Debug("Replacing slackhub client")
		return previous.Close()
	}
	return nil
}

// Default returns the package-level client. Without a prior Configure call
// it is built from SLACK_* environment variables on first use.
func Default() (*slack.Client, error) {
	mu.RLock()
	c := defaultClient
	mu.RUnlock()
	if c != nil {
		return c, nil
	}

	mu.Lock()
	defer mu.Unlock()
	if defaultClient != nil {
		return defaultClient, nil
	}

	cfg, err := config.New(config.WithEnv())
	if err != nil {
		return nil, err
	}
	c, err = slack.New(cfg)
	if err != nil {
		return nil, err
	}
	defaultClient = c
	return c, nil
}

// SendMessage renders templateName with data and sends it through the
// package-level client.
func SendMessage(ctx context.Context, templateName string, data map[string]any, opts ...slack.SendOption) error {
	c, err := Default()
	if err != nil {
		return err
	}
	return c.SendMessage(ctx, templateName, data, opts...)
}

// Close releases the package-level client. The next call to Default builds a
// fresh one.
func Close() error {
	mu.Lock()
	c := defaultClient
	defaultClient = nil
	mu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close()
}
