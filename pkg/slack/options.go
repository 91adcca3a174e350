package slack

import (
	"github.com/kart-io/slackhub/pkg/backend"
	"github.com/kart-io/slackhub/pkg/telemetry"
	"github.com/kart-io/slackhub/pkg/template"
)

// ClientOption customizes a Client beyond what config.Config describes.
type ClientOption func(*Client)

// WithBackend replaces the backend selected by cfg.Backend.
func WithBackend(b backend.Backend) ClientOption {
	return func(c *Client) {
		c.backend = b
	}
}

// WithRenderer replaces the renderer built from cfg.TemplateDir.
func WithRenderer(r *template.Renderer) ClientOption {
	return func(c *Client) {
		c.renderer = r
	}
}

// WithTelemetry replaces the telemetry provider built from cfg.Telemetry.
func WithTelemetry(p *telemetry.Provider) ClientOption {
	return func(c *Client) {
		c.telemetry = p
	}
}

// SendOption adjusts a single SendMessage call.
type SendOption func(*sendOptions)

type sendOptions struct {
	attachments  any
	blocks       any
	fields       map[string]string
	failSilently *bool
}

// WithAttachments sends v, JSON-encoded, as the attachments field when the
// template does not render one.
func WithAttachments(v any) SendOption {
	return func(o *sendOptions) {
		o.attachments = v
	}
}

// WithBlocks sends v, JSON-encoded, as the blocks field when the template
// does not render one.
func WithBlocks(v any) SendOption {
	return func(o *sendOptions) {
		o.blocks = v
	}
}

// WithField sets a payload field after rendering and defaults. An empty value
// removes the field.
func WithField(key, value string) SendOption {
	return func(o *sendOptions) {
		if o.fields == nil {
			o.fields = make(map[string]string)
		}
		o.fields[key] = value
	}
}

// WithFailSilently overrides the configured fail-silently behaviour.
func WithFailSilently(enabled bool) SendOption {
	return func(o *sendOptions) {
		o.failSilently = &enabled
	}
}
