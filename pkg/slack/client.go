// Package slack renders message templates and hands the resulting payloads
// to a delivery backend.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kart-io/slackhub/pkg/backend"
	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
	"github.com/kart-io/slackhub/pkg/telemetry"
	"github.com/kart-io/slackhub/pkg/template"
)

// Client sends templated Slack messages.
type Client struct {
	cfg       *config.Config
	renderer  *template.Renderer
	backend   backend.Backend
	telemetry *telemetry.Provider
	logger    logger.Logger
}

// New creates a Client from cfg. The renderer, backend and telemetry provider
// are built from cfg unless supplied through opts.
func New(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.NewConfigError("config cannot be nil")
	}

	c := &Client{cfg: cfg, logger: cfg.GetLogger()}
	for _, opt := range opts {
		opt(c)
	}

	if c.renderer == nil {
		resolver, err := template.NewResolver(
			template.WithDir(cfg.TemplateDir),
			template.WithResolverLogger(c.logger),
		)
		if err != nil {
			return nil, err
		}
		c.renderer = template.NewRenderer(resolver)
	}

	if c.backend == nil {
		b, err := backend.New(cfg.Backend, cfg, c.logger)
		if err != nil {
			return nil, err
		}
		c.backend = b
	}

	if c.telemetry == nil {
		p, err := telemetry.New(cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		c.telemetry = p
	}

	c.logger.Debug("Slack client created",
		"backend", cfg.Backend,
		"endpoint", cfg.EndpointURL,
		"templateDir", cfg.TemplateDir)
	return c, nil
}

// Config returns the client's configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Renderer returns the client's renderer.
func (c *Client) Renderer() *template.Renderer {
	return c.renderer
}

// Backend returns the client's delivery backend.
func (c *Client) Backend() backend.Backend {
	return c.backend
}

// Telemetry returns the client's telemetry provider.
func (c *Client) Telemetry() *telemetry.Provider {
	return c.telemetry
}

// RegisterTemplate adds an in-memory template under name.
func (c *Client) RegisterTemplate(name, body string, opts ...template.RegisterOption) error {
	return c.renderer.Resolver().Register(name, body, opts...)
}

// SendMessage renders templateName with data and sends the result through
// the backend. Delivery failures are returned as BACKEND_SEND_FAILED errors,
// or only logged when fail-silently is on. Template errors are always
// returned.
func (c *Client) SendMessage(ctx context.Context, templateName string, data map[string]any, opts ...SendOption) error {
	o := c.sendOptions(opts)
	backendName := c.cfg.Backend
	start := time.Now()

	ctx, span := c.telemetry.StartSend(ctx, templateName, c.cfg.EndpointURL, backendName)

	payload, err := c.buildPayload(ctx, templateName, data, o)
	if err != nil {
		c.telemetry.RecordFailed(ctx, span, backendName, string(errors.GetErrorCode(err)), time.Since(start), err)
		return err
	}

	if err := c.backend.Send(ctx, payload.URL, payload.Data); err != nil {
		wrapped := errors.Wrap(err, errors.ErrBackendSendFailed, "failed to send message").
			WithTemplate(templateName).
			WithEndpoint(payload.URL)
		if code := errors.GetErrorCode(err); code != "" {
			wrapped.WithMetadata("cause_code", string(code))
		}
		c.telemetry.RecordFailed(ctx, span, backendName, string(errors.ErrBackendSendFailed), time.Since(start), err)

		if c.failSilently(o) {
			c.logger.Error("Failed to send Slack message",
				"template", templateName,
				"endpoint", payload.URL,
				"error", err)
			return nil
		}
		return wrapped
	}

	c.telemetry.RecordSent(ctx, span, backendName, time.Since(start))
	c.logger.Debug("Slack message sent", "template", templateName, "endpoint", payload.URL)
	return nil
}

// BuildPayload renders templateName with data and returns what SendMessage
// would hand to the backend, without sending it.
func (c *Client) BuildPayload(ctx context.Context, templateName string, data map[string]any, opts ...SendOption) (backend.Payload, error) {
	return c.buildPayload(ctx, templateName, data, c.sendOptions(opts))
}

// Close releases the backend connection and flushes telemetry.
func (c *Client) Close() error {
	var firstErr error
	if closer, ok := c.backend.(backend.Closer); ok {
		firstErr = closer.Close()
	}
	if err := c.telemetry.Shutdown(context.Background()); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (c *Client) sendOptions(opts []SendOption) *sendOptions {
	o := &sendOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (c *Client) failSilently(o *sendOptions) bool {
	if o.failSilently != nil {
		return *o.failSilently
	}
	return c.cfg.FailSilently
}

func (c *Client) buildPayload(ctx context.Context, templateName string, data map[string]any, o *sendOptions) (backend.Payload, error) {
	fields, err := c.renderer.RenderFields(ctx, templateName, data)
	if err != nil {
		return backend.Payload{}, err
	}

	endpoint := c.cfg.EndpointURL
	if v := fields[template.FieldEndpointURL]; v != "" {
		endpoint = template.UnescapeForDestination(v)
	}
	if v, ok := o.fields[template.FieldEndpointURL]; ok && v != "" {
		endpoint = v
	}

	out := map[string]string{
		template.FieldToken: c.cfg.Token,
	}
	if endpoint == config.DefaultEndpointURL {
		out[template.FieldChannel] = c.cfg.Channel
		out[template.FieldUsername] = c.cfg.Username
		out[template.FieldIconEmoji] = c.cfg.IconEmoji
		out[template.FieldIconURL] = c.cfg.IconURL
		if c.cfg.AsUser {
			out[template.FieldAsUser] = "true"
		}
	}

	for k, v := range fields {
		out[k] = v
	}

	if out[template.FieldAttachments] == "" && o.attachments != nil {
		encoded, err := encodeJSON(o.attachments)
		if err != nil {
			return backend.Payload{}, errors.Wrap(err, errors.ErrTemplateRenderFailed, "encode attachments").WithTemplate(templateName)
		}
		out[template.FieldAttachments] = encoded
	}
	if out[template.FieldBlocks] == "" && o.blocks != nil {
		encoded, err := encodeJSON(o.blocks)
		if err != nil {
			return backend.Payload{}, errors.Wrap(err, errors.ErrTemplateRenderFailed, "encode blocks").WithTemplate(templateName)
		}
		out[template.FieldBlocks] = encoded
	}

	for k, v := range out {
		if v == "" {
			delete(out, k)
		}
	}
	for k, v := range o.fields {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}

	delete(out, template.FieldEndpointURL)

	if endpoint != config.DefaultEndpointURL {
		encoded, err := encodeJSON(out)
		if err != nil {
			return backend.Payload{}, errors.Wrap(err, errors.ErrTemplateRenderFailed, "encode webhook payload").WithTemplate(templateName)
		}
		out = map[string]string{"payload": encoded}
	}

	return backend.Payload{URL: endpoint, Data: out}, nil
}

// encodeJSON marshals v without HTML-escaping, so already escaped text such
// as "&lt;" reaches Slack byte for byte.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
