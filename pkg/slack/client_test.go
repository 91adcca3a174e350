package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kart-io/slackhub/pkg/backend"
	"github.com/kart-io/slackhub/pkg/config"
	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
	"github.com/kart-io/slackhub/pkg/telemetry"
)

func newTestClient(t *testing.T, opts ...config.Option) *Client {
	t.Helper()
	cfg, err := config.New(append([]config.Option{
		config.WithTestDefaults(),
		config.WithTemplateDir("testdata"),
	}, opts...)...)
	require.NoError(t, err)

	c, err := New(cfg)
	require.NoError(t, err)

	backend.Default.Reset()
	t.Cleanup(backend.Default.Reset)
	return c
}

func lastText(t *testing.T) string {
	t.Helper()
	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	return msgs[0].Data["text"]
}

func TestSendMessage_Simple(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "test"}))

	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "test", msgs[0].Data["text"])
	assert.Equal(t, config.DefaultEndpointURL, msgs[0].URL)
}

func TestSendMessage_Escaping(t *testing.T) {
	tests := []struct {
		name     string
		template string
		text     string
		want     string
	}{
		{name: "default escapes angle brackets", template: "test.slack", text: "< > &", want: "&lt; &gt; &amp;"},
		{name: "default escapes quotes", template: "test.slack", text: `" '`, want: "&quot; &#39;"},
		{name: "default escapes everything", template: "test.slack", text: `< > & " '`, want: "&lt; &gt; &amp; &quot; &#39;"},
		{name: "escape path escapes angle brackets", template: "escape.slack", text: "< > &", want: "&lt; &gt; &amp;"},
		{name: "escape path keeps quotes", template: "escape.slack", text: `" '`, want: `" '`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			require.NoError(t, c.SendMessage(context.Background(), tt.template, map[string]any{"text": tt.text}))
			assert.Equal(t, tt.want, lastText(t))
		})
	}
}

func TestSendMessage_OnePerCall(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.SendMessage(ctx, "test.slack", map[string]any{"text": "x"}))
	}
	assert.Equal(t, 3, backend.Default.Len())

	backend.Default.Reset()
	assert.Equal(t, 0, backend.Default.Len())
}

func TestSendMessage_Defaults(t *testing.T) {
	c := newTestClient(t,
		config.WithToken("xoxb-1"),
		config.WithChannel("#general"),
		config.WithUsername("bot"),
		config.WithIconURL("https://example.com/i.png"),
		config.WithAsUser(true),
	)

	err := c.SendMessage(context.Background(), "deploy.slack", map[string]any{
		"service": "api",
		"version": "v2",
		"user":    "<ana>",
	})
	require.NoError(t, err)

	want := []backend.Payload{{
		URL: config.DefaultEndpointURL,
		Data: map[string]string{
			"token":      "xoxb-1",
			"channel":    "#deploys",
			"username":   "api-bot",
			"icon_emoji": ":rocket:",
			"icon_url":   "https://example.com/i.png",
			"as_user":    "true",
			"text":       "*api* v2 deployed by &lt;ana&gt;",
		},
	}}
	if diff := cmp.Diff(want, backend.Default.Messages()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestSendMessage_Webhook(t *testing.T) {
	hook := "https://hooks.slack.com/services/T0/B0/X"
	c := newTestClient(t, config.WithEndpointURL(hook), config.WithToken("xoxb-1"))

	require.NoError(t, c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "a < b"}))

	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, hook, msgs[0].URL)
	require.Contains(t, msgs[0].Data, "payload")
	assert.Len(t, msgs[0].Data, 1)

	var inner map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Data["payload"]), &inner))
	assert.Equal(t, map[string]string{"token": "xoxb-1", "text": "a &lt; b"}, inner, "channel defaults are not applied to webhooks")
	assert.Contains(t, msgs[0].Data["payload"], "&lt;", "payload JSON is not HTML-escaped")
}

func TestSendMessage_TemplateEndpoint(t *testing.T) {
	c := newTestClient(t)

	err := c.SendMessage(context.Background(), "webhook.slack", map[string]any{
		"hook": "https://hooks.example.com/in?a=1&b=2",
		"text": `<!here> "deploy"`,
	})
	require.NoError(t, err)

	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "https://hooks.example.com/in?a=1&b=2", msgs[0].URL)
	assert.Equal(t, `{"channel":"#alerts","text":"&lt;!here&gt; \"deploy\""}`, msgs[0].Data["payload"])
}

func TestSendMessage_Options(t *testing.T) {
	c := newTestClient(t, config.WithUsername("bot"))
	attachments := []map[string]any{{"color": "good", "text": "ok"}}
	blocks := []map[string]any{{"type": "divider"}}

	err := c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "hi"},
		WithAttachments(attachments),
		WithBlocks(blocks),
		WithField("thread_ts", "1700000000.000100"),
		WithField("username", ""),
	)
	require.NoError(t, err)

	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	data := msgs[0].Data
	assert.JSONEq(t, `[{"color":"good","text":"ok"}]`, data["attachments"])
	assert.JSONEq(t, `[{"type":"divider"}]`, data["blocks"])
	assert.Equal(t, "1700000000.000100", data["thread_ts"])
	assert.NotContains(t, data, "username", "an empty override removes the field")
}

func TestSendMessage_EndpointOverride(t *testing.T) {
	c := newTestClient(t)

	err := c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "hi"},
		WithField("endpoint_url", "https://hooks.slack.com/services/other"))
	require.NoError(t, err)

	msgs := backend.Default.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "https://hooks.slack.com/services/other", msgs[0].URL)
	assert.Equal(t, `{"text":"hi"}`, msgs[0].Data["payload"])
}

func TestSendMessage_TemplateNotFound(t *testing.T) {
	c := newTestClient(t, config.WithFailSilently(true))

	err := c.SendMessage(context.Background(), "missing.slack", nil)
	require.Error(t, err)
	assert.True(t, errors.IsTemplateNotFound(err), "template errors are never swallowed")
	assert.Zero(t, backend.Default.Len())
}

func TestSendMessage_BackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	cfg, err := config.New(config.WithTestDefaults(), config.WithTemplateDir("testdata"))
	require.NoError(t, err)

	sr := tracetest.NewSpanRecorder()
	tp, err := telemetry.NewWithProviders(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)), noopmetric.NewMeterProvider())
	require.NoError(t, err)

	c, err := New(cfg,
		WithBackend(backend.NewHTTPBackend(cfg.Timeout, nil)),
		WithTelemetry(tp),
	)
	require.NoError(t, err)
	ctx := context.Background()

	err = c.SendMessage(ctx, "test.slack", map[string]any{"text": "x"}, WithField("endpoint_url", server.URL))
	require.Error(t, err)
	assert.Equal(t, errors.ErrBackendSendFailed, errors.GetErrorCode(err))
	assert.ErrorIs(t, err, errors.SendFailed)
	assert.ErrorIs(t, err, errors.New(errors.ErrChannelNotFound, ""), "the Slack error stays in the chain")

	err = c.SendMessage(ctx, "test.slack", map[string]any{"text": "x"},
		WithField("endpoint_url", server.URL), WithFailSilently(true))
	assert.NoError(t, err)

	assert.Equal(t, telemetry.Stats{Failed: 2}, tp.Stats())
	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, telemetry.SpanSend, spans[0].Name())
}

func TestSendMessage_FailSilentlyLogs(t *testing.T) {
	var buf bytes.Buffer
	cfg, err := config.New(
		config.WithTestDefaults(),
		config.WithTemplateDir("testdata"),
		config.WithFailSilently(true),
		config.WithLogger(logger.NewWriter(&buf, logger.Error)),
	)
	require.NoError(t, err)

	c, err := New(cfg, WithBackend(failing{}))
	require.NoError(t, err)

	require.NoError(t, c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "x"}))
	assert.Contains(t, buf.String(), "Failed to send Slack message")

	err = c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "x"}, WithFailSilently(false))
	assert.Equal(t, errors.ErrBackendSendFailed, errors.GetErrorCode(err))
}

func TestSendMessage_Telemetry(t *testing.T) {
	c := newTestClient(t)
	sr := tracetest.NewSpanRecorder()
	tp, err := telemetry.NewWithProviders(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)), noopmetric.NewMeterProvider())
	require.NoError(t, err)
	c.telemetry = tp

	require.NoError(t, c.SendMessage(context.Background(), "test.slack", map[string]any{"text": "x"}))
	_ = c.SendMessage(context.Background(), "missing.slack", nil)

	assert.Equal(t, telemetry.Stats{Sent: 1, Failed: 1}, tp.Stats())
	assert.Len(t, sr.Ended(), 2)
}

func TestBuildPayload(t *testing.T) {
	c := newTestClient(t)

	payload, err := c.BuildPayload(context.Background(), "test.slack", map[string]any{"text": "dry"})
	require.NoError(t, err)
	assert.Equal(t, "dry", payload.Data["text"])
	assert.Zero(t, backend.Default.Len(), "building a payload does not send it")
}

func TestRegisterTemplate(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.RegisterTemplate("inline", "{% block text %}{{ n }} items{% endblock %}"))

	require.NoError(t, c.SendMessage(context.Background(), "inline", map[string]any{"n": 3}))
	assert.Equal(t, "3 items", lastText(t))
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.Equal(t, errors.ErrInvalidConfig, errors.GetErrorCode(err))

	cfg := config.Default()
	cfg.Logger = logger.Discard
	cfg.TemplateDir = "testdata/nope"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	c := newTestClient(t)
	assert.NoError(t, c.Close())
}

type failing struct{}

func (failing) Send(context.Context, string, map[string]string) error {
	return errors.New(errors.ErrInvalidAuth, "slack error: invalid_auth")
}
