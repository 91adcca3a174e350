package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kart-io/slackhub/pkg/errors"
	"github.com/kart-io/slackhub/pkg/logger"
)

const maxResponseBytes = 1 << 20

// HTTPBackend posts payloads as form data, the encoding both chat.postMessage
// and incoming webhooks accept.
type HTTPBackend struct {
	client *http.Client
	logger logger.Logger
}

// apiResponse is the envelope every Web API method answers with.
type apiResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Warning string `json:"warning,omitempty"`
	TS      string `json:"ts,omitempty"`
}

// NewHTTPBackend creates an HTTPBackend with the given request timeout.
func NewHTTPBackend(timeout time.Duration, log logger.Logger) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewHTTPBackendWithClient(&http.Client{Timeout: timeout}, log)
}

// NewHTTPBackendWithClient creates an HTTPBackend over a caller-owned client.
func NewHTTPBackendWithClient(client *http.Client, log logger.Logger) *HTTPBackend {
	if log == nil {
		log = logger.Discard
	}
	return &HTTPBackend{client: client, logger: log}
}

// Send implements Backend. Slack's reply is validated: a Web API reply must
// carry "ok": true and an incoming webhook must answer "ok".
func (b *HTTPBackend) Send(ctx context.Context, endpoint string, data map[string]string) error {
	form := url.Values{}
	for k, v := range data {
		form.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, errors.ErrBackendSendFailed, "failed to create request").WithEndpoint(endpoint)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("Slack request failed", "endpoint", endpoint, "error", err)
		return errors.Wrap(err, errors.ErrBackendSendFailed, "failed to send request").WithEndpoint(endpoint)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.Wrap(err, errors.ErrBackendSendFailed, "failed to read response").WithEndpoint(endpoint)
	}

	b.logger.Debug("Slack responded",
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return checkResponse(resp, body, endpoint)
}

func checkResponse(resp *http.Response, body []byte, endpoint string) error {
	trimmed := bytes.TrimSpace(body)

	if resp.StatusCode == http.StatusTooManyRequests {
		e := errors.New(errors.ErrRateLimited, "slack rate limited the request").WithEndpoint(endpoint)
		if after, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			e.WithMetadata("retry_after", time.Duration(after)*time.Second)
		}
		return e
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Webhooks report errors as a plain-text code with a 4xx status.
		if code := string(trimmed); code != "" && !bytes.HasPrefix(trimmed, []byte("{")) && !strings.ContainsAny(code, " \n<") {
			return errors.NewSlackError(code).WithEndpoint(endpoint).WithMetadata("status", resp.StatusCode)
		}
		var reply apiResponse
		if json.Unmarshal(trimmed, &reply) == nil && reply.Error != "" {
			return errors.NewSlackError(reply.Error).WithEndpoint(endpoint).WithMetadata("status", resp.StatusCode)
		}
		return errors.Newf(errors.ErrBackendSendFailed, "slack returned status %d", resp.StatusCode).
			WithEndpoint(endpoint).
			WithMetadata("status", resp.StatusCode)
	}

	if string(trimmed) == "ok" {
		return nil
	}

	var reply apiResponse
	if err := json.Unmarshal(trimmed, &reply); err != nil {
		// Not an API envelope; a 2xx is all a webhook proxy promises.
		return nil
	}
	if !reply.OK {
		return errors.NewSlackError(reply.Error).WithEndpoint(endpoint)
	}
	return nil
}
