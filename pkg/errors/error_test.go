package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "basic error",
			err:      New(ErrInvalidConfig, "invalid configuration"),
			expected: "INVALID_CONFIG: invalid configuration",
		},
		{
			name:     "error with template",
			err:      NewTemplateNotFound("alert.slack"),
			expected: "TEMPLATE_NOT_FOUND: template not found (template: alert.slack)",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("connection refused"), ErrBackendSendFailed, "post failed"),
			expected: "BACKEND_SEND_FAILED: post failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_IsAndAs(t *testing.T) {
	err := fmt.Errorf("render: %w", NewTemplateNotFound("missing.slack"))

	assert.True(t, errors.Is(err, TemplateNotFound))
	assert.True(t, IsTemplateNotFound(err))
	assert.False(t, errors.Is(err, InvalidConfig))
	assert.Equal(t, ErrTemplateNotFound, GetErrorCode(err))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))

	cause := errors.New("boom")
	wrapped := Wrap(cause, ErrQueueFailed, "rpush")
	assert.ErrorIs(t, wrapped, cause)
}

func TestFromSlackError(t *testing.T) {
	tests := map[string]ErrorCode{
		"channel_not_found":   ErrChannelNotFound,
		"is_archived":         ErrChannelArchived,
		"channel_is_archived": ErrChannelArchived,
		"invalid_auth":        ErrInvalidAuth,
		"invalid_token":       ErrInvalidAuth,
		"ratelimited":         ErrRateLimited,
		"msg_too_long":        ErrSlackAPI,
	}
	for apiErr, want := range tests {
		t.Run(apiErr, func(t *testing.T) {
			assert.Equal(t, want, FromSlackError(apiErr))
		})
	}
}

func TestNewSlackError(t *testing.T) {
	err := NewSlackError("not_in_channel")
	assert.Equal(t, ErrChannelNotFound, err.Code)
	assert.Equal(t, "not_in_channel", err.Metadata["slack_error"])
	assert.Equal(t, "CHANNEL_NOT_FOUND: slack error: not_in_channel", err.Error())

	assert.Equal(t, "unknown_error", NewSlackError("").Metadata["slack_error"])
}

func TestRetryable(t *testing.T) {
	assert.True(t, New(ErrRateLimited, "slow down").IsRetryable())
	assert.False(t, New(ErrTemplateNotFound, "nope").IsRetryable())
	assert.Equal(t, "unknown", GetCategory("SOMETHING_ELSE"))
	assert.Equal(t, "template", GetCategory(ErrTemplateRenderFailed))
}
