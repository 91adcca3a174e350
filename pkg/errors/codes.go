// Package errors provides the coded error type used across slackhub.
package errors

// ErrorCode identifies a class of failure.
type ErrorCode string

// Configuration error codes
const (
	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig ErrorCode = "INVALID_CONFIG"

	// ErrUnknownBackend indicates a backend name nothing is registered for
	ErrUnknownBackend ErrorCode = "UNKNOWN_BACKEND"
)

// Template error codes
const (
	// ErrTemplateNotFound indicates the logical template name is not registered
	ErrTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"

	// ErrTemplateRenderFailed indicates parsing or executing a template failed
	ErrTemplateRenderFailed ErrorCode = "TEMPLATE_RENDER_FAILED"
)

// Delivery error codes
const (
	// ErrBackendSendFailed indicates the backend could not deliver a payload
	ErrBackendSendFailed ErrorCode = "BACKEND_SEND_FAILED"

	// ErrSlackAPI indicates Slack answered with ok=false
	ErrSlackAPI ErrorCode = "SLACK_API_ERROR"

	// ErrChannelNotFound indicates the channel does not exist or is not visible
	ErrChannelNotFound ErrorCode = "CHANNEL_NOT_FOUND"

	// ErrChannelArchived indicates the channel has been archived
	ErrChannelArchived ErrorCode = "CHANNEL_ARCHIVED"

	// ErrInvalidAuth indicates the token was rejected
	ErrInvalidAuth ErrorCode = "INVALID_AUTH"

	// ErrRateLimited indicates Slack throttled the request
	ErrRateLimited ErrorCode = "RATE_LIMITED"

	// ErrQueueFailed indicates the payload could not be queued or dequeued
	ErrQueueFailed ErrorCode = "QUEUE_FAILED"
)

// ErrorCodeInfo describes an error code.
type ErrorCodeInfo struct {
	Code      ErrorCode
	Category  string
	Retryable bool
}

var codeInfo = map[ErrorCode]ErrorCodeInfo{
	ErrInvalidConfig:        {ErrInvalidConfig, "configuration", false},
	ErrUnknownBackend:       {ErrUnknownBackend, "configuration", false},
	ErrTemplateNotFound:     {ErrTemplateNotFound, "template", false},
	ErrTemplateRenderFailed: {ErrTemplateRenderFailed, "template", false},
	ErrBackendSendFailed:    {ErrBackendSendFailed, "delivery", true},
	ErrSlackAPI:             {ErrSlackAPI, "slack", false},
	ErrChannelNotFound:      {ErrChannelNotFound, "slack", false},
	ErrChannelArchived:      {ErrChannelArchived, "slack", false},
	ErrInvalidAuth:          {ErrInvalidAuth, "slack", false},
	ErrRateLimited:          {ErrRateLimited, "slack", true},
	ErrQueueFailed:          {ErrQueueFailed, "delivery", true},
}

// GetErrorCodeInfo returns the description of code. Unknown codes are
// reported in the "unknown" category.
func GetErrorCodeInfo(code ErrorCode) ErrorCodeInfo {
	if info, ok := codeInfo[code]; ok {
		return info
	}
	return ErrorCodeInfo{Code: code, Category: "unknown"}
}

// IsRetryable reports whether failures with code are worth retrying.
func IsRetryable(code ErrorCode) bool {
	return GetErrorCodeInfo(code).Retryable
}

// GetCategory returns the category of an error code.
func GetCategory(code ErrorCode) string {
	return GetErrorCodeInfo(code).Category
}

// FromSlackError maps the "error" field of a Slack Web API reply, or the
// plain-text error body of an incoming webhook, to a code.
func FromSlackError(apiError string) ErrorCode {
	switch apiError {
	case "channel_not_found", "user_not_found", "not_in_channel":
		return ErrChannelNotFound
	case "is_archived", "channel_is_archived":
		return ErrChannelArchived
	case "invalid_auth", "not_authed", "account_inactive", "token_revoked", "no_permission",
		"invalid_token", "no_service", "no_active_hooks":
		return ErrInvalidAuth
	case "rate_limited", "ratelimited":
		return ErrRateLimited
	default:
		return ErrSlackAPI
	}
}
