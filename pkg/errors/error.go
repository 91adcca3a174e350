package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Error is a slackhub error with structured information.
type Error struct {
	Code     ErrorCode      `json:"code"`
	Message  string         `json:"message"`
	Template string         `json:"template,omitempty"`
	Endpoint string         `json:"endpoint,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Cause     error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Template != "" {
		msg += fmt.Sprintf(" (template: %s)", e.Template)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithCause adds a cause error
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithTemplate records the template name involved
func (e *Error) WithTemplate(name string) *Error {
	e.Template = name
	return e
}

// WithEndpoint records the destination URL involved
func (e *Error) WithEndpoint(url string) *Error {
	e.Endpoint = url
	return e
}

// WithMetadata adds metadata
func (e *Error) WithMetadata(key string, value any) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// IsRetryable returns whether the error is retryable
func (e *Error) IsRetryable() bool {
	return IsRetryable(e.Code)
}

// New creates a new Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error
func Wrap(err error, code ErrorCode, message string) *Error {
	return New(code, message).WithCause(err)
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...any) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// Sentinels for errors.Is checks.
var (
	TemplateNotFound = &Error{Code: ErrTemplateNotFound, Message: "template not found"}
	InvalidConfig    = &Error{Code: ErrInvalidConfig, Message: "invalid configuration"}
	SendFailed       = &Error{Code: ErrBackendSendFailed, Message: "send failed"}
)

// NewTemplateNotFound creates the error returned for an unregistered name.
func NewTemplateNotFound(name string) *Error {
	return New(ErrTemplateNotFound, "template not found").WithTemplate(name)
}

// NewSlackError creates the error for a Slack reply reporting apiError.
func NewSlackError(apiError string) *Error {
	if apiError == "" {
		apiError = "unknown_error"
	}
	return Newf(FromSlackError(apiError), "slack error: %s", apiError).WithMetadata("slack_error", apiError)
}

// NewConfigError creates a configuration error
func NewConfigError(format string, args ...any) *Error {
	return Newf(ErrInvalidConfig, format, args...)
}

// GetErrorCode extracts the code from anywhere in err's chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsTemplateNotFound reports whether err is a TemplateNotFound error.
func IsTemplateNotFound(err error) bool {
	return stderrors.Is(err, TemplateNotFound)
}
