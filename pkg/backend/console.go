package backend

import (
	"context"
	"sort"
	"strings"

	"github.com/kart-io/slackhub/pkg/logger"
	"github.com/kart-io/slackhub/pkg/template"
)

// ConsoleBackend logs payloads instead of sending them. Text is unescaped
// for readability.
type ConsoleBackend struct {
	logger logger.Logger
}

// NewConsoleBackend creates a ConsoleBackend writing through log at info
// level, whatever level log was configured with.
func NewConsoleBackend(log logger.Logger) *ConsoleBackend {
	if log == nil {
		return &ConsoleBackend{logger: logger.New(logger.Info)}
	}
	return &ConsoleBackend{logger: log.LogMode(logger.Info)}
}

// Send implements Backend.
func (b *ConsoleBackend) Send(_ context.Context, url string, data map[string]string) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k == "token" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(template.UnescapeForDestination(data[k]))
	}

	b.logger.Info("Slack message", "url", url, "data", sb.String())
	return nil
}
