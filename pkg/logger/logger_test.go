package logger

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewStandardLogger(log.New(&buf, "", 0), Debug, "[test]")

	t.Run("Info", func(t *testing.T) {
		buf.Reset()
		l.Info("info message", "key1", "value1", "key2", 123)
		assert.Contains(t, buf.String(), "[test] [INFO] info message")
		assert.Contains(t, buf.String(), "key1=value1")
		assert.Contains(t, buf.String(), "key2=123")
	})

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		l.Debug("debug message")
		assert.Contains(t, buf.String(), "[DEBUG] debug message")
	})

	t.Run("odd args", func(t *testing.T) {
		buf.Reset()
		l.Warn("warn message", "dangling")
		assert.Contains(t, buf.String(), "dangling=(no value)")
	})
}

func TestStandardLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	warnLogger := NewStandardLogger(log.New(&buf, "", 0), Warn, "[test]")

	warnLogger.Info("info message")
	assert.Zero(t, buf.Len(), "info must not be written at warn level")

	warnLogger.Warn("warn message")
	assert.Contains(t, buf.String(), "[WARN] warn message")

	buf.Reset()
	warnLogger.LogMode(Silent).Error("error message")
	assert.Zero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", Debug},
		{"INFO", Info},
		{" warning ", Warn},
		{"error", Error},
		{"off", Silent},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestDiscard(t *testing.T) {
	assert.Same(t, Discard, Discard.LogMode(Debug))
	Discard.Error("nothing happens")
}
