package logging

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Info("hello %s", "world")
	logger.Warn("careful")
	logger.Error("broken")

	out := buf.String()
	assert.Contains(t, out, "✓ hello world")
	assert.Contains(t, out, "⚠ careful")
	assert.Contains(t, out, "✗ broken")
}

func TestLoggerDebugSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false, true)

	logger.Debug("should not appear")
	assert.Empty(t, buf.String())

	debugLogger := NewWithWriter(&buf, true, true)
	debugLogger.Debug("visible")
	assert.Contains(t, buf.String(), "[DEBUG] visible")
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("arn:aws:iam::123456789012:role/prod-admin")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
}

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		secrets  []string
		expected string
	}{
		{
			name:     "single secret",
			input:    "token=abcd1234 used",
			secrets:  []string{"abcd1234"},
			expected: "token=[REDACTED] used",
		},
		{
			name:     "trivial secrets untouched",
			input:    "key=abc",
			secrets:  []string{"abc"},
			expected: "key=abc",
		},
		{
			name:     "empty secret list",
			input:    "nothing to do",
			secrets:  nil,
			expected: "nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Redact(tt.input, tt.secrets))
		})
	}
}
