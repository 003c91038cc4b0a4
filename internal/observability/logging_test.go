package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/zero-day-ai/graphask/internal/config"
	"github.com/zero-day-ai/graphask/internal/types"
)

var (
	mockTraceID = trace.TraceID{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
	mockSpanID  = trace.SpanID{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}
)

func spanContext() context.Context {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    mockTraceID,
		SpanID:     mockSpanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		wantErr bool
	}{
		{name: "json info", cfg: config.LoggingConfig{Level: "info", Format: "json"}},
		{name: "text debug", cfg: config.LoggingConfig{Level: "debug", Format: "text"}},
		{name: "defaults", cfg: config.LoggingConfig{}},
		{name: "bad level", cfg: config.LoggingConfig{Level: "loud", Format: "json"}, wantErr: true},
		{name: "bad format", cfg: config.LoggingConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg, &bytes.Buffer{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ErrInvalidLogging, types.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestTraceHandler_AddsTraceCorrelation(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTraceHandler(NewJSONHandler(buf, slog.LevelInfo)))

	logger.InfoContext(spanContext(), "answered", "run_id", "r-1")

	entry := decodeLine(t, buf)
	assert.Equal(t, mockTraceID.String(), entry["trace_id"])
	assert.Equal(t, mockSpanID.String(), entry["span_id"])
	assert.Equal(t, "r-1", entry["run_id"])
}

func TestTraceHandler_NoSpan(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTraceHandler(NewJSONHandler(buf, slog.LevelInfo)))

	logger.InfoContext(context.Background(), "answered")

	entry := decodeLine(t, buf)
	assert.NotContains(t, entry, "trace_id")
	assert.NotContains(t, entry, "span_id")
}

func TestTraceHandler_Redaction(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		key      string
		redacted bool
	}{
		{name: "api key at info", level: slog.LevelInfo, key: "api_key", redacted: true},
		{name: "camel case key", level: slog.LevelWarn, key: "APIKey", redacted: true},
		{name: "prompt at error", level: slog.LevelError, key: "prompt", redacted: true},
		{name: "password at info", level: slog.LevelInfo, key: "password", redacted: true},
		{name: "prompt at debug", level: slog.LevelDebug, key: "prompt", redacted: false},
		{name: "ordinary key", level: slog.LevelInfo, key: "question", redacted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := slog.New(NewTraceHandler(NewJSONHandler(buf, slog.LevelDebug)))

			logger.Log(context.Background(), tt.level, "msg", tt.key, "s3cret")

			entry := decodeLine(t, buf)
			if tt.redacted {
				assert.Equal(t, "[REDACTED]", entry[tt.key])
			} else {
				assert.Equal(t, "s3cret", entry[tt.key])
			}
		})
	}
}

func TestTraceHandler_WithAttrsRedacts(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTraceHandler(NewJSONHandler(buf, slog.LevelInfo))).
		With("token", "abc", "provider", "openai")

	logger.Info("ready")

	entry := decodeLine(t, buf)
	assert.Equal(t, "[REDACTED]", entry["token"])
	assert.Equal(t, "openai", entry["provider"])
}

func TestTraceHandler_GroupRedaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTraceHandler(NewJSONHandler(buf, slog.LevelInfo)))

	logger.Info("provider", slog.Group("llm", slog.String("api_key", "k"), slog.String("model", "m")))

	entry := decodeLine(t, buf)
	group, ok := entry["llm"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "[REDACTED]", group["api_key"])
	assert.Equal(t, "m", group["model"])
}

func TestTraceHandler_RespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewTraceHandler(NewJSONHandler(buf, slog.LevelWarn)))

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.NotZero(t, buf.Len())
}
