package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"lending-library/internal/logging"
)

func Test_New_AttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Level: "info", Format: "json"})
	require.NoError(t, err)
	ctx := logging.WithRequestID(context.Background())

	logger.InfoContext(ctx, "loan created", "loan_id", 7)

	var rec map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "loan created", rec["msg"])
	assert.Equal(t, logging.RequestID(ctx), rec["request_id"])
	_, err = uuid.Parse(rec["request_id"].(string))
	assert.NoError(t, err)
}

func Test_New_AttachesTraceIDsOfRecordingSpan(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Level: "debug", Format: "json"})
	require.NoError(t, err)
	provider := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	ctx, span := provider.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.DebugContext(ctx, "inside span")

	var rec map[string]any
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
	assert.NotContains(t, rec, "request_id")
}

func Test_New_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, logging.Options{Level: "warn"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.With("component", "store").Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "component=store")
}

func Test_New_RejectsUnknownSettings(t *testing.T) {
	_, err := logging.New(&bytes.Buffer{}, logging.Options{Level: "loud"})
	assert.ErrorContains(t, err, "unknown log level")

	_, err = logging.New(&bytes.Buffer{}, logging.Options{Format: "xml"})
	assert.ErrorContains(t, err, "unknown log format")
}

func Test_ParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":      slog.LevelWarn,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func Test_RequestIDsAreDistinct(t *testing.T) {
	a := logging.RequestID(logging.WithRequestID(context.Background()))
	b := logging.RequestID(logging.WithRequestID(context.Background()))
	assert.NotEqual(t, a, b)
	assert.Empty(t, logging.RequestID(context.Background()))
}
