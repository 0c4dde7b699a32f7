package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "debug"})

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	logger.DebugContext(ctx, "scan resolved", slog.String("code", "BAGO000001"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "req-42", record["request_id"])
	require.Equal(t, "BAGO000001", record["code"])
	require.NotContains(t, record, "trace_id")
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"})

	logger.Info("dropped")
	require.Zero(t, buf.Len())

	logger.Warn("kept")
	require.NotZero(t, buf.Len())
}
