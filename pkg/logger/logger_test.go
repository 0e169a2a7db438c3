package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/storefront-bot/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.With(slog.String("Authorization", "Bearer abc")).Info("registered customer",
		slog.String("email", "user@example.com"),
		slog.Int64("chat_id", 42),
		slog.Group("oauth", slog.String("access_token", "xyz"), slog.Int64("expires", 10)),
	)

	entry := decodeLine(t, &buf)
	assert.Equal(t, maskedValue, entry["Authorization"])
	assert.Equal(t, maskedValue, entry["email"])
	assert.EqualValues(t, 42, entry["chat_id"])

	oauth, ok := entry["oauth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, maskedValue, oauth["access_token"])
	assert.EqualValues(t, 10, oauth["expires"])
}

func TestFanoutHandler(t *testing.T) {
	var infoBuf, errorBuf bytes.Buffer
	handler := NewFanoutHandler(
		slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(handler)

	log.Info("hello")
	assert.NotEmpty(t, infoBuf.String())
	assert.Empty(t, errorBuf.String())

	log.Error("boom")
	assert.Contains(t, errorBuf.String(), "boom")
	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}

	for input, want := range testCases {
		assert.Equal(t, want, ParseLevel(input), input)
	}
}

func TestNew_LevelVar(t *testing.T) {
	log, level := New(config.Config{Logger: config.LoggerConfig{Level: "warn", Format: "text"}})
	require.NotNil(t, log)

	assert.False(t, log.Enabled(context.Background(), slog.LevelInfo))
	level.Set(slog.LevelDebug)
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))

	ctx := WithCorrelationID(context.Background())
	id := CorrelationIDFromContext(ctx)
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, CorrelationIDFromContext(WithCorrelationID(ctx)))
}
