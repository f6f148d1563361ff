package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{
		Level:   InfoLevel,
		Format:  "json",
		Service: "test-service",
		Output:  &buf,
	})

	log.Info("hello", StringField("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "test-service", entry["service"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{
		Level:  WarnLevel,
		Output: &buf,
	})

	log.Debug("debug message")
	log.Info("info message")
	assert.Empty(t, buf.String())

	log.Warn("warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestWithFieldsIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: DebugLevel, Output: &buf})

	derived := base.WithFields(StringField("component", "memory"))

	buf.Reset()
	base.Info("base message")
	assert.NotContains(t, buf.String(), "component")

	buf.Reset()
	derived.Info("derived message")
	assert.Contains(t, buf.String(), "memory")
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, LogField{Key: "s", Value: "v"}, StringField("s", "v"))
	assert.Equal(t, LogField{Key: "i", Value: "42"}, IntField("i", 42))
	assert.Equal(t, LogField{Key: "b", Value: "true"}, BoolField("b", true))
	assert.Equal(t, LogField{Key: "f", Value: "0.5"}, FloatField("f", 0.5))
	assert.Equal(t, LogField{Key: "d", Value: "5s"}, DurationField("d", 5*time.Second))
	assert.Equal(t, LogField{Key: "user_id", Value: "u1"}, UserIDField("u1"))

	assert.Equal(t, LogField{Key: "error", Value: "boom"}, ErrorField(errors.New("boom")))
	assert.Equal(t, LogField{Key: "error", Value: "<nil>"}, ErrorField(nil))
}

func TestCorrelationIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationIDFromContext(ctx))

	ctx, id := EnsureCorrelationID(ctx)
	require.NotEmpty(t, id)
	assert.Equal(t, id, GetCorrelationIDFromContext(ctx))

	// Already-present IDs are reused
	ctx2, id2 := EnsureCorrelationID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}

func TestGetLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: DebugLevel, Output: &buf})

	ctx := WithCorrelationIDContext(context.Background(), "abc-123")
	log := GetLoggerFromContext(ctx, base)

	log.Info("correlated")
	assert.Contains(t, buf.String(), "abc-123")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, InfoLevel, ParseLevel("info"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("bogus"))
}
