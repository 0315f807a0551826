package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	l.Info("click recorded", "click_id", "abc")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "click recorded", line["msg"])
	assert.Equal(t, "abc", line["click_id"])
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	l, err := New(Config{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := New(Config{Level: "info", Format: "text", OutputPath: path, MaxSize: 1}, &buf)
	require.NoError(t, err)

	l.Info("to both")
	assert.Contains(t, buf.String(), "to both")
	assert.FileExists(t, path)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.NotNil(t, FromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("scoped")

	assert.Contains(t, buf.String(), "scoped")
}
