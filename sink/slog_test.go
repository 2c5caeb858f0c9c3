package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s := NewSlogSink(logger, WithSlogLevel(slog.LevelDebug))

	err := s.Write(context.Background(), Record{Key: clickKey, Body: []byte(`{"x":1}`)})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "event", line["msg"])
	assert.Equal(t, "DEBUG", line["level"])
	assert.Equal(t, "click", line["schemaId"])
	assert.Equal(t, float64(1), line["version"])
	assert.Equal(t, map[string]any{"x": float64(1)}, line["event"])
}
