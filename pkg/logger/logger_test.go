package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextAddsKnownKeys(t *testing.T) {
	var buf bytes.Buffer
	prev := Default()
	SetDefault(New(&buf, "info"))
	t.Cleanup(func() { SetDefault(prev) })

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, ProfileIDKey, "prof-9")
	ctx = context.WithValue(ctx, ServiceKey, "gate")

	InfoContext(ctx, "hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "prof-9", line["profile_id"])
	assert.Equal(t, "gate", line["service"])
	assert.Equal(t, "v", line["k"])
}

func TestDebugIsFilteredAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "")
	l.Debug("quiet")
	assert.Zero(t, buf.Len())

	l = New(&buf, "DEBUG")
	l.Debug("loud")
	assert.Contains(t, buf.String(), "loud")
}
