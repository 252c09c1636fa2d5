package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paperAccount/internal/ports"
)

var _ ports.Logger = (*ZerologLogger)(nil)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestZerologLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(&buf, LevelInfo, false)
	ctx := context.Background()

	l.Debug(ctx, "hidden")
	l.Info(ctx, "Order submitted", map[string]interface{}{"orderID": "o1", "quantity": "10"})
	l.Error(ctx, errors.New("boom"), "Order failed")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "info", entries[0]["level"])
	assert.Equal(t, "Order submitted", entries[0]["message"])
	assert.Equal(t, "o1", entries[0]["orderID"])
	assert.Contains(t, entries[0], "time")

	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "boom", entries[1]["error"])
}

func TestZerologLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(&buf, LevelDebug, false).With("httpapi")

	l.Warn(context.Background(), "slow request")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "httpapi", entries[0]["component"])
	assert.Equal(t, "warn", entries[0]["level"])
}

func TestZerologLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(&buf, LevelDebug, true)

	l.Debug(context.Background(), "console message", map[string]interface{}{"symbol": "AAPL"})

	out := buf.String()
	assert.Contains(t, out, "console message")
	assert.Contains(t, out, "AAPL")
}

func TestZerologLogger_RequestID(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger(&buf, LevelInfo, false)
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-7")

	l.Info(ctx, "Account created")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-7", entries[0]["requestID"])
}
