package audit

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent("exec-1", PhaseEnter, "anthropic")

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "exec-1", event.ExecutionID)
	assert.Equal(t, PhaseEnter, event.Phase)
	assert.Equal(t, "anthropic", event.Target)
	assert.False(t, event.At.IsZero())

	other := NewEvent("exec-1", PhaseEnter, "anthropic")
	assert.NotEqual(t, event.ID, other.ID)
}

func TestSlogSink(t *testing.T) {
	t.Run("writes events to the logger", func(t *testing.T) {
		var buf bytes.Buffer
		sink := NewSlogSink(slog.New(slog.NewTextHandler(&buf, nil)))

		event := NewEvent("exec-1", PhaseError, "anthropic")
		event.Error = "connection refused"
		err := sink.Publish(context.Background(), event)

		require.NoError(t, err)
		out := buf.String()
		assert.Contains(t, out, "pipeline audit event")
		assert.Contains(t, out, "phase=error")
		assert.Contains(t, out, "connection refused")
		assert.NoError(t, sink.Close())
	})

	t.Run("nil logger falls back to the default", func(t *testing.T) {
		sink := NewSlogSink(nil)
		assert.NotNil(t, sink.logger)
	})
}
