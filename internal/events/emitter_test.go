package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingHandler captures every event it receives.
type recordingHandler struct {
	events []*TaskRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	event, err := NewTaskRequestEvent("some_task", map[string]string{"key": "value"})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "some_task", event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var payload map[string]string
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, "value", payload["key"])
}

func TestEmitEventDispatchesToRegisteredHandler(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	handler := &recordingHandler{}
	emitter.RegisterHandler("some_task", handler)

	event, err := NewTaskRequestEvent("some_task", map[string]string{"key": "value"})
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	require.Len(t, handler.events, 1)
	assert.Equal(t, event.ID, handler.events[0].ID)
}

func TestEmitEventUnknownTypeReturnsErrNoHandler(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())

	event, err := NewTaskRequestEvent("unregistered_task", nil)
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestEmitEventPropagatesHandlerError(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	wantErr := errors.New("handler blew up")
	emitter.RegisterHandler("some_task", &recordingHandler{err: wantErr})

	event, err := NewTaskRequestEvent("some_task", nil)
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, wantErr)
}

func TestRegisterHandlerReplacesPreviousBinding(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(testLogger())
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler("some_task", first)
	emitter.RegisterHandler("some_task", second)

	event, err := NewTaskRequestEvent("some_task", nil)
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	assert.Empty(t, first.events)
	assert.Len(t, second.events, 1)
}
