package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoHandler is returned when an event is emitted for a task type with no
// registered handler.
var ErrNoHandler = errors.New("no handler registered for task type")

// InMemoryEventEmitter dispatches events to handlers registered per task
// type. Registration happens once at startup; there is no runtime discovery.
type InMemoryEventEmitter struct {
	handlers map[string]EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	return &InMemoryEventEmitter{
		handlers: make(map[string]EventHandler),
		logger:   logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler binds a handler to a task type, replacing any previous
// binding for that type.
func (e *InMemoryEventEmitter) RegisterHandler(taskType string, handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[taskType] = handler
	e.logger.Debug("registered event handler",
		"task_type", taskType,
		"handler_count", len(e.handlers))
}

// EmitEvent publishes the given event to the handler registered for its
// task type. Returns ErrNoHandler when the type is unknown.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *TaskRequestEvent) error {
	e.mu.RLock()
	handler, ok := e.handlers[event.Type]
	e.mu.RUnlock()

	if !ok {
		e.logger.Warn("no handler registered for event",
			"event_id", event.ID,
			"event_type", event.Type)
		return fmt.Errorf("%w: %s", ErrNoHandler, event.Type)
	}

	e.logger.Debug("emitting event",
		"event_id", event.ID,
		"event_type", event.Type)

	if err := handler.HandleEvent(ctx, event); err != nil {
		e.logger.Error("handler failed to process event",
			"error", err,
			"event_id", event.ID,
			"event_type", event.Type)
		return err
	}

	return nil
}
