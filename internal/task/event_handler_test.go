package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskFactory is a mock implementation of the TaskFactory interface
type MockTaskFactory struct {
	mock.Mock
}

func (m *MockTaskFactory) CreateTask(jobID uuid.UUID) (Task, error) {
	args := m.Called(jobID)
	task, _ := args.Get(0).(Task)
	return task, args.Error(1)
}

// MockTaskSubmitter is a mock implementation of the TaskSubmitter interface
type MockTaskSubmitter struct {
	mock.Mock
}

func (m *MockTaskSubmitter) Submit(ctx context.Context, task Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func TestNewJobQueuedEvent(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()
	event, err := NewJobQueuedEvent(jobID)
	require.NoError(t, err)

	assert.Equal(t, TaskTypeGuidelineProcessing, event.Type)

	var payload guidelinePayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, jobID, payload.JobID)
}

func TestHandleEventCreatesAndSubmitsTask(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()
	task := newStubTask(nil)

	factory := &MockTaskFactory{}
	factory.On("CreateTask", jobID).Return(task, nil)

	submitter := &MockTaskSubmitter{}
	submitter.On("Submit", mock.Anything, task).Return(nil)

	handler := NewTaskFactoryEventHandler(factory, submitter, testLogger())

	event, err := NewJobQueuedEvent(jobID)
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	factory.AssertExpectations(t)
	submitter.AssertExpectations(t)
}

func TestHandleEventRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	handler := NewTaskFactoryEventHandler(&MockTaskFactory{}, &MockTaskSubmitter{}, testLogger())

	event := &events.TaskRequestEvent{
		ID:      uuid.New(),
		Type:    TaskTypeGuidelineProcessing,
		Payload: json.RawMessage(`{not json`),
	}

	err := handler.HandleEvent(context.Background(), event)
	assert.Error(t, err)
}

func TestHandleEventRejectsMissingJobID(t *testing.T) {
	t.Parallel()

	handler := NewTaskFactoryEventHandler(&MockTaskFactory{}, &MockTaskSubmitter{}, testLogger())

	event := &events.TaskRequestEvent{
		ID:      uuid.New(),
		Type:    TaskTypeGuidelineProcessing,
		Payload: json.RawMessage(`{}`),
	}

	err := handler.HandleEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrEmptyJobID)
}

func TestHandleEventPropagatesSubmitError(t *testing.T) {
	t.Parallel()

	jobID := uuid.New()
	task := newStubTask(nil)
	wantErr := errors.New("queue closed")

	factory := &MockTaskFactory{}
	factory.On("CreateTask", jobID).Return(task, nil)

	submitter := &MockTaskSubmitter{}
	submitter.On("Submit", mock.Anything, task).Return(wantErr)

	handler := NewTaskFactoryEventHandler(factory, submitter, testLogger())

	event, err := NewJobQueuedEvent(jobID)
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.ErrorIs(t, err, wantErr)
}
