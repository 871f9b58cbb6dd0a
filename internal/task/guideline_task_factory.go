package task

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/generation"
)

// GuidelineTaskFactory creates GuidelineProcessingTask instances
type GuidelineTaskFactory struct {
	jobService JobService
	generator  generation.Generator
	logger     *slog.Logger
}

// NewGuidelineTaskFactory creates a new factory for GuidelineProcessingTasks
func NewGuidelineTaskFactory(
	jobService JobService,
	generator generation.Generator,
	logger *slog.Logger,
) *GuidelineTaskFactory {
	return &GuidelineTaskFactory{
		jobService: jobService,
		generator:  generator,
		logger:     logger.With("component", "guideline_task_factory"),
	}
}

// CreateTask creates a new GuidelineProcessingTask for the specified job
func (f *GuidelineTaskFactory) CreateTask(jobID uuid.UUID) (Task, error) {
	return NewGuidelineProcessingTask(
		jobID,
		f.jobService,
		f.generator,
		f.logger,
	)
}
