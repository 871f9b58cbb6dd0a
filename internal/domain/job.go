package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the processing state of a guideline job
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// MaxGuidelineTextLength is the upper bound on submitted guideline text,
// measured in characters.
const MaxGuidelineTextLength = 50000

// Common validation errors for Job
var (
	ErrEmptyJobID           = errors.New("job ID cannot be empty")
	ErrEmptyGuidelineText   = errors.New("guideline text cannot be empty")
	ErrGuidelineTextTooLong = errors.New("guideline text exceeds maximum length")
	ErrInvalidJobStatus     = errors.New("invalid job status")
	ErrInvalidTransition    = errors.New("invalid job status transition")
	ErrIncompleteResult     = errors.New("completed job must carry both summary and checklist")
	ErrUnexpectedError      = errors.New("error message is only valid on failed jobs")
)

// ChecklistItem is a single actionable entry derived from a guideline
// summary. Items are free-form key/value maps; well-formed provider output
// carries at least "item" and "description" fields, but the exact shape is
// not validated downstream.
type ChecklistItem map[string]any

// Checklist is the ordered sequence of items produced by the second
// generation stage. A nil Checklist means the stage has not completed.
type Checklist []ChecklistItem

// JobResult bundles the outputs of a successfully processed job.
type JobResult struct {
	Summary   string    `json:"summary"`
	Checklist Checklist `json:"checklist"`
}

// Job represents one unit of guideline-text processing work. It is created
// in the pending state by the submission path and mutated only by the
// worker as it drives the two-stage generation pipeline.
type Job struct {
	ID            uuid.UUID `json:"id"`
	Status        JobStatus `json:"status"`
	GuidelineText string    `json:"guideline_text"`
	Summary       string    `json:"summary,omitempty"`
	Checklist     Checklist `json:"checklist,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewJob creates a new pending Job for the given guideline text. The text
// is trimmed of surrounding whitespace before storage. Returns an error if
// the trimmed text is empty or exceeds MaxGuidelineTextLength.
func NewJob(guidelineText string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:            uuid.New(),
		Status:        JobStatusPending,
		GuidelineText: strings.TrimSpace(guidelineText),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks the Job's fields and cross-field invariants.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if strings.TrimSpace(j.GuidelineText) == "" {
		return ErrEmptyGuidelineText
	}

	if len(j.GuidelineText) > MaxGuidelineTextLength {
		return ErrGuidelineTextTooLong
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	// Summary and checklist are present if and only if the job completed.
	hasResult := j.Summary != "" && j.Checklist != nil
	if j.Status == JobStatusCompleted && !hasResult {
		return ErrIncompleteResult
	}
	if j.Status != JobStatusCompleted && hasResult {
		return ErrIncompleteResult
	}

	if j.ErrorMessage != "" && j.Status != JobStatusFailed {
		return ErrUnexpectedError
	}

	return nil
}

// Result returns the job's outputs when processing has completed, or nil
// for any non-terminal or failed state.
func (j *Job) Result() *JobResult {
	if j.Status != JobStatusCompleted || j.Summary == "" || j.Checklist == nil {
		return nil
	}
	return &JobResult{
		Summary:   j.Summary,
		Checklist: j.Checklist,
	}
}

// validTransitions defines the edges of the job state machine. A pending
// job never moves straight to a terminal state, and a failed job may only
// move back to processing (retry redelivery).
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending:    {JobStatusProcessing},
	JobStatusProcessing: {JobStatusProcessing, JobStatusCompleted, JobStatusFailed},
	JobStatusFailed:     {JobStatusProcessing},
	JobStatusCompleted:  {},
}

// MarkProcessing transitions the job into the processing state, clearing
// any error message left by a prior failed attempt.
func (j *Job) MarkProcessing() error {
	if err := j.transitionTo(JobStatusProcessing); err != nil {
		return err
	}
	j.ErrorMessage = ""
	return nil
}

// Complete transitions the job into the completed state and records the
// outputs of both generation stages. The checklist must be non-nil.
func (j *Job) Complete(summary string, checklist Checklist) error {
	if summary == "" || checklist == nil {
		return ErrIncompleteResult
	}
	if err := j.transitionTo(JobStatusCompleted); err != nil {
		return err
	}
	j.Summary = summary
	j.Checklist = checklist
	return nil
}

// Fail transitions the job into the failed state and records the error
// message for the status endpoint.
func (j *Job) Fail(message string) error {
	if err := j.transitionTo(JobStatusFailed); err != nil {
		return err
	}
	j.ErrorMessage = message
	return nil
}

// Touch refreshes the job's updated_at timestamp.
func (j *Job) Touch() {
	j.UpdatedAt = time.Now().UTC()
}

// transitionTo applies a status change along the state machine edges and
// refreshes the updated_at timestamp.
func (j *Job) transitionTo(status JobStatus) error {
	if !isValidJobStatus(status) {
		return ErrInvalidJobStatus
	}

	for _, next := range validTransitions[j.Status] {
		if next == status {
			j.Status = status
			j.Touch()
			return nil
		}
	}
	return ErrInvalidTransition
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}
