package api

import (
	"time"

	"github.com/guidelinehq/guideline-api/internal/domain"
)

// Common request/response structures

// SubmitGuidelineRequest defines the payload for the job submission endpoint.
type SubmitGuidelineRequest struct {
	GuidelineText string `json:"guideline_text" validate:"required,max=50000"`
}

// SubmitJobResponse defines the successful response for job submission.
type SubmitJobResponse struct {
	// EventID is the identifier clients use to poll for the job's status
	EventID string `json:"event_id"`

	// Status is the job's current lifecycle state
	Status string `json:"status"`
}

// JobResultResponse mirrors domain.JobResult for serialization.
type JobResultResponse struct {
	Summary   string           `json:"summary"`
	Checklist domain.Checklist `json:"checklist"`
}

// JobStatusResponse defines the response for the job status endpoint.
// Result is non-null only for completed jobs; ErrorMessage is non-null
// only for failed jobs.
type JobStatusResponse struct {
	EventID      string             `json:"event_id"`
	Status       string             `json:"status"`
	Result       *JobResultResponse `json:"result"`
	ErrorMessage *string            `json:"error_message"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// jobToSubmitResponse converts a domain.Job to a SubmitJobResponse
func jobToSubmitResponse(job *domain.Job) SubmitJobResponse {
	return SubmitJobResponse{
		EventID: job.ID.String(),
		Status:  string(job.Status),
	}
}

// jobToStatusResponse converts a domain.Job to a JobStatusResponse
func jobToStatusResponse(job *domain.Job) JobStatusResponse {
	resp := JobStatusResponse{
		EventID:   job.ID.String(),
		Status:    string(job.Status),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}

	if result := job.Result(); result != nil {
		resp.Result = &JobResultResponse{
			Summary:   result.Summary,
			Checklist: result.Checklist,
		}
	}

	if job.Status == domain.JobStatusFailed && job.ErrorMessage != "" {
		msg := job.ErrorMessage
		resp.ErrorMessage = &msg
	}

	return resp
}
