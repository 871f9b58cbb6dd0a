package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/guidelinehq/guideline-api/internal/api/shared"
	"github.com/guidelinehq/guideline-api/internal/service"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	jobService service.JobService
	validator  *validator.Validate
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(jobService service.JobService) *JobHandler {
	return &JobHandler{
		jobService: jobService,
		validator:  validator.New(),
	}
}

// SubmitJob handles POST /api/jobs requests. It validates the guideline
// text, creates a pending job, queues it for processing, and returns the
// event id the client polls with.
func (h *JobHandler) SubmitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitGuidelineRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	// Length is validated against the raw text; emptiness against the
	// trimmed text, so whitespace-only submissions are rejected.
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}
	if strings.TrimSpace(req.GuidelineText) == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "guideline_text must not be empty")
		return
	}

	job, err := h.jobService.SubmitGuideline(r.Context(), req.GuidelineText)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err),
			GetSafeErrorMessage(err),
			err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, jobToSubmitResponse(job))
}

// GetJobStatus handles GET /api/jobs/{event_id} requests. An event id that
// does not parse as a UUID cannot identify any job, so it gets the same
// 404 as an unknown id.
func (h *JobHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "event_id")

	jobID, err := uuid.Parse(eventID)
	if err != nil {
		shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
		return
	}

	job, err := h.jobService.GetJob(r.Context(), jobID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err),
			GetSafeErrorMessage(err),
			err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToStatusResponse(job))
}
