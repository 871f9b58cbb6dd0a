package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/guidelinehq/guideline-api/internal/domain"
	"github.com/guidelinehq/guideline-api/internal/service"
	"github.com/guidelinehq/guideline-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "service not found", err: service.ErrJobNotFound, want: http.StatusNotFound},
		{name: "store not found", err: store.ErrJobNotFound, want: http.StatusNotFound},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("loading job: %w", service.ErrJobNotFound),
			want: http.StatusNotFound,
		},
		{name: "empty text", err: domain.ErrEmptyGuidelineText, want: http.StatusBadRequest},
		{name: "text too long", err: domain.ErrGuidelineTextTooLong, want: http.StatusBadRequest},
		{name: "invalid entity", err: store.ErrInvalidEntity, want: http.StatusBadRequest},
		{name: "unknown error", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Job not found", GetSafeErrorMessage(service.ErrJobNotFound))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))

	// Internal detail must never appear in the safe message.
	internal := errors.New("pq: connection refused on 10.0.0.7")
	assert.NotContains(t, GetSafeErrorMessage(internal), "10.0.0.7")
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	validate := validator.New()
	err := validate.Struct(SubmitGuidelineRequest{GuidelineText: ""})
	assert.Equal(t, "Invalid GuidelineText: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}
