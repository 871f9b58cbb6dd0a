package generation

import (
	"context"

	"github.com/guidelinehq/guideline-api/internal/domain"
)

// Generator defines the interface for the two-stage guideline pipeline.
// It serves as a boundary between the application core and external LLM
// services, following the hexagonal architecture pattern.
type Generator interface {
	// Summarize produces a concise summary of the given guideline text.
	// Returns an error wrapping ErrGenerationFailed if the remote call
	// fails for any transport, authentication, or provider-side reason.
	Summarize(ctx context.Context, guidelineText string) (string, error)

	// GenerateChecklist derives an ordered checklist of actionable items
	// from a summary. Once the remote call itself succeeds this never
	// fails: unparseable provider output degrades to a single synthetic
	// item carrying the raw response text.
	GenerateChecklist(ctx context.Context, summary string) (domain.Checklist, error)
}
