package gemini

import "fmt"

// Fixed instructional preambles for the two pipeline stages. Decoding is
// near-deterministic (low temperature) and output length is bounded per
// stage, so the prompts carry all stage-specific behavior.
const (
	summarizePreamble = "You are a helpful assistant that summarizes guideline documents. " +
		"Create a concise but comprehensive summary that captures the key " +
		"points, requirements, and important details from the text."

	checklistPreamble = "You are a helpful assistant that creates actionable checklists. " +
		"Based on the provided summary, create a practical checklist with " +
		"specific, actionable items. Return the response as a JSON array " +
		"where each item is an object with 'item' and 'description' fields."
)

// buildSummarizePrompt combines the summarize preamble with the guideline text.
func buildSummarizePrompt(guidelineText string) string {
	return fmt.Sprintf("%s\n\nPlease summarize the following guideline text:\n\n%s",
		summarizePreamble, guidelineText)
}

// buildChecklistPrompt combines the checklist preamble with the summary.
func buildChecklistPrompt(summary string) string {
	return fmt.Sprintf("%s\n\nBased on this summary, create a practical checklist:\n\n%s\n\n"+
		"Return as JSON array with objects containing 'item' and 'description' fields.",
		checklistPreamble, summary)
}
