package gemini

import (
	"encoding/json"
	"strings"

	"github.com/guidelinehq/guideline-api/internal/domain"
)

// fallbackItemName is the checklist item used when the provider's response
// cannot be parsed as structured data.
const fallbackItemName = "Review guidelines"

// parseChecklist converts raw provider output into a checklist. It never
// fails: a JSON array of objects is returned as-is, a single JSON object is
// wrapped in a one-element checklist, and anything else degrades to a single
// synthetic item carrying the raw text under "description". The returned
// checklist is always non-empty.
func parseChecklist(raw string) domain.Checklist {
	text := stripCodeFence(strings.TrimSpace(raw))

	var items domain.Checklist
	if err := json.Unmarshal([]byte(text), &items); err == nil && len(items) > 0 {
		return items
	}

	var single domain.ChecklistItem
	if err := json.Unmarshal([]byte(text), &single); err == nil && len(single) > 0 {
		return domain.Checklist{single}
	}

	return domain.Checklist{
		{
			"item":        fallbackItemName,
			"description": raw,
		},
	}
}

// stripCodeFence removes a surrounding markdown code fence, with or without
// a language tag, from provider output. Text without a fence is returned
// unchanged.
func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}

	trimmed := strings.TrimPrefix(text, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the opening fence line (e.g. "```json").
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
