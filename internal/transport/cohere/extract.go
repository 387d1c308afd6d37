package cohere

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// extractJSONBlock pulls a JSON object out of model output. Handles fenced
// code blocks and prose-wrapped objects; anything unparseable is an error so
// callers can fall back to heuristics.
func extractJSONBlock(text string, out any) error {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return fmt.Errorf("empty model response: %w", domain.ErrAIUnavailable)
	}

	if strings.HasPrefix(raw, "```") {
		firstNewline := strings.Index(raw, "\n")
		lastFence := strings.LastIndex(raw, "```")
		if firstNewline != -1 && lastFence > firstNewline {
			raw = strings.TrimSpace(raw[firstNewline:lastFence])
		}
	}

	candidates := []string{raw}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start != -1 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}

	for _, candidate := range candidates {
		if json.Unmarshal([]byte(candidate), out) == nil {
			return nil
		}
	}

	snippet := text
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return fmt.Errorf("no JSON object in model response %q: %w", snippet, domain.ErrAIUnavailable)
}
