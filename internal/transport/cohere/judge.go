package cohere

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

type judgementPayload struct {
	Verdict    string          `json:"verdict"`
	Rationale  string          `json:"rationale"`
	Confidence json.RawMessage `json:"confidence"`
}

// JudgeMatch asks the chat model for a verdict on a prepared match prompt.
// Missing fields fall back to neutral defaults; confidence is clamped to
// [0, 1].
func (c *Client) JudgeMatch(ctx context.Context, prompt string) (domain.MatchJudgement, error) {
	raw, err := c.ChatText(ctx, c.chatModel, prompt, 0.2)
	if err != nil {
		return domain.MatchJudgement{}, err
	}

	var parsed judgementPayload
	if err := extractJSONBlock(raw, &parsed); err != nil {
		return domain.MatchJudgement{}, err
	}

	confidence := 0.5
	if len(parsed.Confidence) > 0 {
		var numeric float64
		if json.Unmarshal(parsed.Confidence, &numeric) == nil {
			confidence = numeric
		} else {
			var text string
			if json.Unmarshal(parsed.Confidence, &text) == nil {
				if v, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
					confidence = v
				}
			}
		}
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	verdict := strings.TrimSpace(parsed.Verdict)
	if verdict == "" {
		verdict = "Possible match"
	}
	rationale := strings.TrimSpace(parsed.Rationale)
	if rationale == "" {
		rationale = "Partial alignment with shopper intent."
	}

	return domain.MatchJudgement{
		Verdict:    verdict,
		Rationale:  rationale,
		Confidence: confidence,
	}, nil
}
