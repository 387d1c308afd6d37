package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

const matchPromptFormat = `You are GlobalMart Fashion's Outfit Assistant.
Evaluate if the recommended product is a good match for this shopper intent.
Return JSON only with keys: verdict, rationale, confidence.
verdict must be one of: Strong match, Good match, Possible match, Weak match.
confidence must be a number between 0 and 1.

SESSION_SOURCE: %s
SHOPPER_NAME: %s
SHOPPER_QUERY: %s
IMAGE_SUMMARY_JSON: %s

PRODUCT:
- id: %d
- name: %s
- gender: %s
- article_type: %s
- base_colour: %s
- usage: %s
- season: %s
- year: %d
`

// CheckMatch scores one product against a session's intent. The heuristic
// verdict always computes; with AI enabled the chat model's judgement takes
// precedence and the heuristic is appended to its rationale.
func (s *Service) CheckMatch(ctx context.Context, sessionID string, productID int) (MatchPayload, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return MatchPayload{}, err
	}
	product, ok := s.catalog.ByID(productID)
	if !ok {
		return MatchPayload{}, domainProductErr(productID)
	}

	intent := s.intents.FromSession(session)
	heuristic := s.adjuster.Match(intent, product)

	verdict := heuristic.Verdict
	rationale := heuristic.Rationale
	confidence := heuristic.Confidence
	aiPowered := false

	if s.cfg.AIEnabled {
		matchCtx, cancel := worker.WithBudget(ctx, s.cfg.MatchBudget)
		prompt := fmt.Sprintf(matchPromptFormat,
			session.Source, session.ShopperName, session.QueryText, session.ImageSummary,
			product.ID, product.Name, product.Gender, product.ArticleType,
			product.BaseColour, product.Usage, product.Season, product.Year,
		)
		judgement, err := worker.Call(matchCtx, s.pool, "match_scoring", func(callCtx context.Context) (domain.MatchJudgement, error) {
			return s.judge.JudgeMatch(callCtx, prompt)
		})
		cancel()
		if err != nil {
			s.logger.Warn("match scoring fell back to heuristic mode", zap.Error(err))
		} else {
			verdict = judgement.Verdict
			confidence = judgement.Confidence
			rationale = strings.TrimSpace(judgement.Rationale + " Heuristic check: " + heuristic.Rationale)
			aiPowered = true
		}
	}

	if err := s.sessions.StoreMatchCheck(ctx, domain.MatchCheck{
		SessionID:  sessionID,
		ProductID:  productID,
		Verdict:    verdict,
		Rationale:  rationale,
		Confidence: confidence,
	}); err != nil {
		return MatchPayload{}, err
	}
	if _, err := s.RecordFeedback(ctx, session.ShopperName, "match_check", sessionID, productID, verdict); err != nil {
		s.logger.Warn("failed to record match feedback", zap.Error(err))
	}

	return MatchPayload{
		SessionID:  sessionID,
		ProductID:  productID,
		Verdict:    verdict,
		Rationale:  rationale,
		Confidence: confidence,
		AIPowered:  aiPowered,
		JudgementDetails: MatchInfo{
			Verdict:    heuristic.Verdict,
			Rationale:  heuristic.Rationale,
			Confidence: heuristic.Confidence,
		},
	}, nil
}
