package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/outfit"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

// CompleteTheLook assembles outfit pieces around an anchor product: two
// retrieval passes, a catalog-wide complementary scan, then article-type
// diversification.
func (s *Service) CompleteTheLook(ctx context.Context, sessionID string, productID, topK int) (LookPayload, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return LookPayload{}, err
	}
	anchor, ok := s.catalog.ByID(productID)
	if !ok {
		return LookPayload{}, domainProductErr(productID)
	}
	if topK < 1 {
		topK = 1
	}

	intent := s.intents.FromSession(session)
	if intent.Gender == "" {
		intent.Gender = anchor.Gender
	}
	intent.ColorHints = domain.Dedupe(append(append([]string{}, intent.ColorHints...), anchor.BaseColour))

	lookCtx := ctx
	if s.cfg.AIEnabled {
		var cancel context.CancelFunc
		lookCtx, cancel = worker.WithBudget(ctx, s.cfg.SearchBudget)
		defer cancel()
	}

	exclude := map[int]struct{}{anchor.ID: {}}
	retrievalTopK := atLeast(topK*8, 24)

	primaryQuery := outfit.LookQuery(anchor, intent)
	primaryRanked, primaryReasons, aiPowered := s.rankQuery(lookCtx, primaryQuery, intent, retrievalTopK,
		retrieval.Options{DenseBuildIfMissing: true}, exclude)

	merged := toScored(primaryRanked)
	reasons := primaryReasons

	if secondaryQuery := outfit.SecondaryQuery(anchor, intent); secondaryQuery != "" {
		secondaryRanked, secondaryReasons, secondaryAI := s.rankQuery(lookCtx, secondaryQuery, intent, retrievalTopK,
			retrieval.Options{DenseBuildIfMissing: true}, exclude)
		aiPowered = aiPowered || secondaryAI
		merged = outfit.MergeRanked(toScored(primaryRanked), toScored(secondaryRanked), 0.03)
		for id, chips := range secondaryReasons {
			reasons[id] = domain.Dedupe(append(append([]string{}, reasons[id]...), chips...))
		}
	}

	if supplemental := outfit.Supplement(s.catalog.Items(), anchor, intent, exclude, retrievalTopK); len(supplemental) > 0 {
		merged = outfit.MergeRanked(merged, supplemental, 0.08)
		for _, entry := range supplemental {
			reasons[entry.ProductID] = domain.Dedupe(append(append([]string{}, reasons[entry.ProductID]...), "Complementary article type"))
		}
	}

	selected := outfit.Diversify(merged, s.catalog.ByID, anchor, topK)
	if len(selected) == 0 {
		for _, entry := range merged {
			if len(selected) >= topK {
				break
			}
			if item, found := s.catalog.ByID(entry.ProductID); found {
				selected = append(selected, outfit.Selection{Product: item, Score: entry.Score})
			}
		}
	}

	recs := make([]Recommendation, 0, len(selected))
	for i, pick := range selected {
		chips := reasons[pick.Product.ID]
		if len(chips) == 0 {
			chips = []string{"Catalog relevance"}
		}
		recs = append(recs, Recommendation{
			PublicProduct:    publicProduct(pick.Product),
			Rank:             i + 1,
			Score:            pick.Score,
			ExplanationChips: chips,
			Explanation:      outfit.Reason(anchor, pick.Product, intent),
		})
	}

	if _, err := s.RecordFeedback(ctx, session.ShopperName, "complete_look", sessionID, productID, fmt.Sprintf("top_k:%d", topK)); err != nil {
		s.logger.Warn("failed to record complete-look feedback", zap.Error(err))
	}

	var note string
	if queryText := strings.TrimSpace(session.QueryText); queryText != "" {
		note = fmt.Sprintf("Complete-look suggestions are tuned to your query %q and anchored on %s, prioritizing complementary article types.",
			queryText, anchor.Name)
	} else {
		note = fmt.Sprintf("Complete-look suggestions are anchored on %s and selected for complementary article types, color, category, and occasion compatibility.",
			anchor.Name)
	}

	return LookPayload{
		SessionID:       sessionID,
		AnchorProduct:   publicProduct(anchor),
		AssistantNote:   note,
		AIPowered:       aiPowered,
		Recommendations: recs,
	}, nil
}

func toScored(items []domain.RankedItem) []outfit.ScoredProduct {
	out := make([]outfit.ScoredProduct, 0, len(items))
	for _, item := range items {
		out = append(out, outfit.ScoredProduct{ProductID: item.ProductID, Score: item.Score})
	}
	return out
}
