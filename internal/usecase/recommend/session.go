package recommend

import (
	"context"
	"encoding/json"
	"strings"
)

// GetPersonalized returns a stored session with its ranked products,
// explanation chips, and any match-check annotations.
func (s *Service) GetPersonalized(ctx context.Context, sessionID string) (SessionPayload, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return SessionPayload{}, err
	}
	items, err := s.sessions.Items(ctx, sessionID)
	if err != nil {
		return SessionPayload{}, err
	}
	explanations, err := s.sessions.Explanations(ctx, sessionID)
	if err != nil {
		return SessionPayload{}, err
	}
	matches, err := s.sessions.MatchChecks(ctx, sessionID)
	if err != nil {
		return SessionPayload{}, err
	}

	sessionIntent := s.intents.FromSession(session)

	recs := make([]Recommendation, 0, len(items))
	for _, item := range items {
		product, ok := s.catalog.ByID(item.ProductID)
		if !ok {
			continue
		}

		chips := explanations[item.ProductID]
		if len(chips) == 0 {
			// Sessions predating stored explanations derive chips from the
			// session intent on the fly.
			_, chips = s.adjuster.Adjust(sessionIntent, product)
			if len(chips) == 0 {
				chips = []string{"Catalog relevance"}
			}
			if len(chips) > 4 {
				chips = chips[:4]
			}
		}

		rec := Recommendation{
			PublicProduct:    publicProduct(product),
			Rank:             item.Rank,
			Score:            item.Score,
			ExplanationChips: chips,
			Explanation:      strings.Join(chips, " | "),
		}
		if check, found := matches[item.ProductID]; found {
			rec.Match = &MatchInfo{
				Verdict:    check.Verdict,
				Rationale:  check.Rationale,
				Confidence: check.Confidence,
			}
		}
		recs = append(recs, rec)
	}

	return SessionPayload{Session: sessionInfo(session), Recommendations: recs}, nil
}

// CreateSuggestSession opens a quick session anchored on one catalog item,
// ready for complete-the-look calls.
func (s *Service) CreateSuggestSession(ctx context.Context, productID int, shopperName string) (SuggestPayload, error) {
	shopper := s.safeShopper(shopperName)
	if _, err := s.profiles.Ensure(ctx, shopper); err != nil {
		return SuggestPayload{}, err
	}

	anchor, ok := s.catalog.ByID(productID)
	if !ok {
		return SuggestPayload{}, domainProductErr(productID)
	}

	var parts []string
	for _, part := range []string{anchor.Gender, anchor.Usage, anchor.BaseColour, anchor.ArticleType, "complete look"} {
		if cleaned := strings.TrimSpace(part); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	quickQuery := strings.Join(parts, " ")

	summary, err := json.Marshal(map[string]int{"anchor_product_id": productID})
	if err != nil {
		return SuggestPayload{}, err
	}
	session, err := s.sessions.Create(ctx, shopper, "home-suggest-anchor", quickQuery, string(summary))
	if err != nil {
		return SuggestPayload{}, err
	}

	return SuggestPayload{
		SessionID:     session.ID,
		AnchorProduct: publicProduct(anchor),
		AssistantNote: "Quick suggest session created from the selected catalog item.",
	}, nil
}

// HomeFeed returns a random product sample, optionally gender-filtered.
func (s *Service) HomeFeed(ctx context.Context, limit int, gender string) []PublicProduct {
	if limit < 1 {
		limit = 24
	}
	items := s.randomProducts(limit, gender)
	out := make([]PublicProduct, 0, len(items))
	for _, item := range items {
		out = append(out, publicProduct(item))
	}
	return out
}

// Stats reports service counters plus model and index state.
func (s *Service) Stats(ctx context.Context) (StatsPayload, error) {
	counters, err := s.sessions.Counters(ctx)
	if err != nil {
		return StatsPayload{}, err
	}
	return StatsPayload{
		Counters:             counters,
		AIEnabled:            s.cfg.AIEnabled,
		CatalogItemsInMemory: s.catalog.Len(),
		DenseIndexReady:      s.retriever.DenseReady(),
		EmbedModel:           s.cfg.EmbedModel,
	}, nil
}
