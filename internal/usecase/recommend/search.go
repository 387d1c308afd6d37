package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

const (
	sourceTextSearch  = "natural-language-query-search"
	sourceImageSearch = "image-upload-match"
)

// SearchByText runs the full text pipeline: intent extraction, hybrid
// retrieval, business adjustment, and session persistence.
func (s *Service) SearchByText(ctx context.Context, query, shopperName string, topK int) (SessionPayload, error) {
	cleaned := strings.TrimSpace(query)
	if cleaned == "" {
		return SessionPayload{}, fmt.Errorf("search query is empty: %w", domain.ErrInvalidArgument)
	}
	if topK < 1 {
		topK = 10
	}

	shopper := s.safeShopper(shopperName)
	if _, err := s.profiles.Ensure(ctx, shopper); err != nil {
		return SessionPayload{}, err
	}

	searchCtx := ctx
	if s.cfg.AIEnabled {
		var cancel context.CancelFunc
		searchCtx, cancel = worker.WithBudget(ctx, s.cfg.SearchBudget)
		defer cancel()
	}

	intent := s.intents.Extract(searchCtx, cleaned, nil)
	ranked, reasons, aiPowered := s.rankQuery(searchCtx, cleaned, intent, topK,
		retrieval.Options{DenseBuildIfMissing: true}, nil)

	var note string
	switch {
	case aiPowered:
		note = "GlobalMart Fashion AI powered by Cohere generated these recommendations from your search intent."
	case s.cfg.AIEnabled:
		note = "Cohere AI fallback mode used lexical ranking for this search."
	default:
		note = "COHERE_API_KEY is not configured. Showing lexical fallback ranking for local testing."
	}

	return s.storeSession(ctx, shopper, sourceTextSearch, cleaned, "", ranked, reasons, note, aiPowered)
}

// SearchByImage analyzes an outfit photo and ranks similar products. The
// retrieval pass runs in reduced-latency mode: no on-demand dense build,
// shallower rerank, tighter candidate pools.
func (s *Service) SearchByImage(ctx context.Context, imageBytes []byte, shopperName string, topK int) (SessionPayload, error) {
	if topK < 1 {
		topK = 10
	}
	shopper := s.safeShopper(shopperName)
	if _, err := s.profiles.Ensure(ctx, shopper); err != nil {
		return SessionPayload{}, err
	}

	var (
		analysis  domain.ImageSummary
		ranked    []domain.RankedItem
		reasons   map[int][]string
		note      string
		aiPowered bool
	)

	if !s.cfg.AIEnabled {
		analysis = domain.ImageSummary{Error: "COHERE_API_KEY not configured", SearchQueries: []string{}}
		ranked, reasons, _ = s.fallbackFeed(topK, nil)
		note = "Cohere key missing, so image flow returned fallback recommendations."
	} else {
		imageCtx, cancel := worker.WithBudget(ctx, s.cfg.ImageBudget)
		defer cancel()

		parsed, err := worker.Call(imageCtx, s.pool, "vision_analysis", func(callCtx context.Context) (domain.ImageSummary, error) {
			return s.vision.AnalyzeOutfitImage(callCtx, imageBytes, s.catalog.ArticleTypes())
		})
		if err != nil {
			s.logger.Warn("image analysis unavailable, serving fallback feed", zap.Error(err))
			analysis = domain.ImageSummary{Error: "cohere_unavailable", SearchQueries: []string{}}
			ranked, reasons, _ = s.fallbackFeed(topK, nil)
			note = "Image analysis is unavailable right now. Showing fallback recommendations so you can continue."
		} else {
			analysis = parsed
			combined := imageSearchQuery(analysis)

			// Vision already produced structured signals; skip the intent
			// model call and parse heuristically.
			intent := s.intents.Heuristic(combined, &analysis)
			var rankingAI bool
			ranked, reasons, rankingAI = s.rankQuery(imageCtx, combined, intent, topK, retrieval.Options{
				DenseBuildIfMissing:   false,
				RerankDepthMultiplier: 2,
				CandidatePoolLimit:    atLeast(topK*6, 60),
				RerankCandidateLimit:  atLeast(topK*4, 40),
			}, nil)

			aiPowered = rankingAI
			if rankingAI {
				note = "GlobalMart Fashion AI powered by Cohere analyzed your image and ranked similar products."
			} else {
				note = "Cohere vision analyzed your image and lexical fallback ranked the final products."
			}
		}
	}

	summaryJSON, err := json.Marshal(analysis)
	if err != nil {
		return SessionPayload{}, fmt.Errorf("marshal image summary: %w", err)
	}
	payload, err := s.storeSession(ctx, shopper, sourceImageSearch, "", string(summaryJSON), ranked, reasons, note, aiPowered)
	if err != nil {
		return SessionPayload{}, err
	}
	payload.ImageAnalysis = &analysis
	return payload, nil
}

// RefineSession re-runs a stored session's query slanted toward one of the
// supported shopping occasions and stores the result as a new session.
func (s *Service) RefineSession(ctx context.Context, sessionID, refinement string, topK int) (SessionPayload, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return SessionPayload{}, err
	}

	normalized, ok := refinementLabels[strings.ToLower(strings.TrimSpace(refinement))]
	if !ok {
		return SessionPayload{}, fmt.Errorf("refinement must be one of: party, work, casual: %w", domain.ErrInvalidArgument)
	}
	if topK < 1 {
		topK = 10
	}

	shopper := s.safeShopper(session.ShopperName)
	intent := s.intents.FromSession(session)

	baseQuery := strings.TrimSpace(session.QueryText)
	if baseQuery == "" {
		var parts []string
		if intent.Gender != "" {
			parts = append(parts, intent.Gender)
		}
		if len(intent.ArticleHints) > 0 {
			parts = append(parts, strings.Join(intent.ArticleHints, " "))
		}
		if len(intent.ColorHints) > 0 {
			parts = append(parts, strings.Join(intent.ColorHints, " "))
		}
		baseQuery = strings.TrimSpace(strings.Join(parts, " "))
		if baseQuery == "" {
			baseQuery = "modern outfit"
		}
	}
	refinedQuery := baseQuery + " refined for " + normalized
	intent.UsageHints = domain.Dedupe(append(append([]string{}, intent.UsageHints...), normalized))

	searchCtx := ctx
	if s.cfg.AIEnabled {
		var cancel context.CancelFunc
		searchCtx, cancel = worker.WithBudget(ctx, s.cfg.SearchBudget)
		defer cancel()
	}

	ranked, reasons, aiPowered := s.rankQuery(searchCtx, refinedQuery, intent, topK,
		retrieval.Options{DenseBuildIfMissing: true}, nil)

	lower := strings.ToLower(normalized)
	payload, err := s.storeSession(ctx, shopper, "session-refine-"+lower, refinedQuery, "", ranked, reasons,
		fmt.Sprintf("Session refined for %s style.", lower), aiPowered)
	if err != nil {
		return SessionPayload{}, err
	}

	if _, err := s.RecordFeedback(ctx, shopper, "refine", payload.Session.SessionID, 0, normalized); err != nil {
		s.logger.Warn("failed to record refine feedback", zap.Error(err))
	}
	payload.Refinement = lower
	return payload, nil
}

var refinementLabels = map[string]string{
	"party":  "Party",
	"work":   "Work",
	"casual": "Casual",
}

// imageSearchQuery combines up to two of the vision model's suggested
// queries, with attribute-based fallbacks for sparse analyses.
func imageSearchQuery(analysis domain.ImageSummary) string {
	var parts []string
	for _, value := range analysis.SearchQueries {
		if cleaned := strings.TrimSpace(value); cleaned != "" {
			parts = append(parts, cleaned)
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		joined := strings.TrimSpace(strings.Join([]string{
			analysis.Gender,
			analysis.Occasion,
			strings.Join(analysis.Colors, " "),
			strings.Join(analysis.ArticleTypes, " "),
		}, " "))
		if joined != "" {
			parts = append(parts, joined)
		}
	}
	combined := strings.Join(parts, "; ")
	if combined == "" {
		combined = "fashion outfit recommendations"
	}
	return combined
}

func atLeast(value, floor int) int {
	if value < floor {
		return floor
	}
	return value
}
