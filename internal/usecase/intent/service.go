// Package intent derives structured shopper preferences from free text,
// image analysis output, and stored sessions. A lexicon-driven heuristic
// pass always runs; when AI is enabled its structured extraction is layered
// on top, with the heuristic result as the fallback.
package intent

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

// Service builds Intent values. Safe for concurrent use.
type Service struct {
	vocab     Vocabulary
	extractor Extractor
	pool      *worker.Pool
	aiEnabled bool
	logger    *zap.Logger
}

// New wires an intent service. extractor may be nil when aiEnabled is false.
func New(vocab Vocabulary, extractor Extractor, pool *worker.Pool, aiEnabled bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		vocab:     vocab,
		extractor: extractor,
		pool:      pool,
		aiEnabled: aiEnabled && extractor != nil,
		logger:    logger,
	}
}

// Extract runs the heuristic pass and, when AI is enabled, merges the
// structured-extraction fragment over it. Extraction failures degrade to the
// heuristic result.
func (s *Service) Extract(ctx context.Context, queryText string, summary *domain.ImageSummary) domain.Intent {
	heuristic := s.Heuristic(queryText, summary)
	if !s.aiEnabled {
		return heuristic
	}

	fragment, err := worker.Call(ctx, s.pool, "intent_extraction", func(callCtx context.Context) (domain.IntentFragment, error) {
		return s.extractor.ExtractIntent(callCtx, queryText, s.vocab.ArticleTypes())
	})
	if err != nil {
		s.logger.Warn("intent extraction fell back to heuristic parsing", zap.Error(err))
		return heuristic
	}
	return heuristic.Merge(fragment)
}

// FromSession rebuilds intent from a stored session: heuristic parsing of
// the stored query plus any persisted image summary. No AI call.
func (s *Service) FromSession(session domain.Session) domain.Intent {
	var summary *domain.ImageSummary
	if raw := strings.TrimSpace(session.ImageSummary); raw != "" {
		var parsed domain.ImageSummary
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			summary = &parsed
		}
	}
	return s.Heuristic(strings.TrimSpace(session.QueryText), summary)
}

// Heuristic parses the query against the catalog vocabularies and folds in
// the image summary when present.
func (s *Service) Heuristic(queryText string, summary *domain.ImageSummary) domain.Intent {
	tokens := domain.Tokenize(queryText)
	queryNorm := domain.Normalize(queryText)
	compactTokens := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		compactTokens[domain.Compact(token)] = struct{}{}
	}

	gender := ""
	for _, token := range tokens {
		if _, ok := domain.WomenTokens[token]; ok {
			gender = "Women"
			break
		}
	}
	if gender == "" {
		for _, token := range tokens {
			if _, ok := domain.MenTokens[token]; ok {
				gender = "Men"
				break
			}
		}
	}

	var articleHints []string
	for _, article := range s.vocab.ArticleTypes() {
		articleNorm := domain.Normalize(article)
		if articleNorm == "" {
			continue
		}
		if domain.ContainsPadded(queryNorm, articleNorm) {
			articleHints = append(articleHints, article)
			continue
		}
		compact := domain.Compact(article)
		if _, ok := compactTokens[compact]; ok {
			articleHints = append(articleHints, article)
			continue
		}
		singular := strings.TrimSuffix(compact, "s")
		if singular != "" {
			if _, ok := compactTokens[singular]; ok {
				articleHints = append(articleHints, article)
			}
		}
	}

	var colorHints []string
	for _, color := range s.vocab.Colors() {
		if domain.ContainsPadded(queryNorm, domain.Normalize(color)) {
			colorHints = append(colorHints, color)
		}
	}

	tokenSet := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		tokenSet[token] = struct{}{}
	}
	var usageHints []string
	for _, usage := range usageOrder {
		for _, keyword := range domain.UsageLexicon[usage] {
			if _, ok := tokenSet[keyword]; ok {
				usageHints = append(usageHints, usage)
				break
			}
		}
	}

	var seasonHints []string
	for _, season := range domain.Seasons {
		if _, ok := tokenSet[strings.ToLower(season)]; ok {
			seasonHints = append(seasonHints, season)
		}
	}

	var styleKeywords []string
	for _, token := range tokens {
		if len(token) < 4 {
			continue
		}
		if _, generic := domain.GenericKeywords[token]; generic {
			continue
		}
		if _, genderWord := genderWords[token]; genderWord {
			continue
		}
		styleKeywords = append(styleKeywords, token)
	}

	if summary != nil {
		if g := strings.TrimSpace(summary.Gender); g != "" {
			if n := domain.Normalize(g); n != "unknown" && n != "unisex" && n != "" {
				gender = g
			}
		}
		colorHints = append(colorHints, summary.Colors...)
		articleHints = append(articleHints, summary.ArticleTypes...)
		if occasion := strings.TrimSpace(summary.Occasion); occasion != "" {
			if n := domain.Normalize(occasion); n != "unknown" && n != "" {
				usageHints = append(usageHints, titleCase(occasion))
			}
		}
		if season := strings.TrimSpace(summary.Season); season != "" {
			if n := domain.Normalize(season); n != "unknown" && n != "" {
				seasonHints = append(seasonHints, titleCase(season))
			}
		}
		styleKeywords = append(styleKeywords, summary.StyleKeywords...)
	}

	return domain.Intent{
		QueryText:     queryText,
		Gender:        gender,
		ArticleHints:  domain.Dedupe(articleHints),
		ColorHints:    domain.Dedupe(colorHints),
		UsageHints:    domain.Dedupe(usageHints),
		SeasonHints:   domain.Dedupe(seasonHints),
		StyleKeywords: domain.Dedupe(styleKeywords),
	}
}

// usageOrder fixes iteration order over the usage lexicon.
var usageOrder = []string{"Party", "Work", "Casual", "Formal", "Sports", "Ethnic"}

var genderWords = map[string]struct{}{
	"women": {}, "woman": {}, "men": {}, "man": {},
}

func titleCase(text string) string {
	words := strings.Fields(strings.ToLower(text))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
