// Package outfit holds the complete-the-look building blocks: anchor-driven
// query construction, complementary-candidate supplementation, candidate
// merging, and the article-diversity selection passes.
package outfit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// ScoredProduct is a (product id, score) pair flowing between the retrieval
// and diversification stages.
type ScoredProduct struct {
	ProductID int
	Score     float64
}

// Selection is one diversified recommendation slot.
type Selection struct {
	Product domain.Product
	Score   float64
}

// LookQuery builds the primary retrieval query around the anchor product:
// gender, occasion, colour, the anchor article and its complement phrase.
func LookQuery(anchor domain.Product, intent domain.Intent) string {
	usageHint := firstNonEmpty(intent.UsageHints)
	if usageHint == "" {
		usageHint = anchor.Usage
	}
	return joinParts(
		anchor.Gender,
		usageHint,
		anchor.BaseColour,
		"complete look",
		anchor.ArticleType,
		domain.ComplementFor(anchor.ArticleType),
	)
}

// SecondaryQuery targets the complement tokens directly so pieces the primary
// query misses still surface. Empty when the anchor has no complement tokens.
func SecondaryQuery(anchor domain.Product, intent domain.Intent) string {
	tokens := domain.ComplementTokens(anchor.ArticleType)
	if len(tokens) == 0 {
		return ""
	}
	sorted := make([]string, 0, len(tokens))
	for token := range tokens {
		sorted = append(sorted, token)
	}
	sort.Strings(sorted)

	usageHint := firstNonEmpty(intent.UsageHints)
	if usageHint == "" {
		usageHint = anchor.Usage
	}
	return joinParts(
		anchor.Gender,
		usageHint,
		anchor.BaseColour,
		strings.Join(sorted, " "),
		"outfit recommendation",
	)
}

// MergeRanked unions two scored lists keeping the max score per product;
// secondary scores carry the boost. Order is score-descending with ties in
// first-seen order.
func MergeRanked(primary, secondary []ScoredProduct, boost float64) []ScoredProduct {
	scores := map[int]float64{}
	var order []int
	note := func(id int, score float64) {
		if existing, ok := scores[id]; !ok {
			scores[id] = score
			order = append(order, id)
		} else if score > existing {
			scores[id] = score
		}
	}
	for _, entry := range primary {
		note(entry.ProductID, entry.Score)
	}
	for _, entry := range secondary {
		note(entry.ProductID, entry.Score+boost)
	}

	merged := make([]ScoredProduct, 0, len(order))
	for _, id := range order {
		merged = append(merged, ScoredProduct{ProductID: id, Score: scores[id]})
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	return merged
}

// Supplement scans the whole catalog for complementary articles the query
// stages may have missed: same gender, different article type, complement
// token in the category blob. Scores favor cross-category and recent items.
func Supplement(items []domain.Product, anchor domain.Product, intent domain.Intent, exclude map[int]struct{}, limit int) []ScoredProduct {
	tokens := domain.ComplementTokens(anchor.ArticleType)
	if len(tokens) == 0 {
		return nil
	}

	anchorArticle := domain.Normalize(anchor.ArticleType)
	anchorMaster := domain.Normalize(anchor.MasterCategory)
	expectedGender := domain.Normalize(intent.Gender)
	if expectedGender == "" {
		expectedGender = domain.Normalize(anchor.Gender)
	}

	var candidates []ScoredProduct
	for _, item := range items {
		if _, excluded := exclude[item.ID]; excluded {
			continue
		}
		itemGender := domain.Normalize(item.Gender)
		if expectedGender != "" && itemGender != "" && itemGender != expectedGender {
			continue
		}
		if domain.Normalize(item.ArticleType) == anchorArticle {
			continue
		}
		blob := domain.Normalize(item.ArticleType + " " + item.SubCategory + " " + item.MasterCategory)
		if !containsAnyToken(blob, tokens) {
			continue
		}

		score := 0.45
		itemMaster := domain.Normalize(item.MasterCategory)
		if itemMaster != "" && anchorMaster != "" && itemMaster != anchorMaster {
			score += 0.12
		}
		if item.Year > 0 {
			recency := (float64(item.Year) - 2008.0) / 20.0
			if recency < 0 {
				recency = 0
			}
			if recency > 1 {
				recency = 1
			}
			score += recency * 0.06
		}
		candidates = append(candidates, ScoredProduct{ProductID: item.ID, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if limit < 1 {
		limit = 1
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Diversify selects topK candidates favoring complementary pieces and unique
// article types. Five selection passes progressively relax the constraints
// so the list fills even from a narrow pool.
func Diversify(ranked []ScoredProduct, byID func(int) (domain.Product, bool), anchor domain.Product, topK int) []Selection {
	if topK < 1 {
		topK = 1
	}

	anchorArticle := domain.Normalize(anchor.ArticleType)
	anchorMaster := domain.Normalize(anchor.MasterCategory)
	tokens := domain.ComplementTokens(anchor.ArticleType)

	type staged struct {
		product          domain.Product
		score            float64
		adjusted         float64
		articleNorm      string
		differentArticle bool
		differentMaster  bool
		complementMatch  bool
	}
	var pool []staged
	for _, entry := range ranked {
		item, ok := byID(entry.ProductID)
		if !ok {
			continue
		}
		articleNorm := domain.Normalize(item.ArticleType)
		masterNorm := domain.Normalize(item.MasterCategory)
		differentArticle := articleNorm != "" && articleNorm != anchorArticle
		differentMaster := masterNorm != "" && anchorMaster != "" && masterNorm != anchorMaster
		blob := domain.Normalize(item.ArticleType + " " + item.SubCategory + " " + item.MasterCategory)
		complementMatch := containsAnyToken(blob, tokens)

		adjusted := entry.Score + 0.09*boolFloat(differentMaster) + 0.18*boolFloat(complementMatch)
		if differentArticle {
			adjusted += 0.24
		} else {
			adjusted -= 0.05
		}
		pool = append(pool, staged{
			product:          item,
			score:            entry.Score,
			adjusted:         adjusted,
			articleNorm:      articleNorm,
			differentArticle: differentArticle,
			differentMaster:  differentMaster,
			complementMatch:  complementMatch,
		})
	}
	if len(pool) == 0 {
		return nil
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].adjusted > pool[j].adjusted })

	var selected []Selection
	selectedIDs := map[int]struct{}{}
	usedArticles := map[string]struct{}{}
	if anchorArticle != "" {
		usedArticles[anchorArticle] = struct{}{}
	}

	take := func(requireDifferent, requireComplement, uniqueArticle bool) {
		if len(selected) >= topK {
			return
		}
		for _, item := range pool {
			if len(selected) >= topK {
				break
			}
			if _, done := selectedIDs[item.product.ID]; done {
				continue
			}
			if requireDifferent && !item.differentArticle {
				continue
			}
			if requireComplement && !item.complementMatch {
				continue
			}
			if uniqueArticle && item.articleNorm != "" {
				if _, used := usedArticles[item.articleNorm]; used {
					continue
				}
			}
			selected = append(selected, Selection{Product: item.product, Score: item.score})
			selectedIDs[item.product.ID] = struct{}{}
			if item.articleNorm != "" {
				usedArticles[item.articleNorm] = struct{}{}
			}
		}
	}

	take(true, true, true)
	take(true, false, true)
	take(true, true, false)
	take(true, false, false)
	take(false, false, false)

	if len(selected) > topK {
		selected = selected[:topK]
	}
	return selected
}

// Reason builds the per-recommendation explanation sentence from up to two
// of the strongest anchor/candidate relationships.
func Reason(anchor, candidate domain.Product, intent domain.Intent) string {
	var reasons []string

	anchorArticle := strings.TrimSpace(anchor.ArticleType)
	candidateArticle := strings.TrimSpace(candidate.ArticleType)
	if anchorArticle != "" && candidateArticle != "" {
		if domain.Normalize(anchorArticle) != domain.Normalize(candidateArticle) {
			reasons = append(reasons, fmt.Sprintf("adds a complementary %s to your %s",
				strings.ToLower(candidateArticle), strings.ToLower(anchorArticle)))
		} else {
			reasons = append(reasons, fmt.Sprintf("keeps the same %s style direction", strings.ToLower(candidateArticle)))
		}
	}

	candidateColor := strings.TrimSpace(candidate.BaseColour)
	if candidateColor != "" {
		anchorColor := strings.TrimSpace(anchor.BaseColour)
		switch {
		case anchorColor != "" && domain.Normalize(anchorColor) == domain.Normalize(candidateColor):
			reasons = append(reasons, fmt.Sprintf("matches your selected %s color tone", strings.ToLower(candidateColor)))
		case matchesAnyNormalized(intent.ColorHints, candidateColor):
			reasons = append(reasons, fmt.Sprintf("fits your color preference for %s", strings.ToLower(candidateColor)))
		}
	}

	usageTarget := firstNonEmpty(intent.UsageHints)
	if usageTarget == "" {
		usageTarget = strings.TrimSpace(anchor.Usage)
	}
	candidateUsage := strings.TrimSpace(candidate.Usage)
	if usageTarget != "" && candidateUsage != "" && domain.Normalize(usageTarget) == domain.Normalize(candidateUsage) {
		reasons = append(reasons, fmt.Sprintf("fits the %s occasion from your request", strings.ToLower(candidateUsage)))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "fits the selected look profile")
	}
	if len(reasons) > 2 {
		reasons = reasons[:2]
	}
	return fmt.Sprintf("Suggested because it %s.", strings.Join(reasons, "; "))
}

func containsAnyToken(blob string, tokens map[string]struct{}) bool {
	for token := range tokens {
		if strings.Contains(blob, token) {
			return true
		}
	}
	return false
}

func matchesAnyNormalized(values []string, target string) bool {
	targetNorm := domain.Normalize(target)
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if domain.Normalize(value) == targetNorm {
			return true
		}
	}
	return false
}

func firstNonEmpty(values []string) string {
	for _, value := range values {
		if cleaned := strings.TrimSpace(value); cleaned != "" {
			return cleaned
		}
	}
	return ""
}

func joinParts(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if cleaned := strings.TrimSpace(part); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	return strings.Join(kept, " ")
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
