package retrieval

import (
	"sort"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// lexicalRows scores every catalog document against the query: +4 when the
// whole normalized query appears as a padded substring, +1 per distinct
// informative token hit. Zero-score queries fall back to the head of the
// catalog so downstream stages always have candidates.
func (s *Service) lexicalRows(query string, poolSize int) []int {
	normalized := domain.Normalize(query)
	var tokens []string
	for _, token := range domain.Tokenize(normalized) {
		if len(token) < 3 {
			continue
		}
		if _, generic := domain.GenericKeywords[token]; generic {
			continue
		}
		tokens = append(tokens, token)
	}

	type scoredRow struct {
		row   int
		score float64
	}
	var scored []scoredRow
	for row := 0; row < s.catalog.Len(); row++ {
		doc := s.catalog.NormDoc(row)
		score := 0.0
		if normalized != "" && domain.ContainsPadded(doc, normalized) {
			score += 4
		}
		for _, token := range tokens {
			if domain.ContainsPadded(doc, token) {
				score++
			}
		}
		if score > 0 {
			scored = append(scored, scoredRow{row: row, score: score})
		}
	}

	if len(scored) == 0 {
		limit := poolSize
		if limit < 50 {
			limit = 50
		}
		if limit > s.catalog.Len() {
			limit = s.catalog.Len()
		}
		rows := make([]int, limit)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	limit := poolSize
	if limit < 20 {
		limit = 20
	}
	if limit > len(scored) {
		limit = len(scored)
	}
	rows := make([]int, limit)
	for i := 0; i < limit; i++ {
		rows[i] = scored[i].row
	}
	return rows
}
