package retrieval

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

type rankedRow struct {
	Row   int
	Score float64
}

// rankCandidates orders candidate rows against the query. The remote rerank
// model is preferred; on failure the token-overlap fallback keeps results
// deterministic. The second return reports whether the model produced the
// ordering.
func (s *Service) rankCandidates(ctx context.Context, query string, candidateRows []int, topK int) ([]rankedRow, bool) {
	if len(candidateRows) == 0 {
		return nil, false
	}

	if s.aiEnabled {
		documents := make([]string, len(candidateRows))
		for i, row := range candidateRows {
			documents[i] = s.catalog.Doc(row)
		}

		hits, err := worker.Call(ctx, s.pool, "rerank", func(callCtx context.Context) ([]domain.RerankHit, error) {
			return s.reranker.Rerank(callCtx, query, documents, topK)
		})
		if err != nil {
			s.logger.Warn("rerank unavailable, using overlap fallback", zap.Error(err))
		} else if len(hits) > 0 {
			mapped := make([]rankedRow, 0, len(hits))
			for _, hit := range hits {
				if hit.Index < 0 || hit.Index >= len(candidateRows) {
					continue
				}
				mapped = append(mapped, rankedRow{Row: candidateRows[hit.Index], Score: hit.Relevance})
			}
			if len(mapped) > 0 {
				if len(mapped) > topK {
					mapped = mapped[:topK]
				}
				return mapped, true
			}
		}
	}

	// Overlap fallback: fraction of query tokens present in the document,
	// floored by reciprocal candidate rank so fused order still matters.
	tokenSet := map[string]struct{}{}
	for _, token := range domain.Tokenize(domain.Normalize(query)) {
		tokenSet[token] = struct{}{}
	}
	scored := make([]rankedRow, 0, len(candidateRows))
	for rank, row := range candidateRows {
		doc := s.catalog.NormDoc(row)
		overlap := 0
		for token := range tokenSet {
			if domain.ContainsPadded(doc, token) {
				overlap++
			}
		}
		denom := len(tokenSet)
		if denom < 1 {
			denom = 1
		}
		score := float64(overlap) / float64(denom)
		if floor := 1.0 / float64(rank+1); score < floor {
			score = floor
		}
		scored = append(scored, rankedRow{Row: row, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, false
}
