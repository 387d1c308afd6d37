package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

// embed batch size bounds.
const (
	minEmbedBatch = 16
	maxEmbedBatch = 256
)

// catalogSignature hashes the embed model plus the ranking-relevant product
// fields. Any catalog or model change invalidates the persisted matrix.
func catalogSignature(embedModel string, items []domain.Product) string {
	h := sha256.New()
	h.Write([]byte(embedModel))
	for _, item := range items {
		fmt.Fprintf(h, "%d|%s|%s|%s|%s", item.ID, item.Name, item.ArticleType, item.BaseColour, item.Usage)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DenseReady reports whether the embedding matrix is resident in memory.
func (s *Service) DenseReady() bool {
	s.denseMu.Lock()
	defer s.denseMu.Unlock()
	return s.denseReady
}

// EnsureDense builds or loads the catalog embedding matrix. Safe for
// concurrent callers; only one build runs at a time.
func (s *Service) EnsureDense(ctx context.Context) (bool, error) {
	return s.ensureDense(ctx, true)
}

func (s *Service) ensureDense(ctx context.Context, buildIfMissing bool) (bool, error) {
	if !s.aiEnabled {
		return false, nil
	}

	s.denseMu.Lock()
	defer s.denseMu.Unlock()

	if s.denseReady {
		return true, nil
	}
	if s.loadDenseLocked(ctx) {
		return true, nil
	}
	if !buildIfMissing {
		return false, nil
	}

	docs := s.catalog.Docs()
	batchSize := s.embedBatchSize
	if batchSize < minEmbedBatch {
		batchSize = minEmbedBatch
	}
	if batchSize > maxEmbedBatch {
		batchSize = maxEmbedBatch
	}

	var vectors []float32
	dims := 0
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		got, err := worker.Call(ctx, s.pool, "embed_documents", func(callCtx context.Context) ([][]float32, error) {
			return s.embedder.EmbedTexts(callCtx, batch, domain.InputSearchDocument)
		})
		if err != nil {
			return false, fmt.Errorf("embed catalog batch at %d: %w", start, err)
		}
		if len(got) != len(batch) {
			return false, fmt.Errorf("embed catalog batch at %d: got %d vectors for %d docs: %w",
				start, len(got), len(batch), domain.ErrEmbeddingShapeMismatch)
		}
		for _, vec := range got {
			if dims == 0 {
				dims = len(vec)
			}
			if len(vec) != dims {
				return false, fmt.Errorf("inconsistent embedding width %d vs %d: %w",
					len(vec), dims, domain.ErrEmbeddingShapeMismatch)
			}
			vectors = append(vectors, vec...)
		}
	}
	if dims == 0 {
		return false, nil
	}

	s.denseVectors = vectors
	s.denseDims = dims
	s.denseNorms = rowNorms(vectors, dims)
	s.denseReady = true

	if err := s.cache.Save(ctx, domain.DenseSnapshot{
		Signature: s.denseSignature,
		Model:     s.embedder.EmbedModel(),
		Rows:      len(vectors) / dims,
		Dims:      dims,
		Vectors:   vectors,
	}); err != nil {
		s.logger.Warn("failed to persist dense index", zap.Error(err))
	}
	return true, nil
}

// loadDenseLocked tries the persisted snapshot. Caller holds denseMu.
func (s *Service) loadDenseLocked(ctx context.Context) bool {
	snap, ok, err := s.cache.Load(ctx, s.denseSignature)
	if err != nil {
		s.logger.Warn("dense cache load failed", zap.Error(err))
		return false
	}
	if !ok || snap.Dims <= 0 || snap.Rows != s.catalog.Len() {
		return false
	}

	s.denseVectors = snap.Vectors
	s.denseDims = snap.Dims
	s.denseNorms = rowNorms(snap.Vectors, snap.Dims)
	s.denseReady = true
	return true
}

// denseRows embeds the query and returns the poolSize nearest catalog rows
// by cosine similarity.
func (s *Service) denseRows(ctx context.Context, query string, poolSize int, buildIfMissing bool) ([]int, error) {
	ready, err := s.ensureDense(ctx, buildIfMissing)
	if err != nil || !ready {
		return nil, err
	}

	got, err := worker.Call(ctx, s.pool, "embed_query", func(callCtx context.Context) ([][]float32, error) {
		return s.embedder.EmbedTexts(callCtx, []string{query}, domain.InputSearchQuery)
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(got) == 0 {
		return nil, nil
	}

	s.denseMu.Lock()
	vectors, norms, dims := s.denseVectors, s.denseNorms, s.denseDims
	s.denseMu.Unlock()

	k := poolSize
	if k < 1 {
		k = 1
	}
	rows := len(vectors) / dims
	if k > rows {
		k = rows
	}
	return topKCosine(got[0], vectors, norms, dims, k), nil
}

// topKCosine returns the k rows most similar to the query vector. Ties
// resolve to the lower row index so results are deterministic.
func topKCosine(query []float32, vectors []float32, norms []float64, dims, k int) []int {
	queryNorm := 0.0
	for _, v := range query {
		queryNorm += float64(v) * float64(v)
	}
	queryNorm = math.Sqrt(queryNorm)

	rows := len(vectors) / dims
	scores := make([]float64, rows)
	for row := 0; row < rows; row++ {
		if len(query) != dims {
			continue
		}
		dot := 0.0
		base := row * dims
		for i := 0; i < dims; i++ {
			dot += float64(query[i]) * float64(vectors[base+i])
		}
		denom := queryNorm * norms[row]
		if denom > 0 {
			scores[row] = dot / denom
		}
	}

	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })
	if k > len(order) {
		k = len(order)
	}
	return order[:k]
}

func rowNorms(vectors []float32, dims int) []float64 {
	rows := len(vectors) / dims
	norms := make([]float64, rows)
	for row := 0; row < rows; row++ {
		sum := 0.0
		base := row * dims
		for i := 0; i < dims; i++ {
			v := float64(vectors[base+i])
			sum += v * v
		}
		norms[row] = math.Sqrt(sum)
	}
	return norms
}
