// Package retrieval implements hybrid candidate generation: lexical keyword
// scoring and dense cosine retrieval fused with reciprocal rank fusion, then
// reordered by a remote rerank model with a deterministic overlap fallback.
package retrieval

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

const (
	defaultCandidatePool  = 180
	defaultEmbedBatchSize = 96
)

// Config carries retrieval tuning knobs.
type Config struct {
	AIEnabled      bool
	CandidatePool  int
	EmbedBatchSize int
}

// Options adjusts a single Retrieve call.
type Options struct {
	// TopK is the number of final recommendations the caller will surface.
	// Internal pools and rerank depth scale from it.
	TopK int
	// DenseBuildIfMissing allows building the embedding matrix on demand.
	// Latency-sensitive paths disable it and rely on the warm cache.
	DenseBuildIfMissing bool
	// RerankDepthMultiplier widens the reranked slice beyond TopK so callers
	// can diversify. Values below 2 are treated as 2. Zero means the default.
	RerankDepthMultiplier int
	// CandidatePoolLimit caps the per-stage candidate pool. Zero means no cap.
	CandidatePoolLimit int
	// RerankCandidateLimit caps how many fused rows reach the rerank model.
	// Zero means all of them.
	RerankCandidateLimit int
}

const defaultRerankDepthMultiplier = 8

// Candidate is a catalog row scored by the retrieval pipeline. Lexical and
// Dense record which candidate generators surfaced the row.
type Candidate struct {
	Row       int
	ProductID int
	Score     float64
	Lexical   bool
	Dense     bool
}

// Result is the ordered candidate list plus flags describing which remote
// stages actually ran.
type Result struct {
	Candidates []Candidate
	DenseUsed  bool
	RerankUsed bool
}

// Service runs the retrieval pipeline over an in-memory catalog.
type Service struct {
	catalog  Catalog
	embedder Embedder
	reranker Reranker
	cache    DenseCache
	pool     *worker.Pool
	logger   *zap.Logger

	aiEnabled      bool
	candidatePool  int
	embedBatchSize int
	denseSignature string

	denseMu      sync.Mutex
	denseReady   bool
	denseVectors []float32
	denseNorms   []float64
	denseDims    int
}

// New wires a retrieval service. embedder and reranker may be nil when
// cfg.AIEnabled is false.
func New(catalog Catalog, embedder Embedder, reranker Reranker, cache DenseCache, pool *worker.Pool, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CandidatePool <= 0 {
		cfg.CandidatePool = defaultCandidatePool
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = defaultEmbedBatchSize
	}

	s := &Service{
		catalog:        catalog,
		embedder:       embedder,
		reranker:       reranker,
		cache:          cache,
		pool:           pool,
		logger:         logger,
		aiEnabled:      cfg.AIEnabled && embedder != nil && reranker != nil,
		candidatePool:  cfg.CandidatePool,
		embedBatchSize: cfg.EmbedBatchSize,
	}
	if s.aiEnabled {
		s.denseSignature = catalogSignature(embedder.EmbedModel(), catalog.Items())
	}
	return s
}

// Retrieve generates, fuses and reorders candidates for the query. An empty
// result means no candidate stage produced anything; callers decide how to
// fall back.
func (s *Service) Retrieve(ctx context.Context, query string, opts Options) Result {
	topK := opts.TopK
	if topK < 1 {
		topK = 1
	}

	poolSize := s.candidatePool
	if scaled := topK * 20; scaled > poolSize {
		poolSize = scaled
	}
	if opts.CandidatePoolLimit > 0 {
		limit := opts.CandidatePoolLimit
		if floor := topK * 8; limit < floor {
			limit = floor
		}
		if poolSize > limit {
			poolSize = limit
		}
		if floor := topK * 8; poolSize < floor {
			poolSize = floor
		}
	}

	lexicalRows := s.lexicalRows(query, poolSize)

	var denseRows []int
	if s.aiEnabled {
		rows, err := s.denseRows(ctx, query, poolSize, opts.DenseBuildIfMissing)
		if err != nil {
			s.logger.Warn("dense retrieval unavailable, continuing with lexical candidates", zap.Error(err))
		} else {
			denseRows = rows
		}
	}

	fuseLimit := poolSize
	if scaled := topK * 30; scaled > fuseLimit {
		fuseLimit = scaled
	}
	fusedRows := fuseRRF([][]int{lexicalRows, denseRows}, fuseLimit)
	if len(fusedRows) == 0 {
		fusedRows = lexicalRows
	}
	if len(fusedRows) == 0 {
		return Result{}
	}

	rerankRows := fusedRows
	if opts.RerankCandidateLimit > 0 {
		capped := opts.RerankCandidateLimit
		if capped < topK {
			capped = topK
		}
		if len(rerankRows) > capped {
			rerankRows = rerankRows[:capped]
		}
	}

	depth := opts.RerankDepthMultiplier
	if depth == 0 {
		depth = defaultRerankDepthMultiplier
	}
	if depth < 2 {
		depth = 2
	}
	ranked, rerankUsed := s.rankCandidates(ctx, query, rerankRows, topK*depth)

	lexicalSet := make(map[int]struct{}, len(lexicalRows))
	for _, row := range lexicalRows {
		lexicalSet[row] = struct{}{}
	}
	denseSet := make(map[int]struct{}, len(denseRows))
	for _, row := range denseRows {
		denseSet[row] = struct{}{}
	}

	candidates := make([]Candidate, 0, len(ranked))
	for _, entry := range ranked {
		_, lexical := lexicalSet[entry.Row]
		_, dense := denseSet[entry.Row]
		candidates = append(candidates, Candidate{
			Row:       entry.Row,
			ProductID: s.catalog.Product(entry.Row).ID,
			Score:     entry.Score,
			Lexical:   lexical,
			Dense:     dense,
		})
	}
	return Result{
		Candidates: candidates,
		DenseUsed:  len(denseRows) > 0,
		RerankUsed: rerankUsed,
	}
}
