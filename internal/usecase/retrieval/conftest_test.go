package retrieval

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/catalog"
	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: 101, Gender: "Women", MasterCategory: "Apparel", SubCategory: "Topwear", ArticleType: "Dresses", BaseColour: "Red", Season: "Summer", Year: 2019, Usage: "Party", Name: "Scarlet Wrap Party Dress"},
		{ID: 102, Gender: "Men", MasterCategory: "Apparel", SubCategory: "Bottomwear", ArticleType: "Jeans", BaseColour: "Blue", Season: "Fall", Year: 2017, Usage: "Casual", Name: "Indigo Slim Fit Jeans"},
		{ID: 103, Gender: "Men", MasterCategory: "Apparel", SubCategory: "Topwear", ArticleType: "Tshirts", BaseColour: "White", Season: "Summer", Year: 2016, Usage: "Casual", Name: "Classic White Crew Tshirt"},
		{ID: 104, Gender: "Women", MasterCategory: "Footwear", SubCategory: "Shoes", ArticleType: "Heels", BaseColour: "Black", Season: "Winter", Year: 2020, Usage: "Party", Name: "Midnight Patent Heels"},
		{ID: 105, Gender: "Unisex", MasterCategory: "Accessories", SubCategory: "Bags", ArticleType: "Backpacks", BaseColour: "Green", Season: "Spring", Year: 2015, Usage: "Travel", Name: "Forest Canvas Backpack"},
	}
}

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	idx, err := catalog.NewIndex(testProducts())
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return idx
}

// stubEmbedder returns deterministic vectors and records the batches it saw.
type stubEmbedder struct {
	mu      sync.Mutex
	model   string
	dims    int
	vecFor  func(text string) []float32
	err     error
	batches [][]string
}

func newStubEmbedder() *stubEmbedder {
	s := &stubEmbedder{model: "embed-test-v1", dims: 3}
	s.vecFor = func(text string) []float32 {
		lowered := strings.ToLower(text)
		switch {
		case strings.Contains(lowered, "dress"):
			return []float32{1, 0, 0}
		case strings.Contains(lowered, "jeans"):
			return []float32{0, 1, 0}
		default:
			return []float32{0, 0, 1}
		}
	}
	return s
}

func (s *stubEmbedder) EmbedTexts(_ context.Context, texts []string, _ string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.batches = append(s.batches, append([]string(nil), texts...))
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = s.vecFor(text)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedModel() string { return s.model }

// stubReranker replays canned hits and records the last request.
type stubReranker struct {
	hits    []domain.RerankHit
	err     error
	gotDocs []string
	gotTopN int
	calls   int
}

func (s *stubReranker) Rerank(_ context.Context, _ string, documents []string, topN int) ([]domain.RerankHit, error) {
	s.calls++
	s.gotDocs = append([]string(nil), documents...)
	s.gotTopN = topN
	if s.err != nil {
		return nil, s.err
	}
	return s.hits, nil
}

// memDenseCache keeps snapshots keyed by signature.
type memDenseCache struct {
	mu    sync.Mutex
	snaps map[string]domain.DenseSnapshot
	saves int
}

func newMemDenseCache() *memDenseCache {
	return &memDenseCache{snaps: map[string]domain.DenseSnapshot{}}
}

func (c *memDenseCache) Load(_ context.Context, signature string) (domain.DenseSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[signature]
	return snap, ok, nil
}

func (c *memDenseCache) Save(_ context.Context, snap domain.DenseSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[snap.Signature] = snap
	c.saves++
	return nil
}

func testPool() *worker.Pool {
	return worker.NewPool(4, 2*time.Second)
}

func testService(t *testing.T, embedder *stubEmbedder, reranker *stubReranker, cache *memDenseCache, aiEnabled bool) *Service {
	t.Helper()
	var emb Embedder
	if embedder != nil {
		emb = embedder
	}
	var rr Reranker
	if reranker != nil {
		rr = reranker
	}
	var dc DenseCache = newMemDenseCache()
	if cache != nil {
		dc = cache
	}
	return New(testIndex(t), emb, rr, dc, testPool(), Config{AIEnabled: aiEnabled}, zap.NewNop())
}
