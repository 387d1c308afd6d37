package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/db"
)

type mockEmbedder struct {
	vectors [][]float32
	err     error
	calls   int
	got     []string
}

func (m *mockEmbedder) EmbedModel() string { return "embed-test-v1" }

func (m *mockEmbedder) EmbedTexts(_ context.Context, texts []string, _ string) ([][]float32, error) {
	m.calls++
	m.got = texts
	if m.err != nil {
		return nil, m.err
	}
	if m.vectors != nil {
		return m.vectors, nil
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 0.5}
	}
	return vectors, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, nil, zap.NewNop())
	return ce, ms
}
