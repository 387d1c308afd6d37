// Package embcache caches individual text embeddings in the key-value store
// so repeated queries and rebuilt matrices skip the remote embed call.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/db"
	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "emb_cache:"

// Entries expire so a catalog refresh or model change cannot serve stale
// vectors forever. The key already pins model and input type.
const cacheTTL = 7 * 24 * time.Hour

// store is the consumer interface for the embedding cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// embedder is the inner remote embedder.
type embedder interface {
	EmbedTexts(ctx context.Context, texts []string, inputType string) ([][]float32, error)
	EmbedModel() string
}

// CachedEmbedder is a read-through cache in front of the remote embedder.
type CachedEmbedder struct {
	inner      embedder
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(inner embedder, s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// EmbedModel reports the inner model name. Cached vectors are keyed by it.
func (c *CachedEmbedder) EmbedModel() string { return c.inner.EmbedModel() }

// EmbedTexts returns one vector per input text, in input order. Cached texts
// are served from the store; only the misses go to the remote model, as a
// single batch.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		key := c.cacheKey(text, inputType)
		if vec, ok := c.getFromCache(ctx, key); ok {
			c.incCache("hit")
			vectors[i] = vec
			continue
		}
		c.incCache("miss")
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	fresh, err := c.inner.EmbedTexts(ctx, missTexts, inputType)
	if err != nil {
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("embed texts: got %d vectors for %d texts: %w",
			len(fresh), len(missTexts), domain.ErrEmbeddingShapeMismatch)
	}

	for j, vec := range fresh {
		i := missIdx[j]
		vectors[i] = vec
		c.putToCache(ctx, c.cacheKey(texts[i], inputType), vec)
	}
	return vectors, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text, inputType string) string {
	h := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + c.inner.EmbedModel() + ":" + inputType + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.SetWithTTL(ctx, key, data, cacheTTL); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
