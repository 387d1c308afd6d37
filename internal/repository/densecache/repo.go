// Package densecache persists the catalog embedding matrix so restarts skip
// the expensive rebuild. The snapshot is keyed by a content signature; a
// stale signature reads as a miss.
package densecache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/db"
	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

var (
	metaKey    = domain.KeyPrefix + "dense:meta"
	vectorsKey = domain.KeyPrefix + "dense:vectors"
)

type meta struct {
	Signature string `json:"signature"`
	Model     string `json:"model"`
	Rows      int    `json:"rows"`
	Dims      int    `json:"dims"`
}

// store is the consumer interface for the dense cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/retrieval.DenseCache.
type Repo struct {
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a dense cache repository. cacheTotal is a counter vec with
// label "result" ("hit"/"miss"); nil disables the metric.
func New(s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, cacheTotal: cacheTotal, logger: logger}
}

// Load returns the cached matrix when its signature matches. A missing key,
// a signature mismatch, or corrupt bytes all read as a plain miss.
func (r *Repo) Load(ctx context.Context, signature string) (domain.DenseSnapshot, bool, error) {
	rawMeta, err := r.store.Get(ctx, metaKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			r.incCache("miss")
			return domain.DenseSnapshot{}, false, nil
		}
		return domain.DenseSnapshot{}, false, fmt.Errorf("get dense meta: %w", err)
	}

	var m meta
	if err := json.Unmarshal(rawMeta, &m); err != nil || m.Signature != signature {
		r.incCache("miss")
		return domain.DenseSnapshot{}, false, nil
	}

	rawVectors, err := r.store.Get(ctx, vectorsKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			r.incCache("miss")
			return domain.DenseSnapshot{}, false, nil
		}
		return domain.DenseSnapshot{}, false, fmt.Errorf("get dense vectors: %w", err)
	}

	vectors, err := bytesToVector(rawVectors)
	if err != nil || len(vectors) != m.Rows*m.Dims {
		r.logger.Warn("dense cache payload does not match its metadata",
			zap.Int("rows", m.Rows), zap.Int("dims", m.Dims), zap.Int("floats", len(vectors)))
		r.incCache("miss")
		return domain.DenseSnapshot{}, false, nil
	}

	r.incCache("hit")
	return domain.DenseSnapshot{
		Signature: m.Signature,
		Model:     m.Model,
		Rows:      m.Rows,
		Dims:      m.Dims,
		Vectors:   vectors,
	}, true, nil
}

// Save persists the matrix and its metadata. Vectors go first so a crash
// between writes leaves the old signature pointing at old bytes at worst.
func (r *Repo) Save(ctx context.Context, snap domain.DenseSnapshot) error {
	if snap.Rows*snap.Dims != len(snap.Vectors) {
		return fmt.Errorf("dense snapshot %dx%d does not hold %d floats: %w",
			snap.Rows, snap.Dims, len(snap.Vectors), domain.ErrEmbeddingShapeMismatch)
	}

	if err := r.store.Set(ctx, vectorsKey, vectorToBytes(snap.Vectors)); err != nil {
		return fmt.Errorf("set dense vectors: %w", err)
	}

	data, err := json.Marshal(meta{
		Signature: snap.Signature,
		Model:     snap.Model,
		Rows:      snap.Rows,
		Dims:      snap.Dims,
	})
	if err != nil {
		return fmt.Errorf("marshal dense meta: %w", err)
	}
	if err := r.store.Set(ctx, metaKey, data); err != nil {
		return fmt.Errorf("set dense meta: %w", err)
	}
	return nil
}

func (r *Repo) incCache(result string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(result).Inc()
	}
}

func vectorToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid dense cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
