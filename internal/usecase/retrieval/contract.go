package retrieval

import (
	"context"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// Catalog is the read view over the in-memory product index.
type Catalog interface {
	Len() int
	Product(row int) domain.Product
	Doc(row int) string
	NormDoc(row int) string
	Docs() []string
	Items() []domain.Product
}

// Embedder vectorizes batches of texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string, inputType string) ([][]float32, error)
	EmbedModel() string
}

// Reranker scores documents against a query with a remote rerank model.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RerankHit, error)
}

// DenseCache persists the catalog embedding matrix between restarts.
type DenseCache interface {
	Load(ctx context.Context, signature string) (domain.DenseSnapshot, bool, error)
	Save(ctx context.Context, snap domain.DenseSnapshot) error
}
