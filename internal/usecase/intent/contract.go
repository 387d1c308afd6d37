package intent

import (
	"context"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// Vocabulary exposes the catalog value sets the heuristic parser matches
// against.
type Vocabulary interface {
	ArticleTypes() []string
	Colors() []string
}

// Extractor is the AI structured-extraction call.
type Extractor interface {
	ExtractIntent(ctx context.Context, queryText string, articleTypes []string) (domain.IntentFragment, error)
}
