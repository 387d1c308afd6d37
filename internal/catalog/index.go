package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// Index is the immutable in-memory view of the catalog. All derived data
// (search documents, vocabularies, row lookups) is computed once at
// construction so the hot path never allocates per request.
type Index struct {
	items        []domain.Product
	rowByID      map[int]int
	docs         []string
	normDocs     []string
	articleTypes []string
	colors       []string
}

// NewIndex builds an index over the given products. The slice is retained,
// not copied; callers must not mutate it afterwards.
func NewIndex(items []domain.Product) (*Index, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("catalog index: %w: no products", domain.ErrInvalidArgument)
	}

	idx := &Index{
		items:    items,
		rowByID:  make(map[int]int, len(items)),
		docs:     make([]string, len(items)),
		normDocs: make([]string, len(items)),
	}

	articleSeen := map[string]struct{}{}
	colorSeen := map[string]struct{}{}
	for row, p := range items {
		if _, dup := idx.rowByID[p.ID]; !dup {
			idx.rowByID[p.ID] = row
		}
		idx.docs[row] = p.SearchDocument()
		idx.normDocs[row] = domain.Normalize(idx.docs[row])

		if at := strings.TrimSpace(p.ArticleType); at != "" {
			if _, ok := articleSeen[at]; !ok {
				articleSeen[at] = struct{}{}
				idx.articleTypes = append(idx.articleTypes, at)
			}
		}
		if c := strings.TrimSpace(p.BaseColour); c != "" {
			if _, ok := colorSeen[c]; !ok {
				colorSeen[c] = struct{}{}
				idx.colors = append(idx.colors, c)
			}
		}
	}
	sort.Strings(idx.colors)

	return idx, nil
}

// Items returns all products in catalog order.
func (x *Index) Items() []domain.Product { return x.items }

// Len reports the number of products.
func (x *Index) Len() int { return len(x.items) }

// Product returns the product at a given row.
func (x *Index) Product(row int) domain.Product { return x.items[row] }

// RowByID resolves a product id to its row index.
func (x *Index) RowByID(id int) (int, bool) {
	row, ok := x.rowByID[id]
	return row, ok
}

// ByID resolves a product id to the product itself.
func (x *Index) ByID(id int) (domain.Product, bool) {
	row, ok := x.rowByID[id]
	if !ok {
		return domain.Product{}, false
	}
	return x.items[row], true
}

// Doc returns the enriched search document for a row.
func (x *Index) Doc(row int) string { return x.docs[row] }

// NormDoc returns the normalized search document for a row.
func (x *Index) NormDoc(row int) string { return x.normDocs[row] }

// Docs returns all search documents in row order.
func (x *Index) Docs() []string { return x.docs }

// ArticleTypes returns the unique article types in first-seen catalog order.
func (x *Index) ArticleTypes() []string { return x.articleTypes }

// Colors returns the unique base colours sorted alphabetically.
func (x *Index) Colors() []string { return x.colors }
