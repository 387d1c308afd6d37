package domain

// Embedding input types, mirroring the Cohere embed API contract.
const (
	InputSearchDocument = "search_document"
	InputSearchQuery    = "search_query"
)

// RerankHit is one entry of a rerank response. Index refers to the position
// in the submitted document slice.
type RerankHit struct {
	Index     int
	Relevance float64
}

// MatchJudgement is the validated output of an LLM match-scoring call.
type MatchJudgement struct {
	Verdict    string
	Rationale  string
	Confidence float64
}

// DenseSnapshot is a persisted catalog embedding matrix, stored row-major.
// Signature ties the matrix to the catalog content and embed model it was
// built from.
type DenseSnapshot struct {
	Signature string
	Model     string
	Rows      int
	Dims      int
	Vectors   []float32
}
