package domain

import "time"

// Session is one recommendation session: a ranked product list produced by a
// search, refine, or complete-look call. Immutable after creation except for
// appended match-check annotations.
type Session struct {
	ID           string
	ShopperName  string
	Source       string
	QueryText    string
	ImageSummary string // JSON-encoded ImageSummary, empty when absent
	CreatedAt    time.Time
}

// RankedItem is one (product, rank, score) entry of a session's ranked list.
// Rank positions start at 1.
type RankedItem struct {
	ProductID int
	Rank      int
	Score     float64
}

// MatchCheck is a per (session, product) verdict with upsert semantics: at
// most one live record per pair.
type MatchCheck struct {
	SessionID  string
	ProductID  int
	Verdict    string
	Rationale  string
	Confidence float64
	CreatedAt  time.Time
}

// Explanation pairs a product with the human-readable tags explaining its
// placement in a ranked list.
type Explanation struct {
	ProductID int
	Tags      []string
}
