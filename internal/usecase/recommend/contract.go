package recommend

import (
	"context"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
)

// Catalog is the read view over the loaded product index.
type Catalog interface {
	Len() int
	Items() []domain.Product
	ByID(id int) (domain.Product, bool)
	ArticleTypes() []string
	Colors() []string
}

// SessionRepository persists sessions, their ranked lists, explanation chips
// and match-check annotations.
type SessionRepository interface {
	Create(ctx context.Context, shopperName, source, queryText, imageSummary string) (domain.Session, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	ReplaceItems(ctx context.Context, sessionID string, items []domain.RankedItem) error
	Items(ctx context.Context, sessionID string) ([]domain.RankedItem, error)
	StoreExplanations(ctx context.Context, sessionID string, explanations []domain.Explanation) error
	Explanations(ctx context.Context, sessionID string) (map[int][]string, error)
	StoreMatchCheck(ctx context.Context, check domain.MatchCheck) error
	MatchChecks(ctx context.Context, sessionID string) (map[int]domain.MatchCheck, error)
	Counters(ctx context.Context) (map[string]int64, error)
}

// ProfileRepository persists shopper profiles, carts, and feedback events.
type ProfileRepository interface {
	Ensure(ctx context.Context, shopperName string) (string, error)
	Get(ctx context.Context, shopperName string) (domain.Profile, error)
	UpdatePreferences(ctx context.Context, shopperName, preferredGender, favoriteColor, favoriteArticleType string) error
	IncrementEventCounter(ctx context.Context, shopperName, eventType string, amount int64) error
	AddCartItem(ctx context.Context, shopperName string, productID, quantity int) error
	RemoveCartItem(ctx context.Context, shopperName string, productID int) error
	CartItems(ctx context.Context, shopperName string) ([]domain.CartLine, error)
	RecordFeedback(ctx context.Context, event domain.FeedbackEvent, product *domain.Product) error
	TopAttribute(ctx context.Context, shopperName, attribute string) (string, error)
}

// Retriever is the hybrid candidate pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts retrieval.Options) retrieval.Result
	EnsureDense(ctx context.Context) (bool, error)
	DenseReady() bool
}

// IntentParser derives structured shopper intent.
type IntentParser interface {
	Extract(ctx context.Context, queryText string, summary *domain.ImageSummary) domain.Intent
	Heuristic(queryText string, summary *domain.ImageSummary) domain.Intent
	FromSession(session domain.Session) domain.Intent
}

// Vision analyzes an uploaded outfit photo.
type Vision interface {
	AnalyzeOutfitImage(ctx context.Context, imageBytes []byte, articleTypes []string) (domain.ImageSummary, error)
}

// MatchJudge asks the chat model for a compatibility verdict.
type MatchJudge interface {
	JudgeMatch(ctx context.Context, prompt string) (domain.MatchJudgement, error)
}
