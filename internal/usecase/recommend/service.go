// Package recommend orchestrates the shopper-facing operations: text and
// image search, session feeds, complete-the-look, match checks, profiles,
// carts, and feedback. Every remote-model failure degrades to a deterministic
// fallback so the storefront keeps answering.
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/scoring"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

// Config carries orchestration settings.
type Config struct {
	AIEnabled    bool
	PreferNewest bool
	EmbedModel   string

	// Per-request wall-clock budgets shared by all model calls in the request.
	SearchBudget time.Duration
	ImageBudget  time.Duration
	MatchBudget  time.Duration
}

// ApplyDefaults fills zero budget values.
func (c *Config) ApplyDefaults() {
	if c.SearchBudget <= 0 {
		c.SearchBudget = 25 * time.Second
	}
	if c.ImageBudget <= 0 {
		c.ImageBudget = 50 * time.Second
	}
	if c.MatchBudget <= 0 {
		c.MatchBudget = 20 * time.Second
	}
}

// Service implements the recommendation operations.
type Service struct {
	sessions  SessionRepository
	profiles  ProfileRepository
	catalog   Catalog
	retriever Retriever
	intents   IntentParser
	vision    Vision
	judge     MatchJudge
	pool      *worker.Pool
	adjuster  scoring.Adjuster
	cfg       Config
	logger    *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// New wires the orchestrator. vision and judge may be nil when cfg.AIEnabled
// is false.
func New(
	sessions SessionRepository,
	profiles ProfileRepository,
	catalog Catalog,
	retriever Retriever,
	intents IntentParser,
	vision Vision,
	judge MatchJudge,
	pool *worker.Pool,
	cfg Config,
	logger *zap.Logger,
) *Service {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sessions:  sessions,
		profiles:  profiles,
		catalog:   catalog,
		retriever: retriever,
		intents:   intents,
		vision:    vision,
		judge:     judge,
		pool:      pool,
		adjuster:  scoring.Adjuster{PreferNewest: cfg.PreferNewest},
		cfg:       cfg,
		logger:    logger,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WarmDenseIndex builds or loads the embedding matrix ahead of traffic.
func (s *Service) WarmDenseIndex(ctx context.Context) error {
	_, err := s.retriever.EnsureDense(ctx)
	return err
}

// rankQuery runs retrieval for the query, applies business adjustments and
// assembles explanation chips. Empty pipelines fall back to a random feed.
func (s *Service) rankQuery(ctx context.Context, query string, intent domain.Intent, topK int, opts retrieval.Options, exclude map[int]struct{}) ([]domain.RankedItem, map[int][]string, bool) {
	if topK < 1 {
		topK = 1
	}
	opts.TopK = topK

	result := s.retriever.Retrieve(ctx, query, opts)
	if len(result.Candidates) == 0 {
		return s.fallbackFeed(topK, exclude)
	}

	type scored struct {
		productID int
		score     float64
		chips     []string
	}
	var entries []scored
	for _, candidate := range result.Candidates {
		item, ok := s.catalog.ByID(candidate.ProductID)
		if !ok {
			continue
		}
		if _, excluded := exclude[item.ID]; excluded {
			continue
		}

		boost, businessChips := s.adjuster.Adjust(intent, item)
		var chips []string
		if candidate.Lexical {
			chips = append(chips, "Keyword relevance")
		}
		if candidate.Dense {
			chips = append(chips, "Semantic similarity")
		}
		if result.RerankUsed {
			chips = append(chips, "Cohere rerank")
		}
		chips = append(chips, businessChips...)

		entries = append(entries, scored{
			productID: item.ID,
			score:     candidate.Score + boost,
			chips:     domain.Dedupe(chips),
		})
	}
	if len(entries) == 0 {
		return s.fallbackFeed(topK, exclude)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	if len(entries) > topK {
		entries = entries[:topK]
	}

	ranked := make([]domain.RankedItem, 0, len(entries))
	reasons := make(map[int][]string, len(entries))
	for i, entry := range entries {
		ranked = append(ranked, domain.RankedItem{ProductID: entry.productID, Rank: i + 1, Score: entry.score})
		chips := entry.chips
		if len(chips) > 4 {
			chips = chips[:4]
		}
		if len(chips) == 0 {
			chips = []string{"Catalog relevance"}
		}
		reasons[entry.productID] = chips
	}
	return ranked, reasons, result.DenseUsed || result.RerankUsed
}

// fallbackFeed returns a random ranked list flagged as the fallback feed.
func (s *Service) fallbackFeed(topK int, exclude map[int]struct{}) ([]domain.RankedItem, map[int][]string, bool) {
	picks := s.randomScored(topK, exclude)
	reasons := make(map[int][]string, len(picks))
	for _, item := range picks {
		reasons[item.ProductID] = []string{"Fallback feed"}
	}
	return picks, reasons, false
}

// randomScored samples topK catalog products outside the exclusion set, all
// with zero score.
func (s *Service) randomScored(topK int, exclude map[int]struct{}) []domain.RankedItem {
	if topK < 1 {
		topK = 1
	}
	poolSize := topK * 3
	if floor := topK + 4; poolSize < floor {
		poolSize = floor
	}

	items := s.randomProducts(poolSize, "")
	out := make([]domain.RankedItem, 0, topK)
	for _, item := range items {
		if _, excluded := exclude[item.ID]; excluded {
			continue
		}
		out = append(out, domain.RankedItem{ProductID: item.ID, Rank: len(out) + 1, Score: 0})
		if len(out) >= topK {
			break
		}
	}
	return out
}

// randomProducts samples limit products uniformly, optionally filtered by
// gender.
func (s *Service) randomProducts(limit int, gender string) []domain.Product {
	if limit < 1 {
		return nil
	}
	items := s.catalog.Items()
	genderNorm := domain.Normalize(gender)

	var pool []domain.Product
	if genderNorm == "" {
		pool = items
	} else {
		for _, item := range items {
			if domain.Normalize(item.Gender) == genderNorm {
				pool = append(pool, item)
			}
		}
	}
	if len(pool) == 0 {
		return nil
	}

	s.randMu.Lock()
	order := s.rand.Perm(len(pool))
	s.randMu.Unlock()

	if limit > len(pool) {
		limit = len(pool)
	}
	out := make([]domain.Product, 0, limit)
	for _, idx := range order[:limit] {
		out = append(out, pool[idx])
	}
	return out
}

// storeSession persists a ranked result as a new session and returns the
// personalized payload for it.
func (s *Service) storeSession(ctx context.Context, shopperName, source, queryText, imageSummary string, ranked []domain.RankedItem, reasons map[int][]string, note string, aiPowered bool) (SessionPayload, error) {
	session, err := s.sessions.Create(ctx, shopperName, source, queryText, imageSummary)
	if err != nil {
		return SessionPayload{}, err
	}
	if err := s.sessions.ReplaceItems(ctx, session.ID, ranked); err != nil {
		return SessionPayload{}, err
	}
	explanations := make([]domain.Explanation, 0, len(reasons))
	for _, item := range ranked {
		if chips, ok := reasons[item.ProductID]; ok {
			explanations = append(explanations, domain.Explanation{ProductID: item.ProductID, Tags: chips})
		}
	}
	if err := s.sessions.StoreExplanations(ctx, session.ID, explanations); err != nil {
		return SessionPayload{}, err
	}

	payload, err := s.GetPersonalized(ctx, session.ID)
	if err != nil {
		return SessionPayload{}, err
	}
	payload.AssistantNote = note
	payload.AIPowered = aiPowered
	return payload, nil
}

func domainProductErr(id int) error {
	return fmt.Errorf("product %d: %w", id, domain.ErrProductNotFound)
}

func (s *Service) safeShopper(name string) string {
	if cleaned := strings.TrimSpace(name); cleaned != "" {
		return cleaned
	}
	return domain.DefaultShopperName
}
