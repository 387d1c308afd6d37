package chi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/recommend"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

// The handlers are exercised against a real recommend.Service wired with
// in-memory fakes, so the tests cover the full request-to-JSON path.

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: 101, Gender: "Women", MasterCategory: "Apparel", SubCategory: "Topwear", ArticleType: "Dresses", BaseColour: "Red", Season: "Fall", Year: 2019, Usage: "Party", Name: "Scarlet Wrap Party Dress"},
		{ID: 104, Gender: "Women", MasterCategory: "Footwear", SubCategory: "Shoes", ArticleType: "Heels", BaseColour: "Black", Season: "Fall", Year: 2020, Usage: "Party", Name: "Midnight Patent Heels"},
		{ID: 105, Gender: "Men", MasterCategory: "Apparel", SubCategory: "Bottomwear", ArticleType: "Jeans", BaseColour: "Blue", Season: "Winter", Year: 2017, Usage: "Casual", Name: "Indigo Slim Fit Jeans"},
	}
}

type stubCatalog struct {
	items []domain.Product
	byID  map[int]domain.Product
}

func newStubCatalog() *stubCatalog {
	items := testProducts()
	byID := make(map[int]domain.Product, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}
	return &stubCatalog{items: items, byID: byID}
}

func (c *stubCatalog) Len() int                { return len(c.items) }
func (c *stubCatalog) Items() []domain.Product { return c.items }
func (c *stubCatalog) ByID(id int) (domain.Product, bool) {
	item, ok := c.byID[id]
	return item, ok
}
func (c *stubCatalog) ArticleTypes() []string { return []string{"Dresses", "Heels", "Jeans"} }
func (c *stubCatalog) Colors() []string       { return []string{"Red", "Black", "Blue"} }

type memSessions struct {
	sessions     map[string]domain.Session
	items        map[string][]domain.RankedItem
	explanations map[string]map[int][]string
	matches      map[string]map[int]domain.MatchCheck
	nextID       int
}

func newMemSessions() *memSessions {
	return &memSessions{
		sessions:     map[string]domain.Session{},
		items:        map[string][]domain.RankedItem{},
		explanations: map[string]map[int][]string{},
		matches:      map[string]map[int]domain.MatchCheck{},
	}
}

func (m *memSessions) Create(_ context.Context, shopperName, source, queryText, imageSummary string) (domain.Session, error) {
	m.nextID++
	session := domain.Session{
		ID:          fmt.Sprintf("sess-%d", m.nextID),
		ShopperName: shopperName, Source: source,
		QueryText: queryText, ImageSummary: imageSummary,
		CreatedAt: time.Now().UTC(),
	}
	m.sessions[session.ID] = session
	return session, nil
}

func (m *memSessions) Get(_ context.Context, sessionID string) (domain.Session, error) {
	session, ok := m.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (m *memSessions) ReplaceItems(_ context.Context, sessionID string, items []domain.RankedItem) error {
	m.items[sessionID] = items
	return nil
}

func (m *memSessions) Items(_ context.Context, sessionID string) ([]domain.RankedItem, error) {
	return m.items[sessionID], nil
}

func (m *memSessions) StoreExplanations(_ context.Context, sessionID string, explanations []domain.Explanation) error {
	stored := map[int][]string{}
	for _, e := range explanations {
		stored[e.ProductID] = e.Tags
	}
	m.explanations[sessionID] = stored
	return nil
}

func (m *memSessions) Explanations(_ context.Context, sessionID string) (map[int][]string, error) {
	return m.explanations[sessionID], nil
}

func (m *memSessions) StoreMatchCheck(_ context.Context, check domain.MatchCheck) error {
	if m.matches[check.SessionID] == nil {
		m.matches[check.SessionID] = map[int]domain.MatchCheck{}
	}
	m.matches[check.SessionID][check.ProductID] = check
	return nil
}

func (m *memSessions) MatchChecks(_ context.Context, sessionID string) (map[int]domain.MatchCheck, error) {
	return m.matches[sessionID], nil
}

func (m *memSessions) Counters(_ context.Context) (map[string]int64, error) {
	return map[string]int64{"session_count": int64(m.nextID)}, nil
}

type memProfiles struct {
	profiles map[string]domain.Profile
	carts    map[string]map[int]domain.CartLine
	events   []domain.FeedbackEvent
}

func newMemProfiles() *memProfiles {
	return &memProfiles{profiles: map[string]domain.Profile{}, carts: map[string]map[int]domain.CartLine{}}
}

func (m *memProfiles) Ensure(_ context.Context, shopperName string) (string, error) {
	name := strings.TrimSpace(shopperName)
	if name == "" {
		name = domain.DefaultShopperName
	}
	if _, ok := m.profiles[name]; !ok {
		m.profiles[name] = domain.Profile{
			ShopperName:    name,
			MembershipTier: domain.DefaultMembershipTier,
			UpdatedAt:      time.Now().UTC(),
		}
	}
	return name, nil
}

func (m *memProfiles) Get(_ context.Context, shopperName string) (domain.Profile, error) {
	stored, ok := m.profiles[shopperName]
	if !ok {
		return domain.Profile{}, domain.ErrProfileNotFound
	}
	return stored, nil
}

func (m *memProfiles) UpdatePreferences(context.Context, string, string, string, string) error {
	return nil
}

func (m *memProfiles) IncrementEventCounter(_ context.Context, shopperName, eventType string, amount int64) error {
	stored := m.profiles[shopperName]
	if eventType == "click" {
		stored.ClickEvents += amount
	} else if eventType == "cart_add" {
		stored.CartAddEvents += amount
	}
	m.profiles[shopperName] = stored
	return nil
}

func (m *memProfiles) AddCartItem(_ context.Context, shopperName string, productID, quantity int) error {
	if m.carts[shopperName] == nil {
		m.carts[shopperName] = map[int]domain.CartLine{}
	}
	line := m.carts[shopperName][productID]
	line.ProductID = productID
	line.Quantity += quantity
	m.carts[shopperName][productID] = line
	return nil
}

func (m *memProfiles) RemoveCartItem(_ context.Context, shopperName string, productID int) error {
	delete(m.carts[shopperName], productID)
	return nil
}

func (m *memProfiles) CartItems(_ context.Context, shopperName string) ([]domain.CartLine, error) {
	lines := make([]domain.CartLine, 0, len(m.carts[shopperName]))
	for _, line := range m.carts[shopperName] {
		lines = append(lines, line)
	}
	return lines, nil
}

func (m *memProfiles) RecordFeedback(_ context.Context, event domain.FeedbackEvent, _ *domain.Product) error {
	m.events = append([]domain.FeedbackEvent{event}, m.events...)
	return nil
}

func (m *memProfiles) TopAttribute(context.Context, string, string) (string, error) {
	return "", nil
}

type stubRetriever struct {
	result retrieval.Result
}

func (r *stubRetriever) Retrieve(context.Context, string, retrieval.Options) retrieval.Result {
	return r.result
}

func (r *stubRetriever) EnsureDense(context.Context) (bool, error) { return false, nil }
func (r *stubRetriever) DenseReady() bool                          { return false }

type stubIntents struct{}

func (stubIntents) Extract(context.Context, string, *domain.ImageSummary) domain.Intent {
	return domain.Intent{}
}
func (stubIntents) Heuristic(string, *domain.ImageSummary) domain.Intent { return domain.Intent{} }
func (stubIntents) FromSession(domain.Session) domain.Intent             { return domain.Intent{} }

type stubVision struct {
	summary domain.ImageSummary
	err     error
}

func (v *stubVision) AnalyzeOutfitImage(context.Context, []byte, []string) (domain.ImageSummary, error) {
	return v.summary, v.err
}

type stubJudge struct{}

func (stubJudge) JudgeMatch(context.Context, string) (domain.MatchJudgement, error) {
	return domain.MatchJudgement{}, domain.ErrAIUnavailable
}

type fixture struct {
	server   *Server
	sessions *memSessions
	profiles *memProfiles
}

func newFixture() *fixture {
	sessions := newMemSessions()
	profiles := newMemProfiles()
	service := recommend.New(
		sessions, profiles, newStubCatalog(),
		&stubRetriever{result: retrieval.Result{Candidates: []retrieval.Candidate{
			{Row: 0, ProductID: 101, Score: 1.0, Lexical: true},
			{Row: 1, ProductID: 104, Score: 0.5, Lexical: true},
		}}},
		stubIntents{}, &stubVision{}, stubJudge{},
		worker.NewPool(2, time.Second),
		recommend.Config{AIEnabled: false, EmbedModel: "embed-test-v1"},
		zap.NewNop(),
	)
	return &fixture{
		server:   NewServer(service, zap.NewNop()),
		sessions: sessions,
		profiles: profiles,
	}
}
