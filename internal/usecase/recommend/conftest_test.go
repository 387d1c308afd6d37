package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
	"github.com/tlsandbox/cohere-globalmart/internal/repository/profile"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: 101, Gender: "Women", MasterCategory: "Apparel", SubCategory: "Topwear", ArticleType: "Dresses", BaseColour: "Red", Season: "Fall", Year: 2019, Usage: "Party", Name: "Scarlet Wrap Party Dress"},
		{ID: 102, Gender: "Men", MasterCategory: "Apparel", SubCategory: "Bottomwear", ArticleType: "Jeans", BaseColour: "Blue", Season: "Winter", Year: 2017, Usage: "Casual", Name: "Indigo Slim Fit Jeans"},
		{ID: 103, Gender: "Men", MasterCategory: "Apparel", SubCategory: "Topwear", ArticleType: "Tshirts", BaseColour: "White", Season: "Summer", Year: 2016, Usage: "Casual", Name: "Classic White Crew Tshirt"},
		{ID: 104, Gender: "Women", MasterCategory: "Footwear", SubCategory: "Shoes", ArticleType: "Heels", BaseColour: "Black", Season: "Fall", Year: 2020, Usage: "Party", Name: "Midnight Patent Heels"},
		{ID: 105, Gender: "Unisex", MasterCategory: "Accessories", SubCategory: "Bags", ArticleType: "Backpacks", BaseColour: "Green", Season: "Summer", Year: 2015, Usage: "Travel", Name: "Trail Canvas Backpack"},
	}
}

// stubCatalog is a fixed in-memory catalog view.
type stubCatalog struct {
	items []domain.Product
	byID  map[int]domain.Product
}

func newStubCatalog(items []domain.Product) *stubCatalog {
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
func (c *stubCatalog) ArticleTypes() []string {
	return domain.Dedupe(collect(c.items, func(p domain.Product) string { return p.ArticleType }))
}
func (c *stubCatalog) Colors() []string {
	return domain.Dedupe(collect(c.items, func(p domain.Product) string { return p.BaseColour }))
}

func collect(items []domain.Product, field func(domain.Product) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, field(item))
	}
	return out
}

// memSessions is an in-memory SessionRepository.
type memSessions struct {
	sessions     map[string]domain.Session
	items        map[string][]domain.RankedItem
	explanations map[string]map[int][]string
	matches      map[string]map[int]domain.MatchCheck
	counters     map[string]int64
	nextID       int
}

func newMemSessions() *memSessions {
	return &memSessions{
		sessions:     map[string]domain.Session{},
		items:        map[string][]domain.RankedItem{},
		explanations: map[string]map[int][]string{},
		matches:      map[string]map[int]domain.MatchCheck{},
		counters:     map[string]int64{},
	}
}

func (m *memSessions) Create(_ context.Context, shopperName, source, queryText, imageSummary string) (domain.Session, error) {
	m.nextID++
	session := domain.Session{
		ID:           fmt.Sprintf("sess-%d", m.nextID),
		ShopperName:  shopperName,
		Source:       source,
		QueryText:    queryText,
		ImageSummary: imageSummary,
		CreatedAt:    time.Now().UTC(),
	}
	m.sessions[session.ID] = session
	m.counters["session_count"]++
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
	m.items[sessionID] = append([]domain.RankedItem{}, items...)
	return nil
}

func (m *memSessions) Items(_ context.Context, sessionID string) ([]domain.RankedItem, error) {
	return m.items[sessionID], nil
}

func (m *memSessions) StoreExplanations(_ context.Context, sessionID string, explanations []domain.Explanation) error {
	stored := make(map[int][]string, len(explanations))
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
	return m.counters, nil
}

// memProfiles is an in-memory ProfileRepository.
type memProfiles struct {
	profiles map[string]domain.Profile
	carts    map[string]map[int]domain.CartLine
	events   []domain.FeedbackEvent
	affinity map[string]map[string]map[string]int64
}

func newMemProfiles() *memProfiles {
	return &memProfiles{
		profiles: map[string]domain.Profile{},
		carts:    map[string]map[int]domain.CartLine{},
		affinity: map[string]map[string]map[string]int64{},
	}
}

func (m *memProfiles) Ensure(_ context.Context, shopperName string) (string, error) {
	name := strings.TrimSpace(shopperName)
	if name == "" {
		name = domain.DefaultShopperName
	}
	if _, ok := m.profiles[name]; !ok {
		m.profiles[name] = domain.Profile{
			ShopperName:         name,
			MembershipTier:      domain.DefaultMembershipTier,
			PreferredGender:     "Unspecified",
			FavoriteColor:       "Unspecified",
			FavoriteArticleType: "Unspecified",
			UpdatedAt:           time.Now().UTC(),
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

func (m *memProfiles) UpdatePreferences(_ context.Context, shopperName, preferredGender, favoriteColor, favoriteArticleType string) error {
	stored := m.profiles[shopperName]
	if v := strings.TrimSpace(preferredGender); v != "" {
		stored.PreferredGender = v
	}
	if v := strings.TrimSpace(favoriteColor); v != "" {
		stored.FavoriteColor = v
	}
	if v := strings.TrimSpace(favoriteArticleType); v != "" {
		stored.FavoriteArticleType = v
	}
	m.profiles[shopperName] = stored
	return nil
}

func (m *memProfiles) IncrementEventCounter(_ context.Context, shopperName, eventType string, amount int64) error {
	stored := m.profiles[shopperName]
	switch eventType {
	case "click":
		stored.ClickEvents += amount
	case "cart_add":
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
	line.AddedAt = time.Now().UTC()
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

func (m *memProfiles) RecordFeedback(_ context.Context, event domain.FeedbackEvent, product *domain.Product) error {
	m.events = append([]domain.FeedbackEvent{event}, m.events...)
	if product == nil || (event.EventType != "click" && event.EventType != "cart_add") {
		return nil
	}
	for attr, value := range map[string]string{
		profile.AttrGender:      product.Gender,
		profile.AttrBaseColour:  product.BaseColour,
		profile.AttrArticleType: product.ArticleType,
	} {
		if value == "" {
			continue
		}
		if m.affinity[event.ShopperName] == nil {
			m.affinity[event.ShopperName] = map[string]map[string]int64{}
		}
		if m.affinity[event.ShopperName][attr] == nil {
			m.affinity[event.ShopperName][attr] = map[string]int64{}
		}
		m.affinity[event.ShopperName][attr][value]++
	}
	return nil
}

func (m *memProfiles) TopAttribute(_ context.Context, shopperName, attribute string) (string, error) {
	var best string
	var bestScore int64 = -1
	for value, score := range m.affinity[shopperName][attribute] {
		if score > bestScore || (score == bestScore && value < best) {
			best, bestScore = value, score
		}
	}
	return best, nil
}

// stubRetriever returns canned retrieval results and records the calls.
type stubRetriever struct {
	results  []retrieval.Result
	calls    int
	gotQuery []string
	gotOpts  []retrieval.Options
	ready    bool
	ensures  int
}

func (r *stubRetriever) Retrieve(_ context.Context, query string, opts retrieval.Options) retrieval.Result {
	r.gotQuery = append(r.gotQuery, query)
	r.gotOpts = append(r.gotOpts, opts)
	var result retrieval.Result
	if r.calls < len(r.results) {
		result = r.results[r.calls]
	}
	r.calls++
	return result
}

func (r *stubRetriever) EnsureDense(context.Context) (bool, error) {
	r.ensures++
	return r.ready, nil
}

func (r *stubRetriever) DenseReady() bool { return r.ready }

// stubIntents hands back a fixed intent for every parse path.
type stubIntents struct {
	intent       domain.Intent
	gotQuery     []string
	extractCalls int
}

func (p *stubIntents) Extract(_ context.Context, queryText string, _ *domain.ImageSummary) domain.Intent {
	p.extractCalls++
	p.gotQuery = append(p.gotQuery, queryText)
	return p.intent
}

func (p *stubIntents) Heuristic(queryText string, _ *domain.ImageSummary) domain.Intent {
	p.gotQuery = append(p.gotQuery, queryText)
	return p.intent
}

func (p *stubIntents) FromSession(domain.Session) domain.Intent { return p.intent }

type stubVision struct {
	summary domain.ImageSummary
	err     error
	calls   int
}

func (v *stubVision) AnalyzeOutfitImage(context.Context, []byte, []string) (domain.ImageSummary, error) {
	v.calls++
	return v.summary, v.err
}

type stubJudge struct {
	judgement domain.MatchJudgement
	err       error
	gotPrompt string
}

func (j *stubJudge) JudgeMatch(_ context.Context, prompt string) (domain.MatchJudgement, error) {
	j.gotPrompt = prompt
	return j.judgement, j.err
}

type fixture struct {
	service   *Service
	sessions  *memSessions
	profiles  *memProfiles
	catalog   *stubCatalog
	retriever *stubRetriever
	intents   *stubIntents
	vision    *stubVision
	judge     *stubJudge
}

func newFixture(aiEnabled bool, results ...retrieval.Result) *fixture {
	f := &fixture{
		sessions:  newMemSessions(),
		profiles:  newMemProfiles(),
		catalog:   newStubCatalog(testProducts()),
		retriever: &stubRetriever{results: results},
		intents:   &stubIntents{},
		vision:    &stubVision{},
		judge:     &stubJudge{},
	}
	f.service = New(
		f.sessions, f.profiles, f.catalog, f.retriever, f.intents, f.vision, f.judge,
		worker.NewPool(2, time.Second),
		Config{AIEnabled: aiEnabled, EmbedModel: "embed-test-v1"},
		zap.NewNop(),
	)
	return f
}

func candidates(ids ...int) retrieval.Result {
	result := retrieval.Result{}
	for i, id := range ids {
		result.Candidates = append(result.Candidates, retrieval.Candidate{
			Row:       i,
			ProductID: id,
			Score:     1.0 / float64(i+1),
			Lexical:   true,
		})
	}
	return result
}
