// Package profile persists shopper profiles, carts, feedback events, and the
// attribute affinity counters behind personalized feeds.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tlsandbox/cohere-globalmart/internal/db"
	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// maxStoredEvents caps the per-shopper feedback history.
const maxStoredEvents = 100

// affinity attributes tracked for top-attribute derivation.
const (
	AttrGender      = "gender"
	AttrBaseColour  = "base_colour"
	AttrArticleType = "article_type"
)

// store is the consumer interface for profile persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, val int64) error
	HDel(ctx context.Context, key string, fields ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements usecase/recommend.ProfileRepository.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a profile repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Ensure creates the profile if it does not exist yet and returns the
// effective shopper name (blank names fall back to the default shopper).
func (r *Repo) Ensure(ctx context.Context, shopperName string) (string, error) {
	name := strings.TrimSpace(shopperName)
	if name == "" {
		name = domain.DefaultShopperName
	}

	key := profileKey(name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("check profile %s: %w", name, err)
	}
	if exists {
		return name, nil
	}

	fields := map[string]string{
		"membership_tier":       domain.DefaultMembershipTier,
		"preferred_gender":      "Unspecified",
		"favorite_color":        "Unspecified",
		"favorite_article_type": "Unspecified",
		"click_events":          "0",
		"cart_add_events":       "0",
		"updated_at":            r.now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return "", fmt.Errorf("hset profile %s: %w", name, err)
	}
	if err := r.store.HIncrBy(ctx, statsKey(), "profile_count", 1); err != nil {
		return "", fmt.Errorf("incr profile count: %w", err)
	}
	return name, nil
}

// Get returns a stored profile.
func (r *Repo) Get(ctx context.Context, shopperName string) (domain.Profile, error) {
	fields, err := r.store.HGetAll(ctx, profileKey(shopperName))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("hgetall profile %s: %w", shopperName, err)
	}
	if len(fields) == 0 {
		return domain.Profile{}, domain.ErrProfileNotFound
	}

	clicks, _ := strconv.ParseInt(fields["click_events"], 10, 64)
	cartAdds, _ := strconv.ParseInt(fields["cart_add_events"], 10, 64)
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])
	return domain.Profile{
		ShopperName:         shopperName,
		MembershipTier:      fields["membership_tier"],
		PreferredGender:     fields["preferred_gender"],
		FavoriteColor:       fields["favorite_color"],
		FavoriteArticleType: fields["favorite_article_type"],
		ClickEvents:         clicks,
		CartAddEvents:       cartAdds,
		UpdatedAt:           updatedAt,
	}, nil
}

// UpdatePreferences overwrites the non-empty preference fields.
func (r *Repo) UpdatePreferences(ctx context.Context, shopperName, preferredGender, favoriteColor, favoriteArticleType string) error {
	fields := map[string]string{
		"updated_at": r.now().UTC().Format(time.RFC3339Nano),
	}
	if v := strings.TrimSpace(preferredGender); v != "" {
		fields["preferred_gender"] = v
	}
	if v := strings.TrimSpace(favoriteColor); v != "" {
		fields["favorite_color"] = v
	}
	if v := strings.TrimSpace(favoriteArticleType); v != "" {
		fields["favorite_article_type"] = v
	}
	if err := r.store.HSet(ctx, profileKey(shopperName), fields); err != nil {
		return fmt.Errorf("hset profile prefs %s: %w", shopperName, err)
	}
	return nil
}

// IncrementEventCounter bumps the click or cart_add counter on the profile.
// Unknown event types are ignored.
func (r *Repo) IncrementEventCounter(ctx context.Context, shopperName, eventType string, amount int64) error {
	if amount < 1 {
		amount = 1
	}
	var field string
	switch eventType {
	case "click":
		field = "click_events"
	case "cart_add":
		field = "cart_add_events"
	default:
		return nil
	}
	if err := r.store.HIncrBy(ctx, profileKey(shopperName), field, amount); err != nil {
		return fmt.Errorf("incr %s for %s: %w", field, shopperName, err)
	}
	return nil
}

// AddCartItem adds quantity to the shopper's cart line for a product,
// creating the line when absent.
func (r *Repo) AddCartItem(ctx context.Context, shopperName string, productID, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	key := cartKey(shopperName)
	lines, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall cart %s: %w", shopperName, err)
	}

	field := strconv.Itoa(productID)
	line := domain.CartLine{ProductID: productID, Quantity: quantity, AddedAt: r.now().UTC()}
	if raw, ok := lines[field]; ok {
		var existing domain.CartLine
		if json.Unmarshal([]byte(raw), &existing) == nil {
			line.Quantity += existing.Quantity
		}
	} else {
		if err := r.store.HIncrBy(ctx, statsKey(), "cart_line_count", 1); err != nil {
			return fmt.Errorf("incr cart line count: %w", err)
		}
	}

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal cart line: %w", err)
	}
	if err := r.store.HSet(ctx, key, map[string]string{field: string(data)}); err != nil {
		return fmt.Errorf("hset cart %s/%d: %w", shopperName, productID, err)
	}
	return nil
}

// CartItems returns the shopper's cart lines, most recently added first.
func (r *Repo) CartItems(ctx context.Context, shopperName string) ([]domain.CartLine, error) {
	fields, err := r.store.HGetAll(ctx, cartKey(shopperName))
	if err != nil {
		return nil, fmt.Errorf("hgetall cart %s: %w", shopperName, err)
	}

	lines := make([]domain.CartLine, 0, len(fields))
	for _, raw := range fields {
		var line domain.CartLine
		if json.Unmarshal([]byte(raw), &line) == nil {
			lines = append(lines, line)
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].AddedAt.Equal(lines[j].AddedAt) {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].AddedAt.After(lines[j].AddedAt)
	})
	return lines, nil
}

// RemoveCartItem deletes the shopper's cart line for a product. Removing a
// line that does not exist is a no-op.
func (r *Repo) RemoveCartItem(ctx context.Context, shopperName string, productID int) error {
	if err := r.store.HDel(ctx, cartKey(shopperName), strconv.Itoa(productID)); err != nil {
		return fmt.Errorf("hdel cart %s/%d: %w", shopperName, productID, err)
	}
	return nil
}

// RecordFeedback prepends an event to the shopper's history and bumps the
// affinity counters for the touched product attributes.
func (r *Repo) RecordFeedback(ctx context.Context, event domain.FeedbackEvent, product *domain.Product) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now().UTC()
	}

	events, err := r.RecentFeedback(ctx, event.ShopperName, maxStoredEvents-1)
	if err != nil {
		return err
	}
	events = append([]domain.FeedbackEvent{event}, events...)

	data, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("marshal feedback events: %w", err)
	}
	if err := r.store.Set(ctx, eventsKey(event.ShopperName), data); err != nil {
		return fmt.Errorf("set feedback events %s: %w", event.ShopperName, err)
	}
	if err := r.store.HIncrBy(ctx, statsKey(), "event_count", 1); err != nil {
		return fmt.Errorf("incr event count: %w", err)
	}

	if product == nil || (event.EventType != "click" && event.EventType != "cart_add") {
		return nil
	}
	for attr, value := range map[string]string{
		AttrGender:      product.Gender,
		AttrBaseColour:  product.BaseColour,
		AttrArticleType: product.ArticleType,
	} {
		if v := strings.TrimSpace(value); v != "" {
			if err := r.store.HIncrBy(ctx, affinityKey(event.ShopperName, attr), v, 1); err != nil {
				return fmt.Errorf("incr affinity %s/%s: %w", attr, v, err)
			}
		}
	}
	return nil
}

// RecentFeedback returns up to limit events, newest first.
func (r *Repo) RecentFeedback(ctx context.Context, shopperName string, limit int) ([]domain.FeedbackEvent, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > maxStoredEvents {
		limit = maxStoredEvents
	}

	data, err := r.store.Get(ctx, eventsKey(shopperName))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get feedback events %s: %w", shopperName, err)
	}
	var events []domain.FeedbackEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("unmarshal feedback events %s: %w", shopperName, err)
	}
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// TopAttribute returns the most interacted-with value for an attribute, or ""
// when the shopper has no affinity data.
func (r *Repo) TopAttribute(ctx context.Context, shopperName, attribute string) (string, error) {
	switch attribute {
	case AttrGender, AttrBaseColour, AttrArticleType:
	default:
		return "", nil
	}

	counts, err := r.store.HGetAll(ctx, affinityKey(shopperName, attribute))
	if err != nil {
		return "", fmt.Errorf("hgetall affinity %s/%s: %w", shopperName, attribute, err)
	}

	var best string
	var bestScore int64 = -1
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic winner on ties
	for _, value := range keys {
		score, err := strconv.ParseInt(counts[value], 10, 64)
		if err != nil {
			continue
		}
		if score > bestScore {
			best, bestScore = value, score
		}
	}
	return best, nil
}

func profileKey(name string) string { return domain.KeyPrefix + "profile:" + name }
func cartKey(name string) string    { return domain.KeyPrefix + "cart:" + name }
func eventsKey(name string) string  { return domain.KeyPrefix + "events:" + name }
func affinityKey(name, attribute string) string {
	return domain.KeyPrefix + "affinity:" + name + ":" + attribute
}
func statsKey() string { return domain.KeyPrefix + "stats" }
