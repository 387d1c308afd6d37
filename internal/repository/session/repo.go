// Package session persists recommendation sessions, their ranked items,
// explanations, and match-check verdicts.
package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tlsandbox/cohere-globalmart/internal/db"
	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// store is the consumer interface for session persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, val int64) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements usecase/recommend.SessionRepository.
type Repo struct {
	store store
	now   func() time.Time
}

// New creates a session repository.
func New(s store) *Repo {
	return &Repo{store: s, now: time.Now}
}

// Create stores a new session and returns its generated id (uuid hex, no
// dashes).
func (r *Repo) Create(ctx context.Context, shopperName, source, queryText, imageSummary string) (domain.Session, error) {
	id := uuid.New()
	sess := domain.Session{
		ID:           hex.EncodeToString(id[:]),
		ShopperName:  shopperName,
		Source:       source,
		QueryText:    queryText,
		ImageSummary: imageSummary,
		CreatedAt:    r.now().UTC(),
	}

	fields := map[string]string{
		"shopper_name":  sess.ShopperName,
		"source":        sess.Source,
		"query_text":    sess.QueryText,
		"image_summary": sess.ImageSummary,
		"created_at":    sess.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, sessionKey(sess.ID), fields); err != nil {
		return domain.Session{}, fmt.Errorf("hset session %s: %w", sess.ID, err)
	}
	if err := r.store.HIncrBy(ctx, statsKey(), "session_count", 1); err != nil {
		return domain.Session{}, fmt.Errorf("incr session count: %w", err)
	}
	return sess, nil
}

// Get returns a session by id.
func (r *Repo) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	fields, err := r.store.HGetAll(ctx, sessionKey(sessionID))
	if err != nil {
		return domain.Session{}, fmt.Errorf("hgetall session %s: %w", sessionID, err)
	}
	if len(fields) == 0 {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	return domain.Session{
		ID:           sessionID,
		ShopperName:  fields["shopper_name"],
		Source:       fields["source"],
		QueryText:    fields["query_text"],
		ImageSummary: fields["image_summary"],
		CreatedAt:    createdAt,
	}, nil
}

// ReplaceItems overwrites the ranked item list for a session.
func (r *Repo) ReplaceItems(ctx context.Context, sessionID string, items []domain.RankedItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal session items: %w", err)
	}
	if err := r.store.Set(ctx, itemsKey(sessionID), data); err != nil {
		return fmt.Errorf("set session items %s: %w", sessionID, err)
	}
	return nil
}

// Items returns the ranked items stored for a session, in rank order.
func (r *Repo) Items(ctx context.Context, sessionID string) ([]domain.RankedItem, error) {
	data, err := r.store.Get(ctx, itemsKey(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session items %s: %w", sessionID, err)
	}
	var items []domain.RankedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal session items %s: %w", sessionID, err)
	}
	return items, nil
}

// StoreExplanations overwrites the per-product explanation tags for a session.
func (r *Repo) StoreExplanations(ctx context.Context, sessionID string, explanations []domain.Explanation) error {
	byProduct := make(map[string][]string, len(explanations))
	for _, e := range explanations {
		byProduct[strconv.Itoa(e.ProductID)] = e.Tags
	}
	data, err := json.Marshal(byProduct)
	if err != nil {
		return fmt.Errorf("marshal explanations: %w", err)
	}
	if err := r.store.Set(ctx, explainKey(sessionID), data); err != nil {
		return fmt.Errorf("set explanations %s: %w", sessionID, err)
	}
	return nil
}

// Explanations returns the explanation tags keyed by product id.
func (r *Repo) Explanations(ctx context.Context, sessionID string) (map[int][]string, error) {
	data, err := r.store.Get(ctx, explainKey(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get explanations %s: %w", sessionID, err)
	}
	var byProduct map[string][]string
	if err := json.Unmarshal(data, &byProduct); err != nil {
		return nil, fmt.Errorf("unmarshal explanations %s: %w", sessionID, err)
	}
	out := make(map[int][]string, len(byProduct))
	for k, tags := range byProduct {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = tags
	}
	return out, nil
}

// StoreMatchCheck upserts the match verdict for a (session, product) pair.
func (r *Repo) StoreMatchCheck(ctx context.Context, check domain.MatchCheck) error {
	if check.CreatedAt.IsZero() {
		check.CreatedAt = r.now().UTC()
	}
	data, err := json.Marshal(check)
	if err != nil {
		return fmt.Errorf("marshal match check: %w", err)
	}

	key := matchKey(check.SessionID)
	existing, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return fmt.Errorf("hgetall match checks %s: %w", check.SessionID, err)
	}
	field := strconv.Itoa(check.ProductID)
	if _, seen := existing[field]; !seen {
		if err := r.store.HIncrBy(ctx, statsKey(), "match_count", 1); err != nil {
			return fmt.Errorf("incr match count: %w", err)
		}
	}

	if err := r.store.HSet(ctx, key, map[string]string{field: string(data)}); err != nil {
		return fmt.Errorf("hset match check %s/%d: %w", check.SessionID, check.ProductID, err)
	}
	return nil
}

// MatchChecks returns all stored verdicts for a session keyed by product id.
func (r *Repo) MatchChecks(ctx context.Context, sessionID string) (map[int]domain.MatchCheck, error) {
	fields, err := r.store.HGetAll(ctx, matchKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("hgetall match checks %s: %w", sessionID, err)
	}
	out := make(map[int]domain.MatchCheck, len(fields))
	for field, raw := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		var check domain.MatchCheck
		if err := json.Unmarshal([]byte(raw), &check); err != nil {
			continue
		}
		out[id] = check
	}
	return out, nil
}

// Counters returns the service-wide counters tracked alongside sessions.
func (r *Repo) Counters(ctx context.Context) (map[string]int64, error) {
	fields, err := r.store.HGetAll(ctx, statsKey())
	if err != nil {
		return nil, fmt.Errorf("hgetall stats: %w", err)
	}
	out := make(map[string]int64, len(fields))
	for k, v := range fields {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

func sessionKey(id string) string { return domain.KeyPrefix + "session:" + id }
func itemsKey(id string) string   { return domain.KeyPrefix + "session:" + id + ":items" }
func explainKey(id string) string { return domain.KeyPrefix + "session:" + id + ":explain" }
func matchKey(id string) string   { return domain.KeyPrefix + "session:" + id + ":matches" }
func statsKey() string            { return domain.KeyPrefix + "stats" }
