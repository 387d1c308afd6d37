package session

import (
	"context"
	"errors"
	"testing"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

func TestCreateAndGet(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()

	sess, err := r.Create(ctx, "Priya", "text", "navy blue tshirt", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(sess.ID) != 32 {
		t.Fatalf("session id = %q, want 32 hex chars", sess.ID)
	}

	got, err := r.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ShopperName != "Priya" || got.Source != "text" || got.QueryText != "navy blue tshirt" {
		t.Fatalf("session = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not round-tripped")
	}
}

func TestGet_Missing(t *testing.T) {
	r := New(newMemStore())
	if _, err := r.Get(context.Background(), "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestReplaceItems_Overwrites(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()

	first := []domain.RankedItem{{ProductID: 10, Rank: 1, Score: 0.9}, {ProductID: 11, Rank: 2, Score: 0.5}}
	if err := r.ReplaceItems(ctx, "s1", first); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}
	second := []domain.RankedItem{{ProductID: 12, Rank: 1, Score: 0.8}}
	if err := r.ReplaceItems(ctx, "s1", second); err != nil {
		t.Fatalf("ReplaceItems: %v", err)
	}

	items, err := r.Items(ctx, "s1")
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != 12 {
		t.Fatalf("items = %v, want replacement only", items)
	}
}

func TestItems_EmptyWithoutError(t *testing.T) {
	r := New(newMemStore())
	items, err := r.Items(context.Background(), "never-stored")
	if err != nil || items != nil {
		t.Fatalf("got %v, %v; want nil, nil", items, err)
	}
}

func TestMatchCheck_UpsertKeepsOnePerProduct(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()

	for _, verdict := range []string{"Possible match", "Strong match"} {
		err := r.StoreMatchCheck(ctx, domain.MatchCheck{
			SessionID: "s1", ProductID: 7, Verdict: verdict, Rationale: "r", Confidence: 0.8,
		})
		if err != nil {
			t.Fatalf("StoreMatchCheck: %v", err)
		}
	}

	checks, err := r.MatchChecks(ctx, "s1")
	if err != nil {
		t.Fatalf("MatchChecks: %v", err)
	}
	if len(checks) != 1 {
		t.Fatalf("got %d checks, want 1 (upsert)", len(checks))
	}
	if checks[7].Verdict != "Strong match" {
		t.Fatalf("verdict = %q, want latest write", checks[7].Verdict)
	}

	counters, err := r.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters: %v", err)
	}
	if counters["match_count"] != 1 {
		t.Fatalf("match_count = %d, want 1 (upsert counted once)", counters["match_count"])
	}
}

func TestExplanations_RoundTrip(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()

	err := r.StoreExplanations(ctx, "s1", []domain.Explanation{
		{ProductID: 10, Tags: []string{"Keyword relevance", "Cohere rerank"}},
		{ProductID: 11, Tags: []string{"Fallback feed"}},
	})
	if err != nil {
		t.Fatalf("StoreExplanations: %v", err)
	}

	got, err := r.Explanations(ctx, "s1")
	if err != nil {
		t.Fatalf("Explanations: %v", err)
	}
	if len(got) != 2 || got[10][1] != "Cohere rerank" {
		t.Fatalf("explanations = %v", got)
	}
}

func TestCounters_TrackSessions(t *testing.T) {
	r := New(newMemStore())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := r.Create(ctx, "A", "text", "q", ""); err != nil {
			t.Fatal(err)
		}
	}
	counters, err := r.Counters(ctx)
	if err != nil {
		t.Fatalf("Counters: %v", err)
	}
	if counters["session_count"] != 3 {
		t.Fatalf("session_count = %d, want 3", counters["session_count"])
	}
}
