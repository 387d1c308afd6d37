package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

func TestCompleteTheLook_DiversifiesAroundAnchor(t *testing.T) {
	f := newFixture(false,
		candidates(101),           // anchor session search
		candidates(101, 104, 105), // primary look query
		candidates(103),           // secondary complement query
	)
	base, err := f.service.SearchByText(context.Background(), "red party dress", "Ada", 3)
	if err != nil {
		t.Fatalf("SearchByText: %v", err)
	}

	payload, err := f.service.CompleteTheLook(context.Background(), base.Session.SessionID, 101, 3)
	if err != nil {
		t.Fatalf("CompleteTheLook: %v", err)
	}

	if payload.AnchorProduct.ID != 101 {
		t.Fatalf("anchor = %d", payload.AnchorProduct.ID)
	}
	if got := f.retriever.gotQuery[1]; got != "Women Party Red complete look Dresses heels outerwear" {
		t.Fatalf("primary query = %q", got)
	}
	if got := f.retriever.gotQuery[2]; got != "heels outerwear outfit recommendation" {
		t.Fatalf("secondary query = %q", got)
	}

	if len(payload.Recommendations) != 3 {
		t.Fatalf("got %d recs", len(payload.Recommendations))
	}
	first := payload.Recommendations[0]
	if first.ID != 104 {
		t.Fatalf("first rec = %d, want the complementary heels", first.ID)
	}
	if !containsChip(first.ExplanationChips, "Complementary article type") {
		t.Fatalf("chips = %v", first.ExplanationChips)
	}
	for i, rec := range payload.Recommendations {
		if rec.ID == 101 {
			t.Fatal("anchor leaked into its own look")
		}
		if rec.Rank != i+1 {
			t.Fatalf("rank[%d] = %d", i, rec.Rank)
		}
		if !strings.HasPrefix(rec.Explanation, "Suggested because it ") {
			t.Fatalf("explanation = %q", rec.Explanation)
		}
	}

	if !strings.Contains(payload.AssistantNote, `"red party dress"`) {
		t.Fatalf("note = %q", payload.AssistantNote)
	}

	event := f.profiles.events[0]
	if event.EventType != "complete_look" || event.EventValue != "top_k:3" || event.ProductID != 101 {
		t.Fatalf("event = %+v", event)
	}
}

func TestCompleteTheLook_NoteWithoutQueryText(t *testing.T) {
	f := newFixture(false, candidates(104, 105), candidates(103))
	session, err := f.sessions.Create(context.Background(), "Ada", "home-suggest-anchor", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload, err := f.service.CompleteTheLook(context.Background(), session.ID, 101, 2)
	if err != nil {
		t.Fatalf("CompleteTheLook: %v", err)
	}
	if !strings.Contains(payload.AssistantNote, "anchored on Scarlet Wrap Party Dress") {
		t.Fatalf("note = %q", payload.AssistantNote)
	}
	if strings.Contains(payload.AssistantNote, "your query") {
		t.Fatalf("note mentions a query that does not exist: %q", payload.AssistantNote)
	}
}

func TestCompleteTheLook_EmptyRetrievalStillSuggests(t *testing.T) {
	// Both retrieval passes come back empty; the random fallback plus the
	// catalog complement scan still produce suggestions.
	f := newFixture(false)
	session, err := f.sessions.Create(context.Background(), "Ada", "home-suggest-anchor", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	payload, err := f.service.CompleteTheLook(context.Background(), session.ID, 101, 2)
	if err != nil {
		t.Fatalf("CompleteTheLook: %v", err)
	}
	if len(payload.Recommendations) == 0 {
		t.Fatal("no recommendations")
	}
	for _, rec := range payload.Recommendations {
		if rec.ID == 101 {
			t.Fatal("anchor leaked into its own look")
		}
	}
}

func TestCompleteTheLook_UnknownProduct(t *testing.T) {
	f := newFixture(false, candidates(101))
	base, err := f.service.SearchByText(context.Background(), "dress", "Ada", 3)
	if err != nil {
		t.Fatalf("SearchByText: %v", err)
	}

	_, err = f.service.CompleteTheLook(context.Background(), base.Session.SessionID, 999, 3)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("want ErrProductNotFound, got %v", err)
	}
}

func TestCompleteTheLook_UnknownSession(t *testing.T) {
	f := newFixture(false)

	_, err := f.service.CompleteTheLook(context.Background(), "missing", 101, 3)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}
