package retrieval

import "testing"

func TestLexicalRows_ExactNameOutranksPartialMatches(t *testing.T) {
	s := testService(t, nil, nil, nil, false)

	rows := s.lexicalRows("indigo slim fit jeans", 50)
	if len(rows) == 0 {
		t.Fatal("expected lexical candidates")
	}
	if got := s.catalog.Product(rows[0]).ID; got != 102 {
		t.Errorf("expected jeans product first, got id %d", got)
	}
}

func TestLexicalRows_SharedUsageKeepsCatalogOrder(t *testing.T) {
	s := testService(t, nil, nil, nil, false)

	rows := s.lexicalRows("party", 50)
	if len(rows) != 2 {
		t.Fatalf("expected the two party products, got %d rows", len(rows))
	}
	if s.catalog.Product(rows[0]).ID != 101 || s.catalog.Product(rows[1]).ID != 104 {
		t.Errorf("equal scores must keep catalog order, got %v", rows)
	}
}

func TestLexicalRows_NoMatchFallsBackToCatalogHead(t *testing.T) {
	s := testService(t, nil, nil, nil, false)

	rows := s.lexicalRows("zzzz qqqq", 10)
	if len(rows) != s.catalog.Len() {
		t.Fatalf("fallback should cover the whole small catalog, got %d rows", len(rows))
	}
	for i, row := range rows {
		if row != i {
			t.Errorf("fallback row %d = %d, want catalog order", i, row)
		}
	}
}

func TestLexicalRows_GenericTokensIgnored(t *testing.T) {
	s := testService(t, nil, nil, nil, false)

	// "show" and "the" are generic filler; only "jeans" should score.
	rows := s.lexicalRows("show the jeans", 50)
	if len(rows) == 0 {
		t.Fatal("expected candidates")
	}
	if got := s.catalog.Product(rows[0]).ID; got != 102 {
		t.Errorf("expected jeans product first, got id %d", got)
	}
	if len(rows) != 1 {
		t.Errorf("only the jeans product mentions jeans, got %d rows", len(rows))
	}
}
