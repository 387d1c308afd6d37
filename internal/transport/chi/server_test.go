package chi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
}

func TestSearch_ReturnsSessionPayload(t *testing.T) {
	f := newFixture()
	router := f.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/search", map[string]any{
		"query": "red party dress", "shopper_name": "Ada", "top_k": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Session struct {
			SessionID string `json:"session_id"`
			Source    string `json:"source"`
		} `json:"session"`
		Recommendations []struct {
			ID   int `json:"id"`
			Rank int `json:"rank"`
		} `json:"recommendations"`
		AIPowered bool `json:"ai_powered"`
	}
	decodeBody(t, rec, &resp)
	if resp.Session.Source != "natural-language-query-search" {
		t.Fatalf("source = %q", resp.Session.Source)
	}
	if len(resp.Recommendations) != 2 || resp.Recommendations[0].ID != 101 {
		t.Fatalf("recommendations = %+v", resp.Recommendations)
	}
	if resp.AIPowered {
		t.Fatal("lexical-only search flagged AI powered")
	}
}

func TestSearch_EmptyQueryIsBadRequest(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodPost, "/api/search", map[string]any{"query": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != "validation_failed" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestSearch_MalformedBody(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPersonalized_NotFound(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodGet, "/api/personalized/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != "session_not_found" {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestPersonalized_RoundTrip(t *testing.T) {
	f := newFixture()
	router := f.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/search", map[string]any{"query": "dress"})
	var search struct {
		Session struct {
			SessionID string `json:"session_id"`
		} `json:"session"`
	}
	decodeBody(t, rec, &search)

	rec = doJSON(t, router, http.MethodGet, "/api/personalized/"+search.Session.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestImageMatch_RequiresFile(t *testing.T) {
	f := newFixture()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("shopper_name", "Ada")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/image-match", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestImageMatch_DisabledStillServes(t *testing.T) {
	f := newFixture()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "outfit.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("jpegbytes")); err != nil {
		t.Fatalf("write image: %v", err)
	}
	_ = mw.WriteField("top_k", "3")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/image-match", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ImageAnalysis struct {
			Error string `json:"error"`
		} `json:"image_analysis"`
	}
	decodeBody(t, rec, &resp)
	if resp.ImageAnalysis.Error != "COHERE_API_KEY not configured" {
		t.Fatalf("analysis error = %q", resp.ImageAnalysis.Error)
	}
}

func TestCheckMatch_UnknownProduct(t *testing.T) {
	f := newFixture()
	router := f.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/search", map[string]any{"query": "dress"})
	var search struct {
		Session struct {
			SessionID string `json:"session_id"`
		} `json:"session"`
	}
	decodeBody(t, rec, &search)

	rec = doJSON(t, router, http.MethodPost, "/api/check-match", map[string]any{
		"session_id": search.Session.SessionID, "product_id": 999,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCompleteLook_DefaultsTopK(t *testing.T) {
	f := newFixture()
	router := f.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/search", map[string]any{"query": "dress"})
	var search struct {
		Session struct {
			SessionID string `json:"session_id"`
		} `json:"session"`
	}
	decodeBody(t, rec, &search)

	rec = doJSON(t, router, http.MethodPost, "/api/complete-look", map[string]any{
		"session_id": search.Session.SessionID, "product_id": 101,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	// Default top_k is 6; recorded feedback carries it.
	if f.profiles.events[0].EventValue != "top_k:6" {
		t.Fatalf("event = %+v", f.profiles.events[0])
	}
}

func TestRefineSession_InvalidRefinement(t *testing.T) {
	f := newFixture()
	router := f.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/search", map[string]any{"query": "dress"})
	var search struct {
		Session struct {
			SessionID string `json:"session_id"`
		} `json:"session"`
	}
	decodeBody(t, rec, &search)

	rec = doJSON(t, router, http.MethodPost, "/api/refine-session", map[string]any{
		"session_id": search.Session.SessionID, "refinement": "sporty",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHomeProducts_RejectsUnknownGender(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodGet, "/api/home-products?gender=kids", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHomeProducts_FiltersGender(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodGet, "/api/home-products?gender=WOMEN&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		GenderFilter string `json:"gender_filter"`
		Products     []struct {
			Gender string `json:"gender"`
		} `json:"products"`
	}
	decodeBody(t, rec, &resp)
	if resp.GenderFilter != "Women" {
		t.Fatalf("gender_filter = %q", resp.GenderFilter)
	}
	if len(resp.Products) != 2 {
		t.Fatalf("got %d products", len(resp.Products))
	}
	for _, p := range resp.Products {
		if p.Gender != "Women" {
			t.Fatalf("leaked gender %q", p.Gender)
		}
	}
}

func TestCartFlow(t *testing.T) {
	f := newFixture()
	router := f.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/cart/add", map[string]any{
		"shopper_name": "Ada", "product_id": 101, "quantity": 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}
	var cart struct {
		TotalItems int `json:"total_items"`
	}
	decodeBody(t, rec, &cart)
	if cart.TotalItems != 2 {
		t.Fatalf("total = %d", cart.TotalItems)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/cart/remove", map[string]any{
		"shopper_name": "Ada", "product_id": 101,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d", rec.Code)
	}
	decodeBody(t, rec, &cart)
	if cart.TotalItems != 0 {
		t.Fatalf("total after remove = %d", cart.TotalItems)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/cart?shopper_name=Ada", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestCartAdd_UnknownProduct(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodPost, "/api/cart/add", map[string]any{
		"shopper_name": "Ada", "product_id": 999, "quantity": 1,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestFeedback_InvalidEventType(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodPost, "/api/feedback", map[string]any{
		"shopper_name": "Ada", "event_type": "purchase",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealth_ReportsStats(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		App    string `json:"app"`
		Stats  struct {
			CatalogItemsInMemory int    `json:"catalog_items_in_memory"`
			EmbedModel           string `json:"embed_model"`
		} `json:"stats"`
	}
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" || resp.App != "globalmart-fashion-assistant" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Stats.CatalogItemsInMemory != 3 || resp.Stats.EmbedModel != "embed-test-v1" {
		t.Fatalf("stats = %+v", resp.Stats)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture()
	rec := doJSON(t, f.server.Router(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestClampTopK(t *testing.T) {
	cases := []struct {
		name    string
		topK    int
		ceiling int
		want    int
	}{
		{"zero passes through for service default", 0, 20, 0},
		{"within range", 5, 20, 5},
		{"above ceiling", 50, 20, 20},
		{"look ceiling", 15, 12, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := clampTopK(tc.topK, tc.ceiling); got != tc.want {
				t.Fatalf("clampTopK(%d, %d) = %d, want %d", tc.topK, tc.ceiling, got, tc.want)
			}
		})
	}
}
