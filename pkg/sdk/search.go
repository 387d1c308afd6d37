package globalmart

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
)

// Search runs a natural-language catalog search. topK <= 0 uses the server
// default (10); the server caps it at 20.
func (c *Client) Search(ctx context.Context, query, shopperName string, topK int) (SearchResult, error) {
	req := map[string]any{
		"query":        query,
		"shopper_name": shopperName,
		"top_k":        topK,
	}
	var out SearchResult
	err := c.postJSON(ctx, "search", "/api/search", req, &out)
	return out, err
}

// ImageMatch uploads an outfit photo and returns catalog matches. filename
// is informational; imageBytes must be a JPEG, PNG or WebP.
func (c *Client) ImageMatch(ctx context.Context, imageBytes []byte, filename, shopperName string, topK int) (SearchResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return SearchResult{}, fmt.Errorf("globalmart: build upload: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return SearchResult{}, fmt.Errorf("globalmart: build upload: %w", err)
	}
	if shopperName != "" {
		_ = mw.WriteField("shopper_name", shopperName)
	}
	if topK > 0 {
		_ = mw.WriteField("top_k", fmt.Sprintf("%d", topK))
	}
	if err := mw.Close(); err != nil {
		return SearchResult{}, fmt.Errorf("globalmart: build upload: %w", err)
	}

	var out SearchResult
	err = c.postForm(ctx, "image_match", "/api/image-match", mw.FormDataContentType(), &buf, &out)
	return out, err
}

// Personalized returns the stored recommendation list for a session.
func (c *Client) Personalized(ctx context.Context, sessionID string) (SearchResult, error) {
	var out SearchResult
	err := c.getJSON(ctx, "personalized", "/api/personalized/"+url.PathEscape(sessionID), &out)
	return out, err
}

// RefineSession re-runs a session's query slanted toward a style.
// refinement is one of "party", "work", "casual".
func (c *Client) RefineSession(ctx context.Context, sessionID, refinement string, topK int) (SearchResult, error) {
	req := map[string]any{
		"session_id": sessionID,
		"refinement": refinement,
		"top_k":      topK,
	}
	var out SearchResult
	err := c.postJSON(ctx, "refine_session", "/api/refine-session", req, &out)
	return out, err
}

// SuggestSession opens a session anchored on one product, for follow-up
// complete-the-look and match-check calls from a product page.
func (c *Client) SuggestSession(ctx context.Context, productID int, shopperName string) (SuggestResult, error) {
	req := map[string]any{
		"product_id":   productID,
		"shopper_name": shopperName,
	}
	var out SuggestResult
	err := c.postJSON(ctx, "suggest_session", "/api/suggest-session", req, &out)
	return out, err
}

// HomeProducts returns the landing feed. gender is "", "Women" or "Men"
// (case-insensitive); limit <= 0 uses the server default.
func (c *Client) HomeProducts(ctx context.Context, gender string, limit int) (HomeFeed, error) {
	q := url.Values{}
	if gender != "" {
		q.Set("gender", gender)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	path := "/api/home-products"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out HomeFeed
	err := c.getJSON(ctx, "home_products", path, &out)
	return out, err
}
