package globalmart

import "context"

// CheckMatch asks whether a product fits the shopper's session intent.
func (c *Client) CheckMatch(ctx context.Context, sessionID string, productID int) (MatchResult, error) {
	req := map[string]any{
		"session_id": sessionID,
		"product_id": productID,
	}
	var out MatchResult
	err := c.postJSON(ctx, "check_match", "/api/check-match", req, &out)
	return out, err
}

// CompleteLook suggests complementary pieces around an anchor product.
// topK <= 0 uses the server default (6); the server caps it at 12.
func (c *Client) CompleteLook(ctx context.Context, sessionID string, productID, topK int) (LookResult, error) {
	req := map[string]any{
		"session_id": sessionID,
		"product_id": productID,
		"top_k":      topK,
	}
	var out LookResult
	err := c.postJSON(ctx, "complete_look", "/api/complete-look", req, &out)
	return out, err
}
