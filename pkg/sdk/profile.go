package globalmart

import (
	"context"
	"net/url"
)

// Profile returns the shopper's profile summary. An empty name resolves to
// the server's default shopper.
func (c *Client) Profile(ctx context.Context, shopperName string) (Profile, error) {
	var out Profile
	err := c.getJSON(ctx, "profile", withShopper("/api/profile", shopperName), &out)
	return out, err
}

// Cart returns the shopper's cart.
func (c *Client) Cart(ctx context.Context, shopperName string) (Cart, error) {
	var out Cart
	err := c.getJSON(ctx, "cart", withShopper("/api/cart", shopperName), &out)
	return out, err
}

// AddToCart adds a product to the cart. The server clamps quantity to [1, 10]
// and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, shopperName string, productID, quantity int) (Cart, error) {
	req := map[string]any{
		"shopper_name": shopperName,
		"product_id":   productID,
		"quantity":     quantity,
	}
	var out Cart
	err := c.postJSON(ctx, "cart_add", "/api/cart/add", req, &out)
	return out, err
}

// RemoveFromCart removes a product line and returns the updated cart.
func (c *Client) RemoveFromCart(ctx context.Context, shopperName string, productID int) (Cart, error) {
	req := map[string]any{
		"shopper_name": shopperName,
		"product_id":   productID,
	}
	var out Cart
	err := c.postJSON(ctx, "cart_remove", "/api/cart/remove", req, &out)
	return out, err
}

// Feedback records a shopper interaction event. eventType is one of "click",
// "cart_add", "match_check", "complete_look", "refine". sessionID, productID
// and eventValue are optional context.
func (c *Client) Feedback(ctx context.Context, shopperName, eventType, sessionID string, productID int, eventValue string) (FeedbackAck, error) {
	req := map[string]any{
		"shopper_name": shopperName,
		"event_type":   eventType,
		"session_id":   sessionID,
		"product_id":   productID,
		"event_value":  eventValue,
	}
	var out FeedbackAck
	err := c.postJSON(ctx, "feedback", "/api/feedback", req, &out)
	return out, err
}

// Health returns the service health and stats.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.getJSON(ctx, "health", "/api/health", &out)
	return out, err
}

func withShopper(path, shopperName string) string {
	if shopperName == "" {
		return path
	}
	q := url.Values{}
	q.Set("shopper_name", shopperName)
	return path + "?" + q.Encode()
}
