package domain

import "time"

// DefaultShopperName is used when a request carries no shopper name.
const DefaultShopperName = "GlobalMart Fashion Shopper"

// DefaultMembershipTier is assigned to freshly created profiles.
const DefaultMembershipTier = "GlobalMart Fashion Plus"

// Profile is a shopper's stored preference record.
type Profile struct {
	ShopperName         string
	MembershipTier      string
	PreferredGender     string
	FavoriteColor       string
	FavoriteArticleType string
	ClickEvents         int64
	CartAddEvents       int64
	UpdatedAt           time.Time
}

// CartLine is one product entry in a shopper's cart.
type CartLine struct {
	ProductID int       `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// FeedbackEvent is a recorded shopper interaction (click, cart_add, rating
// and so on).
type FeedbackEvent struct {
	ShopperName string    `json:"shopper_name"`
	SessionID   string    `json:"session_id,omitempty"`
	ProductID   int       `json:"product_id,omitempty"`
	EventType   string    `json:"event_type"`
	EventValue  string    `json:"event_value,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
