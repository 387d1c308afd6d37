package globalmart

import "time"

// Product is a catalog row as returned by the API.
type Product struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Gender         string `json:"gender"`
	MasterCategory string `json:"master_category"`
	SubCategory    string `json:"sub_category"`
	ArticleType    string `json:"article_type"`
	BaseColour     string `json:"base_colour"`
	Season         string `json:"season"`
	Year           int    `json:"year"`
	Usage          string `json:"usage"`
	ImageURL       string `json:"image_url"`
}

// MatchInfo is a match-check verdict attached to a recommendation.
type MatchInfo struct {
	Verdict    string  `json:"verdict"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is one ranked product with its explanation.
type Recommendation struct {
	Product
	Rank             int        `json:"rank"`
	Score            float64    `json:"score"`
	ExplanationChips []string   `json:"explanation_chips"`
	Explanation      string     `json:"explanation"`
	Match            *MatchInfo `json:"match,omitempty"`
}

// Session is the session header carried by every session-producing response.
type Session struct {
	SessionID    string    `json:"session_id"`
	ShopperName  string    `json:"shopper_name"`
	Source       string    `json:"source"`
	QueryText    string    `json:"query_text,omitempty"`
	ImageSummary string    `json:"image_summary,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ImageAnalysis is the vision model's read of an uploaded outfit photo.
type ImageAnalysis struct {
	Gender        string   `json:"gender"`
	Occasion      string   `json:"occasion"`
	Season        string   `json:"season,omitempty"`
	Colors        []string `json:"colors"`
	ArticleTypes  []string `json:"article_types"`
	SearchQueries []string `json:"search_queries"`
	StyleKeywords []string `json:"style_keywords,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// SearchResult is the response of search, image match and session refinement.
type SearchResult struct {
	Session         Session          `json:"session"`
	Recommendations []Recommendation `json:"recommendations"`
	AssistantNote   string           `json:"assistant_note,omitempty"`
	AIPowered       bool             `json:"ai_powered"`
	ImageAnalysis   *ImageAnalysis   `json:"image_analysis,omitempty"`
	Refinement      string           `json:"refinement,omitempty"`
}

// LookResult is the complete-the-look response.
type LookResult struct {
	SessionID       string           `json:"session_id"`
	AnchorProduct   Product          `json:"anchor_product"`
	AssistantNote   string           `json:"assistant_note"`
	AIPowered       bool             `json:"ai_powered"`
	Recommendations []Recommendation `json:"recommendations"`
}

// SuggestResult is the quick anchor-session response.
type SuggestResult struct {
	SessionID     string  `json:"session_id"`
	AnchorProduct Product `json:"anchor_product"`
	AssistantNote string  `json:"assistant_note"`
}

// MatchResult is the check-match response.
type MatchResult struct {
	SessionID        string    `json:"session_id"`
	ProductID        int       `json:"product_id"`
	Verdict          string    `json:"verdict"`
	Rationale        string    `json:"rationale"`
	Confidence       float64   `json:"confidence"`
	AIPowered        bool      `json:"ai_powered"`
	JudgementDetails MatchInfo `json:"judgement_details"`
}

// Profile is the shopper profile summary.
type Profile struct {
	ShopperName         string    `json:"shopper_name"`
	MembershipTier      string    `json:"membership_tier"`
	PreferredGender     string    `json:"preferred_gender"`
	FavoriteColor       string    `json:"favorite_color"`
	FavoriteArticleType string    `json:"favorite_article_type"`
	ClickEvents         int64     `json:"click_events"`
	CartAddEvents       int64     `json:"cart_add_events"`
	CartItems           int       `json:"cart_items"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CartItem is one cart line joined with its product.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// Cart is the cart response.
type Cart struct {
	ShopperName string     `json:"shopper_name"`
	TotalItems  int        `json:"total_items"`
	Items       []CartItem `json:"items"`
}

// HomeFeed is the landing-page product feed.
type HomeFeed struct {
	ShopperName  string    `json:"shopper_name"`
	GenderFilter string    `json:"gender_filter,omitempty"`
	Products     []Product `json:"products"`
}

// Stats reports service-level counters and model state.
type Stats struct {
	Counters             map[string]int64 `json:"counters"`
	AIEnabled            bool             `json:"ai_enabled"`
	CatalogItemsInMemory int              `json:"catalog_items_in_memory"`
	DenseIndexReady      bool             `json:"dense_index_ready"`
	EmbedModel           string           `json:"embed_model"`
}

// Health is the service health response.
type Health struct {
	Status string `json:"status"`
	App    string `json:"app"`
	Stats  Stats  `json:"stats"`
}

// FeedbackAck confirms a recorded feedback event.
type FeedbackAck struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
}
