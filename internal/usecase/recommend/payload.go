package recommend

import (
	"fmt"
	"time"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// PublicProduct is the catalog row shape returned to clients.
type PublicProduct struct {
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

// MatchInfo is a stored match-check verdict attached to a recommendation.
type MatchInfo struct {
	Verdict    string  `json:"verdict"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}

// Recommendation is one ranked product with its explanation.
type Recommendation struct {
	PublicProduct
	Rank             int        `json:"rank"`
	Score            float64    `json:"score"`
	ExplanationChips []string   `json:"explanation_chips"`
	Explanation      string     `json:"explanation"`
	Match            *MatchInfo `json:"match,omitempty"`
}

// SessionInfo is the client-facing session header.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	ShopperName  string    `json:"shopper_name"`
	Source       string    `json:"source"`
	QueryText    string    `json:"query_text,omitempty"`
	ImageSummary string    `json:"image_summary,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionPayload is the response of every session-producing operation.
type SessionPayload struct {
	Session         SessionInfo          `json:"session"`
	Recommendations []Recommendation     `json:"recommendations"`
	AssistantNote   string               `json:"assistant_note,omitempty"`
	AIPowered       bool                 `json:"ai_powered"`
	ImageAnalysis   *domain.ImageSummary `json:"image_analysis,omitempty"`
	Refinement      string               `json:"refinement,omitempty"`
}

// LookPayload is the complete-the-look response.
type LookPayload struct {
	SessionID       string           `json:"session_id"`
	AnchorProduct   PublicProduct    `json:"anchor_product"`
	AssistantNote   string           `json:"assistant_note"`
	AIPowered       bool             `json:"ai_powered"`
	Recommendations []Recommendation `json:"recommendations"`
}

// SuggestPayload is the quick anchor-session response.
type SuggestPayload struct {
	SessionID     string        `json:"session_id"`
	AnchorProduct PublicProduct `json:"anchor_product"`
	AssistantNote string        `json:"assistant_note"`
}

// MatchPayload is the check-match response. JudgementDetails carries the
// heuristic verdict alongside the final one.
type MatchPayload struct {
	SessionID        string    `json:"session_id"`
	ProductID        int       `json:"product_id"`
	Verdict          string    `json:"verdict"`
	Rationale        string    `json:"rationale"`
	Confidence       float64   `json:"confidence"`
	AIPowered        bool      `json:"ai_powered"`
	JudgementDetails MatchInfo `json:"judgement_details"`
}

// ProfilePayload is the shopper profile summary.
type ProfilePayload struct {
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
	PublicProduct
	Quantity int `json:"quantity"`
}

// CartPayload is the cart response.
type CartPayload struct {
	ShopperName string     `json:"shopper_name"`
	TotalItems  int        `json:"total_items"`
	Items       []CartItem `json:"items"`
}

// StatsPayload reports service-level counters and model state.
type StatsPayload struct {
	Counters             map[string]int64 `json:"counters"`
	AIEnabled            bool             `json:"ai_enabled"`
	CatalogItemsInMemory int              `json:"catalog_items_in_memory"`
	DenseIndexReady      bool             `json:"dense_index_ready"`
	EmbedModel           string           `json:"embed_model"`
}

func publicProduct(item domain.Product) PublicProduct {
	return PublicProduct{
		ID:             item.ID,
		Name:           item.Name,
		Gender:         item.Gender,
		MasterCategory: item.MasterCategory,
		SubCategory:    item.SubCategory,
		ArticleType:    item.ArticleType,
		BaseColour:     item.BaseColour,
		Season:         item.Season,
		Year:           item.Year,
		Usage:          item.Usage,
		ImageURL:       fmt.Sprintf("/api/image/%d", item.ID),
	}
}

func sessionInfo(session domain.Session) SessionInfo {
	return SessionInfo{
		SessionID:    session.ID,
		ShopperName:  session.ShopperName,
		Source:       session.Source,
		QueryText:    session.QueryText,
		ImageSummary: session.ImageSummary,
		CreatedAt:    session.CreatedAt,
	}
}
