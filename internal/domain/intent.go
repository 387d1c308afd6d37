package domain

import "strings"

// Intent is the structured shopper preference record derived from text,
// image analysis, and session history. Created fresh per request; never
// persisted directly.
type Intent struct {
	QueryText     string
	Gender        string // empty = unspecified
	ArticleHints  []string
	ColorHints    []string
	UsageHints    []string
	SeasonHints   []string
	StyleKeywords []string
}

// IntentFragment is the validated output of the AI structured-extraction
// pass. Unknown/empty fields carry their default sentinel values.
type IntentFragment struct {
	Gender        string
	Usage         string
	Season        string
	ArticleTypes  []string
	Colors        []string
	StyleKeywords []string
}

// Merge layers an AI-derived fragment over a heuristic intent. Gender, usage
// and season override only when the fragment carries a real signal; list
// fields are unioned with case-insensitive dedup, first-seen casing wins.
func (i Intent) Merge(overlay IntentFragment) Intent {
	merged := i

	if g := strings.TrimSpace(overlay.Gender); g != "" && Normalize(g) != "unknown" {
		merged.Gender = g
	}
	if u := strings.TrimSpace(overlay.Usage); u != "" && Normalize(u) != "unknown" {
		merged.UsageHints = Dedupe(append(append([]string{}, i.UsageHints...), u))
	}
	if s := strings.TrimSpace(overlay.Season); s != "" {
		if n := Normalize(s); n != "unknown" && n != "all" {
			merged.SeasonHints = Dedupe(append(append([]string{}, i.SeasonHints...), s))
		}
	}
	merged.ArticleHints = Dedupe(append(append([]string{}, merged.ArticleHints...), overlay.ArticleTypes...))
	merged.ColorHints = Dedupe(append(append([]string{}, merged.ColorHints...), overlay.Colors...))
	merged.StyleKeywords = Dedupe(append(append([]string{}, merged.StyleKeywords...), overlay.StyleKeywords...))
	return merged
}

// ImageSummary holds the structured attributes the vision model extracted
// from an uploaded outfit photo.
type ImageSummary struct {
	Gender        string   `json:"gender"`
	Occasion      string   `json:"occasion"`
	Season        string   `json:"season,omitempty"`
	Colors        []string `json:"colors"`
	ArticleTypes  []string `json:"article_types"`
	SearchQueries []string `json:"search_queries"`
	StyleKeywords []string `json:"style_keywords,omitempty"`
	Error         string   `json:"error,omitempty"`
}
