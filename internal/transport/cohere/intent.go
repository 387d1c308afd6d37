package cohere

import (
	"context"
	"fmt"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

const intentPrompt = `You are the GlobalMart Fashion intent parser.
Read the shopper query and output ONLY valid JSON with keys:
- gender (Men|Women|Unisex|Unknown)
- usage (Formal|Casual|Ethnic|Party|Sports|Work|Unknown)
- article_types (array using only allowed values)
- colors (array of 0-5 plain color words)
- season (Summer|Winter|Spring|Fall|All|Unknown)
- style_keywords (array of concise keywords)
Allowed article types: %s
Query: %s
No markdown. No extra keys.`

type intentPayload struct {
	Gender        string   `json:"gender"`
	Usage         string   `json:"usage"`
	ArticleTypes  []string `json:"article_types"`
	Colors        []string `json:"colors"`
	Season        string   `json:"season"`
	StyleKeywords []string `json:"style_keywords"`
}

// ExtractIntent asks the intent model for a structured read of the query.
// Article types outside the allowed vocabulary are dropped, preserving the
// catalog's casing for the ones that survive.
func (c *Client) ExtractIntent(ctx context.Context, queryText string, articleTypes []string) (domain.IntentFragment, error) {
	prompt := fmt.Sprintf(intentPrompt, strings.Join(articleTypes, ", "), queryText)
	raw, err := c.ChatText(ctx, c.intentModel, prompt, 0.1)
	if err != nil {
		return domain.IntentFragment{}, err
	}

	var parsed intentPayload
	if err := extractJSONBlock(raw, &parsed); err != nil {
		return domain.IntentFragment{}, err
	}

	return domain.IntentFragment{
		Gender:        orUnknown(parsed.Gender),
		Usage:         orUnknown(parsed.Usage),
		Season:        orUnknown(parsed.Season),
		ArticleTypes:  filterAllowed(parsed.ArticleTypes, articleTypes),
		Colors:        cleanStrings(parsed.Colors),
		StyleKeywords: cleanStrings(parsed.StyleKeywords),
	}, nil
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Unknown"
	}
	return s
}

// filterAllowed keeps values present in the allowed vocabulary, matched
// case-insensitively and returned in the vocabulary's casing.
func filterAllowed(values, allowed []string) []string {
	lookup := make(map[string]string, len(allowed))
	for _, v := range allowed {
		lookup[strings.ToLower(v)] = v
	}
	var out []string
	for _, v := range values {
		if canonical, ok := lookup[strings.ToLower(strings.TrimSpace(v))]; ok {
			out = append(out, canonical)
		}
	}
	return out
}

func cleanStrings(values []string) []string {
	var out []string
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}
