package cohere

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

const visionPrompt = `You are the GlobalMart Fashion assistant.
Analyze the uploaded outfit photo and output ONLY valid JSON with keys:
- gender (Men|Women|Unisex|Unknown)
- occasion (Formal|Casual|Ethnic|Party|Sports|Work|Unknown)
- colors (array of 1-5 colors)
- article_types (array using only allowed values)
- search_queries (array of 3-6 short catalog queries)
Allowed article types: %s
No markdown. No explanations.`

type visionPayload struct {
	Gender        string   `json:"gender"`
	Occasion      string   `json:"occasion"`
	Colors        []string `json:"colors"`
	ArticleTypes  []string `json:"article_types"`
	SearchQueries []string `json:"search_queries"`
}

// AnalyzeOutfitImage sends the photo to the vision model and returns the
// structured summary used to drive catalog searches.
func (c *Client) AnalyzeOutfitImage(ctx context.Context, imageBytes []byte, articleTypes []string) (domain.ImageSummary, error) {
	prompt := fmt.Sprintf(visionPrompt, strings.Join(articleTypes, ", "))
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageBytes)

	raw, err := c.ChatImageText(ctx, prompt, dataURL, 0.2)
	if err != nil {
		return domain.ImageSummary{}, err
	}

	var parsed visionPayload
	if err := extractJSONBlock(raw, &parsed); err != nil {
		return domain.ImageSummary{}, err
	}

	return domain.ImageSummary{
		Gender:        orUnknown(parsed.Gender),
		Occasion:      orUnknown(parsed.Occasion),
		Colors:        cleanStrings(parsed.Colors),
		ArticleTypes:  filterAllowed(parsed.ArticleTypes, articleTypes),
		SearchQueries: cleanStrings(parsed.SearchQueries),
	}, nil
}
