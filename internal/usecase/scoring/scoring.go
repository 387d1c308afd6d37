// Package scoring applies business preference adjustments on top of base
// retrieval scores and derives heuristic match verdicts from them.
package scoring

import (
	"math"
	"strings"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// Preference boost weights. The gender penalty outweighs every positive
// signal so cross-gender items sink even with strong attribute alignment.
const (
	genderBoost    = 0.30
	genderPenalty  = -0.45
	articleExact   = 0.24
	articlePartial = 0.12
	articleMiss    = -0.08
	colorMatch     = 0.12
	usageMatch     = 0.10
	seasonMatch    = 0.08
	styleMatch     = 0.06
	recencyWeight  = 0.05
	recencyChipMin = 0.6
)

// Adjuster computes business adjustments. PreferNewest adds a recency boost
// scaled from the catalog year.
type Adjuster struct {
	PreferNewest bool
}

// Adjust returns the score delta for the product under the intent plus the
// explanation chips describing the applied signals.
func (a Adjuster) Adjust(intent domain.Intent, item domain.Product) (float64, []string) {
	boost := 0.0
	var chips []string

	if expected := strings.TrimSpace(intent.Gender); expected != "" {
		if n := domain.Normalize(expected); n != "unknown" && n != "unisex" {
			if n == domain.Normalize(item.Gender) {
				boost += genderBoost
				chips = append(chips, "Gender aligned")
			} else {
				boost += genderPenalty
				chips = append(chips, "Gender mismatch penalty")
			}
		}
	}

	if hints := cleanHints(intent.ArticleHints); len(hints) > 0 {
		articleNorm := domain.Normalize(item.ArticleType)
		exact, partial := false, false
		for _, hint := range hints {
			hintNorm := domain.Normalize(hint)
			if hintNorm == articleNorm {
				exact = true
			}
			if strings.Contains(articleNorm, hintNorm) || strings.Contains(hintNorm, articleNorm) {
				partial = true
			}
		}
		switch {
		case exact:
			boost += articleExact
			chips = append(chips, "Article type match")
		case partial:
			boost += articlePartial
			chips = append(chips, "Article type related")
		default:
			boost += articleMiss
		}
	}

	if hints := cleanHints(intent.ColorHints); len(hints) > 0 {
		colorNorm := domain.Normalize(item.BaseColour)
		for _, hint := range hints {
			if domain.Normalize(hint) == colorNorm {
				boost += colorMatch
				chips = append(chips, "Color preference match")
				break
			}
		}
	}

	if hints := cleanHints(intent.UsageHints); len(hints) > 0 {
		usageNorm := domain.Normalize(item.Usage)
		for _, hint := range hints {
			hintNorm := domain.Normalize(hint)
			if hintNorm == usageNorm || strings.Contains(usageNorm, hintNorm) || strings.Contains(hintNorm, usageNorm) {
				boost += usageMatch
				chips = append(chips, "Occasion aligned")
				break
			}
		}
	}

	if hints := cleanHints(intent.SeasonHints); len(hints) > 0 {
		seasonNorm := domain.Normalize(item.Season)
		for _, hint := range hints {
			if domain.Normalize(hint) == seasonNorm {
				boost += seasonMatch
				chips = append(chips, "Season aligned")
				break
			}
		}
	}

	if keywords := cleanHints(intent.StyleKeywords); len(keywords) > 0 {
		blob := item.AttributeBlob()
		for _, keyword := range keywords {
			if strings.Contains(blob, domain.Normalize(keyword)) {
				boost += styleMatch
				chips = append(chips, "Style keyword match")
				break
			}
		}
	}

	if a.PreferNewest && item.Year > 0 {
		recency := (float64(item.Year) - 2008.0) / 20.0
		if recency < 0 {
			recency = 0
		}
		if recency > 1 {
			recency = 1
		}
		boost += recency * recencyWeight
		if recency >= recencyChipMin {
			chips = append(chips, "Recent collection")
		}
	}

	return boost, domain.Dedupe(chips)
}

// MatchVerdict is the heuristic compatibility judgement for one product
// against a session's intent.
type MatchVerdict struct {
	Verdict    string
	Rationale  string
	Confidence float64
}

// Match converts the business adjustment into a bounded confidence score and
// a labeled verdict.
func (a Adjuster) Match(intent domain.Intent, item domain.Product) MatchVerdict {
	boost, chips := a.Adjust(intent, item)

	confidence := 0.55 + boost
	if confidence < 0.2 {
		confidence = 0.2
	}
	if confidence > 0.95 {
		confidence = 0.95
	}

	verdict := "Weak match"
	switch {
	case confidence >= 0.82:
		verdict = "Strong match"
	case confidence >= 0.7:
		verdict = "Good match"
	case confidence >= 0.55:
		verdict = "Possible match"
	}

	signals := chips
	if len(signals) > 4 {
		signals = signals[:4]
	}
	if len(signals) == 0 {
		signals = []string{"limited metadata alignment"}
	}

	return MatchVerdict{
		Verdict:    verdict,
		Rationale:  "Signals: " + strings.Join(signals, ", "),
		Confidence: math.Round(confidence*100) / 100,
	}
}

func cleanHints(values []string) []string {
	out := values[:0:0]
	for _, v := range values {
		if cleaned := strings.TrimSpace(v); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
