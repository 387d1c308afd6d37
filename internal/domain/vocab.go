package domain

import "strings"

// GenericKeywords are tokens too common to carry retrieval signal. Lexical
// scoring and style-keyword extraction both skip them.
var GenericKeywords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "for": {}, "from": {}, "i": {}, "in": {},
	"is": {}, "item": {}, "look": {}, "my": {}, "need": {}, "of": {}, "on": {},
	"outfit": {}, "please": {}, "search": {}, "shirt": {}, "shirts": {},
	"show": {}, "style": {}, "t": {}, "tee": {}, "tshirt": {}, "tshirts": {},
	"the": {}, "this": {}, "to": {}, "want": {}, "wants": {}, "wife": {},
	"wives": {}, "husband": {}, "woman": {}, "women": {}, "man": {}, "men": {},
	"girl": {}, "girls": {}, "boy": {}, "boys": {}, "her": {}, "him": {},
}

// WomenTokens and MenTokens drive heuristic gender detection.
var (
	WomenTokens = map[string]struct{}{
		"woman": {}, "women": {}, "wife": {}, "female": {}, "ladies": {},
		"lady": {}, "girl": {}, "girls": {}, "her": {},
	}
	MenTokens = map[string]struct{}{
		"man": {}, "men": {}, "husband": {}, "male": {}, "gentleman": {},
		"gentlemen": {}, "boy": {}, "boys": {}, "him": {},
	}
)

// UsageLexicon maps catalog usage labels to trigger keywords.
var UsageLexicon = map[string][]string{
	"Party":  {"party", "wedding", "cocktail", "date", "nightout", "celebration"},
	"Work":   {"work", "office", "business", "professional", "meeting"},
	"Casual": {"casual", "daily", "weekend", "relaxed"},
	"Formal": {"formal", "smart", "elegant", "blazer", "suit"},
	"Sports": {"sport", "sports", "gym", "training", "running", "active"},
	"Ethnic": {"ethnic", "traditional", "festive", "kurta", "saree"},
}

// Seasons are the catalog season labels, checked in this order.
var Seasons = []string{"Summer", "Winter", "Spring", "Fall"}

// ComplementaryHint pairs an article-type fragment with the pieces that
// complete an outfit around it. Order matters: the first fragment contained
// in the anchor's article type wins.
type ComplementaryHint struct {
	Article    string
	Complement string
}

// ComplementaryHints drive complete-the-look query building and complement
// token matching. DefaultComplement applies when no fragment matches.
var ComplementaryHints = []ComplementaryHint{
	{"shirt", "trousers sneakers"},
	{"tshirt", "jeans sneakers"},
	{"tops", "bottomwear shoes"},
	{"kurta", "bottomwear sandals"},
	{"dress", "heels outerwear"},
	{"jeans", "tops sneakers"},
	{"trousers", "tops shoes"},
	{"shoes", "tops bottomwear"},
	{"flip flops", "casual tops"},
}

// DefaultComplement is the complement phrase for unmapped article types.
const DefaultComplement = "outfit pieces"

// ComplementFor returns the complement phrase for an article type. The
// article type is normalized before fragment matching.
func ComplementFor(articleType string) string {
	norm := Normalize(articleType)
	for _, hint := range ComplementaryHints {
		if strings.Contains(norm, hint.Article) {
			return hint.Complement
		}
	}
	return DefaultComplement
}

// ComplementTokens returns the complement phrase tokens of length >= 3.
func ComplementTokens(articleType string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, token := range Tokenize(ComplementFor(articleType)) {
		if len(token) >= 3 {
			out[token] = struct{}{}
		}
	}
	return out
}
