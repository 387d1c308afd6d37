package domain

import "fmt"

// Product is a single immutable catalog row. Ids are unique and stable for
// the process lifetime; rows are never mutated after load.
type Product struct {
	ID             int
	Gender         string
	MasterCategory string
	SubCategory    string
	ArticleType    string
	BaseColour     string
	Season         string
	Year           int // 0 = unknown
	Usage          string
	Name           string
}

// SearchDocument flattens a product into the textual projection used for
// lexical scoring and as the unit embedded for dense retrieval.
func (p Product) SearchDocument() string {
	yearText := "unknown"
	if p.Year > 0 {
		yearText = fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf(
		"%s. Gender: %s. Type: %s. Category: %s/%s. Color: %s. Usage: %s. Season: %s. Year: %s.",
		p.Name, p.Gender, p.ArticleType, p.MasterCategory, p.SubCategory,
		p.BaseColour, p.Usage, p.Season, yearText,
	)
}

// AttributeBlob is the normalized text used for style-keyword matching.
func (p Product) AttributeBlob() string {
	return Normalize(p.Name + " " + p.ArticleType + " " + p.BaseColour + " " + p.Usage)
}
