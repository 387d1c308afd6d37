package domain

import "strings"

// Normalize lower-cases text, replaces non-alphanumeric runes with spaces,
// and collapses whitespace.
func Normalize(text string) string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isAlnum(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize splits normalized text into tokens.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// Compact strips everything but alphanumeric runes from normalized text.
func Compact(text string) string {
	var b strings.Builder
	for _, r := range Normalize(text) {
		if isAlnum(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ContainsPadded reports whether needle appears as a whitespace-padded
// substring of haystack. Both sides are expected to be normalized already.
func ContainsPadded(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}

// Dedupe removes duplicates case-insensitively, preserving first-seen order
// and first-seen casing. Blank values are dropped.
func Dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		cleaned := strings.TrimSpace(v)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
