package query

import "strings"

// stopwords are question scaffolding with no retrieval value.
var stopwords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "any": {}, "are": {},
	"at": {}, "before": {}, "by": {}, "did": {}, "do": {}, "does": {},
	"for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "how": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "many": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "their": {}, "them": {}, "they": {},
	"this": {}, "to": {}, "was": {}, "we": {}, "were": {}, "what": {},
	"when": {}, "where": {}, "which": {}, "who": {}, "why": {}, "with": {},
	"you": {},
}

// ExtractKeywords lowercases the question, strips punctuation and
// stopwords, and returns the terms worth matching against the index.
func ExtractKeywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= '0' && r <= '9' {
			return false
		}
		return true
	})
	keywords := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopwords[f]; skip {
			continue
		}
		keywords = append(keywords, f)
	}
	return keywords
}
