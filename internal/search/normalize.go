package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldText strips diacritics, case-folds and collapses whitespace so two
// spellings of the same title compare equal.
func FoldText(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// SameText reports whether a and b are equal after FoldText.
func SameText(a, b string) bool {
	return FoldText(a) == FoldText(b)
}

// cacheKey normalizes a query for the live result cache.
func cacheKey(query string) string {
	return FoldText(query)
}
