package search

import (
	"regexp"
	"strings"
)

var nonSearchable = regexp.MustCompile(`[^a-z0-9\s]+`)

// Matcher is an order-preserving, case-insensitive token matcher: every
// query token must appear in order, with anything in between.
type Matcher struct {
	pattern string
	re      *regexp.Regexp
}

// BuildMatcher lowercases query, drops everything outside [a-z0-9\s] and joins
// the remaining tokens with ".*".
func BuildMatcher(query string) Matcher {
	cleaned := nonSearchable.ReplaceAllString(strings.ToLower(query), "")
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return Matcher{}
	}
	pattern := strings.Join(tokens, ".*")
	return Matcher{
		pattern: pattern,
		re:      regexp.MustCompile("(?i)" + pattern),
	}
}

// Pattern is the expression handed to the catalog store.
func (m Matcher) Pattern() string { return m.pattern }

// Empty reports whether the query had no searchable tokens. An empty matcher
// matches nothing.
func (m Matcher) Empty() bool { return m.re == nil }

func (m Matcher) Match(title, artist string) bool {
	if m.re == nil {
		return false
	}
	return m.re.MatchString(title) || m.re.MatchString(artist)
}
