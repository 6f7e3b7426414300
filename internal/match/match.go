// Package match holds the fuzzy text primitives shared by hint generation,
// scope filtering and ranking.
package match

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Set is a set of lowercase words.
type Set map[string]struct{}

// Stoplists used when tokenizing queries and slugs.
var (
	QueryStopwords = NewSet("the", "a", "of", "for", "series", "guide", "manual")
	SlugStopwords  = NewSet("the", "a", "of", "for", "series", "openedge")
	// StrictQueryStopwords also drops question filler ("how to do i").
	StrictQueryStopwords = NewSet("the", "a", "of", "for", "series", "guide", "manual", "how", "to", "do", "i")
)

var (
	wordRe        = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	contentWordRe = regexp.MustCompile(`[\p{L}\p{N}_]{3,}`)
)

// NewSet builds a Set from words.
func NewSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Has reports whether w is in the set.
func (s Set) Has(w string) bool {
	_, ok := s[w]
	return ok
}

// Normalize lowercases s and drops everything outside [a-z0-9].
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Words returns the word set of lowercased s minus stop.
func Words(s string, stop Set) Set {
	return collect(wordRe, s, stop)
}

// ContentWords returns words of at least three characters.
func ContentWords(s string) Set {
	return collect(contentWordRe, s, nil)
}

func collect(re *regexp.Regexp, s string, stop Set) Set {
	out := make(Set)
	for _, w := range re.FindAllString(strings.ToLower(s), -1) {
		if stop.Has(w) {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

// Overlap is the fraction of query words present in other. Empty query gives 0.
func Overlap(query, other Set) float64 {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for w := range query {
		if other.Has(w) {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

// Intersects reports whether a and b share at least one word.
func Intersects(a, b Set) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for w := range a {
		if b.Has(w) {
			return true
		}
	}
	return false
}

// Ratio is the Ratcliff/Obershelp similarity of a and b in [0,1].
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// SlugScore rates how well slug answers query, in [0,100].
// 100 is a normalized exact match; otherwise 80 points of string similarity
// plus 20 points of query word coverage.
func SlugScore(slug, query string) float64 {
	if slug == "" {
		return 0
	}
	ns, nq := Normalize(slug), Normalize(query)
	if ns == nq {
		return 100
	}

	ratio := Ratio(ns, nq) * 80

	qWords := Words(query, QueryStopwords)
	if len(qWords) == 0 {
		return ratio
	}
	sWords := Words(slug, SlugStopwords)
	return ratio + Overlap(qWords, sWords)*20
}
