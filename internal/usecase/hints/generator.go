// Package hints finds candidate slugs and hierarchy names for a query by fuzzy
// matching it against the static page index.
package hints

import (
	"slices"
	"sort"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	dhints "github.com/kailas-cloud/kbsearch/internal/domain/hints"
	"github.com/kailas-cloud/kbsearch/internal/domain/sitemap"
	"github.com/kailas-cloud/kbsearch/internal/match"
)

// Scoring constants for page index entries.
const (
	CategoryBonus    = 30.0
	SubcategoryBonus = 40.0
	MinScore         = 50.0
)

type indexedEntry struct {
	sitemap.Entry
	normCategory    string
	normSubcategory string
}

// Generator scores page index entries against queries. Safe for concurrent use.
type Generator struct {
	entries  []indexedEntry
	maxSlugs int
}

// New creates a Generator over the page index.
func New(index *sitemap.Index) *Generator {
	src := index.Entries()
	entries := make([]indexedEntry, len(src))
	for i, e := range src {
		entries[i] = indexedEntry{
			Entry:           e,
			normCategory:    match.Normalize(e.Category),
			normSubcategory: match.Normalize(e.Subcategory),
		}
	}
	return &Generator{entries: entries, maxSlugs: domain.DefaultMaxSlugHints}
}

// WithMaxSlugs overrides how many slug hints are returned.
func (g *Generator) WithMaxSlugs(n int) *Generator {
	if n > 0 {
		g.maxSlugs = n
	}
	return g
}

type scored struct {
	slug  string
	score float64
}

// Find returns up to maxSlugs distinct slugs scoring above MinScore, best
// first, and every category or subcategory name contained in the query.
func (g *Generator) Find(query string) dhints.Hints {
	nq := match.Normalize(query)

	var candidates []scored
	hierarchy := make(map[string]struct{})

	for _, e := range g.entries {
		score := match.SlugScore(e.Slug, query)

		if e.normCategory != "" && strings.Contains(nq, e.normCategory) {
			score += CategoryBonus
			hierarchy[e.Category] = struct{}{}
		}
		if e.normSubcategory != "" && strings.Contains(nq, e.normSubcategory) {
			score += SubcategoryBonus
			hierarchy[e.Subcategory] = struct{}{}
		}

		if score > MinScore {
			candidates = append(candidates, scored{slug: e.Slug, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var h dhints.Hints
	seen := make(map[string]struct{}, g.maxSlugs)
	for _, c := range candidates {
		if len(h.Slugs) == g.maxSlugs {
			break
		}
		if _, dup := seen[c.slug]; dup {
			continue
		}
		seen[c.slug] = struct{}{}
		h.Slugs = append(h.Slugs, c.slug)
	}

	for name := range hierarchy {
		h.Hierarchy = append(h.Hierarchy, name)
	}
	slices.Sort(h.Hierarchy)

	return h
}
