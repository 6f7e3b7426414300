// Package scope narrows the site map handed to the query generator down to the
// branches implicated by a query's hierarchy hints.
package scope

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/domain/sitemap"
	"github.com/kailas-cloud/kbsearch/internal/match"
)

// Defaults for the filter.
const (
	DefaultMinSize            = 500
	DefaultContextSubcategory = 5
	minSubstringLen           = 3
)

// Fallback reasons reported in Document.Reason.
const (
	ReasonFiltered  = "filtered"
	ReasonFull      = "full"
	ReasonNoHints   = "no_hints"
	ReasonNoMatches = "no_matches"
	ReasonTooSmall  = "too_small"
)

// Document is the reference context for query generation.
// Full is true when Text is the unfiltered site map.
type Document struct {
	Text       string
	Full       bool
	Reason     string
	Categories []string
}

type filteredSiteMap struct {
	Categories []filteredCategory `json:"categories"`
}

type filteredCategory struct {
	Name          string                `json:"name"`
	URL           string                `json:"url"`
	Pages         []string              `json:"pages,omitempty"`
	Subcategories []sitemap.Subcategory `json:"subcategories,omitempty"`
}

// Filter builds scope documents. Safe for concurrent use.
type Filter struct {
	site        sitemap.SiteMap
	full        string
	minSize     int
	contextSubs int
	logger      *zap.Logger
}

// New creates a Filter over the site map of index.
func New(index *sitemap.Index, logger *zap.Logger) *Filter {
	return &Filter{
		site:        index.SiteMap(),
		full:        index.Structure(),
		minSize:     DefaultMinSize,
		contextSubs: DefaultContextSubcategory,
		logger:      logger,
	}
}

// WithMinSize overrides the size below which a filtered document is discarded.
func (f *Filter) WithMinSize(n int) *Filter {
	if n >= 0 {
		f.minSize = n
	}
	return f
}

// Full returns the unfiltered document.
func (f *Filter) Full() Document {
	return Document{Text: f.full, Full: true, Reason: ReasonFull}
}

// Apply returns the site map restricted to categories and subcategories
// matching hierarchy. It never returns an empty document: no hints, no matches
// or a too small result all yield the full site map.
func (f *Filter) Apply(hierarchy []string) Document {
	if len(hierarchy) == 0 {
		f.logger.Debug("No hierarchy hints, using full site map")
		return f.fallback(ReasonNoHints)
	}

	var (
		included []filteredCategory
		names    []string
	)

	for _, cat := range f.site.Categories {
		catMatch := MatchName(cat.Name, hierarchy)

		if len(cat.Subcategories) > 0 {
			var subs []sitemap.Subcategory
			for _, sub := range cat.Subcategories {
				if MatchName(sub.Name, hierarchy) {
					subs = append(subs, sub)
				}
			}

			switch {
			case len(subs) > 0:
				included = append(included, filteredCategory{Name: cat.Name, URL: cat.URL, Subcategories: subs})
			case catMatch:
				fc := filteredCategory{Name: cat.Name, URL: cat.URL, Pages: cat.Pages}
				fc.Subcategories = cat.Subcategories[:min(f.contextSubs, len(cat.Subcategories))]
				included = append(included, fc)
			default:
				continue
			}
			names = append(names, cat.Name)
			continue
		}

		if catMatch && len(cat.Pages) > 0 {
			included = append(included, filteredCategory{Name: cat.Name, URL: cat.URL, Pages: cat.Pages})
			names = append(names, cat.Name)
		}
	}

	if len(included) == 0 {
		f.logger.Debug("No site map branch matched hints, using full site map",
			zap.Strings("hierarchy_hints", hierarchy))
		return f.fallback(ReasonNoMatches)
	}

	data, err := json.MarshalIndent(filteredSiteMap{Categories: included}, "", " ")
	if err != nil {
		f.logger.Warn("Failed to render filtered site map", zap.Error(err))
		return f.fallback(ReasonNoMatches)
	}

	if len(data) < f.minSize {
		f.logger.Debug("Filtered site map too small, using full site map",
			zap.Int("size", len(data)),
			zap.Int("min_size", f.minSize))
		return f.fallback(ReasonTooSmall)
	}

	f.logger.Debug("Filtered site map",
		zap.Strings("categories", names),
		zap.Int("size", len(data)),
		zap.Int("full_size", len(f.full)))

	return Document{Text: string(data), Reason: ReasonFiltered, Categories: names}
}

func (f *Filter) fallback(reason string) Document {
	return Document{Text: f.full, Full: true, Reason: reason}
}

// MatchName reports whether name fuzzily matches any hint: equal after
// normalization, one containing the other (shorter side at least three
// characters), or sharing a word.
func MatchName(name string, hints []string) bool {
	nn := match.Normalize(name)
	nameWords := match.Words(name, nil)

	for _, hint := range hints {
		nh := match.Normalize(hint)

		if nn != "" && nn == nh {
			return true
		}
		if min(len(nn), len(nh)) >= minSubstringLen &&
			(strings.Contains(nn, nh) || strings.Contains(nh, nn)) {
			return true
		}
		if match.Intersects(nameWords, match.Words(hint, nil)) {
			return true
		}
	}
	return false
}
