// Package sitemap holds the static documentation hierarchy and the page index
// derived from it. An Index is built once at startup and never mutated.
package sitemap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty signals a site map without categories.
var ErrEmpty = errors.New("site map has no categories")

// SiteMap is the hierarchical documentation layout: categories with direct
// pages and/or subcategories. Field order matters for the JSON rendering.
type SiteMap struct {
	Site       *Site      `yaml:"site,omitempty" json:"site,omitempty"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Site names the documentation portal the map describes.
type Site struct {
	Name     string `yaml:"name" json:"name"`
	Homepage string `yaml:"homepage,omitempty" json:"homepage,omitempty"`
}

// Category is a top-level documentation section.
type Category struct {
	Name          string        `yaml:"name" json:"name"`
	URL           string        `yaml:"url" json:"url"`
	Pages         []string      `yaml:"pages,omitempty" json:"pages,omitempty"`
	Subcategories []Subcategory `yaml:"subcategories,omitempty" json:"subcategories,omitempty"`
}

// Subcategory is a nested section inside a Category.
type Subcategory struct {
	Name  string   `yaml:"name" json:"name"`
	URL   string   `yaml:"url" json:"url"`
	Pages []string `yaml:"pages" json:"pages"`
}

// Entry is one page of the index. Subcategory is empty for direct pages.
type Entry struct {
	Slug        string
	Category    string
	Subcategory string
}

// Index is the immutable page index together with the site map it came from.
type Index struct {
	site      SiteMap
	entries   []Entry
	structure string
}

// Load reads a site map file. JSON and YAML are both accepted.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read site map %s: %w", path, err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("site map %s: %w", path, err)
	}
	return idx, nil
}

// Parse decodes a site map document and builds its index.
func Parse(data []byte) (*Index, error) {
	var sm SiteMap
	if err := yaml.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("parse site map: %w", err)
	}
	return New(sm)
}

// New builds an Index from an in-memory site map.
func New(sm SiteMap) (*Index, error) {
	if len(sm.Categories) == 0 {
		return nil, ErrEmpty
	}

	var entries []Entry
	for _, cat := range sm.Categories {
		if cat.Name == "" {
			return nil, errors.New("category name is required")
		}
		for _, u := range cat.Pages {
			entries = append(entries, Entry{Slug: SlugFromURL(u), Category: cat.Name})
		}
		for _, sub := range cat.Subcategories {
			if sub.Name == "" {
				return nil, fmt.Errorf("category %q: subcategory name is required", cat.Name)
			}
			for _, u := range sub.Pages {
				entries = append(entries, Entry{
					Slug:        SlugFromURL(u),
					Category:    cat.Name,
					Subcategory: sub.Name,
				})
			}
		}
	}

	return &Index{
		site:      sm,
		entries:   entries,
		structure: render(sm, len(entries)),
	}, nil
}

// Entries returns a copy of the page index.
func (i *Index) Entries() []Entry {
	out := make([]Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

// Len returns the number of indexed pages.
func (i *Index) Len() int { return len(i.entries) }

// SiteMap returns the underlying site map. Callers must not modify its slices.
func (i *Index) SiteMap() SiteMap { return i.site }

// Structure returns the full text rendering of the site map.
func (i *Index) Structure() string { return i.structure }

// SlugFromURL extracts a page slug: the part after "/article/" if present,
// otherwise the last path segment.
func SlugFromURL(u string) string {
	if i := strings.LastIndex(u, "/article/"); i >= 0 {
		return strings.TrimSuffix(u[i+len("/article/"):], "/")
	}
	u = strings.TrimSuffix(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

func render(sm SiteMap, total int) string {
	rule := strings.Repeat("=", 70)

	var b strings.Builder
	b.WriteString(rule + "\n")
	if sm.Site != nil && sm.Site.Name != "" {
		b.WriteString("DOCUMENTATION INDEX: " + sm.Site.Name + "\n")
	} else {
		b.WriteString("DOCUMENTATION INDEX\n")
	}
	b.WriteString(rule + "\n\n")

	for _, cat := range sm.Categories {
		b.WriteString("[" + cat.Name + "]\n")
		for _, u := range cat.Pages {
			b.WriteString("   - " + SlugFromURL(u) + "\n")
		}
		for _, sub := range cat.Subcategories {
			b.WriteString("\n   [" + sub.Name + "]\n")
			for _, u := range sub.Pages {
				b.WriteString("      - " + SlugFromURL(u) + "\n")
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\nTOTAL: %d pages\n%s\n", rule, total, rule)
	return b.String()
}
