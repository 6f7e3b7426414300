// Package candidate defines the result unit flowing from the search branches
// through the ranker to callers.
package candidate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

// Field names every datastore row is expected to carry.
const (
	FieldID      = "id"
	FieldSlug    = "slug"
	FieldTitle   = "title"
	FieldContent = "content"
	FieldURL     = "url"
)

// ReturnFields is the fixed return shape of every page query.
var ReturnFields = []string{FieldID, FieldSlug, FieldTitle, FieldContent, FieldURL}

// Record is one candidate article. Similarity is set only for vector hits.
// Score is written by the ranker and is meaningful only for ordering.
type Record struct {
	ID         string   `json:"id,omitempty"`
	Slug       string   `json:"slug,omitempty"`
	Title      string   `json:"title,omitempty"`
	Content    string   `json:"content,omitempty"`
	URL        string   `json:"url,omitempty"`
	Similarity *float64 `json:"similarity,omitempty"`
	Score      float64  `json:"score"`
}

// FromFields validates a datastore row. Rows with neither slug nor id are rejected.
func FromFields(fields map[string]string) (Record, error) {
	r := Record{
		ID:      strings.TrimSpace(fields[FieldID]),
		Slug:    strings.TrimSpace(fields[FieldSlug]),
		Title:   fields[FieldTitle],
		Content: fields[FieldContent],
		URL:     fields[FieldURL],
	}
	if r.Key() == "" {
		return Record{}, fmt.Errorf("row without slug or id: %w", domain.ErrInvalidRecord)
	}
	return r, nil
}

// WithSimilarity returns a copy of r carrying a vector similarity.
func (r Record) WithSimilarity(s float64) Record {
	r.Similarity = &s
	return r
}

// Key is the identity used for deduplication: slug, else id.
func (r Record) Key() string {
	if r.Slug != "" {
		return r.Slug
	}
	return r.ID
}

// Clone deep-copies records so cached results stay immutable.
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		if r.Similarity != nil {
			s := *r.Similarity
			r.Similarity = &s
		}
		out[i] = r
	}
	return out
}
