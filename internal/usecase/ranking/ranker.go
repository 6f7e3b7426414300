// Package ranking scores candidate records against a query and orders them.
package ranking

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
	"github.com/kailas-cloud/kbsearch/internal/match"
)

// Exact-match tiers. A record in a higher tier always outscores every record
// in a lower tier.
const (
	tierNone = iota
	tierTitle
	tierID
	tierSlug
)

// Ranker is a pure scoring function. Safe for concurrent use.
type Ranker struct {
	w   Weights
	gap float64
}

// New creates a Ranker with validated weights.
func New(w Weights) (*Ranker, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("ranking weights: %w", err)
	}
	return &Ranker{w: w, gap: w.ceiling()}, nil
}

// Default returns a Ranker with DefaultWeights.
func Default() *Ranker {
	r, err := New(DefaultWeights())
	if err != nil {
		panic(err)
	}
	return r
}

type query struct {
	norm  string
	raw   string
	words match.Set
}

func newQuery(q string) query {
	return query{
		norm:  match.Normalize(q),
		raw:   q,
		words: match.Words(q, match.StrictQueryStopwords),
	}
}

// Rank returns a copy of records with Score set, sorted by descending score.
// The input slice is not modified.
func (r *Ranker) Rank(records []candidate.Record, q string) []candidate.Record {
	out := candidate.Clone(records)
	qq := newQuery(q)
	for i := range out {
		out[i].Score = r.score(out[i], qq)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Score rates a single record against q.
func (r *Ranker) Score(rec candidate.Record, q string) float64 {
	return r.score(rec, newQuery(q))
}

func (r *Ranker) score(rec candidate.Record, q query) float64 {
	w := r.w
	var score float64
	tier := tierNone

	if rec.Similarity != nil {
		score += *rec.Similarity * w.Similarity
	}

	if rec.Slug != "" {
		if match.Normalize(rec.Slug) == q.norm {
			score += w.ExactSlug
			tier = tierSlug
		} else {
			score += match.SlugScore(rec.Slug, q.raw) * w.FuzzySlug
		}
	}

	if rec.ID != "" && rec.ID != rec.Slug {
		if match.Normalize(rec.ID) == q.norm {
			score += w.ExactID
			tier = max(tier, tierID)
		} else {
			score += match.SlugScore(rec.ID, q.raw) * w.FuzzyID
		}
	}

	if rec.Title != "" {
		nt := match.Normalize(rec.Title)
		if nt == q.norm {
			score += w.ExactTitle
			tier = max(tier, tierTitle)
		} else {
			score += match.Ratio(nt, q.norm) * w.TitleRatio
			if len(q.words) > 0 {
				score += match.Overlap(q.words, match.Words(rec.Title, nil)) * w.TitleOverlap
			}
		}
	}

	if rec.Content != "" {
		if len(q.words) > 0 {
			score += match.Overlap(q.words, match.ContentWords(rec.Content)) * w.Content
		}
		if utf8.RuneCountInString(rec.Content) > w.ContentBonusMinLen {
			score += w.ContentBonus
		}
	}

	return score + float64(tier)*r.gap
}
