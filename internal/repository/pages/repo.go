// Package pages executes queries against the page index: generated query
// expressions for the structured branch and KNN for the vector branch.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
)

// Key layout of page hashes and their index.
const (
	KeyPrefix = domain.KeyPrefix + "page:"
	IndexName = domain.KeyPrefix + "pages:idx"
)

// store is the consumer interface for page queries (ISP).
type store interface {
	Search(ctx context.Context, q *db.Query) (*db.SearchResult, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Hit is a nearest-neighbour row with its cosine similarity.
type Hit struct {
	Fields     map[string]string
	Similarity float64
}

// Repo implements structured.Executor and vector.Searcher.
type Repo struct {
	store store
	limit int
}

// New creates a page repository. Every executed query returns at most limit rows.
func New(s store, limit int) *Repo {
	if limit <= 0 {
		limit = domain.DefaultTopK
	}
	return &Repo{store: s, limit: limit}
}

// Execute runs a query expression with the fixed return shape and row limit.
// Any return or paging clause is owned here, not by the expression.
func (r *Repo) Execute(ctx context.Context, query string) ([]map[string]string, error) {
	sr, err := r.store.Search(ctx, &db.Query{
		IndexName:    IndexName,
		Expression:   query,
		Offset:       0,
		Limit:        r.limit,
		ReturnFields: candidate.ReturnFields,
	})
	if err != nil {
		return nil, classify("execute query", err, domain.ErrExecution)
	}
	return rows(sr), nil
}

// Nearest returns the k pages closest to vec, most similar first.
func (r *Repo) Nearest(ctx context.Context, vec []float32, k int) ([]Hit, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		Vector:       vec,
		K:            k,
		ReturnFields: candidate.ReturnFields,
	})
	if err != nil {
		return nil, classify("nearest pages", err, nil)
	}

	fields := rows(sr)
	hits := make([]Hit, 0, len(fields))
	for i, f := range fields {
		hits = append(hits, Hit{Fields: f, Similarity: sr.Entries[i].Score})
	}
	return hits, nil
}

// rows extracts field maps; a row missing its id takes it from the hash key.
func rows(sr *db.SearchResult) []map[string]string {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	out := make([]map[string]string, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		f := e.Fields
		if f == nil {
			f = make(map[string]string, 1)
		}
		if strings.TrimSpace(f[candidate.FieldID]) == "" {
			f[candidate.FieldID] = strings.TrimPrefix(e.Key, KeyPrefix)
		}
		out = append(out, f)
	}
	return out
}

func classify(op string, err error, kind error) error {
	if errors.Is(err, db.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDatastoreUnavailable, err)
	}
	if kind != nil {
		return fmt.Errorf("%s: %w: %w", op, kind, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
