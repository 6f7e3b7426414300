package retrieval

import (
	"context"

	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
)

// Searcher is one retrieval branch.
type Searcher interface {
	Search(ctx context.Context, query string) ([]candidate.Record, error)
}

// Ranker orders records for a query.
type Ranker interface {
	Rank(records []candidate.Record, query string) []candidate.Record
}

// ResultCache stores complete retrieval results.
type ResultCache interface {
	Get(key string) (Result, bool)
	Set(key string, value Result)
}
