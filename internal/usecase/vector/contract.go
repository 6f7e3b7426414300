package vector

import (
	"context"

	"github.com/kailas-cloud/kbsearch/internal/domain"
	"github.com/kailas-cloud/kbsearch/internal/repository/pages"
)

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher finds the pages nearest to a vector, most similar first.
type Searcher interface {
	Nearest(ctx context.Context, vec []float32, k int) ([]pages.Hit, error)
}
