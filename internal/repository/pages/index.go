package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/kbsearch/internal/db"
	"github.com/kailas-cloud/kbsearch/internal/domain"
)

// Indexable page fields besides the ones every row returns.
const (
	FieldCategory    = "category"
	FieldSubcategory = "subcategory"
	FieldVector      = "vector"
)

// HNSWConfig holds HNSW index tuning parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// indexManager is the consumer interface for index lifecycle (ISP).
type indexManager interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	DropIndex(ctx context.Context, name string) error
}

// Definition builds the page index over HASH keys under KeyPrefix.
func Definition(vc domain.VectorConfig, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	b := db.NewIndex(IndexName).
		Prefix(KeyPrefix).
		TagWithOpts("id", ",", true).
		TagWithOpts("slug", ",", false).
		Tag(FieldCategory).
		Tag(FieldSubcategory).
		TextWeighted("title", 5).
		Text("content").
		Tag("url")

	metric := db.DistanceMetric(strings.ToUpper(vc.DistanceMetric))
	if metric == "" {
		metric = db.DistanceCosine
	}
	if strings.EqualFold(vc.Algorithm, string(db.VectorFlat)) {
		b = b.VectorFlat(FieldVector, vc.Dimensions, metric)
	} else {
		b = b.VectorHNSW(FieldVector, vc.Dimensions, metric, hnsw.M, hnsw.EFConstruct)
	}

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("page index: %w", err)
	}
	return def, nil
}

// Indexer manages the page index lifecycle.
type Indexer struct {
	store indexManager
}

// NewIndexer creates an Indexer.
func NewIndexer(s indexManager) *Indexer {
	return &Indexer{store: s}
}

// Ensure creates the index unless it exists. recreate drops it first.
// It reports whether an index was created.
func (ix *Indexer) Ensure(ctx context.Context, def *db.IndexDefinition, recreate bool) (bool, error) {
	if recreate {
		if err := ix.store.DropIndex(ctx, def.Name); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
			return false, fmt.Errorf("drop index %s: %w", def.Name, err)
		}
	} else {
		exists, err := ix.store.IndexExists(ctx, def.Name)
		if err != nil {
			return false, fmt.Errorf("check index %s: %w", def.Name, err)
		}
		if exists {
			return false, nil
		}
	}

	if err := ix.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return true, nil
}
