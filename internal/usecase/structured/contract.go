package structured

import (
	"context"

	"github.com/kailas-cloud/kbsearch/internal/domain/hints"
	"github.com/kailas-cloud/kbsearch/internal/usecase/scope"
)

// Completer turns a prompt into a generated query. Its output is untrusted.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Executor runs a query expression against the page index. The executor owns
// the return shape and the row limit.
type Executor interface {
	Execute(ctx context.Context, query string) ([]map[string]string, error)
}

// HintFinder derives search hints from a question.
type HintFinder interface {
	Find(query string) hints.Hints
}

// ScopeFilter narrows the site map handed to the generator.
type ScopeFilter interface {
	Apply(hierarchy []string) scope.Document
	Full() scope.Document
}

// QueryCache stores generated queries by question and hints.
type QueryCache interface {
	Get(key string) (string, bool)
	Set(key, query string)
}
