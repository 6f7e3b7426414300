package structured

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/kbsearch/internal/cache"
	"github.com/kailas-cloud/kbsearch/internal/domain/hints"
	"github.com/kailas-cloud/kbsearch/internal/usecase/scope"
)

type fakeHints struct {
	h hints.Hints
}

func (f fakeHints) Find(_ string) hints.Hints { return f.h }

type fakeScope struct {
	filtered scope.Document
	full     scope.Document
}

func (f fakeScope) Apply(_ []string) scope.Document { return f.filtered }
func (f fakeScope) Full() scope.Document            { return f.full }

// fakeCompleter returns outputs in order, repeating the last one.
type fakeCompleter struct {
	mu      sync.Mutex
	outputs []string
	errs    []error
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return "", err
	}
	if len(f.outputs) == 0 {
		return "", nil
	}
	if i >= len(f.outputs) {
		i = len(f.outputs) - 1
	}
	return f.outputs[i], nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type execResult struct {
	rows []map[string]string
	err  error
}

// fakeExecutor answers by exact query string; unknown queries return no rows.
type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]execResult
	queries []string
}

func (f *fakeExecutor) Execute(_ context.Context, q string) ([]map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	r := f.results[q]
	return r.rows, r.err
}

func filteredScope() fakeScope {
	return fakeScope{
		filtered: scope.Document{Text: "FILTERED", Reason: scope.ReasonFiltered},
		full:     scope.Document{Text: "FULL", Full: true, Reason: scope.ReasonFull},
	}
}

func newQueryCache(t *testing.T) *cache.Layer[string] {
	t.Helper()
	l, err := cache.New[string](cache.LayerQueries, 200, 2*time.Hour)
	if err != nil {
		t.Fatalf("new layer: %v", err)
	}
	return l
}

func newTestService(
	t *testing.T, h hints.Hints, sc fakeScope, gen *fakeCompleter, exec *fakeExecutor,
) (*Service, *cache.Layer[string]) {
	t.Helper()
	qc := newQueryCache(t)
	return New(fakeHints{h: h}, sc, gen, exec, qc, "@slug (TAG)", zap.NewNop()), qc
}

func row(id, slug string) map[string]string {
	return map[string]string{"id": id, "slug": slug, "title": slug}
}
