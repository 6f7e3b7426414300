package db

// KNNQuery is the input for vector similarity search over the whole index.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	ReturnFields []string
}

// Query is the input for a query-expression search. The expression is passed
// through as-is; return shape and paging are owned by the caller.
type Query struct {
	IndexName    string
	Expression   string
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
