package domain

// KeyPrefix namespaces every key kbsearch writes to the datastore.
const KeyPrefix = "kbsearch:"

// Retrieval defaults. The similarity threshold is exclusive: a vector hit must
// score strictly above it.
const (
	DefaultTopK                = 5
	DefaultMaxMerged           = 10
	DefaultMaxSlugHints        = 5
	DefaultSimilarityThreshold = 0.3
)

// VectorConfig holds the page index vectorization settings.
type VectorConfig struct {
	Model          string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
}

// DefaultVectorConfig returns the defaults for text-embedding-004.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:          "text-embedding-004",
		Dimensions:     768,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
	}
}
