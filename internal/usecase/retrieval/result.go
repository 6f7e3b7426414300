package retrieval

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/kailas-cloud/kbsearch/internal/domain/candidate"
)

// Result is the three-part retrieval response.
// Cached is set on the returned copy only and never serialized.
type Result struct {
	Structured []candidate.Record `json:"structured_results"`
	TopVector  []candidate.Record `json:"top_vector_results"`
	Merged     []candidate.Record `json:"merged_display_results"`
	Cached     bool               `json:"-"`
}

// Clone deep-copies the result. Nil lists become empty lists.
func (r Result) Clone() Result {
	return Result{
		Structured: cloneList(r.Structured),
		TopVector:  cloneList(r.TopVector),
		Merged:     cloneList(r.Merged),
		Cached:     r.Cached,
	}
}

func cloneList(recs []candidate.Record) []candidate.Record {
	if recs == nil {
		return []candidate.Record{}
	}
	return candidate.Clone(recs)
}

// CacheKey is the L1 key for a query.
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Merge combines structured and vector hits by identity key. Structured hits
// come first in their own order and win on duplicate keys. Records without a
// key are skipped. The output holds at most limit records.
func Merge(structured, vector []candidate.Record, limit int) []candidate.Record {
	if limit <= 0 {
		return []candidate.Record{}
	}
	out := make([]candidate.Record, 0, min(len(structured)+len(vector), limit))
	seen := make(map[string]struct{}, cap(out))

	add := func(recs []candidate.Record) {
		for _, r := range recs {
			if len(out) >= limit {
				return
			}
			k := r.Key()
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	add(structured)
	add(vector)
	return out
}
