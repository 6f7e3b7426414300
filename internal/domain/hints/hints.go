// Package hints holds the per-query search hints handed to the query generator.
package hints

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
)

// Hints are candidate slugs (best first) and category or subcategory names
// detected in a query.
type Hints struct {
	Slugs     []string `json:"slug_hints"`
	Hierarchy []string `json:"hierarchy_hints"`
}

// Empty reports whether no hint was found.
func (h Hints) Empty() bool {
	return len(h.Slugs) == 0 && len(h.Hierarchy) == 0
}

// Fingerprint is a stable digest of the hints, used in generated-query cache keys.
// Hierarchy order does not affect it; slug order does.
func (h Hints) Fingerprint() string {
	hier := slices.Clone(h.Hierarchy)
	slices.Sort(hier)
	canonical := Hints{Slugs: h.Slugs, Hierarchy: hier}
	if canonical.Slugs == nil {
		canonical.Slugs = []string{}
	}
	if canonical.Hierarchy == nil {
		canonical.Hierarchy = []string{}
	}
	data, _ := json.Marshal(canonical) //nolint:errchkjson // plain string slices
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
