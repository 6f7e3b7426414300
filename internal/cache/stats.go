package cache

import "sync"

// Stats is a point-in-time view of one layer.
type Stats struct {
	Layer    string  `json:"layer"`
	Enabled  bool    `json:"enabled"`
	Size     int     `json:"size"`
	Capacity int     `json:"capacity"`
	TTL      string  `json:"ttl"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// Source is anything that reports layer stats and can be flushed.
type Source interface {
	Stats() Stats
	Purge()
}

// Registry collects the layers of a process for reporting.
type Registry struct {
	mu      sync.Mutex
	sources []Source
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds layers to the registry.
func (r *Registry) Register(sources ...Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, sources...)
}

// Snapshot returns stats of every registered layer in registration order.
func (r *Registry) Snapshot() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Stats, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s.Stats())
	}
	return out
}

// PurgeAll drops the entries of every registered layer.
func (r *Registry) PurgeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sources {
		s.Purge()
	}
}
