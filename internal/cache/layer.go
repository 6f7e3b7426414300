// Package cache implements the bounded, TTL-expiring in-process cache layers
// used by retrieval: full results, generated queries and query embeddings.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrInvalidTTL signals a non-positive layer TTL.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Layer is a fixed-capacity map with per-entry TTL. Reads do not refresh an
// entry, so when the layer is full the oldest insertion is evicted.
// A disabled Layer misses on every Get and ignores every Set.
type Layer[V any] struct {
	name     string
	ttl      time.Duration
	capacity int
	now      func() time.Time
	requests *prometheus.CounterVec

	mu     sync.Mutex
	lru    *simplelru.LRU[string, entry[V]]
	hits   uint64
	misses uint64
}

// Option configures a Layer.
type Option func(*options)

type options struct {
	now      func() time.Time
	requests *prometheus.CounterVec
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMetrics reports hits and misses to a counter vec labelled {layer, result}.
func WithMetrics(requests *prometheus.CounterVec) Option {
	return func(o *options) { o.requests = requests }
}

// New creates a Layer holding at most size entries for ttl each.
func New[V any](name string, size int, ttl time.Duration, opts ...Option) (*Layer[V], error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if ttl <= 0 {
		return nil, fmt.Errorf("layer %s: %w", name, ErrInvalidTTL)
	}
	lru, err := simplelru.NewLRU[string, entry[V]](size, nil)
	if err != nil {
		return nil, fmt.Errorf("layer %s: %w", name, err)
	}

	return &Layer[V]{
		name:     name,
		ttl:      ttl,
		capacity: size,
		now:      o.now,
		requests: o.requests,
		lru:      lru,
	}, nil
}

// Disabled returns a Layer that never stores anything.
func Disabled[V any](name string, opts ...Option) *Layer[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Layer[V]{name: name, now: o.now, requests: o.requests}
}

// Name returns the layer name.
func (l *Layer[V]) Name() string { return l.name }

// Enabled reports whether the layer stores entries.
func (l *Layer[V]) Enabled() bool { return l.lru != nil }

// Get returns the value for key. Expired entries are removed and reported as misses.
func (l *Layer[V]) Get(key string) (V, bool) {
	var zero V

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lru == nil {
		l.recordLocked(false)
		return zero, false
	}

	e, ok := l.lru.Peek(key)
	if ok && l.now().Sub(e.insertedAt) >= l.ttl {
		l.lru.Remove(key)
		ok = false
	}
	l.recordLocked(ok)
	if !ok {
		return zero, false
	}
	return e.value, true
}

// Set stores value under key. A new key in a full layer evicts the oldest entry;
// an existing key is overwritten and its timestamp refreshed.
func (l *Layer[V]) Set(key string, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lru == nil {
		return
	}
	l.lru.Add(key, entry[V]{value: value, insertedAt: l.now()})
}

// Purge drops every entry. Counters are kept.
func (l *Layer[V]) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lru != nil {
		l.lru.Purge()
	}
}

// Len returns the number of stored entries, expired ones included.
func (l *Layer[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lru == nil {
		return 0
	}
	return l.lru.Len()
}

// Stats returns a snapshot of the layer counters.
func (l *Layer[V]) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		Layer:    l.name,
		Enabled:  l.lru != nil,
		Capacity: l.capacity,
		TTL:      l.ttl.String(),
		Hits:     l.hits,
		Misses:   l.misses,
	}
	if l.lru != nil {
		s.Size = l.lru.Len()
	}
	if total := l.hits + l.misses; total > 0 {
		s.HitRate = float64(l.hits) / float64(total)
	}
	return s
}

func (l *Layer[V]) recordLocked(hit bool) {
	result := "miss"
	if hit {
		l.hits++
		result = "hit"
	} else {
		l.misses++
	}
	if l.requests != nil {
		l.requests.WithLabelValues(l.name, result).Inc()
	}
}
