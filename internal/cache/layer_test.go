package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLayer(t *testing.T, size int, ttl time.Duration) (*Layer[string], *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	l, err := New[string]("test", size, ttl, WithClock(clock.Now))
	require.NoError(t, err)
	return l, clock
}

func TestLayer_SetThenGet(t *testing.T) {
	l, _ := newTestLayer(t, 3, time.Hour)

	l.Set("k", "v")
	got, ok := l.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestLayer_Expiry(t *testing.T) {
	l, clock := newTestLayer(t, 3, time.Hour)
	l.Set("k", "v")

	clock.Advance(time.Hour - time.Second)
	_, ok := l.Get("k")
	assert.True(t, ok, "entry must be valid just before ttl")

	clock.Advance(time.Second)
	_, ok = l.Get("k")
	assert.False(t, ok, "entry must expire at ttl")
	assert.Zero(t, l.Len(), "expired entry must be removed on read")
}

func TestLayer_EvictsOldestInsertion(t *testing.T) {
	l, clock := newTestLayer(t, 3, time.Hour)

	for i := range 3 {
		l.Set(fmt.Sprintf("k%d", i), "v")
		clock.Advance(time.Second)
	}
	// Reads do not change eviction order.
	_, ok := l.Get("k0")
	require.True(t, ok)

	l.Set("k3", "v")

	assert.Equal(t, 3, l.Len())
	_, ok = l.Get("k0")
	assert.False(t, ok, "oldest insertion must be evicted")
	for _, k := range []string{"k1", "k2", "k3"} {
		_, ok := l.Get(k)
		assert.True(t, ok, k)
	}
}

func TestLayer_OverwriteDoesNotEvict(t *testing.T) {
	l, _ := newTestLayer(t, 2, time.Hour)
	l.Set("a", "1")
	l.Set("b", "2")
	l.Set("a", "3")

	assert.Equal(t, 2, l.Len())
	got, _ := l.Get("a")
	assert.Equal(t, "3", got)
	_, ok := l.Get("b")
	assert.True(t, ok)
}

func TestLayer_OverwriteRefreshesTimestamp(t *testing.T) {
	l, clock := newTestLayer(t, 2, time.Hour)
	l.Set("a", "1")
	clock.Advance(time.Second)
	l.Set("b", "2")
	clock.Advance(time.Second)
	l.Set("a", "3")

	l.Set("c", "4")
	_, ok := l.Get("b")
	assert.False(t, ok, "b is now the oldest insertion")
	_, ok = l.Get("a")
	assert.True(t, ok)
}

func TestLayer_Stats(t *testing.T) {
	l, _ := newTestLayer(t, 3, time.Hour)

	s := l.Stats()
	assert.Zero(t, s.HitRate)
	assert.Zero(t, s.Hits+s.Misses)

	l.Set("k", "v")
	l.Get("k")
	l.Get("k")
	l.Get("missing")

	s = l.Stats()
	assert.Equal(t, uint64(2), s.Hits)
	assert.Equal(t, uint64(1), s.Misses)
	assert.InDelta(t, 2.0/3.0, s.HitRate, 1e-9)
	assert.Equal(t, 1, s.Size)
	assert.Equal(t, 3, s.Capacity)
	assert.True(t, s.Enabled)
}

func TestLayer_SetDoesNotCount(t *testing.T) {
	l, _ := newTestLayer(t, 3, time.Hour)
	l.Set("k", "v")
	s := l.Stats()
	assert.Zero(t, s.Hits)
	assert.Zero(t, s.Misses)
}

func TestLayer_Metrics(t *testing.T) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"layer", "result"})
	l, err := New[int]("results", 2, time.Minute, WithMetrics(requests))
	require.NoError(t, err)

	l.Set("a", 1)
	l.Get("a")
	l.Get("b")

	assert.InDelta(t, 1, testutil.ToFloat64(requests.WithLabelValues("results", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(requests.WithLabelValues("results", "miss")), 0)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New[string]("bad", 0, time.Hour)
	assert.Error(t, err)

	_, err = New[string]("bad", 10, 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
}

func TestDisabled(t *testing.T) {
	l := Disabled[string]("off")
	l.Set("k", "v")
	_, ok := l.Get("k")
	assert.False(t, ok)
	assert.False(t, l.Enabled())
	assert.Equal(t, uint64(1), l.Stats().Misses)
	l.Purge()
}

func TestBuild_FallsBackToDisabled(t *testing.T) {
	l := Build[string]("broken", Config{Size: -1, TTL: time.Hour}, zap.NewNop())
	assert.False(t, l.Enabled())

	l = Build[string]("off", Config{Disabled: true, Size: 10, TTL: time.Hour}, zap.NewNop())
	assert.False(t, l.Enabled())

	l = Build[string]("ok", Config{Size: 10, TTL: time.Hour}, zap.NewNop())
	assert.True(t, l.Enabled())
}

func TestLayer_ConcurrentAccess(t *testing.T) {
	l, _ := newTestLayer(t, 50, time.Hour)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := fmt.Sprintf("k%d", (g*200+i)%120)
				l.Set(k, k)
				if v, ok := l.Get(k); ok {
					assert.Equal(t, k, v)
				}
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, l.Len(), 50)
	s := l.Stats()
	assert.Equal(t, uint64(8*200), s.Hits+s.Misses)
}

func TestRegistry(t *testing.T) {
	a, _ := newTestLayer(t, 2, time.Hour)
	b := Disabled[int]("b")
	r := NewRegistry()
	r.Register(a, b)

	a.Set("x", "y")
	snap := r.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "test", snap[0].Layer)
	assert.Equal(t, 1, snap[0].Size)
	assert.False(t, snap[1].Enabled)

	r.PurgeAll()
	assert.Zero(t, a.Len())
}
