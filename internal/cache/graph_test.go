package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharv3903/saferoute/internal/graph"
	"github.com/atharv3903/saferoute/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func tinyGraph() *graph.Graph {
	g := graph.New()
	g.AddNode(model.Coordinate{Lat: 1, Lng: 1}, "")
	return g
}

func TestGraphKeyRounds(t *testing.T) {
	k1, s, e := GraphKey(model.Coordinate{Lat: 40.71234, Lng: -74.00561}, model.Coordinate{Lat: 40.72, Lng: -73.99})
	k2, _, _ := GraphKey(model.Coordinate{Lat: 40.7119, Lng: -74.0059}, model.Coordinate{Lat: 40.72004, Lng: -73.99})

	assert.Equal(t, "40.712,-74.006|40.720,-73.990", k1)
	assert.Equal(t, k1, k2)
	assert.Equal(t, model.Coordinate{Lat: 40.712, Lng: -74.006}, s)
	assert.Equal(t, model.Coordinate{Lat: 40.72, Lng: -73.99}, e)
}

func TestGraphCacheHitAndMiss(t *testing.T) {
	c := NewGraphCache()
	_, ok := c.Get("a")
	assert.False(t, ok)

	g := tinyGraph()
	c.Put("a", g)
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Same(t, g, got)

	st := c.Stats()
	assert.Equal(t, 2, st.Gets)
	assert.Equal(t, 1, st.Hits)
	assert.Equal(t, 1, st.Entries)
}

func TestGraphCacheExpiredEntryIsMiss(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := NewGraphCache(WithClock(clk.Now))
	c.Put("a", tinyGraph())

	clk.Advance(DefaultGraphTTL - time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, 1, st.Expirations)
	assert.Zero(t, st.Entries)
}

func TestGraphCacheGetOrBuildRebuildsAfterExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := NewGraphCache(WithClock(clk.Now), WithTTL(time.Minute))

	var builds int
	build := func() *graph.Graph { builds++; return tinyGraph() }

	first, hit := c.GetOrBuild(context.Background(), "k", build)
	assert.False(t, hit)
	second, hit := c.GetOrBuild(context.Background(), "k", build)
	assert.True(t, hit)
	assert.Same(t, first, second)

	clk.Advance(time.Minute)
	third, hit := c.GetOrBuild(context.Background(), "k", build)
	assert.False(t, hit)
	assert.NotSame(t, first, third)
	assert.Equal(t, 2, builds)
}

func TestGraphCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewGraphCache(WithCapacity(2))
	c.Put("a", tinyGraph())
	c.Put("b", tinyGraph())
	_, _ = c.Get("a")
	c.Put("c", tinyGraph())

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Stats().Evictions)
}

func TestGraphCachePutReplaces(t *testing.T) {
	c := NewGraphCache()
	c.Put("a", tinyGraph())
	g := tinyGraph()
	c.Put("a", g)

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Same(t, g, got)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestGraphCacheCoalescesConcurrentBuilds(t *testing.T) {
	c := NewGraphCache()
	var builds atomic.Int32
	release := make(chan struct{})

	build := func() *graph.Graph {
		builds.Add(1)
		<-release
		return tinyGraph()
	}

	const callers = 16
	results := make([]*graph.Graph, callers)
	var started, wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		started.Add(1)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			results[i], _ = c.GetOrBuild(context.Background(), "shared", build)
		}(i)
	}
	started.Wait()
	// give every caller a chance to join the in-flight build
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
	for _, g := range results {
		assert.Same(t, results[0], g)
	}
	assert.Equal(t, 1, c.Stats().Builds)
}

func TestGraphCacheInvalidateAndClear(t *testing.T) {
	c := NewGraphCache()
	c.Put("a", tinyGraph())
	c.Put("b", tinyGraph())

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}
