package cache

import (
	"container/list"
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/atharv3903/saferoute/internal/graph"
	"github.com/atharv3903/saferoute/internal/model"
)

// DefaultGraphTTL is how long a built graph may be served.
const DefaultGraphTTL = 5 * time.Minute

// defaultGraphCapacity bounds the number of regions held at once.
const defaultGraphCapacity = 256

// keyDecimals is the rounding applied to coordinates before keying (~110 m).
const keyDecimals = 3

type graphEntry struct {
	key     string
	g       *graph.Graph
	builtAt time.Time
}

// GraphCache is a TTL-bounded LRU of built graphs keyed by region.
// It's safe for concurrent use. Graphs are published only once fully built
// and are never mutated afterwards.
type GraphCache struct {
	mu       sync.Mutex
	m        map[string]*list.Element
	ll       *list.List
	capacity int
	ttl      time.Duration
	now      func() time.Time
	flight   singleflight.Group

	// stats
	gets        int
	hits        int
	builds      int
	evictions   int
	expirations int
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries     int `json:"entries"`
	Gets        int `json:"gets"`
	Hits        int `json:"hits"`
	Builds      int `json:"builds"`
	Evictions   int `json:"evictions"`
	Expirations int `json:"expirations"`
}

type GraphOption func(*GraphCache)

// WithTTL overrides the freshness window. Non-positive values are ignored.
func WithTTL(ttl time.Duration) GraphOption {
	return func(c *GraphCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCapacity overrides the LRU bound. Non-positive values are ignored.
func WithCapacity(n int) GraphOption {
	return func(c *GraphCache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) GraphOption {
	return func(c *GraphCache) { c.now = now }
}

func NewGraphCache(opts ...GraphOption) *GraphCache {
	c := &GraphCache{
		m:        make(map[string]*list.Element),
		ll:       list.New(),
		capacity: defaultGraphCapacity,
		ttl:      DefaultGraphTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GraphKey rounds start and end and returns the cache key together with the
// rounded coordinates the graph for that key must be built from.
func GraphKey(start, end model.Coordinate) (string, model.Coordinate, model.Coordinate) {
	rs, re := Round(start), Round(end)
	return fmt.Sprintf("%.*f,%.*f|%.*f,%.*f",
		keyDecimals, rs.Lat, keyDecimals, rs.Lng, keyDecimals, re.Lat, keyDecimals, re.Lng), rs, re
}

// Round snaps c to the key precision.
func Round(c model.Coordinate) model.Coordinate {
	p := math.Pow10(keyDecimals)
	return model.Coordinate{Lat: math.Round(c.Lat*p) / p, Lng: math.Round(c.Lng*p) / p}
}

// Get returns the graph for key if present and fresh. Expired entries are
// dropped and reported as misses.
func (c *GraphCache) Get(key string) (*graph.Graph, bool) {
	return c.get(key, true)
}

func (c *GraphCache) get(key string, count bool) (*graph.Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if count {
		c.gets++
	}
	el, ok := c.m[key]
	if !ok {
		return nil, false
	}
	ent := el.Value.(*graphEntry)
	if c.now().Sub(ent.builtAt) >= c.ttl {
		c.ll.Remove(el)
		delete(c.m, key)
		c.expirations++
		return nil, false
	}
	if count {
		c.hits++
	}
	c.ll.MoveToFront(el)
	return ent.g, true
}

// Put publishes g under key, replacing any previous entry (last write wins).
func (c *GraphCache) Put(key string, g *graph.Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent := &graphEntry{key: key, g: g, builtAt: c.now()}
	if el, ok := c.m[key]; ok {
		el.Value = ent
		c.ll.MoveToFront(el)
		return
	}

	c.m[key] = c.ll.PushFront(ent)
	if c.ll.Len() > c.capacity {
		if tail := c.ll.Back(); tail != nil {
			delete(c.m, tail.Value.(*graphEntry).key)
			c.ll.Remove(tail)
			c.evictions++
		}
	}
}

// GetOrBuild returns the cached graph for key or builds and publishes one.
// Concurrent callers for the same key share a single build. The bool reports
// a cache hit.
func (c *GraphCache) GetOrBuild(ctx context.Context, key string, build func() *graph.Graph) (*graph.Graph, bool) {
	recordGet(ctx)
	if g, ok := c.Get(key); ok {
		recordHit(ctx)
		return g, true
	}

	v, _, _ := c.flight.Do(key, func() (any, error) {
		// another caller may have published while we waited on the flight
		if g, ok := c.get(key, false); ok {
			return g, nil
		}
		start := time.Now()
		g := build()
		recordBuild(ctx, time.Since(start))

		c.mu.Lock()
		c.builds++
		c.mu.Unlock()

		c.Put(key, g)
		return g, nil
	})
	return v.(*graph.Graph), false
}

// Invalidate drops a single entry if present.
func (c *GraphCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[key]; ok {
		delete(c.m, key)
		c.ll.Remove(el)
	}
}

// Clear fully resets the cache and stats.
func (c *GraphCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]*list.Element)
	c.ll.Init()
	c.gets, c.hits, c.builds, c.evictions, c.expirations = 0, 0, 0, 0, 0
}

func (c *GraphCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries:     c.ll.Len(),
		Gets:        c.gets,
		Hits:        c.hits,
		Builds:      c.builds,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
}
