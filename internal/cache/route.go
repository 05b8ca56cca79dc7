package cache

import (
	"fmt"
	"sync"

	"github.com/atharv3903/saferoute/internal/model"
)

// RouteKey identifies a computed route. Coordinates are kept at full request
// precision so two nearby requests never share a result. Epoch ties the entry
// to the incident set it was computed against.
type RouteKey struct {
	Start, End string
	Prefs      model.Preferences
	Epoch      uint64
}

// NewRouteKey builds a key for start/end under prefs at the given epoch.
func NewRouteKey(start, end model.Coordinate, prefs model.Preferences, epoch uint64) RouteKey {
	return RouteKey{
		Start: fmt.Sprintf("%.6f,%.6f", start.Lat, start.Lng),
		End:   fmt.Sprintf("%.6f,%.6f", end.Lat, end.Lng),
		Prefs: prefs,
		Epoch: epoch,
	}
}

// RouteCache memoizes route results until the incident epoch moves on.
type RouteCache struct {
	mu    sync.RWMutex
	epoch uint64
	m     map[RouteKey]*model.RouteResult
}

func NewRouteCache() *RouteCache {
	return &RouteCache{m: make(map[RouteKey]*model.RouteResult)}
}

func (c *RouteCache) Get(k RouteKey) (*model.RouteResult, bool) {
	c.mu.RLock()
	v, ok := c.m[k]
	c.mu.RUnlock()
	return v, ok
}

// Put stores r unless k belongs to an epoch that has already been retired.
func (c *RouteCache) Put(k RouteKey, r *model.RouteResult) {
	c.mu.Lock()
	if k.Epoch == c.epoch {
		c.m[k] = r
	}
	c.mu.Unlock()
}

func (c *RouteCache) Epoch() uint64 {
	c.mu.RLock()
	e := c.epoch
	c.mu.RUnlock()
	return e
}

// BumpEpoch retires every cached route. Called whenever the incident set
// changes.
func (c *RouteCache) BumpEpoch() uint64 {
	c.mu.Lock()
	c.epoch++
	e := c.epoch
	c.m = make(map[RouteKey]*model.RouteResult)
	c.mu.Unlock()
	return e
}

func (c *RouteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *RouteCache) Clear() {
	c.mu.Lock()
	c.m = make(map[RouteKey]*model.RouteResult)
	c.mu.Unlock()
}
