package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharv3903/saferoute/internal/model"
)

func TestRouteCacheKeyedByPreferences(t *testing.T) {
	c := NewRouteCache()
	start := model.Coordinate{Lat: 40.7128, Lng: -74.006}
	end := model.Coordinate{Lat: 40.73, Lng: -73.99}

	safe := NewRouteKey(start, end, model.DefaultPreferences(), c.Epoch())
	fast := NewRouteKey(start, end, model.Preferences{}, c.Epoch())
	assert.NotEqual(t, safe, fast)

	r := &model.RouteResult{Explored: 7}
	c.Put(safe, r)

	got, ok := c.Get(safe)
	require.True(t, ok)
	assert.Same(t, r, got)
	_, ok = c.Get(fast)
	assert.False(t, ok)
}

func TestRouteCacheKeepsFullPrecision(t *testing.T) {
	a := NewRouteKey(model.Coordinate{Lat: 1.00001, Lng: 2}, model.Coordinate{Lat: 3, Lng: 4}, model.Preferences{}, 0)
	b := NewRouteKey(model.Coordinate{Lat: 1.00002, Lng: 2}, model.Coordinate{Lat: 3, Lng: 4}, model.Preferences{}, 0)
	assert.NotEqual(t, a, b)
}

func TestRouteCacheBumpEpochRetiresEntries(t *testing.T) {
	c := NewRouteCache()
	start := model.Coordinate{Lat: 1, Lng: 1}
	end := model.Coordinate{Lat: 1.01, Lng: 1.01}

	old := NewRouteKey(start, end, model.Preferences{}, c.Epoch())
	c.Put(old, &model.RouteResult{})
	assert.Equal(t, 1, c.Len())

	assert.Equal(t, uint64(1), c.BumpEpoch())
	assert.Zero(t, c.Len())

	// a result computed against the retired epoch is dropped
	c.Put(old, &model.RouteResult{})
	assert.Zero(t, c.Len())

	c.Put(NewRouteKey(start, end, model.Preferences{}, c.Epoch()), &model.RouteResult{})
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Zero(t, c.Len())
	assert.Equal(t, uint64(1), c.Epoch())
}
