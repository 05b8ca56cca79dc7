package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/atharv3903/saferoute/internal/cache"
	"github.com/atharv3903/saferoute/internal/model"
)

type routeResp struct {
	Metadata model.RouteMetadata `json:"metadata"`
	Explored int                 `json:"explored_nodes"`
	CacheHit bool                `json:"cache_hit"`
}

type cacheStatsResp struct {
	Graph  cache.Stats `json:"graph"`
	Routes int         `json:"routes"`
	Epoch  uint64      `json:"epoch"`
}

// parseBBox reads "minLat,minLng,maxLat,maxLng" into an orb.Bound (lng, lat).
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: want minLat,minLng,maxLat,maxLng", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	b := orb.Bound{Min: orb.Point{v[1], v[0]}, Max: orb.Point{v[3], v[2]}}
	if b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] {
		return orb.Bound{}, fmt.Errorf("bbox %q: min exceeds max", s)
	}
	return b, nil
}

// parseClients reads a comma separated list of positive worker counts.
func parseClients(s string) ([]int, error) {
	var out []int
	for _, p := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("client count %q must be a positive integer", p)
		}
		out = append(out, n)
	}
	return out, nil
}

func randomPoint(rnd *rand.Rand, b orb.Bound) model.Coordinate {
	return model.Coordinate{
		Lat: b.Min[1] + rnd.Float64()*(b.Max[1]-b.Min[1]),
		Lng: b.Min[0] + rnd.Float64()*(b.Max[0]-b.Min[0]),
	}
}

func postJSON(client *http.Client, url string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return client.Post(url, "application/json", bytes.NewReader(buf))
}

func routeRequest(start, end model.Coordinate) map[string]any {
	return map[string]any{"start": start, "end": end}
}

func computeAvg(l []time.Duration) float64 {
	if len(l) == 0 {
		return 0
	}
	var sum time.Duration
	for _, x := range l {
		sum += x
	}
	return float64(sum.Microseconds()) / 1000 / float64(len(l))
}

func computePercentiles(l []time.Duration) (p50, p95, p99 float64) {
	if len(l) == 0 {
		return 0, 0, 0
	}
	tmp := slices.Clone(l)
	slices.Sort(tmp)

	idx := func(p float64) int {
		i := int(float64(len(tmp)) * p)
		if i >= len(tmp) {
			i = len(tmp) - 1
		}
		return i
	}
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

	return ms(tmp[idx(0.50)]), ms(tmp[idx(0.95)]), ms(tmp[idx(0.99)])
}
