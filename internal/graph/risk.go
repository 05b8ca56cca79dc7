package graph

import (
	"math"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/model"
)

// RiskConfig controls how incidents translate into edge risk.
type RiskConfig struct {
	RadiusKm        float64 `yaml:"radius_km"`
	Divisor         float64 `yaml:"divisor"`
	DefaultSeverity float64 `yaml:"default_severity"`
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{RadiusKm: 0.2, Divisor: 50, DefaultSeverity: 5}
}

// Enrich returns a view of g whose edge risk reflects the incidents found
// within cfg.RadiusKm of each edge midpoint:
//
//	risk = max(baseline, min(1, count * avgSeverity / divisor))
//
// An empty incident set yields g unchanged; every edge keeps its baseline.
func Enrich(g *Graph, incidents []model.HistoricalIncident, cfg RiskConfig) *Graph {
	if len(incidents) == 0 || len(g.Edges) == 0 {
		return g
	}
	def := DefaultRiskConfig()
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = def.RadiusKm
	}
	if cfg.Divisor <= 0 {
		cfg.Divisor = def.Divisor
	}
	if cfg.DefaultSeverity <= 0 {
		cfg.DefaultSeverity = def.DefaultSeverity
	}

	idx := newIncidentIndex(incidents)
	risk := make([]float64, len(g.Edges))
	memo := make(map[model.Coordinate]float64, len(g.Edges)/2)

	for _, e := range g.Edges {
		mid := geo.Midpoint(e.From.Coord, e.To.Coord)
		score, ok := memo[mid]
		if !ok {
			score = idx.score(mid, cfg)
			memo[mid] = score
		}
		risk[e.ID] = math.Max(e.BaselineRisk, score)
	}
	return g.WithRisk(risk)
}

// indexPrecision 6 gives cells of roughly 0.0055° x 0.011°, a few times the
// incident radius.
const indexPrecision = 6

const (
	cellLatDeg = 180.0 / (1 << 15)
	cellLngDeg = 360.0 / (1 << 15)
)

// incidentIndex buckets incidents by geohash cell. Lookups return the same
// set as a linear scan: the cells visited cover the whole search circle and
// every candidate is checked by exact distance.
type incidentIndex struct {
	cells map[string][]model.HistoricalIncident
	all   []model.HistoricalIncident
}

func newIncidentIndex(incidents []model.HistoricalIncident) *incidentIndex {
	idx := &incidentIndex{
		cells: make(map[string][]model.HistoricalIncident),
		all:   incidents,
	}
	for _, inc := range incidents {
		k := cellKey(inc.Location.Lat, inc.Location.Lng)
		idx.cells[k] = append(idx.cells[k], inc)
	}
	return idx
}

func cellKey(lat, lng float64) string {
	h := geohash.Encode(lat, lng)
	if len(h) > indexPrecision {
		h = h[:indexPrecision]
	}
	return h
}

func (idx *incidentIndex) score(at model.Coordinate, cfg RiskConfig) float64 {
	var count int
	var sum float64
	idx.within(at, cfg.RadiusKm, func(inc model.HistoricalIncident) {
		sev := inc.Severity
		if sev <= 0 {
			sev = cfg.DefaultSeverity
		}
		count++
		sum += sev
	})
	if count == 0 {
		return 0
	}
	// count * average severity
	return math.Min(1, sum/cfg.Divisor)
}

func (idx *incidentIndex) within(at model.Coordinate, radiusKm float64, fn func(model.HistoricalIncident)) {
	visit := func(list []model.HistoricalIncident) {
		for _, inc := range list {
			if geo.DistanceKm(at, inc.Location) <= radiusKm {
				fn(inc)
			}
		}
	}

	dLat := radiusKm / (geo.EarthRadiusKm * math.Pi / 180)
	cosMin := math.Cos((math.Abs(at.Lat) + dLat) * math.Pi / 180)
	if cosMin < 0.05 {
		visit(idx.all)
		return
	}
	dLng := 2 * math.Asin(math.Min(1, math.Sin(radiusKm/(2*geo.EarthRadiusKm))/cosMin)) * 180 / math.Pi

	latLo, latHi := at.Lat-dLat, at.Lat+dLat
	lngLo, lngHi := at.Lng-dLng, at.Lng+dLng
	if latLo < -90 || latHi > 90 || lngLo < -180 || lngHi > 180 {
		visit(idx.all)
		return
	}

	seen := make(map[string]struct{}, 9)
	for _, lat := range sweep(latLo, latHi, cellLatDeg/2) {
		for _, lng := range sweep(lngLo, lngHi, cellLngDeg/2) {
			k := cellKey(lat, lng)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			visit(idx.cells[k])
		}
	}
}

// sweep samples [lo, hi] at most step apart, both ends included.
func sweep(lo, hi, step float64) []float64 {
	out := []float64{lo}
	for v := lo + step; v < hi; v += step {
		out = append(out, v)
	}
	return append(out, hi)
}
