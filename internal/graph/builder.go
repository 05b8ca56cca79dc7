package graph

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/paulmach/orb"

	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/model"
)

// Congestion modes.
const (
	CongestionSeeded = "seeded"
	CongestionFixed  = "fixed"
)

// BuilderConfig controls the lattice the builder lays over a region.
type BuilderConfig struct {
	GridStepDeg    float64 `yaml:"grid_step_deg"`
	BufferDeg      float64 `yaml:"buffer_deg"`
	NeighborFactor float64 `yaml:"neighbor_factor"` // link radius in grid steps
	BaselineRisk   float64 `yaml:"baseline_risk"`

	// Congestion is a placeholder signal. In seeded mode each edge gets a
	// value in [0, CongestionCeiling) hashed from the seed and its endpoints,
	// so rebuilding a region reproduces the same values.
	CongestionMode    string  `yaml:"congestion_mode"`
	CongestionSeed    uint64  `yaml:"congestion_seed"`
	CongestionCeiling float64 `yaml:"congestion_ceiling"`
	FixedCongestion   float64 `yaml:"fixed_congestion"`
}

// DefaultBuilderConfig returns a 0.005° (~500 m) lattice padded by 0.02°.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		GridStepDeg:       0.005,
		BufferDeg:         0.02,
		NeighborFactor:    1.5,
		BaselineRisk:      DefaultBaselineRisk,
		CongestionMode:    CongestionSeeded,
		CongestionSeed:    1,
		CongestionCeiling: 0.5,
	}
}

type Builder struct {
	cfg BuilderConfig
}

func NewBuilder(cfg BuilderConfig) *Builder {
	def := DefaultBuilderConfig()
	if cfg.GridStepDeg <= 0 {
		cfg.GridStepDeg = def.GridStepDeg
	}
	if cfg.BufferDeg < 0 {
		cfg.BufferDeg = def.BufferDeg
	}
	if cfg.NeighborFactor <= 0 {
		cfg.NeighborFactor = def.NeighborFactor
	}
	if cfg.CongestionMode == "" {
		cfg.CongestionMode = def.CongestionMode
	}
	return &Builder{cfg: cfg}
}

// Config returns the effective configuration.
func (b *Builder) Config() BuilderConfig { return b.cfg }

// LinkRadiusKm is the maximum length of an edge.
func (b *Builder) LinkRadiusKm() float64 {
	return b.cfg.NeighborFactor * b.cfg.GridStepDeg * geo.KmPerDegree
}

// Bounds returns the padded box around start and end, clamped to valid
// coordinates. Points are (lng, lat).
func (b *Builder) Bounds(start, end model.Coordinate) orb.Bound {
	buf := b.cfg.BufferDeg
	return orb.Bound{
		Min: orb.Point{
			math.Max(-180, math.Min(start.Lng, end.Lng)-buf),
			math.Max(-90, math.Min(start.Lat, end.Lat)-buf),
		},
		Max: orb.Point{
			math.Min(180, math.Max(start.Lng, end.Lng)+buf),
			math.Min(90, math.Max(start.Lat, end.Lat)+buf),
		},
	}
}

const latticeEps = 1e-9

// Build lays a lattice aligned to multiples of the grid step over the padded
// box, numbers nodes row by row (south to north, west to east) and links every
// pair closer than LinkRadiusKm in both directions.
func (b *Builder) Build(start, end model.Coordinate) *Graph {
	step := b.cfg.GridStepDeg
	box := b.Bounds(start, end)

	i0 := int(math.Ceil(box.Bottom()/step - latticeEps))
	i1 := int(math.Floor(box.Top()/step + latticeEps))
	j0 := int(math.Ceil(box.Left()/step - latticeEps))
	j1 := int(math.Floor(box.Right()/step + latticeEps))

	rows, cols := i1-i0+1, j1-j0+1
	if rows < 1 || cols < 1 || rows*cols < 2 {
		return b.minimal(start, end)
	}

	g := New()
	g.Nodes = make([]*Node, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := clamp(float64(i0+r)*step, -90, 90)
		for c := 0; c < cols; c++ {
			lng := clamp(float64(j0+c)*step, -180, 180)
			g.AddNode(model.Coordinate{Lat: lat, Lng: lng}, KindIntersection)
		}
	}

	b.link(g, rows, cols, box)
	return g
}

// link connects lattice neighbours. Candidates are read from a row/column
// window around each node instead of scanning all pairs; the window is a
// superset of the link radius so the adjacency, and its order, match the
// exhaustive scan.
func (b *Builder) link(g *Graph, rows, cols int, box orb.Bound) {
	radius := b.LinkRadiusKm()
	stepKm := geo.EarthRadiusKm * b.cfg.GridStepDeg * math.Pi / 180

	rowWin := int(math.Floor(radius/stepKm)) + 1

	maxAbsLat := math.Max(math.Abs(box.Bottom()), math.Abs(box.Top()))
	colWin := cols - 1
	if cosLat := math.Cos(maxAbsLat * math.Pi / 180); cosLat > 1e-6 {
		if w := int(math.Ceil(radius/(stepKm*cosLat)*1.1)) + 1; w < colWin {
			colWin = w
		}
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			from := g.Nodes[r*cols+c]
			for rr := max(0, r-rowWin); rr <= min(rows-1, r+rowWin); rr++ {
				for cc := max(0, c-colWin); cc <= min(cols-1, c+colWin); cc++ {
					to := g.Nodes[rr*cols+cc]
					if to == from {
						continue
					}
					d := geo.DistanceKm(from.Coord, to.Coord)
					if d <= 0 || d > radius {
						continue
					}
					// self loops are excluded above, AddEdge cannot fail here
					_, _ = g.AddEdge(from, to, b.congestion(from.Coord, to.Coord), b.cfg.BaselineRisk)
				}
			}
		}
	}
}

// minimal is the fallback when the lattice holds fewer than two nodes: the
// start and end themselves, linked directly.
func (b *Builder) minimal(start, end model.Coordinate) *Graph {
	g := New()
	s := g.AddNode(start, KindIntersection)
	if start == end {
		return g
	}
	e := g.AddNode(end, KindIntersection)
	c := b.congestion(start, end)
	_, _ = g.AddEdge(s, e, c, b.cfg.BaselineRisk)
	_, _ = g.AddEdge(e, s, c, b.cfg.BaselineRisk)
	return g
}

// congestion is symmetric in its endpoints so both directions of a street
// carry the same load.
func (b *Builder) congestion(a, c model.Coordinate) float64 {
	if b.cfg.CongestionMode == CongestionFixed {
		return clamp(b.cfg.FixedCongestion, 0, 1)
	}
	if c.Lat < a.Lat || (c.Lat == a.Lat && c.Lng < a.Lng) {
		a, c = c, a
	}
	h := fnv.New64a()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	write(b.cfg.CongestionSeed)
	for _, v := range []float64{a.Lat, a.Lng, c.Lat, c.Lng} {
		write(uint64(int64(math.Round(v * 1e7))))
	}
	u := float64(h.Sum64()>>11) / float64(uint64(1)<<53)
	return clamp(u*b.cfg.CongestionCeiling, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
