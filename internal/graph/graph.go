// Package graph models the synthetic proximity network routes are searched on.
//
// A Graph is built once by a Builder and never mutated afterwards, so a single
// instance can be shared by concurrent searches through the graph cache.
// Accident risk is the one per-request annotation; Enrich returns a new Graph
// view that shares nodes and edges with its source but carries its own risk
// layer.
package graph

import (
	"errors"
	"math"

	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/model"
)

// KindIntersection is the default node kind.
const KindIntersection = "intersection"

// DefaultBaselineRisk is the accident risk of an edge with no nearby incidents.
const DefaultBaselineRisk = 0.1

var (
	// ErrEmptyGraph is returned when a lookup is made on a graph without nodes.
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("edge connects a node to itself")
)

type Node struct {
	ID    int
	Coord model.Coordinate
	Kind  string
	Out   []*Edge
}

// Edge is directed and stored on its origin node.
type Edge struct {
	ID           int
	From         *Node
	To           *Node
	DistanceKm   float64
	Congestion   float64
	BaselineRisk float64
}

type Graph struct {
	Nodes []*Node
	Edges []*Edge

	// risk is indexed by Edge.ID; nil means every edge is at its baseline.
	risk []float64
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends a node with the next sequential id.
func (g *Graph) AddNode(c model.Coordinate, kind string) *Node {
	if kind == "" {
		kind = KindIntersection
	}
	n := &Node{ID: len(g.Nodes), Coord: c, Kind: kind}
	g.Nodes = append(g.Nodes, n)
	return n
}

// AddEdge links from -> to with the great-circle distance between them.
func (g *Graph) AddEdge(from, to *Node, congestion, baselineRisk float64) (*Edge, error) {
	if from == to || from.ID == to.ID {
		return nil, ErrSelfLoop
	}
	e := &Edge{
		ID:           len(g.Edges),
		From:         from,
		To:           to,
		DistanceKm:   geo.DistanceKm(from.Coord, to.Coord),
		Congestion:   congestion,
		BaselineRisk: baselineRisk,
	}
	from.Out = append(from.Out, e)
	g.Edges = append(g.Edges, e)
	return e, nil
}

// Risk returns the accident risk of e in this view of the graph.
func (g *Graph) Risk(e *Edge) float64 {
	if g.risk == nil || e.ID >= len(g.risk) {
		return e.BaselineRisk
	}
	return g.risk[e.ID]
}

// WithRisk returns a view sharing g's topology with the given per-edge risk.
// risk must be indexed by Edge.ID and have one entry per edge.
func (g *Graph) WithRisk(risk []float64) *Graph {
	return &Graph{Nodes: g.Nodes, Edges: g.Edges, risk: risk}
}

// Nearest returns the node closest to c; ties go to the lowest id.
func (g *Graph) Nearest(c model.Coordinate) (*Node, error) {
	if len(g.Nodes) == 0 {
		return nil, ErrEmptyGraph
	}
	var best *Node
	bestDist := math.Inf(1)
	for _, n := range g.Nodes {
		if d := geo.DistanceKm(c, n.Coord); d < bestDist {
			best, bestDist = n, d
		}
	}
	return best, nil
}

// EdgeBetween returns the edge from -> to, or nil.
func (g *Graph) EdgeBetween(from, to *Node) *Edge {
	for _, e := range from.Out {
		if e.To == to {
			return e
		}
	}
	return nil
}
