package algo

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/graph"
)

var tracer = otel.Tracer("saferoute.algo")

var (
	// ErrNoPath is returned when the open set empties before the goal is reached.
	ErrNoPath = errors.New("no path between start and goal")

	// ErrCanceled is returned when the context ends mid-search.
	ErrCanceled = errors.New("search canceled")

	// ErrUnknownNode is returned when start or goal is not part of the graph.
	ErrUnknownNode = errors.New("node not in graph")
)

// ctxCheckEvery bounds how many expansions run between context checks.
const ctxCheckEvery = 256

type pqItem struct {
	node *graph.Node
	f    float64
	g    float64
	seq  uint64
}

type pq []pqItem

func (p pq) Len() int { return len(p) }
func (p pq) Less(i, j int) bool {
	if p[i].f != p[j].f {
		return p[i].f < p[j].f
	}
	return p[i].seq < p[j].seq
}
func (p pq) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

func (p *pq) Push(x any) {
	*p = append(*p, x.(pqItem))
}

func (p *pq) Pop() any {
	old := *p
	n := len(old)
	item := old[n-1]
	*p = old[:n-1]
	return item
}

// Path is an ordered walk from start to goal. Edges[i] joins Nodes[i] and Nodes[i+1].
type Path struct {
	Nodes    []*graph.Node
	Edges    []*graph.Edge
	Cost     float64
	Explored int
}

// AStar searches gc.G from src to dst, ordering the open set by
// cost-so-far plus great-circle distance to dst. Ties are broken by
// insertion order so equal inputs always produce the same path.
func AStar(ctx context.Context, gc GraphCtx, src, dst *graph.Node) (Path, error) {
	ctx, span := tracer.Start(ctx, "algo.AStar")
	defer span.End()

	n := len(gc.G.Nodes)
	if src == nil || dst == nil || src.ID >= n || dst.ID >= n || gc.G.Nodes[src.ID] != src || gc.G.Nodes[dst.ID] != dst {
		return Path{}, ErrUnknownNode
	}

	if src == dst {
		return Path{Nodes: []*graph.Node{src}}, nil
	}

	h := func(v *graph.Node) float64 { return geo.DistanceKm(v.Coord, dst.Coord) }

	gScore := make([]float64, n)
	for i := range gScore {
		gScore[i] = math.Inf(1)
	}
	prev := make([]*graph.Edge, n)
	closed := make([]bool, n)

	var seq uint64
	open := &pq{}
	gScore[src.ID] = 0
	heap.Push(open, pqItem{node: src, f: h(src), g: 0, seq: seq})
	explored := 0

	for open.Len() > 0 {
		if explored%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				span.SetAttributes(attribute.Int("explored", explored))
				return Path{}, fmt.Errorf("%w: %v", ErrCanceled, err)
			}
		}

		cur := heap.Pop(open).(pqItem)
		u := cur.node
		if closed[u.ID] || cur.g > gScore[u.ID] {
			continue
		}

		if u == dst {
			p := reconstruct(src, dst, prev)
			p.Cost = gScore[dst.ID]
			p.Explored = explored
			span.SetAttributes(
				attribute.Int("explored", explored),
				attribute.Int("path_nodes", len(p.Nodes)),
				attribute.Float64("cost", p.Cost),
			)
			return p, nil
		}

		closed[u.ID] = true
		explored++

		for _, e := range gc.Neighbors(u) {
			v := e.To
			if closed[v.ID] {
				continue
			}
			tentative := gScore[u.ID] + gc.Weight(e)
			if tentative < gScore[v.ID] {
				gScore[v.ID] = tentative
				prev[v.ID] = e
				seq++
				heap.Push(open, pqItem{node: v, f: tentative + h(v), g: tentative, seq: seq})
			}
		}
	}

	span.SetAttributes(attribute.Int("explored", explored))
	return Path{Explored: explored}, ErrNoPath
}

func reconstruct(src, dst *graph.Node, prev []*graph.Edge) Path {
	var edges []*graph.Edge
	for cur := dst; cur != src; {
		e := prev[cur.ID]
		edges = append(edges, e)
		cur = e.From
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	nodes := make([]*graph.Node, 0, len(edges)+1)
	nodes = append(nodes, src)
	for _, e := range edges {
		nodes = append(nodes, e.To)
	}
	return Path{Nodes: nodes, Edges: edges}
}
