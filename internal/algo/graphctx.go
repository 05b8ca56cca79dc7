package algo

import (
	"github.com/atharv3903/saferoute/internal/graph"
	"github.com/atharv3903/saferoute/internal/model"
)

// GraphCtx binds a graph view to the preferences a search is run with.
type GraphCtx struct {
	G     *graph.Graph
	Prefs model.Preferences
}

func (g GraphCtx) Neighbors(n *graph.Node) []*graph.Edge {
	return n.Out
}

// Weight is the search cost of traversing e. Multipliers are applied in a
// fixed order and are all >= 1, so the weight never drops below the raw
// distance and the great-circle heuristic stays admissible.
func (g GraphCtx) Weight(e *graph.Edge) float64 {
	return Weight(e.DistanceKm, e.Congestion, g.G.Risk(e), g.Prefs)
}

// Weight composes the preference multipliers over a raw distance:
//
//	avoidTraffic:     x (1 + congestion*2)
//	prioritizeSafety: x (1 + risk*3)
//	category "fire":  x (1 + risk)
func Weight(distanceKm, congestion, risk float64, p model.Preferences) float64 {
	w := distanceKm
	if p.AvoidTraffic {
		w *= 1 + clamp01(congestion)*2
	}
	if p.PrioritizeSafety {
		w *= 1 + clamp01(risk)*3
	}
	if p.EmergencyCategory == model.EmergencyFire {
		w *= 1 + clamp01(risk)
	}
	return w
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
