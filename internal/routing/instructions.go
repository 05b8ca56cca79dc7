package routing

import (
	"fmt"
	"math"

	"github.com/atharv3903/saferoute/internal/algo"
	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/graph"
	"github.com/atharv3903/saferoute/internal/model"
)

const (
	// freeFlowKmh is the speed on an empty road; congestion slows it by up to
	// congestionSlowdown of that.
	freeFlowKmh        = 30.0
	congestionSlowdown = 0.5

	straightBelowDeg = 30.0
	uTurnFromDeg     = 150.0

	lowTrafficBelow  = 0.3
	safePassageAbove = 70
	minimalTimeBelow = 30.0
)

// classifyTurn maps a signed turn angle in (-180, 180] to an action.
// Positive angles turn clockwise (right).
func classifyTurn(turn float64) string {
	a := math.Abs(turn)
	switch {
	case a < straightBelowDeg:
		return model.ActionStraight
	case a >= uTurnFromDeg:
		return model.ActionUTurn
	case turn > 0:
		return model.ActionTurnRight
	default:
		return model.ActionTurnLeft
	}
}

func actionText(action string) string {
	switch action {
	case model.ActionStraight:
		return "Continue straight"
	case model.ActionTurnRight:
		return "Turn right"
	case model.ActionTurnLeft:
		return "Turn left"
	case model.ActionUTurn:
		return "Make a U-turn"
	}
	return action
}

func coordPtr(c model.Coordinate) *model.Coordinate { return &c }

// instructions renders turn-by-turn guidance for p.
func instructions(p algo.Path) []model.Instruction {
	n := len(p.Nodes)
	if n < 2 {
		out := []model.Instruction{{Step: 1, Action: model.ActionArrive, Text: "You have arrived at your destination"}}
		if n == 1 {
			out[0].Coordinate = coordPtr(p.Nodes[0].Coord)
		}
		return out
	}

	out := make([]model.Instruction, 0, n)
	heading := geo.BearingDegrees(p.Nodes[0].Coord, p.Nodes[1].Coord)
	out = append(out, model.Instruction{
		Step:       1,
		Action:     model.ActionDepart,
		Text:       fmt.Sprintf("Head %s", geo.CompassPoint(heading)),
		DistanceKm: p.Edges[0].DistanceKm,
		Coordinate: coordPtr(p.Nodes[1].Coord),
	})

	for i := 1; i < n-1; i++ {
		in := geo.BearingDegrees(p.Nodes[i-1].Coord, p.Nodes[i].Coord)
		outB := geo.BearingDegrees(p.Nodes[i].Coord, p.Nodes[i+1].Coord)
		action := classifyTurn(geo.NormalizeAngleDegrees(outB - in))
		out = append(out, model.Instruction{
			Step:       len(out) + 1,
			Action:     action,
			Text:       actionText(action),
			DistanceKm: p.Edges[i].DistanceKm,
			Coordinate: coordPtr(p.Nodes[i].Coord),
		})
	}

	out = append(out, model.Instruction{
		Step:       len(out) + 1,
		Action:     model.ActionArrive,
		Text:       "You have arrived at your destination",
		Coordinate: coordPtr(p.Nodes[n-1].Coord),
	})
	return out
}

// edgeMinutes is the travel time of one edge at the congestion-reduced speed.
func edgeMinutes(distanceKm, congestion float64) float64 {
	c := math.Max(0, math.Min(1, congestion))
	return distanceKm / (freeFlowKmh * (1 - congestionSlowdown*c)) * 60
}

// metadata summarises p. Risk is read from the enriched view g.
func metadata(g *graph.Graph, p algo.Path) model.RouteMetadata {
	md := model.RouteMetadata{WaypointCount: len(p.Nodes)}
	var congestion float64
	for _, e := range p.Edges {
		md.TotalDistanceKm += e.DistanceKm
		md.EstimatedTimeMin += edgeMinutes(e.DistanceKm, e.Congestion)
		congestion += e.Congestion
		md.MaxAccidentRisk = math.Max(md.MaxAccidentRisk, g.Risk(e))
	}
	if len(p.Edges) > 0 {
		md.AvgCongestion = congestion / float64(len(p.Edges))
	}
	md.SafetyScore = int(math.Round((1 - md.MaxAccidentRisk) * 100))
	md.Quality = model.QualityFlags{
		LowTraffic:  md.AvgCongestion < lowTrafficBelow,
		SafePassage: md.SafetyScore > safePassageAbove,
		MinimalTime: md.EstimatedTimeMin < minimalTimeBelow,
	}
	return md
}

func geometry(p algo.Path) []model.Coordinate {
	out := make([]model.Coordinate, len(p.Nodes))
	for i, n := range p.Nodes {
		out[i] = n.Coord
	}
	return out
}
