package model

// Instruction actions.
const (
	ActionDepart    = "depart"
	ActionStraight  = "straight"
	ActionTurnRight = "turn right"
	ActionTurnLeft  = "turn left"
	ActionUTurn     = "u-turn"
	ActionArrive    = "arrive"
)

type Instruction struct {
	Step       int         `json:"step"`
	Action     string      `json:"action"`
	Text       string      `json:"text"`
	DistanceKm float64     `json:"distance_km"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// QualityFlags are informational and never gate a route.
type QualityFlags struct {
	LowTraffic  bool `json:"low_traffic"`
	SafePassage bool `json:"safe_passage"`
	MinimalTime bool `json:"minimal_time"`
}

type RouteMetadata struct {
	TotalDistanceKm  float64      `json:"total_distance_km"`
	EstimatedTimeMin float64      `json:"estimated_time_min"`
	WaypointCount    int          `json:"waypoint_count"`
	AvgCongestion    float64      `json:"avg_congestion"`
	MaxAccidentRisk  float64      `json:"max_accident_risk"`
	SafetyScore      int          `json:"safety_score"`
	Quality          QualityFlags `json:"quality_flags"`
}

// RouteResult is a successful routing outcome. Failures are returned as errors.
type RouteResult struct {
	Path         []Coordinate  `json:"path"`
	Instructions []Instruction `json:"instructions"`
	Metadata     RouteMetadata `json:"metadata"`
	Explored     int           `json:"explored_nodes"`
}
