package model

import (
	"fmt"
	"math"
)

// Coordinate is a WGS-84 position in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects non-finite and out-of-range coordinates.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("coordinate %v is not a finite number", c)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %.6f outside [-90, 90]", c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("longitude %.6f outside [-180, 180]", c.Lng)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lng)
}

// EmergencyFire is the only emergency category that changes edge weights today.
const EmergencyFire = "fire"

// Preferences tune the pathfinder cost function.
type Preferences struct {
	PrioritizeSafety  bool   `json:"prioritize_safety"`
	AvoidTraffic      bool   `json:"avoid_traffic"`
	EmergencyCategory string `json:"emergency_category,omitempty"`
}

// DefaultPreferences favours safety and avoids traffic.
func DefaultPreferences() Preferences {
	return Preferences{PrioritizeSafety: true, AvoidTraffic: true}
}
