package model

import "time"

// Facility categories known to the catalog.
const (
	CategoryShelter     = "shelter"
	CategoryHospital    = "hospital"
	CategoryPolice      = "police"
	CategoryFireStation = "fire_station"
	CategoryPharmacy    = "pharmacy"
)

// Categories lists every accepted facility category.
var Categories = []string{
	CategoryShelter,
	CategoryHospital,
	CategoryPolice,
	CategoryFireStation,
	CategoryPharmacy,
}

// IsCategory reports whether c is a known facility category.
func IsCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// OpenWindow is one day's opening time range, "HH:MM" local.
type OpenWindow struct {
	Open  string `json:"open" yaml:"open"`
	Close string `json:"close" yaml:"close"`
}

// Facility is a point of interest supplied by the external catalog.
// Routing only reads ID, Category and Location.
type Facility struct {
	ID        string                `json:"id" yaml:"id"`
	Name      string                `json:"name" yaml:"name"`
	Category  string                `json:"category" yaml:"category"`
	Location  Coordinate            `json:"location" yaml:"location"`
	Capacity  int                   `json:"capacity" yaml:"capacity"`
	Occupancy int                   `json:"current_occupancy" yaml:"current_occupancy"`
	Contact   string                `json:"contact,omitempty" yaml:"contact"`
	Address   string                `json:"address,omitempty" yaml:"address"`
	Hours     map[string]OpenWindow `json:"operating_hours,omitempty" yaml:"operating_hours"` // keyed by lower-case weekday
}

// FacilityWithDistance is a ranked lookup result.
type FacilityWithDistance struct {
	Facility
	DistanceKm       float64 `json:"distance_km"`
	EstimatedTimeMin float64 `json:"estimated_time_min"`
}

// HistoricalIncident is a past accident used as a risk signal.
type HistoricalIncident struct {
	ID         string     `json:"id"`
	Location   Coordinate `json:"location"`
	Severity   float64    `json:"severity"` // 1-10; <= 0 means unknown
	OccurredAt time.Time  `json:"occurred_at"`
	Context    string     `json:"context,omitempty"`
}
