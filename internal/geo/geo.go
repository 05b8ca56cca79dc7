// Package geo holds spherical-earth helpers shared by the graph builder,
// the pathfinder and the instruction generator.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"github.com/atharv3903/saferoute/internal/model"
)

const (
	// EarthRadiusKm is the mean Earth radius used by every distance in the service.
	EarthRadiusKm = 6371.0

	// KmPerDegree approximates one degree of latitude.
	KmPerDegree = 111.0
)

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// DistanceKm returns the haversine great-circle distance between a and b.
// It is symmetric and returns 0 for coincident points.
func DistanceKm(a, b model.Coordinate) float64 {
	if a == b {
		return 0
	}
	// Order the operands so the floating point result does not depend on argument order.
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lng < a.Lng) {
		a, b = b, a
	}
	phi1 := toRadians(a.Lat)
	phi2 := toRadians(b.Lat)
	dPhi := toRadians(b.Lat - a.Lat)
	dLambda := toRadians(b.Lng - a.Lng)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BearingDegrees returns the initial compass bearing from a to b in [0, 360).
// North is 0, east is 90.
func BearingDegrees(a, b model.Coordinate) float64 {
	brg := math.Mod(orbgeo.Bearing(point(a), point(b))+360, 360)
	if brg >= 360 {
		brg = 0
	}
	return brg
}

func point(c model.Coordinate) orb.Point { return orb.Point{c.Lng, c.Lat} }

// NormalizeAngleDegrees reduces x to (-180, 180].
func NormalizeAngleDegrees(x float64) float64 {
	a := math.Mod(x, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

// Midpoint is the arithmetic midpoint of a and b. Edges are a few hundred
// metres long, where this is indistinguishable from the great-circle midpoint.
func Midpoint(a, b model.Coordinate) model.Coordinate {
	return model.Coordinate{Lat: (a.Lat + b.Lat) / 2, Lng: (a.Lng + b.Lng) / 2}
}

var compassPoints = [...]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

// CompassPoint names the 8-wind direction closest to a bearing in degrees.
func CompassPoint(bearing float64) string {
	b := math.Mod(bearing, 360)
	if b < 0 {
		b += 360
	}
	idx := int(math.Floor((b+22.5)/45)) % len(compassPoints)
	return compassPoints[idx]
}
