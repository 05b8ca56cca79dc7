package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharv3903/saferoute/internal/model"
)

func TestDistanceKm(t *testing.T) {
	paris := model.Coordinate{Lat: 48.8566, Lng: 2.3522}
	london := model.Coordinate{Lat: 51.5074, Lng: -0.1278}

	t.Run("known distance", func(t *testing.T) {
		assert.InDelta(t, 343.5, DistanceKm(paris, london), 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		pairs := [][2]model.Coordinate{
			{paris, london},
			{{Lat: -33.86, Lng: 151.2}, {Lat: 40.71, Lng: -74.0}},
			{{Lat: 0, Lng: 179.9}, {Lat: 0, Lng: -179.9}},
			{{Lat: 89.9, Lng: 10}, {Lat: -89.9, Lng: -170}},
		}
		for _, p := range pairs {
			assert.Equal(t, DistanceKm(p[0], p[1]), DistanceKm(p[1], p[0]))
		}
	})

	t.Run("coincident points", func(t *testing.T) {
		assert.Equal(t, 0.0, DistanceKm(paris, paris))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		d := DistanceKm(model.Coordinate{Lat: 0, Lng: 0}, model.Coordinate{Lat: 1, Lng: 0})
		assert.InDelta(t, 111.19, d, 0.01)
	})
}

func TestBearingDegrees(t *testing.T) {
	origin := model.Coordinate{Lat: 0, Lng: 0}
	tests := []struct {
		name string
		to   model.Coordinate
		want float64
	}{
		{"north", model.Coordinate{Lat: 1, Lng: 0}, 0},
		{"east", model.Coordinate{Lat: 0, Lng: 1}, 90},
		{"south", model.Coordinate{Lat: -1, Lng: 0}, 180},
		{"west", model.Coordinate{Lat: 0, Lng: -1}, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDegrees(origin, tt.to)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 360.0)
		})
	}
}

func TestNormalizeAngleDegrees(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{190, -170},
		{-190, 170},
		{360, 0},
		{540, 180},
		{-45, -45},
		{725, 5},
	}
	for _, tt := range tests {
		got := NormalizeAngleDegrees(tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "normalize(%v)", tt.in)
		require.True(t, got > -180 && got <= 180, "normalize(%v)=%v out of range", tt.in, got)
	}
}

func TestCompassPoint(t *testing.T) {
	assert.Equal(t, "north", CompassPoint(0))
	assert.Equal(t, "north", CompassPoint(350))
	assert.Equal(t, "northeast", CompassPoint(44))
	assert.Equal(t, "east", CompassPoint(90))
	assert.Equal(t, "southwest", CompassPoint(225))
	assert.Equal(t, "west", CompassPoint(-90))
}

func TestMidpoint(t *testing.T) {
	m := Midpoint(model.Coordinate{Lat: 10, Lng: 20}, model.Coordinate{Lat: 11, Lng: 22})
	assert.Equal(t, model.Coordinate{Lat: 10.5, Lng: 21}, m)
	assert.False(t, math.IsNaN(m.Lat))
}

func TestBearingDegreesWrapsWesterlyHeadings(t *testing.T) {
	origin := model.Coordinate{Lat: 0, Lng: 0}
	got := BearingDegrees(origin, model.Coordinate{Lat: 1, Lng: -1})
	assert.InDelta(t, 315, got, 0.01)

	got = BearingDegrees(model.Coordinate{Lat: 40.7128, Lng: -74.006}, model.Coordinate{Lat: 40.70, Lng: -74.02})
	assert.Greater(t, got, 180.0)
	assert.Less(t, got, 270.0)
}
