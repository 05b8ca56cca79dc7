package db

import (
	"context"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/atharv3903/saferoute/internal/model"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	conn, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s := Store{DB: conn, Driver: DriverSQLite}
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "")
	assert.Error(t, err)
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestFacilitiesRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	hospital := model.Facility{
		ID:        "h-1",
		Name:      "General",
		Category:  model.CategoryHospital,
		Location:  model.Coordinate{Lat: 40.71, Lng: -74.0},
		Capacity:  200,
		Occupancy: 150,
		Contact:   "+1-555-0100",
		Address:   "1 Main St",
		Hours:     map[string]model.OpenWindow{"monday": {Open: "00:00", Close: "23:59"}},
	}
	_, err := s.InsertFacility(ctx, hospital)
	require.NoError(t, err)

	shelterID, err := s.InsertFacility(ctx, model.Facility{
		Name:     "Gym",
		Category: model.CategoryShelter,
		Location: model.Coordinate{Lat: 40.72, Lng: -74.01},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, shelterID)

	got, err := s.Facilities(ctx, model.CategoryHospital)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, hospital, got[0])

	all, err := s.AllFacilities(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// same id replaces
	hospital.Occupancy = 10
	_, err = s.InsertFacility(ctx, hospital)
	require.NoError(t, err)
	got, err = s.Facilities(ctx, model.CategoryHospital)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Occupancy)

	none, err := s.Facilities(ctx, model.CategoryPharmacy)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIncidentsInBound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	inside, err := s.InsertIncident(ctx, model.HistoricalIncident{
		Location:   model.Coordinate{Lat: 40.715, Lng: -74.002},
		Severity:   7,
		OccurredAt: when,
		Context:    "collision",
	})
	require.NoError(t, err)
	_, err = s.InsertIncident(ctx, model.HistoricalIncident{
		Location: model.Coordinate{Lat: 41.5, Lng: -74.002},
		Severity: 3,
	})
	require.NoError(t, err)

	b := orb.Bound{Min: orb.Point{-74.01, 40.70}, Max: orb.Point{-73.99, 40.73}}
	got, err := s.IncidentsInBound(ctx, b)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inside, got[0].ID)
	assert.Equal(t, 7.0, got[0].Severity)
	assert.True(t, when.Equal(got[0].OccurredAt))
	assert.Equal(t, "collision", got[0].Context)
}
