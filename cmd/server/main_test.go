package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/atharv3903/saferoute/internal/db"
	"github.com/atharv3903/saferoute/internal/model"
)

func TestSeedFacilities(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	store := db.Store{DB: conn, Driver: db.DriverSQLite}
	require.NoError(t, store.Migrate(ctx))

	path := filepath.Join(t.TempDir(), "facilities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
facilities:
  - id: h-1
    name: City Hospital
    category: hospital
    location: {lat: 40.72, lng: -73.99}
    capacity: 300
    operating_hours:
      monday: {open: "00:00", close: "23:59"}
  - name: School Gym
    category: shelter
    location: {lat: 40.71, lng: -74.01}
`), 0o644))

	n, err := seedFacilities(ctx, store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hospitals, err := store.Facilities(ctx, model.CategoryHospital)
	require.NoError(t, err)
	require.Len(t, hospitals, 1)
	assert.Equal(t, "City Hospital", hospitals[0].Name)
	assert.Equal(t, 300, hospitals[0].Capacity)
	assert.Equal(t, "23:59", hospitals[0].Hours["monday"].Close)
}

func TestSeedFacilitiesRejectsUnknownCategory(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()
	store := db.Store{DB: conn, Driver: db.DriverSQLite}
	require.NoError(t, store.Migrate(ctx))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("facilities:\n  - name: Spa\n    category: spa\n"), 0o644))
	_, err = seedFacilities(ctx, store, path)
	assert.ErrorContains(t, err, "unknown category")
}
