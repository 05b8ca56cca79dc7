package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharv3903/saferoute/internal/model"
)

func TestNearestServicesRanking(t *testing.T) {
	origin := at(0, 0)
	facilities := []model.Facility{
		{ID: "ten", Category: model.CategoryShelter, Location: at(0, 10)},
		{ID: "one", Category: model.CategoryShelter, Location: at(0, 1)},
		{ID: "hospital", Category: model.CategoryHospital, Location: at(0, 0.1)},
		{ID: "five", Category: model.CategoryShelter, Location: at(5, 0)},
	}

	got, err := NearestServices(origin, model.CategoryShelter, facilities, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "one", got[0].ID)
	assert.Equal(t, "five", got[1].ID)
	assert.InDelta(t, 1.0, got[0].DistanceKm, 1e-6)
	assert.InDelta(t, 5.0, got[1].DistanceKm, 1e-6)
	assert.InDelta(t, 10.0, got[1].EstimatedTimeMin, 1e-5)
}

func TestNearestServicesTiesByID(t *testing.T) {
	loc := at(1, 1)
	facilities := []model.Facility{
		{ID: "b", Category: model.CategoryPolice, Location: loc},
		{ID: "a", Category: model.CategoryPolice, Location: loc},
		{ID: "c", Category: model.CategoryPolice, Location: loc},
	}
	got, err := NearestServices(at(0, 0), model.CategoryPolice, facilities, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestNearestServicesNoMatch(t *testing.T) {
	got, err := NearestServices(at(0, 0), model.CategoryPharmacy, nil, 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNearestServicesInvalidInput(t *testing.T) {
	_, err := NearestServices(at(0, 0), model.CategoryShelter, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NearestServices(model.Coordinate{Lat: -91}, model.CategoryShelter, nil, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NearestServices(at(0, 0), "", nil, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
