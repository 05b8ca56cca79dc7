package routing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/atharv3903/saferoute/internal/geo"
	"github.com/atharv3903/saferoute/internal/model"
)

// minutesPerKm is the fixed lookup estimate, i.e. 30 km/h.
const minutesPerKm = 2.0

// NearestServices ranks facilities of category by great-circle distance from
// at and returns at most limit of them. Equal distances keep id order.
// No match yields an empty slice, not an error.
func NearestServices(at model.Coordinate, category string, facilities []model.Facility, limit int) ([]model.FacilityWithDistance, error) {
	if err := at.Validate(); err != nil {
		return nil, fail(ErrInvalidInput, err.Error())
	}
	if category == "" {
		return nil, fail(ErrInvalidInput, "category is required")
	}
	if limit < 1 {
		return nil, fail(ErrInvalidInput, fmt.Sprintf("limit must be at least 1, got %d", limit))
	}

	ranked := make([]model.FacilityWithDistance, 0, len(facilities))
	for _, f := range facilities {
		if f.Category != category {
			continue
		}
		d := geo.DistanceKm(at, f.Location)
		ranked = append(ranked, model.FacilityWithDistance{
			Facility:         f,
			DistanceKm:       d,
			EstimatedTimeMin: d * minutesPerKm,
		})
	}

	slices.SortStableFunc(ranked, func(a, b model.FacilityWithDistance) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
