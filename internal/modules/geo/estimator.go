// README: Great-circle distance and travel time helpers.
package geo

import (
	"context"
	"errors"
	"math"

	"freightmatch/internal/types"
)

const earthRadiusMiles = 3958.8

// DefaultAvgSpeedMPH is the assumed highway average for travel time estimates.
const DefaultAvgSpeedMPH = 55.0

// ErrLocationUnavailable means one of the points is unknown. Callers must
// treat the distance as unknown, never as zero.
var ErrLocationUnavailable = errors.New("location unavailable")

// Estimator turns a pair of points into road miles and implied travel hours.
// Implementations backed by an external provider may block; callers doing
// bulk scoring must bound their fan-out.
type Estimator interface {
	Distance(ctx context.Context, a, b *types.Point) (float64, error)
	TravelHours(miles float64) float64
}

// HaversineEstimator is the pure fallback estimator. Deterministic, no I/O.
type HaversineEstimator struct {
	AvgSpeedMPH float64
}

func NewHaversineEstimator() *HaversineEstimator {
	return &HaversineEstimator{AvgSpeedMPH: DefaultAvgSpeedMPH}
}

func (e *HaversineEstimator) Distance(_ context.Context, a, b *types.Point) (float64, error) {
	if a == nil || b == nil {
		return 0, ErrLocationUnavailable
	}
	return haversineMiles(a.Lat, a.Lng, b.Lat, b.Lng), nil
}

func (e *HaversineEstimator) TravelHours(miles float64) float64 {
	speed := e.AvgSpeedMPH
	if speed <= 0 {
		speed = DefaultAvgSpeedMPH
	}
	return miles / speed
}

// haversineMiles returns the great-circle distance in miles between two
// points specified in decimal degrees.
func haversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
