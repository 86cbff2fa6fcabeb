package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"freightmatch/internal/modules/geo"
	"freightmatch/internal/types"
)

const metersPerMile = 1609.344

// RouteService handles interactions with the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// RoadMiles returns the driving distance in miles between two points.
// It assumes driving mode and takes the first returned route.
func (s *RouteService) RoadMiles(ctx context.Context, origin, destination types.Point) (float64, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", destination.Lat, destination.Lng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found")
	}

	total := 0
	for _, leg := range routes[0].Legs {
		total += leg.Distance.Meters
	}
	return float64(total) / metersPerMile, nil
}

// RouteEstimator is a geo.Estimator backed by the Directions API, falling
// back to great-circle distance when the API cannot produce a route.
type RouteEstimator struct {
	routes   *RouteService
	fallback *geo.HaversineEstimator
}

func NewRouteEstimator(routes *RouteService) *RouteEstimator {
	return &RouteEstimator{routes: routes, fallback: geo.NewHaversineEstimator()}
}

func (e *RouteEstimator) Distance(ctx context.Context, a, b *types.Point) (float64, error) {
	if a == nil || b == nil {
		return 0, geo.ErrLocationUnavailable
	}
	miles, err := e.routes.RoadMiles(ctx, *a, *b)
	if err != nil {
		return e.fallback.Distance(ctx, a, b)
	}
	return miles, nil
}

func (e *RouteEstimator) TravelHours(miles float64) float64 {
	return e.fallback.TravelHours(miles)
}
