// README: Carrier location index backed by Redis GEO.
package carrier

import (
	"context"

	"github.com/redis/go-redis/v9"

	"freightmatch/internal/types"
)

const carrierGeoKey = "carriers:locations"

// GeoIndex keeps carrier positions in a Redis GEO set so that radius
// pre-filtering happens in the store, not by scanning the whole pool.
type GeoIndex struct {
	redis *redis.Client
}

func NewGeoIndex(redis *redis.Client) *GeoIndex {
	return &GeoIndex{redis: redis}
}

func (g *GeoIndex) SetLocation(ctx context.Context, id types.ID, pos types.Point) error {
	return g.redis.GeoAdd(ctx, carrierGeoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: pos.Lng,
		Latitude:  pos.Lat,
	}).Err()
}

func (g *GeoIndex) Remove(ctx context.Context, id types.ID) error {
	return g.redis.ZRem(ctx, carrierGeoKey, string(id)).Err()
}

// IDsNear returns carrier ids within radiusMiles of p, nearest first.
func (g *GeoIndex) IDsNear(ctx context.Context, p types.Point, radiusMiles float64) ([]types.ID, error) {
	results, err := g.redis.GeoSearch(ctx, carrierGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusMiles,
		RadiusUnit: "mi",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
