// README: Redis GEO store for live driver positions.
package tracking

import (
	"context"

	"github.com/redis/go-redis/v9"

	"corrida/internal/types"
)

const geoKey = "tracking:positions"

// GeoStore publishes delivered positions to a Redis GEO set so dispatch-side
// consumers can run proximity queries against live locations.
type GeoStore struct {
	redis *redis.Client
}

func NewGeoStore(redis *redis.Client) *GeoStore {
	return &GeoStore{redis: redis}
}

func (s *GeoStore) Publish(ctx context.Context, id types.ID, p types.Point) error {
	return s.redis.GeoAdd(ctx, geoKey, &redis.GeoLocation{
		Name:      string(id),
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
}

func (s *GeoStore) Remove(ctx context.Context, id types.ID) error {
	return s.redis.ZRem(ctx, geoKey, string(id)).Err()
}

// Nearby returns IDs within radiusKm of p, closest first.
func (s *GeoStore) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoRadius(ctx, geoKey, p.Lng, p.Lat, &redis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r.Name)
	}
	return ids, nil
}
