// README: Jitter-filtering front for the geo store on position ingestion.
package tracking

import (
	"context"
	"sync"

	"corrida/internal/geo"
	"corrida/internal/types"
)

// Publisher writes driver positions to the geo store, dropping samples that
// moved less than the jitter threshold since the driver's last stored point.
// The first sample for a driver is always stored.
type Publisher struct {
	store       *GeoStore
	thresholdKm float64

	mu   sync.Mutex
	last map[types.ID]types.Point
}

func NewPublisher(store *GeoStore, thresholdKm float64) *Publisher {
	if thresholdKm <= 0 {
		thresholdKm = DefaultJitterThresholdKm
	}
	return &Publisher{
		store:       store,
		thresholdKm: thresholdKm,
		last:        map[types.ID]types.Point{},
	}
}

func (p *Publisher) Publish(ctx context.Context, id types.ID, pt types.Point) error {
	p.mu.Lock()
	if last, ok := p.last[id]; ok && geo.HaversineKm(last, pt) <= p.thresholdKm {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.store.Publish(ctx, id, pt); err != nil {
		return err
	}
	p.mu.Lock()
	p.last[id] = pt
	p.mu.Unlock()
	return nil
}

func (p *Publisher) Remove(ctx context.Context, id types.ID) error {
	p.mu.Lock()
	delete(p.last, id)
	p.mu.Unlock()
	return p.store.Remove(ctx, id)
}

func (p *Publisher) Nearby(ctx context.Context, pt types.Point, radiusKm float64) ([]types.ID, error) {
	return p.store.Nearby(ctx, pt, radiusKm)
}
