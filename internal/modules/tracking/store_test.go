package tracking

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"corrida/internal/types"
)

func setupGeoStore(t *testing.T) *GeoStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewGeoStore(client)
}

func TestGeoStore_PublishAndNearby(t *testing.T) {
	store := setupGeoStore(t)
	ctx := context.Background()

	center := types.Point{Lat: -23.5505, Lng: -46.6333}
	if err := store.Publish(ctx, "driver-close", types.Point{Lat: -23.5510, Lng: -46.6340}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := store.Publish(ctx, "driver-far", types.Point{Lat: -22.9068, Lng: -43.1729}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	ids, err := store.Nearby(ctx, center, 5.0)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 1 || ids[0] != "driver-close" {
		t.Fatalf("nearby = %v, want [driver-close]", ids)
	}
}

func TestGeoStore_PublishOverwritesPosition(t *testing.T) {
	store := setupGeoStore(t)
	ctx := context.Background()

	id := types.ID("driver-1")
	if err := store.Publish(ctx, id, types.Point{Lat: 0, Lng: 0}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := store.Publish(ctx, id, types.Point{Lat: -23.5505, Lng: -46.6333}); err != nil {
		t.Fatalf("republish: %v", err)
	}

	ids, err := store.Nearby(ctx, types.Point{Lat: -23.5505, Lng: -46.6333}, 1.0)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("nearby = %v, want [%s]", ids, id)
	}
}

func TestGeoStore_Remove(t *testing.T) {
	store := setupGeoStore(t)
	ctx := context.Background()

	p := types.Point{Lat: -23.5505, Lng: -46.6333}
	if err := store.Publish(ctx, "driver-1", p); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := store.Remove(ctx, "driver-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	ids, err := store.Nearby(ctx, p, 10.0)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no drivers after remove, got %v", ids)
	}
}
