package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"corrida/internal/types"
)

type fakeProvider struct {
	mu      sync.Mutex
	next    Handle
	watches map[Handle]fakeWatch

	current    types.Position
	currentErr error
	watchErr   error
}

type fakeWatch struct {
	onUpdate func(types.Position)
	onError  func(error)
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{watches: map[Handle]fakeWatch{}}
}

func (p *fakeProvider) CurrentPosition(ctx context.Context, opts Options) (types.Position, error) {
	if p.currentErr != nil {
		return types.Position{}, p.currentErr
	}
	return p.current, nil
}

func (p *fakeProvider) WatchPosition(opts Options, onUpdate func(types.Position), onError func(error)) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.watchErr != nil {
		return 0, p.watchErr
	}
	p.next++
	p.watches[p.next] = fakeWatch{onUpdate: onUpdate, onError: onError}
	return p.next, nil
}

func (p *fakeProvider) ClearWatch(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.watches, h)
}

func (p *fakeProvider) push(pos types.Position) {
	p.mu.Lock()
	watches := make([]fakeWatch, 0, len(p.watches))
	for _, w := range p.watches {
		watches = append(watches, w)
	}
	p.mu.Unlock()
	for _, w := range watches {
		w.onUpdate(pos)
	}
}

func (p *fakeProvider) activeWatches() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

func at(lat, lng float64, t time.Time) types.Position {
	return types.Position{Point: types.Point{Lat: lat, Lng: lng}, CapturedAt: t}
}

func TestTracker_JitterFilter(t *testing.T) {
	provider := newFakeProvider()
	tracker := NewTracker(provider, DefaultJitterThresholdKm)

	var delivered []types.Position
	if err := tracker.StartWatching(Options{}, func(p types.Position) {
		delivered = append(delivered, p)
	}, func(err error) {
		t.Fatalf("unexpected watch error: %v", err)
	}); err != nil {
		t.Fatalf("start watching: %v", err)
	}

	t0 := time.Now()
	// ~5.5 m of longitude: inside the 10 m threshold, must be suppressed.
	provider.push(at(0, 0, t0))
	provider.push(at(0, 0.00005, t0.Add(time.Second)))
	// ~1.1 km: genuine movement.
	provider.push(at(0, 0.01, t0.Add(2*time.Second)))

	if len(delivered) != 2 {
		t.Fatalf("expected 2 delivered positions, got %d", len(delivered))
	}
	if !delivered[0].CapturedAt.Equal(t0) {
		t.Errorf("first delivery must be the first raw sample")
	}
	if delivered[1].Lng != 0.01 {
		t.Errorf("second delivery = %v, want the 0.01 sample", delivered[1].Point)
	}
}

func TestTracker_FilterMeasuresFromLastDelivered(t *testing.T) {
	provider := newFakeProvider()
	tracker := NewTracker(provider, DefaultJitterThresholdKm)

	var delivered []types.Point
	_ = tracker.StartWatching(Options{}, func(p types.Position) {
		delivered = append(delivered, p.Point)
	}, nil)

	now := time.Now()
	// Each step is ~5.5 m. Individually below threshold, but they accumulate
	// against the last delivered point, not the last raw one.
	for i := 0; i < 4; i++ {
		provider.push(at(0, float64(i)*0.00005, now))
	}

	// Steps land at 0, 5.5m, 11m, 16.6m from origin: origin delivered, the
	// 11m sample crosses the threshold relative to it, then 16.6m is within
	// 10m of 11m again.
	if len(delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %d: %v", len(delivered), delivered)
	}
	if delivered[1].Lng != 0.0001 {
		t.Errorf("second delivery = %v, want lng=0.0001", delivered[1])
	}
}

func TestTracker_StartIsIdempotent(t *testing.T) {
	provider := newFakeProvider()
	tracker := NewTracker(provider, 0)

	deliveries := 0
	onPos := func(types.Position) { deliveries++ }

	if err := tracker.StartWatching(Options{}, onPos, nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.StartWatching(Options{}, onPos, nil); err != nil {
		t.Fatalf("second start: %v", err)
	}

	if provider.activeWatches() != 1 {
		t.Fatalf("expected exactly 1 provider watch, got %d", provider.activeWatches())
	}

	provider.push(at(10, 10, time.Now()))
	if deliveries != 1 {
		t.Fatalf("expected 1 delivery, got %d", deliveries)
	}
}

func TestTracker_StopIsIdempotentAndFinal(t *testing.T) {
	provider := newFakeProvider()
	tracker := NewTracker(provider, 0)

	deliveries := 0
	_ = tracker.StartWatching(Options{}, func(types.Position) { deliveries++ }, nil)

	tracker.StopWatching()
	tracker.StopWatching() // second stop is a no-op

	if tracker.Watching() {
		t.Fatal("tracker still watching after stop")
	}
	if provider.activeWatches() != 0 {
		t.Fatalf("provider watch not cleared, %d active", provider.activeWatches())
	}

	// A sample that raced the stop must be dropped.
	provider.push(at(1, 1, time.Now()))
	if deliveries != 0 {
		t.Fatalf("expected no deliveries after stop, got %d", deliveries)
	}
}

func TestTracker_RestartResetsFilter(t *testing.T) {
	provider := newFakeProvider()
	tracker := NewTracker(provider, DefaultJitterThresholdKm)

	var delivered []types.Point
	onPos := func(p types.Position) { delivered = append(delivered, p.Point) }

	_ = tracker.StartWatching(Options{}, onPos, nil)
	provider.push(at(5, 5, time.Now()))
	tracker.StopWatching()

	_ = tracker.StartWatching(Options{}, onPos, nil)
	// Same point as before the restart: still the first sample of this watch.
	provider.push(at(5, 5, time.Now()))

	if len(delivered) != 2 {
		t.Fatalf("expected first sample of new watch to be delivered, got %d deliveries", len(delivered))
	}
}

func TestTracker_CurrentWrapsProviderFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.currentErr = errors.New("gps cold start")
	tracker := NewTracker(provider, 0)

	_, err := tracker.Current(context.Background(), Options{Timeout: time.Second})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if ue.Reason != ReasonSensorFailure {
		t.Errorf("reason = %s, want %s", ue.Reason, ReasonSensorFailure)
	}
}

func TestTracker_CurrentPreservesProviderReason(t *testing.T) {
	provider := newFakeProvider()
	provider.currentErr = &UnavailableError{Reason: ReasonPermissionDenied}
	tracker := NewTracker(provider, 0)

	_, err := tracker.Current(context.Background(), Options{})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if ue.Reason != ReasonPermissionDenied {
		t.Errorf("reason = %s, want %s", ue.Reason, ReasonPermissionDenied)
	}
}
