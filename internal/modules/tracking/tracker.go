// README: Position tracker with jitter filtering and watch lifecycle.
package tracking

import (
	"context"
	"errors"
	"sync"

	"corrida/internal/geo"
	"corrida/internal/types"
)

// DefaultJitterThresholdKm suppresses samples within 10 m of the last
// delivered position.
const DefaultJitterThresholdKm = 0.01

// Tracker wraps a Provider with a single-watch lifecycle and a movement
// filter: the first sample is always delivered, later samples only when they
// moved more than the threshold (haversine) from the last delivered one.
type Tracker struct {
	provider    Provider
	thresholdKm float64

	mu       sync.Mutex
	watching bool
	handle   Handle
	gen      uint64
	last     *types.Point
}

func NewTracker(provider Provider, thresholdKm float64) *Tracker {
	if thresholdKm <= 0 {
		thresholdKm = DefaultJitterThresholdKm
	}
	return &Tracker{provider: provider, thresholdKm: thresholdKm}
}

// Current fetches a one-shot position. Failures always surface as
// *UnavailableError.
func (t *Tracker) Current(ctx context.Context, opts Options) (types.Position, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	pos, err := t.provider.CurrentPosition(ctx, opts)
	if err != nil {
		var ue *UnavailableError
		if errors.As(err, &ue) {
			return types.Position{}, ue
		}
		reason := ReasonSensorFailure
		if errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonTimeout
		}
		return types.Position{}, &UnavailableError{Reason: reason, Err: err}
	}
	return pos, nil
}

// StartWatching begins continuous sampling. Calling it while a watch is
// already active is a no-op.
//
// Callbacks run on the provider's delivery goroutine while the tracker lock
// is held, so once StopWatching returns no further delivery can fire.
// Callbacks must therefore not call back into the Tracker.
func (t *Tracker) StartWatching(opts Options, onPosition func(types.Position), onError func(error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.watching {
		return nil
	}

	t.gen++
	gen := t.gen
	t.last = nil

	handle, err := t.provider.WatchPosition(opts,
		func(pos types.Position) { t.deliver(gen, pos, onPosition) },
		func(err error) { t.fail(gen, err, onError) },
	)
	if err != nil {
		return &UnavailableError{Reason: ReasonSensorFailure, Err: err}
	}
	t.watching = true
	t.handle = handle
	return nil
}

// StopWatching cancels the active watch. Idempotent and safe from any
// goroutine; a delivery scheduled after it returns is dropped.
func (t *Tracker) StopWatching() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.watching {
		return
	}
	t.watching = false
	t.gen++
	t.provider.ClearWatch(t.handle)
}

// Watching reports whether a watch is currently active.
func (t *Tracker) Watching() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.watching
}

func (t *Tracker) deliver(gen uint64, pos types.Position, onPosition func(types.Position)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.watching || t.gen != gen {
		return
	}
	if t.last != nil && geo.HaversineKm(*t.last, pos.Point) <= t.thresholdKm {
		return
	}
	p := pos.Point
	t.last = &p
	onPosition(pos)
}

func (t *Tracker) fail(gen uint64, err error, onError func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.watching || t.gen != gen {
		return
	}
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		err = &UnavailableError{Reason: ReasonSensorFailure, Err: err}
	}
	onError(err)
}
