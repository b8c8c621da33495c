// Package tracking samples passenger/driver positions through an injected
// location provider and filters out GPS jitter before delivery.
package tracking

import (
	"context"
	"fmt"
	"time"

	"corrida/internal/types"
)

// Options mirror the knobs a location sensor exposes for a fetch or watch.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaximumAge   time.Duration
}

// Handle identifies an active provider watch.
type Handle int64

// Provider is the device/location collaborator. Implementations are owned by
// the platform layer; tests inject a fake.
type Provider interface {
	CurrentPosition(ctx context.Context, opts Options) (types.Position, error)
	WatchPosition(opts Options, onUpdate func(types.Position), onError func(error)) (Handle, error)
	ClearWatch(h Handle)
}

// Reason classifies why a position could not be obtained.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonTimeout          Reason = "timeout"
	ReasonSensorFailure    Reason = "sensor_failure"
)

// UnavailableError reports a recoverable location failure. Callers may retry
// or fall back to manual entry.
type UnavailableError struct {
	Reason Reason
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("location unavailable (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("location unavailable (%s)", e.Reason)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
