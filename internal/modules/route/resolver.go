// README: Route resolver normalizes provider units and failures.
package route

import (
	"context"
	"fmt"
	"math"

	"corrida/internal/types"
)

// Status classifies provider failures into the small taxonomy callers act on.
type Status string

const (
	StatusNotFound           Status = "not_found"
	StatusNoResults          Status = "no_results"
	StatusInvalidRequest     Status = "invalid_request"
	StatusProviderError      Status = "provider_error"
	StatusServiceUnavailable Status = "service_unavailable"
)

// UnavailableError reports a failed route resolution.
type UnavailableError struct {
	Status Status
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("route unavailable (%s): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("route unavailable (%s)", e.Status)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Retryable reports whether one caller-side retry with backoff is reasonable.
// NotFound and InvalidRequest are deterministic and never retried.
func (e *UnavailableError) Retryable() bool {
	return e.Status == StatusProviderError || e.Status == StatusServiceUnavailable
}

// Leg is the raw provider result before unit normalization.
type Leg struct {
	DistanceMeters int
	DurationSec    int
}

// Provider is the external routing collaborator. The production
// implementation lives in internal/maps; tests inject a fake.
type Provider interface {
	Route(ctx context.Context, origin, destination types.Point) (Leg, error)
}

// Resolver normalizes provider output and errors. It is stateless between
// calls and never retries on its own.
type Resolver struct {
	provider Provider
}

func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve asks the provider for a route and normalizes units: meters to km,
// seconds to whole minutes (nearest).
func (r *Resolver) Resolve(ctx context.Context, origin, destination types.Point) (Route, error) {
	leg, err := r.provider.Route(ctx, origin, destination)
	if err != nil {
		if ue, ok := err.(*UnavailableError); ok {
			return Route{}, ue
		}
		return Route{}, &UnavailableError{Status: StatusProviderError, Err: err}
	}
	return Route{
		DistanceKm:  float64(leg.DistanceMeters) / 1000.0,
		DurationMin: int(math.Round(float64(leg.DurationSec) / 60.0)),
	}, nil
}
