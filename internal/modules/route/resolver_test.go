package route

import (
	"context"
	"errors"
	"testing"

	"corrida/internal/types"
)

type fakeRouteProvider struct {
	leg Leg
	err error
}

func (f *fakeRouteProvider) Route(ctx context.Context, origin, destination types.Point) (Leg, error) {
	return f.leg, f.err
}

func TestResolver_NormalizesUnits(t *testing.T) {
	tests := []struct {
		name    string
		leg     Leg
		wantKm  float64
		wantMin int
	}{
		{"exact kilometres", Leg{DistanceMeters: 5700, DurationSec: 600}, 5.7, 10},
		{"sub-kilometre", Leg{DistanceMeters: 480, DurationSec: 90}, 0.48, 2},
		{"seconds round down", Leg{DistanceMeters: 1000, DurationSec: 89}, 1.0, 1},
		{"seconds round up", Leg{DistanceMeters: 1000, DurationSec: 91}, 1.0, 2},
		{"zero-length route", Leg{DistanceMeters: 0, DurationSec: 0}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeRouteProvider{leg: tt.leg})
			got, err := r.Resolve(context.Background(), types.Point{}, types.Point{Lat: 1})
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got.DistanceKm != tt.wantKm {
				t.Errorf("DistanceKm = %f, want %f", got.DistanceKm, tt.wantKm)
			}
			if got.DurationMin != tt.wantMin {
				t.Errorf("DurationMin = %d, want %d", got.DurationMin, tt.wantMin)
			}
		})
	}
}

func TestResolver_PassesThroughStatus(t *testing.T) {
	r := NewResolver(&fakeRouteProvider{err: &UnavailableError{Status: StatusNotFound}})

	_, err := r.Resolve(context.Background(), types.Point{}, types.Point{Lat: 1})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if ue.Status != StatusNotFound {
		t.Errorf("status = %s, want %s", ue.Status, StatusNotFound)
	}
	if ue.Retryable() {
		t.Error("not_found must not be retryable")
	}
}

func TestResolver_WrapsUnknownErrors(t *testing.T) {
	r := NewResolver(&fakeRouteProvider{err: errors.New("connection reset")})

	_, err := r.Resolve(context.Background(), types.Point{}, types.Point{Lat: 1})
	var ue *UnavailableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnavailableError, got %v", err)
	}
	if ue.Status != StatusProviderError {
		t.Errorf("status = %s, want %s", ue.Status, StatusProviderError)
	}
	if !ue.Retryable() {
		t.Error("provider_error should be retryable")
	}
}

func TestStatusRetryability(t *testing.T) {
	cases := []struct {
		status Status
		want   bool
	}{
		{StatusNotFound, false},
		{StatusNoResults, false},
		{StatusInvalidRequest, false},
		{StatusProviderError, true},
		{StatusServiceUnavailable, true},
	}
	for _, tc := range cases {
		e := &UnavailableError{Status: tc.status}
		if e.Retryable() != tc.want {
			t.Errorf("Retryable(%s) = %v, want %v", tc.status, e.Retryable(), tc.want)
		}
	}
}
