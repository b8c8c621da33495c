package geo

import (
	"math"
	"testing"

	"corrida/internal/types"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name      string
		a, b      types.Point
		wantKm    float64
		tolerance float64
	}{
		{
			name:      "same point",
			a:         types.Point{Lat: -23.5505, Lng: -46.6333},
			b:         types.Point{Lat: -23.5505, Lng: -46.6333},
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name:      "Paulista to Republica (~3km)",
			a:         types.Point{Lat: -23.5614, Lng: -46.6559},
			b:         types.Point{Lat: -23.5432, Lng: -46.6426},
			wantKm:    2.4,
			tolerance: 0.5,
		},
		{
			name:      "Sao Paulo to Rio (~360km)",
			a:         types.Point{Lat: -23.5505, Lng: -46.6333},
			b:         types.Point{Lat: -22.9068, Lng: -43.1729},
			wantKm:    360,
			tolerance: 10,
		},
		{
			name:      "ten metres of longitude at the equator",
			a:         types.Point{Lat: 0, Lng: 0},
			b:         types.Point{Lat: 0, Lng: 0.00009},
			wantKm:    0.01,
			tolerance: 0.001,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.a, tt.b)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %f, want %f (±%f)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestHaversineKm_Symmetry(t *testing.T) {
	a := types.Point{Lat: -23.5, Lng: -46.6}
	b := types.Point{Lat: -22.9, Lng: -43.2}
	d1 := HaversineKm(a, b)
	d2 := HaversineKm(b, a)
	if math.Abs(d1-d2) > 0.0001 {
		t.Errorf("haversine is not symmetric: %f vs %f", d1, d2)
	}
}
