// Package maps implements the routing provider against the Google Maps
// Directions API.
package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"corrida/internal/modules/route"
	"corrida/internal/types"
)

// DirectionsProvider satisfies route.Provider using a Google Maps client.
type DirectionsProvider struct {
	client *maps.Client
}

func NewDirectionsProvider(apiKey string) (*DirectionsProvider, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &DirectionsProvider{client: client}, nil
}

// Route asks for a driving route and returns the first leg in raw provider
// units. Provider status codes are folded into the resolver's taxonomy.
func (p *DirectionsProvider) Route(ctx context.Context, origin, destination types.Point) (route.Leg, error) {
	req := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := p.client.Directions(ctx, req)
	if err != nil {
		return route.Leg{}, &route.UnavailableError{Status: statusOf(err), Err: err}
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return route.Leg{}, &route.UnavailableError{Status: route.StatusNoResults}
	}

	leg := routes[0].Legs[0]
	return route.Leg{
		DistanceMeters: leg.Distance.Meters,
		DurationSec:    int(leg.Duration.Seconds()),
	}, nil
}

func latLng(p types.Point) string {
	return fmt.Sprintf("%f,%f", p.Lat, p.Lng)
}

// statusOf maps Directions API error codes onto the resolver taxonomy. The
// maps client surfaces non-OK statuses as errors carrying the code string.
func statusOf(err error) route.Status {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NOT_FOUND"):
		return route.StatusNotFound
	case strings.Contains(msg, "ZERO_RESULTS"):
		return route.StatusNoResults
	case strings.Contains(msg, "INVALID_REQUEST"), strings.Contains(msg, "MAX_WAYPOINTS_EXCEEDED"):
		return route.StatusInvalidRequest
	case strings.Contains(msg, "OVER_QUERY_LIMIT"), strings.Contains(msg, "UNAVAILABLE"):
		return route.StatusServiceUnavailable
	default:
		return route.StatusProviderError
	}
}
