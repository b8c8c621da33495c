// Package route resolves driving distance and duration between two points
// through an external routing provider.
package route

// Route is the normalized result for one (origin, destination) pair. It is
// recomputed whenever either endpoint changes and owned by the booking
// session.
type Route struct {
	DistanceKm  float64
	DurationMin int
}
