package types

import (
	"time"

	"github.com/google/uuid"
)

// ID identifies rides, passengers, drivers and wallets.
type ID string

// NewID returns a fresh random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// Position is a Point with the moment it was captured. Positions are
// ephemeral: they are delivered to callers and never persisted as-is.
type Position struct {
	Point
	CapturedAt time.Time
}
