// Package fare turns a vehicle class and a route distance into a fare quote.
package fare

import "corrida/internal/types"

// Class is the fare tier for one vehicle class. Static configuration,
// read-only to this module.
type Class struct {
	ID    string
	Name  string
	Base  types.Money
	PerKm types.Money
}

// Quote is the priced result for one (class, distance) pair. Exact is kept
// to the minor unit; RangeMin/RangeMax form the displayed estimate band and
// are rounded to the whole currency unit.
type Quote struct {
	ClassID  string
	Exact    types.Money
	RangeMin types.Money
	RangeMax types.Money
}
