// README: Fare computation and the vehicle class registry.
package fare

import (
	"fmt"
	"math"
	"sort"

	"corrida/internal/types"
)

const (
	rangeLow  = 0.9
	rangeHigh = 1.1
)

// Compute quotes a class over a distance. Pure and deterministic: callers
// re-invoke it whenever distance or class changes, there is no caching.
//
// Exact = Base + distanceKm*PerKm rounded to the minor unit. The estimate
// band is Exact scaled by ±10% and rounded to the whole currency unit; the
// coarser display rounding is deliberate (the band is a pre-booking
// estimate, the exact price is what settles).
//
// A negative distance is a contract violation, not a runtime failure.
func Compute(c Class, distanceKm float64) Quote {
	if distanceKm < 0 {
		panic(fmt.Sprintf("fare: negative distance %f for class %s", distanceKm, c.ID))
	}

	variable := int64(math.Round(distanceKm * float64(c.PerKm.Amount)))
	exact := types.Money{Amount: c.Base.Amount + variable, Currency: c.Base.Currency}

	low := exact.MulFloat(rangeLow).RoundToUnit()
	high := exact.MulFloat(rangeHigh).RoundToUnit()

	// Unit rounding on tiny fares could push the band past the exact price;
	// clamp so RangeMin <= Exact <= RangeMax always holds.
	if low.Amount > exact.Amount {
		low = exact
	}
	if high.Amount < exact.Amount {
		high = exact
	}

	return Quote{ClassID: c.ID, Exact: exact, RangeMin: low, RangeMax: high}
}

// Registry is the in-memory class lookup used by the booking flow. It is
// seeded once at startup (from config defaults or the store) and read-only
// afterwards.
type Registry struct {
	classes map[string]Class
}

func NewRegistry(classes []Class) *Registry {
	m := make(map[string]Class, len(classes))
	for _, c := range classes {
		m[c.ID] = c
	}
	return &Registry{classes: m}
}

func (r *Registry) Get(id string) (Class, bool) {
	c, ok := r.classes[id]
	return c, ok
}

// All returns the registered classes ordered by base fare.
func (r *Registry) All() []Class {
	out := make([]Class, 0, len(r.classes))
	for _, c := range r.classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Base.Amount < out[j].Base.Amount })
	return out
}

// DefaultClasses is the seed tier table used when the store is not wired.
func DefaultClasses(currency string) []Class {
	return []Class{
		{ID: "serv-x", Name: "Serv X", Base: types.Money{Amount: 500, Currency: currency}, PerKm: types.Money{Amount: 200, Currency: currency}},
		{ID: "serv-comfort", Name: "Serv Comfort", Base: types.Money{Amount: 800, Currency: currency}, PerKm: types.Money{Amount: 260, Currency: currency}},
		{ID: "serv-moto", Name: "Serv Moto", Base: types.Money{Amount: 300, Currency: currency}, PerKm: types.Money{Amount: 120, Currency: currency}},
	}
}
