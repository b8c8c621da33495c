// README: Ride service implements booking, route updates and cancellation.
package ride

import (
	"context"
	"sync"
	"time"

	"corrida/internal/modules/fare"
	"corrida/internal/modules/route"
	"corrida/internal/modules/tracking"
	"corrida/internal/modules/wallet"
	"corrida/internal/types"
)

// Resolver is the route collaborator.
type Resolver interface {
	Resolve(ctx context.Context, origin, destination types.Point) (route.Route, error)
}

// CardProcessor authorizes card and PIX payments. A decline surfaces as
// ErrProviderDeclined (possibly wrapped).
type CardProcessor interface {
	Authorize(ctx context.Context, method Method, amount types.Money) error
}

// Archive persists rides and their settlement audit trail. All calls are
// best-effort from the service's point of view: the in-memory session is the
// source of truth until completion.
type Archive interface {
	CreateRide(ctx context.Context, r *Ride) error
	UpdateRide(ctx context.Context, r *Ride) error
	AppendEvent(ctx context.Context, e *Event) error
}

// Observer is notified after every route or settlement change. The core
// never renders anything; the caller decides what a state change looks like.
type Observer interface {
	RouteUpdated(r *Ride)
	SessionChanged(r *Ride, s *Session)
}

// Service drives the booking session: route resolution, fare quoting and
// payment settlement.
type Service struct {
	registry  *fare.Registry
	resolver  Resolver
	ledger    wallet.Ledger
	processor CardProcessor
	store     Archive
	observer  Observer
	tracker   *tracking.Tracker

	mu    sync.Mutex
	rides map[types.ID]*rideState
}

// rideState wraps a ride with its route-resolution sequence counter. Only
// the most recently issued resolve may apply its result (last write wins).
type rideState struct {
	ride     Ride
	routeSeq uint64
}

type Deps struct {
	Registry  *fare.Registry
	Resolver  Resolver
	Ledger    wallet.Ledger
	Processor CardProcessor
	Store     Archive
	Observer  Observer
	Tracker   *tracking.Tracker
}

func NewService(deps Deps) *Service {
	return &Service{
		registry:  deps.Registry,
		resolver:  deps.Resolver,
		ledger:    deps.Ledger,
		processor: deps.Processor,
		store:     deps.Store,
		observer:  deps.Observer,
		tracker:   deps.Tracker,
		rides:     map[types.ID]*rideState{},
	}
}

type BookCommand struct {
	PassengerID types.ID
	Pickup      types.Point
	Dropoff     types.Point
	ClassID     string
	Passengers  int
}

// Book creates a ride: resolves the route, quotes the fare and registers the
// session. When no pickup is supplied and a tracker is wired, the current
// tracked position is used.
func (s *Service) Book(ctx context.Context, cmd BookCommand) (*Ride, error) {
	if cmd.PassengerID == "" || cmd.ClassID == "" || cmd.Passengers <= 0 {
		return nil, ErrBadRequest
	}
	class, ok := s.registry.Get(cmd.ClassID)
	if !ok {
		return nil, ErrBadRequest
	}

	pickup := cmd.Pickup
	if pickup == (types.Point{}) && s.tracker != nil {
		pos, err := s.tracker.Current(ctx, tracking.Options{Timeout: 5 * time.Second})
		if err != nil {
			return nil, err
		}
		pickup = pos.Point
	}

	rt, err := s.resolver.Resolve(ctx, pickup, cmd.Dropoff)
	if err != nil {
		return nil, err
	}
	quote := fare.Compute(class, rt.DistanceKm)

	r := Ride{
		ID:          types.NewID(),
		PassengerID: cmd.PassengerID,
		Status:      StatusQuoted,
		Pickup:      pickup,
		Dropoff:     cmd.Dropoff,
		ClassID:     cmd.ClassID,
		Passengers:  cmd.Passengers,
		Route:       &rt,
		Quote:       &quote,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.rides[r.ID] = &rideState{ride: r}
	snap := snapshot(&r)
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.CreateRide(ctx, snap)
		_ = s.store.AppendEvent(ctx, &Event{
			RideID:    r.ID,
			FromState: "",
			ToState:   string(StatusQuoted),
			ActorType: "passenger",
			ActorID:   &r.PassengerID,
			CreatedAt: r.CreatedAt,
		})
	}
	return snap, nil
}

// Get returns a snapshot of the ride.
func (s *Service) Get(id types.ID) (*Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(&st.ride), nil
}

// AssignDriver attaches the driver who accepted the ride. Required before a
// cash settlement can credit change to a wallet.
func (s *Service) AssignDriver(ctx context.Context, id, driverID types.ID) (*Ride, error) {
	if driverID == "" {
		return nil, ErrBadRequest
	}
	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !st.ride.open() {
		s.mu.Unlock()
		return nil, ErrRideClosed
	}
	d := driverID
	st.ride.DriverID = &d
	st.ride.StatusVersion++
	snap := snapshot(&st.ride)
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.UpdateRide(ctx, snap)
	}
	return snap, nil
}

// SetDropoff moves the destination. The fare is re-quoted as soon as the new
// route resolves; resolution runs asynchronously and a stale result never
// overwrites a newer one.
func (s *Service) SetDropoff(ctx context.Context, id types.ID, dropoff types.Point) (*Ride, error) {
	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !st.ride.open() || st.ride.Status == StatusSettling {
		s.mu.Unlock()
		return nil, ErrRideClosed
	}
	st.ride.Dropoff = dropoff
	st.routeSeq++
	seq := st.routeSeq
	origin, dest := st.ride.Pickup, dropoff
	snap := snapshot(&st.ride)
	s.mu.Unlock()

	go s.resolveAndApply(ctx, id, seq, origin, dest)
	return snap, nil
}

// SetVehicleClass switches the fare tier and re-quotes synchronously against
// the current route.
func (s *Service) SetVehicleClass(ctx context.Context, id types.ID, classID string) (*Ride, error) {
	class, ok := s.registry.Get(classID)
	if !ok {
		return nil, ErrBadRequest
	}

	s.mu.Lock()
	st, found := s.rides[id]
	if !found {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !st.ride.open() || st.ride.Status == StatusSettling {
		s.mu.Unlock()
		return nil, ErrRideClosed
	}
	st.ride.ClassID = classID
	if st.ride.Route != nil {
		q := fare.Compute(class, st.ride.Route.DistanceKm)
		st.ride.Quote = &q
	}
	st.ride.StatusVersion++
	snap := snapshot(&st.ride)
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.UpdateRide(ctx, snap)
	}
	return snap, nil
}

// Cancel abandons a ride at any point before its settlement completes.
func (s *Service) Cancel(ctx context.Context, id types.ID, reason string) (*Ride, error) {
	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if !st.ride.open() {
		s.mu.Unlock()
		return nil, ErrRideClosed
	}
	// A settlement mid-flight cannot be cancelled; the atomic ledger apply
	// either lands or is rejected before any partial effect.
	if st.ride.Session != nil {
		switch st.ride.Session.State {
		case StateConfirming, StateProcessing:
			s.mu.Unlock()
			return nil, ErrInvalidState
		}
	}
	now := time.Now()
	st.ride.Status = StatusCancelled
	st.ride.CancelledAt = &now
	st.ride.StatusVersion++
	snap := snapshot(&st.ride)
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.UpdateRide(ctx, snap)
		_ = s.store.AppendEvent(ctx, &Event{
			RideID:    id,
			FromState: string(StatusQuoted),
			ToState:   string(StatusCancelled),
			ActorType: "passenger",
			ActorID:   &snap.PassengerID,
			CreatedAt: now,
		})
	}
	return snap, nil
}

// resolveAndApply resolves a route and applies it only if no newer resolve
// was issued meanwhile.
func (s *Service) resolveAndApply(ctx context.Context, id types.ID, seq uint64, origin, dest types.Point) {
	rt, err := s.resolver.Resolve(ctx, origin, dest)
	if err != nil {
		return
	}

	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok || st.routeSeq != seq || !st.ride.open() {
		s.mu.Unlock()
		return
	}
	st.ride.Route = &rt
	if class, found := s.registry.Get(st.ride.ClassID); found {
		q := fare.Compute(class, rt.DistanceKm)
		st.ride.Quote = &q
	}
	st.ride.StatusVersion++
	snap := snapshot(&st.ride)
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.UpdateRide(ctx, snap)
	}
	if s.observer != nil {
		s.observer.RouteUpdated(snap)
	}
}

// snapshot deep-copies a ride so callers never share memory with the
// service's internal state.
func snapshot(r *Ride) *Ride {
	out := *r
	if r.DriverID != nil {
		d := *r.DriverID
		out.DriverID = &d
	}
	if r.Route != nil {
		rt := *r.Route
		out.Route = &rt
	}
	if r.Quote != nil {
		q := *r.Quote
		out.Quote = &q
	}
	if r.Session != nil {
		sess := *r.Session
		out.Session = &sess
	}
	return &out
}
