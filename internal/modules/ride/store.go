// README: Ride persistence with versioned updates and the settlement audit trail.
package ride

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corrida/internal/modules/fare"
	"corrida/internal/modules/route"
	"corrida/internal/types"
)

// Store persists rides and their settlement audit trail in PostgreSQL.
// Updates are conditioned on status_version so two service instances can
// never interleave writes for one ride.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateRide(ctx context.Context, r *Ride) error {
	var distanceKm sql.NullFloat64
	var durationMin sql.NullInt32
	if r.Route != nil {
		distanceKm = sql.NullFloat64{Float64: r.Route.DistanceKm, Valid: true}
		durationMin = sql.NullInt32{Int32: int32(r.Route.DurationMin), Valid: true}
	}
	var fareExact sql.NullInt64
	var currency string
	if r.Quote != nil {
		fareExact = sql.NullInt64{Int64: r.Quote.Exact.Amount, Valid: true}
		currency = r.Quote.Exact.Currency
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO rides (
			id, passenger_id, driver_id, status, status_version,
			pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
			class_id, passenger_count,
			distance_km, duration_min, fare_exact, currency,
			created_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11,
			$12, $13, $14, $15,
			$16
		)`,
		string(r.ID),
		string(r.PassengerID),
		idPtr(r.DriverID),
		string(r.Status),
		r.StatusVersion,
		r.Pickup.Lat, r.Pickup.Lng,
		r.Dropoff.Lat, r.Dropoff.Lng,
		r.ClassID, r.Passengers,
		distanceKm, durationMin, fareExact, currency,
		r.CreatedAt,
	)
	return err
}

// UpdateRide writes the mutable fields, conditioned on the previous
// status_version. A stale snapshot loses silently (RowsAffected 0): the
// in-memory session already moved past it.
func (s *Store) UpdateRide(ctx context.Context, r *Ride) error {
	var distanceKm sql.NullFloat64
	var durationMin sql.NullInt32
	if r.Route != nil {
		distanceKm = sql.NullFloat64{Float64: r.Route.DistanceKm, Valid: true}
		durationMin = sql.NullInt32{Int32: int32(r.Route.DurationMin), Valid: true}
	}
	var fareExact sql.NullInt64
	if r.Quote != nil {
		fareExact = sql.NullInt64{Int64: r.Quote.Exact.Amount, Valid: true}
	}
	var method, state, disposition sql.NullString
	var tendered, change sql.NullInt64
	if r.Session != nil {
		method = sql.NullString{String: string(r.Session.Method), Valid: r.Session.Method != ""}
		state = sql.NullString{String: string(r.Session.State), Valid: true}
		disposition = sql.NullString{String: string(r.Session.Disposition), Valid: r.Session.Disposition != ""}
		tendered = sql.NullInt64{Int64: r.Session.AmountTendered.Amount, Valid: true}
		change = sql.NullInt64{Int64: r.Session.ChangeDue.Amount, Valid: true}
	}

	_, err := s.db.Exec(ctx, `
		UPDATE rides
		SET driver_id = $1,
		    status = $2,
		    status_version = $3,
		    dropoff_lat = $4, dropoff_lng = $5,
		    class_id = $6,
		    distance_km = $7, duration_min = $8, fare_exact = $9,
		    payment_method = $10, payment_state = $11, change_disposition = $12,
		    amount_tendered = $13, change_due = $14,
		    completed_at = $15, cancelled_at = $16
		WHERE id = $17 AND status_version < $3`,
		idPtr(r.DriverID),
		string(r.Status),
		r.StatusVersion,
		r.Dropoff.Lat, r.Dropoff.Lng,
		r.ClassID,
		distanceKm, durationMin, fareExact,
		method, state, disposition,
		tendered, change,
		r.CompletedAt, r.CancelledAt,
		string(r.ID),
	)
	return err
}

func (s *Store) AppendEvent(ctx context.Context, e *Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ride_events (
			ride_id, from_state, to_state, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.RideID),
		e.FromState,
		e.ToState,
		e.ActorType,
		idPtr(e.ActorID),
		e.CreatedAt,
	)
	return err
}

// GetRide loads one persisted ride row.
func (s *Store) GetRide(ctx context.Context, id types.ID) (*Ride, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, passenger_id, driver_id, status, status_version,
		       pickup_lat, pickup_lng, dropoff_lat, dropoff_lng,
		       class_id, passenger_count,
		       distance_km, duration_min, fare_exact, currency,
		       payment_method, payment_state, change_disposition,
		       amount_tendered, change_due,
		       created_at, completed_at, cancelled_at
		FROM rides
		WHERE id = $1`, string(id),
	)

	var r Ride
	var driverID sql.NullString
	var distanceKm sql.NullFloat64
	var durationMin sql.NullInt32
	var fareExact, tendered, change sql.NullInt64
	var currency sql.NullString
	var method, state, disposition sql.NullString
	var completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&r.ID, &r.PassengerID, &driverID, &r.Status, &r.StatusVersion,
		&r.Pickup.Lat, &r.Pickup.Lng, &r.Dropoff.Lat, &r.Dropoff.Lng,
		&r.ClassID, &r.Passengers,
		&distanceKm, &durationMin, &fareExact, &currency,
		&method, &state, &disposition,
		&tendered, &change,
		&r.CreatedAt, &completedAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		d := types.ID(driverID.String)
		r.DriverID = &d
	}
	cur := currency.String
	if distanceKm.Valid {
		r.Route = &route.Route{DistanceKm: distanceKm.Float64, DurationMin: int(durationMin.Int32)}
	}
	if fareExact.Valid {
		r.Quote = &fare.Quote{
			ClassID: r.ClassID,
			Exact:   types.Money{Amount: fareExact.Int64, Currency: cur},
		}
	}
	if state.Valid {
		r.Session = &Session{
			Method:         Method(method.String),
			State:          State(state.String),
			Disposition:    Disposition(disposition.String),
			AmountTendered: types.Money{Amount: tendered.Int64, Currency: cur},
			ChangeDue:      types.Money{Amount: change.Int64, Currency: cur},
		}
		if r.Quote != nil {
			r.Session.AmountDue = r.Quote.Exact
		}
	}
	r.CompletedAt = timePtr(completedAt)
	r.CancelledAt = timePtr(cancelledAt)
	return &r, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
