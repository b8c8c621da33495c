// README: Vehicle class persistence.
package fare

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store reads vehicle classes from PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Classes(ctx context.Context) ([]Class, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, base_fare, rate_per_km, currency
		FROM vehicle_classes
		ORDER BY base_fare`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		var currency string
		if err := rows.Scan(&c.ID, &c.Name, &c.Base.Amount, &c.PerKm.Amount, &currency); err != nil {
			return nil, err
		}
		c.Base.Currency = currency
		c.PerKm.Currency = currency
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadRegistry builds the in-memory registry from the table, falling back to
// the seed classes when the table is empty.
func (s *Store) LoadRegistry(ctx context.Context, currency string) (*Registry, error) {
	classes, err := s.Classes(ctx)
	if err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		classes = DefaultClasses(currency)
	}
	return NewRegistry(classes), nil
}
