// README: Postgres ledger with versioned balance updates.
package wallet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"corrida/internal/types"
)

// Store is the PostgreSQL Ledger. Writes are optimistic: every wallet row
// carries a version, and each update is conditioned on the version read in
// the same transaction. A lost race surfaces as ErrConflict, never as a
// partially applied batch.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Balance(ctx context.Context, owner types.ID) (types.Money, error) {
	row := s.db.QueryRow(ctx, `
		SELECT amount, currency FROM wallets WHERE owner_id = $1`, string(owner))

	var m types.Money
	err := row.Scan(&m.Amount, &m.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Money{}, ErrUnknownOwner
	}
	if err != nil {
		return types.Money{}, err
	}
	return m, nil
}

func (s *Store) ApplyAtomic(ctx context.Context, ops []Operation) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, op := range ops {
		var amount int64
		var version int
		row := tx.QueryRow(ctx, `
			SELECT amount, version FROM wallets WHERE owner_id = $1`, string(op.Owner))
		if err := row.Scan(&amount, &version); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUnknownOwner
			}
			return err
		}
		if amount+op.Delta.Amount < 0 {
			return ErrInsufficientFunds
		}

		tag, err := tx.Exec(ctx, `
			UPDATE wallets
			SET amount = amount + $1,
			    version = version + 1,
			    updated_at = NOW()
			WHERE owner_id = $2 AND version = $3`,
			op.Delta.Amount, string(op.Owner), version,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return ErrConflict
		}
	}

	return tx.Commit(ctx)
}

// CreateWallet inserts a wallet row with an opening balance.
func (s *Store) CreateWallet(ctx context.Context, owner types.ID, opening types.Money) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO wallets (owner_id, amount, currency, version, updated_at)
		VALUES ($1, $2, $3, 0, NOW())`,
		string(owner), opening.Amount, opening.Currency,
	)
	return err
}
