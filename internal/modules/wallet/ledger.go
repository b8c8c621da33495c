// Package wallet holds the balance-ledger port and its implementations.
// Settlement touches money only through Ledger.ApplyAtomic: all operations
// in one call commit together or not at all.
package wallet

import (
	"context"
	"errors"

	"corrida/internal/types"
)

var (
	ErrUnknownOwner      = errors.New("wallet owner not found")
	ErrInsufficientFunds = errors.New("insufficient wallet funds")
	// ErrConflict is returned when a concurrent settlement touched one of the
	// wallets between read and write. Callers may retry.
	ErrConflict = errors.New("wallet version conflict")
)

// Operation is a single signed balance change.
type Operation struct {
	Owner types.ID
	Delta types.Money
}

// Ledger is the external balance store collaborator.
type Ledger interface {
	Balance(ctx context.Context, owner types.ID) (types.Money, error)
	// ApplyAtomic applies every operation or none. A negative delta that
	// would take a balance below zero fails the whole batch with
	// ErrInsufficientFunds.
	ApplyAtomic(ctx context.Context, ops []Operation) error
}
