// README: In-memory ledger for tests and local development.
package wallet

import (
	"context"
	"sync"

	"corrida/internal/types"
)

// MemoryLedger is an in-process Ledger with the same guard semantics as the
// Postgres store. Used in tests and local development.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[types.ID]types.Money
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: map[types.ID]types.Money{}}
}

// SetBalance seeds or overwrites an owner's balance.
func (l *MemoryLedger) SetBalance(owner types.ID, m types.Money) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[owner] = m
}

func (l *MemoryLedger) Balance(ctx context.Context, owner types.ID) (types.Money, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.balances[owner]
	if !ok {
		return types.Money{}, ErrUnknownOwner
	}
	return m, nil
}

func (l *MemoryLedger) ApplyAtomic(ctx context.Context, ops []Operation) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Validate everything before mutating anything.
	next := make(map[types.ID]types.Money, len(ops))
	for _, op := range ops {
		cur, ok := next[op.Owner]
		if !ok {
			cur, ok = l.balances[op.Owner]
			if !ok {
				return ErrUnknownOwner
			}
		}
		cur = cur.Add(op.Delta)
		if cur.IsNegative() {
			return ErrInsufficientFunds
		}
		next[op.Owner] = cur
	}
	for owner, m := range next {
		l.balances[owner] = m
	}
	return nil
}
