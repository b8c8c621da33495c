package wallet

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"corrida/internal/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("CORRIDA_TEST_DSN")
	if dsn == "" {
		t.Skip("CORRIDA_TEST_DSN not set; skipping DB-backed ledger tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			owner_id   TEXT PRIMARY KEY,
			amount     BIGINT NOT NULL,
			currency   TEXT NOT NULL,
			version    INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL
		)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	return NewStore(db)
}

func testOwner(prefix string) types.ID {
	return types.ID(fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano()))
}

func TestStore_ApplyAtomic_Transfer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	driver := testOwner("driver")
	passenger := testOwner("passenger")
	mustCreateWallet(t, store, driver, brl(2000))
	mustCreateWallet(t, store, passenger, brl(0))

	err := store.ApplyAtomic(ctx, []Operation{
		{Owner: driver, Delta: brl(-360)},
		{Owner: passenger, Delta: brl(360)},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	assertBalance(t, store, driver, 1640)
	assertBalance(t, store, passenger, 360)
}

func TestStore_ApplyAtomic_InsufficientRollsBack(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	driver := testOwner("driver")
	passenger := testOwner("passenger")
	mustCreateWallet(t, store, driver, brl(100))
	mustCreateWallet(t, store, passenger, brl(0))

	err := store.ApplyAtomic(ctx, []Operation{
		{Owner: passenger, Delta: brl(500)},
		{Owner: driver, Delta: brl(-500)},
	})
	if err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	assertBalance(t, store, driver, 100)
	assertBalance(t, store, passenger, 0)
}

func TestStore_ConcurrentDebitsSettleConsistently(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	owner := testOwner("hot_wallet")
	mustCreateWallet(t, store, owner, brl(1000))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.ApplyAtomic(ctx, []Operation{{Owner: owner, Delta: brl(-100)}})
		}()
	}
	wg.Wait()
	close(errs)

	applied := 0
	for err := range errs {
		switch err {
		case nil:
			applied++
		case ErrConflict, ErrInsufficientFunds:
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	m, err := store.Balance(ctx, owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if m.Amount != 1000-int64(applied)*100 {
		t.Fatalf("balance %d inconsistent with %d applied debits", m.Amount, applied)
	}
}

func mustCreateWallet(t *testing.T, store *Store, owner types.ID, opening types.Money) {
	t.Helper()
	if err := store.CreateWallet(context.Background(), owner, opening); err != nil {
		t.Fatalf("create wallet %s: %v", owner, err)
	}
}
