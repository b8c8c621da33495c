// README: Payment settlement state machine over the wallet ledger and card processor.
package ride

import (
	"context"
	"errors"
	"time"

	"corrida/internal/modules/wallet"
	"corrida/internal/types"
)

// SelectPaymentMethod opens (or re-enters) the payment session for a ride.
// Wallet settles immediately; card/PIX moves to form entry; cash moves to
// amount entry.
func (s *Service) SelectPaymentMethod(ctx context.Context, id types.ID, method Method) (*Session, error) {
	if !validMethod(method) {
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
	if st.ride.Quote == nil {
		s.mu.Unlock()
		return nil, ErrBadRequest
	}

	if st.ride.Session == nil {
		st.ride.Session = &Session{
			State:     StateMethodSelection,
			AmountDue: st.ride.Quote.Exact,
		}
		st.ride.Status = StatusSettling
	}
	sess := st.ride.Session
	if sess.terminal() {
		s.mu.Unlock()
		return nil, ErrRideClosed
	}
	// A settlement with ledger or provider IO in flight holds the session:
	// switching method now would race the pending debit.
	if sess.inFlight() {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	// Switching method from any other non-terminal resting state re-enters
	// MethodSelection first.
	if sess.State != StateMethodSelection {
		if !CanTransition(sess.State, StateMethodSelection) {
			s.mu.Unlock()
			return nil, ErrInvalidState
		}
		s.toState(ctx, st, StateMethodSelection, "passenger")
	}
	sess.Method = method
	sess.AmountTendered = types.Money{}
	sess.ChangeDue = types.Money{}
	sess.Disposition = ""

	switch method {
	case MethodWallet:
		return s.settleWallet(ctx, st)
	case MethodCard, MethodPix:
		s.toState(ctx, st, StateFormEntry, "passenger")
		return s.finish(ctx, st, nil)
	default: // MethodCash
		s.toState(ctx, st, StateAmountEntry, "passenger")
		return s.finish(ctx, st, nil)
	}
}

// settleWallet runs BalanceCheck -> Confirming -> Complete. Called with the
// service lock held; releases it around ledger IO.
func (s *Service) settleWallet(ctx context.Context, st *rideState) (*Session, error) {
	sess := st.ride.Session
	passenger := st.ride.PassengerID
	due := sess.AmountDue
	s.toState(ctx, st, StateBalanceCheck, "system")
	s.mu.Unlock()

	balance, err := s.ledger.Balance(ctx, passenger)

	s.mu.Lock()
	if !st.ride.open() {
		// Cancelled while the balance was being read; nothing was written.
		return s.finish(ctx, st, ErrRideClosed)
	}
	if err != nil || !balance.GTE(due) {
		s.toState(ctx, st, StateMethodSelection, "system")
		if err != nil {
			return s.finish(ctx, st, err)
		}
		return s.finish(ctx, st, ErrInsufficientBalance)
	}

	s.toState(ctx, st, StateConfirming, "system")
	s.mu.Unlock()

	applyErr := s.applyWithRetry(ctx, []wallet.Operation{
		{Owner: passenger, Delta: types.Money{Amount: -due.Amount, Currency: due.Currency}},
	})

	s.mu.Lock()
	if applyErr != nil {
		s.toState(ctx, st, StateMethodSelection, "system")
		if errors.Is(applyErr, wallet.ErrInsufficientFunds) {
			return s.finish(ctx, st, ErrInsufficientBalance)
		}
		if errors.Is(applyErr, wallet.ErrConflict) {
			return s.finish(ctx, st, ErrSettlementConflict)
		}
		return s.finish(ctx, st, applyErr)
	}

	s.complete(ctx, st)
	return s.finish(ctx, st, nil)
}

// SubmitCard drives FormEntry through the payment provider. A decline
// returns the session to FormEntry.
func (s *Service) SubmitCard(ctx context.Context, id types.ID) (*Session, error) {
	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sess := st.ride.Session
	if sess == nil || sess.State != StateFormEntry {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	method := sess.Method
	due := sess.AmountDue
	s.toState(ctx, st, StateProcessing, "passenger")
	s.mu.Unlock()

	err := s.processor.Authorize(ctx, method, due)

	s.mu.Lock()
	if err != nil {
		s.toState(ctx, st, StateFormEntry, "system")
		if errors.Is(err, ErrProviderDeclined) {
			return s.finish(ctx, st, err)
		}
		return s.finish(ctx, st, ErrProviderDeclined)
	}
	s.complete(ctx, st)
	return s.finish(ctx, st, nil)
}

// SubmitCashAmount records what the passenger will hand over. Tendering less
// than the amount due is rejected and the session stays in AmountEntry.
// Exact payment completes directly; overpayment waits on the driver's change
// disposition.
func (s *Service) SubmitCashAmount(ctx context.Context, id types.ID, tendered types.Money) (*Session, error) {
	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sess := st.ride.Session
	if sess == nil || sess.State != StateAmountEntry {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}
	if tendered.Currency != sess.AmountDue.Currency {
		return s.finish(ctx, st, ErrBadRequest)
	}
	if !tendered.GTE(sess.AmountDue) {
		return s.finish(ctx, st, ErrInvalidCashAmount)
	}

	sess.AmountTendered = tendered
	sess.ChangeDue = tendered.Sub(sess.AmountDue)

	if sess.ChangeDue.IsZero() {
		s.complete(ctx, st)
		return s.finish(ctx, st, nil)
	}
	s.toState(ctx, st, StateDriverConfirmation, "passenger")
	return s.finish(ctx, st, nil)
}

// ConfirmChangeDisposition applies the driver's choice for the change.
// ReturnCash completes without touching the ledger. CreditWallet debits the
// driver and credits the passenger in one atomic batch: the driver already
// holds the full tendered cash, so their recorded balance gives up exactly
// the change portion.
func (s *Service) ConfirmChangeDisposition(ctx context.Context, id types.ID, d Disposition) (*Session, error) {
	if d != DispositionReturnCash && d != DispositionCreditWallet {
		return nil, ErrBadRequest
	}

	s.mu.Lock()
	st, ok := s.rides[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sess := st.ride.Session
	if sess == nil || sess.State != StateDriverConfirmation {
		s.mu.Unlock()
		return nil, ErrInvalidState
	}

	sess.Disposition = d
	if d == DispositionReturnCash {
		s.complete(ctx, st)
		return s.finish(ctx, st, nil)
	}

	if st.ride.DriverID == nil {
		sess.Disposition = ""
		return s.finish(ctx, st, ErrBadRequest)
	}
	driver := *st.ride.DriverID
	passenger := st.ride.PassengerID
	change := sess.ChangeDue
	s.toState(ctx, st, StateConfirming, "driver")
	s.mu.Unlock()

	applyErr := s.applyWithRetry(ctx, []wallet.Operation{
		{Owner: driver, Delta: types.Money{Amount: -change.Amount, Currency: change.Currency}},
		{Owner: passenger, Delta: change},
	})

	s.mu.Lock()
	if applyErr != nil {
		sess.Disposition = ""
		s.toState(ctx, st, StateDriverConfirmation, "system")
		if errors.Is(applyErr, wallet.ErrConflict) {
			return s.finish(ctx, st, ErrSettlementConflict)
		}
		return s.finish(ctx, st, applyErr)
	}
	s.complete(ctx, st)
	return s.finish(ctx, st, nil)
}

// applyWithRetry retries a conflicted atomic apply exactly once before
// surfacing the failure.
func (s *Service) applyWithRetry(ctx context.Context, ops []wallet.Operation) error {
	err := s.ledger.ApplyAtomic(ctx, ops)
	if errors.Is(err, wallet.ErrConflict) {
		err = s.ledger.ApplyAtomic(ctx, ops)
	}
	return err
}

// toState records a settlement transition and its audit event. Caller holds
// the service lock.
func (s *Service) toState(ctx context.Context, st *rideState, to State, actor string) {
	sess := st.ride.Session
	from := sess.State
	sess.State = to
	st.ride.StatusVersion++
	if s.store != nil {
		var actorID *types.ID
		switch actor {
		case "passenger":
			actorID = &st.ride.PassengerID
		case "driver":
			actorID = st.ride.DriverID
		}
		_ = s.store.AppendEvent(ctx, &Event{
			RideID:    st.ride.ID,
			FromState: string(from),
			ToState:   string(to),
			ActorType: actor,
			ActorID:   actorID,
			CreatedAt: time.Now(),
		})
	}
}

// complete freezes the session and the ride. Caller holds the service lock.
func (s *Service) complete(ctx context.Context, st *rideState) {
	now := time.Now()
	s.toState(ctx, st, StateComplete, "system")
	st.ride.Session.CompletedAt = &now
	st.ride.Status = StatusCompleted
	st.ride.CompletedAt = &now
}

// finish snapshots the session, persists the ride, notifies the observer and
// releases the lock. It returns the snapshot alongside err so callers can
// hand the caller the session even on guard rejections.
func (s *Service) finish(ctx context.Context, st *rideState, err error) (*Session, error) {
	rideSnap := snapshot(&st.ride)
	s.mu.Unlock()

	if s.store != nil {
		_ = s.store.UpdateRide(ctx, rideSnap)
	}
	if s.observer != nil {
		s.observer.SessionChanged(rideSnap, rideSnap.Session)
	}
	return rideSnap.Session, err
}
