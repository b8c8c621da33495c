// Package ride owns the booking session and the payment settlement state
// machine.
package ride

import (
	"errors"
	"time"

	"corrida/internal/modules/fare"
	"corrida/internal/modules/route"
	"corrida/internal/types"
)

var (
	ErrNotFound     = errors.New("ride not found")
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidState = errors.New("invalid settlement state transition")
	ErrRideClosed   = errors.New("ride already reached a terminal state")

	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrInvalidCashAmount   = errors.New("tendered cash below amount due")
	ErrProviderDeclined    = errors.New("payment provider declined")
	ErrSettlementConflict  = errors.New("settlement conflict on wallet ledger")
)

// Method is the payment method the passenger selected.
type Method string

const (
	MethodWallet Method = "wallet"
	MethodCard   Method = "card"
	MethodPix    Method = "pix"
	MethodCash   Method = "cash"
)

func validMethod(m Method) bool {
	switch m {
	case MethodWallet, MethodCard, MethodPix, MethodCash:
		return true
	}
	return false
}

// State is a payment session state. Complete is the only terminal state;
// guard rejections bounce the session back to the state named in the
// transitions table.
type State string

const (
	StateMethodSelection    State = "method_selection"
	StateBalanceCheck       State = "balance_check"
	StateFormEntry          State = "form_entry"
	StateProcessing         State = "processing_confirmation"
	StateAmountEntry        State = "amount_entry"
	StateDriverConfirmation State = "driver_confirmation"
	StateConfirming         State = "confirming"
	StateComplete           State = "complete"
)

// Disposition is the driver's choice of how change is returned.
type Disposition string

const (
	DispositionReturnCash   Disposition = "return_cash"
	DispositionCreditWallet Disposition = "credit_wallet"
)

// AllowedTransitions is the settlement state flow as code. Re-entering
// MethodSelection models both guard rejections and method switching.
var AllowedTransitions = map[State][]State{
	StateMethodSelection:    {StateBalanceCheck, StateFormEntry, StateAmountEntry},
	StateBalanceCheck:       {StateConfirming, StateMethodSelection},
	StateFormEntry:          {StateProcessing, StateMethodSelection},
	StateProcessing:         {StateComplete, StateFormEntry},
	StateAmountEntry:        {StateDriverConfirmation, StateComplete, StateMethodSelection},
	StateDriverConfirmation: {StateConfirming, StateComplete},
	StateConfirming:         {StateComplete, StateMethodSelection, StateDriverConfirmation},
}

func CanTransition(from, to State) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Session is the payment settlement for one ride. Exactly one session is
// active per ride; Complete freezes it.
type Session struct {
	Method         Method
	State          State
	AmountDue      types.Money
	AmountTendered types.Money
	ChangeDue      types.Money
	Disposition    Disposition
	CompletedAt    *time.Time
}

func (s *Session) terminal() bool { return s.State == StateComplete }

// inFlight reports whether the session is waiting on ledger or provider IO.
// Nothing may mutate the session until that IO lands.
func (s *Session) inFlight() bool {
	switch s.State {
	case StateBalanceCheck, StateConfirming, StateProcessing:
		return true
	}
	return false
}

// Status is the ride lifecycle around the settlement.
type Status string

const (
	StatusQuoted    Status = "quoted"
	StatusSettling  Status = "settling"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Ride is the booking session. Mutable until its settlement completes or the
// passenger cancels; frozen afterwards.
type Ride struct {
	ID            types.ID
	PassengerID   types.ID
	DriverID      *types.ID
	Status        Status
	StatusVersion int

	Pickup     types.Point
	Dropoff    types.Point
	ClassID    string
	Passengers int

	Route   *route.Route
	Quote   *fare.Quote
	Session *Session

	CreatedAt   time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

func (r *Ride) open() bool {
	return r.Status == StatusQuoted || r.Status == StatusSettling
}

// Event is one audit record of a settlement or lifecycle transition.
type Event struct {
	ID        int64
	RideID    types.ID
	FromState string
	ToState   string
	ActorType string
	ActorID   *types.ID
	CreatedAt time.Time
}
