package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peertrade/tradecore/pkg/engine/model"
)

type SessionState string

const (
	StateInitiated SessionState = "Initiated"
	StateConfirmed SessionState = "Confirmed"
	StateFailed    SessionState = "Failed"
)

// Request asks the settlement mechanism to escrow one trade leg. Payer is
// the local identity funding the escrow; Counterparty receives it.
// Correlation carries the sold order's timestamp in wire form.
type Request struct {
	Payer        string
	Counterparty string
	Amount       decimal.Decimal
	Currency     model.Currency
	Correlation  string
}

// Session is one transient escrow attempt. The matching core never persists
// sessions; the settlement-asset collaborator owns durability.
type Session struct {
	ID      uuid.UUID
	Request Request
	State   SessionState
}

// Result is the completion message a coordinator delivers back to the payer
// side once a session leaves the Initiated state.
type Result struct {
	Session Session
	Err     error
}

// Coordinator is the escrow boundary the engine initiates settlement
// through. Initiate must not call back into the engine synchronously.
type Coordinator interface {
	Initiate(ctx context.Context, req Request) (*Session, error)
}

// Executor is the callback contract a coordinator drives on the payee side:
// a pre-commit go/no-go gate, then a post-commit finalize. Finalize is
// invoked at most once per completed session.
type Executor interface {
	StartExecute(ctx context.Context, p model.Payment) error
	FinishExecute(ctx context.Context, p model.Payment) error
}
