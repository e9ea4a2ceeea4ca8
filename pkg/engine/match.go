package engine

import (
	"github.com/shopspring/decimal"

	"github.com/peertrade/tradecore/pkg/engine/model"
)

// Outcome is the tri-state result of one matching pass: SUCCESS means the
// incoming order was absorbed at the available liquidity (possibly not at
// all), FINISH means it was fully consumed, FAILURE means the input was
// rejected.
type Outcome string

const (
	OutcomeFailure Outcome = "FAILURE"
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFinish  Outcome = "FINISH"
)

// Fill records one traded slice against a selling order.
type Fill struct {
	Seller   model.OrderKey
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

type MatchResult struct {
	Outcome Outcome
	Fills   []Fill

	// EscrowErrors counts resting orders skipped because escrow initiation
	// failed and the reservation was rolled back.
	EscrowErrors int
}

// TradedQuantity sums the fills, for conservation accounting.
func (r *MatchResult) TradedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, f := range r.Fills {
		total = total.Add(f.Quantity)
	}
	return total
}
