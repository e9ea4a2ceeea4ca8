package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Payment describes one settlement leg as it crosses the escrow boundary.
// CorrelationText carries the originating order's timestamp so the receiving
// side can rebuild the order key with its own identity.
type Payment struct {
	Counterparty    string
	Amount          decimal.Decimal
	Currency        Currency
	CorrelationText string
}

// EncodeCorrelation renders an order timestamp into the wire form carried by
// payment messages.
func EncodeCorrelation(ts time.Time) string {
	return strconv.FormatInt(ts.UnixNano(), 10)
}

// CorrelationKey rebuilds the key of the local order this payment settles.
// owner is the local trader identity holding the order.
func (p Payment) CorrelationKey(owner string) (OrderKey, error) {
	ts, err := strconv.ParseInt(p.CorrelationText, 10, 64)
	if err != nil {
		return OrderKey{}, fmt.Errorf("parse correlation %q: %w", p.CorrelationText, err)
	}
	return OrderKey{
		Trader:    owner,
		Currency:  p.Currency,
		Timestamp: ts,
	}, nil
}

// Fingerprint identifies one concrete payment for replay detection.
func (p Payment) Fingerprint() string {
	return fmt.Sprintf("%s/%s/%s/%s", p.Counterparty, p.Currency, p.CorrelationText, p.Amount.String())
}
