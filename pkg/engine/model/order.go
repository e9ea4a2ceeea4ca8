package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Bid Side = "BID"
	Ask Side = "ASK"
)

type Status string

const (
	StatusOpen         Status = "Open"
	StatusPartlyFilled Status = "PartlyFilled"
	StatusFilled       Status = "Filled"
	StatusCancelled    Status = "Cancelled"
)

// Order is one resting or incoming trade intent. Quantity is the nominal
// remaining size; Reserved is the part currently locked by pending escrow
// sessions and not available for further matching.
type Order struct {
	Side      Side
	Trader    string
	Currency  Currency
	Quantity  decimal.Decimal
	Reserved  decimal.Decimal
	Price     decimal.Decimal
	Timestamp time.Time
	Status    Status
}

// OrderKey is the correlation identity of an order. No separate order id
// travels with settlement messages, so (trader, currency, timestamp) is the
// key used to link a payment back to the order it settles.
type OrderKey struct {
	Trader    string
	Currency  Currency
	Timestamp int64 // unix nanoseconds
}

func NewOrderKey(trader string, currency Currency, ts time.Time) OrderKey {
	return OrderKey{
		Trader:    trader,
		Currency:  currency,
		Timestamp: ts.UnixNano(),
	}
}

func (k OrderKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.Trader, k.Currency, k.Timestamp)
}

func (o *Order) Key() OrderKey {
	return NewOrderKey(o.Trader, o.Currency, o.Timestamp)
}

// Available is the quantity matching may still offer against this order.
func (o *Order) Available() decimal.Decimal {
	return o.Quantity.Sub(o.Reserved)
}

// Notional is the remaining monetary value of the order.
func (o *Order) Notional() decimal.Decimal {
	return o.Quantity.Mul(o.Price)
}

func (o *Order) IsEnd() bool {
	return o.Status == StatusFilled || o.Status == StatusCancelled
}
