package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEvent is one journaled observable transition of an order. Events are
// appended on every publish so a peer (or the audit store) can replay the
// order's history.
type OrderEvent struct {
	EventID        string
	Trader         string
	Currency       Currency
	OrderTimestamp int64
	Side           Side
	Status         Status
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	Timestamp      time.Time
}

func NewOrderEvent(o Order, now time.Time) *OrderEvent {
	return &OrderEvent{
		EventID:        uuid.New().String(),
		Trader:         o.Trader,
		Currency:       o.Currency,
		OrderTimestamp: o.Timestamp.UnixNano(),
		Side:           o.Side,
		Status:         o.Status,
		Quantity:       o.Quantity,
		Price:          o.Price,
		Timestamp:      now,
	}
}

func (ev *OrderEvent) OrderKey() OrderKey {
	return OrderKey{
		Trader:    ev.Trader,
		Currency:  ev.Currency,
		Timestamp: ev.OrderTimestamp,
	}
}

func (*OrderEvent) TableName() string {
	return "order_events"
}
