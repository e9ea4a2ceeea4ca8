package book

import (
	"iter"

	"github.com/peertrade/tradecore/pkg/engine/model"
)

// Owner receives incoming remote orders routed through the book, so the
// matching engine can be reached without any global lookup.
type Owner interface {
	IncomingOrder(o *model.Order) error
}

// Book is a one-sided, price-priority ordered collection of orders across
// all currencies. Asks sort ascending, bids descending; equal prices keep
// arrival order. The Book itself is not goroutine safe; the owning engine
// serializes every mutation.
type Book struct {
	side   model.Side
	orders []*model.Order
	owner  Owner
}

func New(side model.Side) *Book {
	return &Book{side: side}
}

func (b *Book) Side() model.Side {
	return b.side
}

func (b *Book) Len() int {
	return len(b.orders)
}

// BindOwner registers the engine owning this book.
func (b *Book) BindOwner(owner Owner) {
	b.owner = owner
}

// Insert places the order at its price-priority position. Orders at an
// already present price go behind them, preserving time priority.
func (b *Book) Insert(o *model.Order) {
	at := len(b.orders)
	for i, r := range b.orders {
		if b.before(o, r) {
			at = i
			break
		}
	}
	b.orders = append(b.orders, nil)
	copy(b.orders[at+1:], b.orders[at:])
	b.orders[at] = o
}

func (b *Book) before(o, r *model.Order) bool {
	if b.side == model.Ask {
		return o.Price.LessThan(r.Price)
	}
	return o.Price.GreaterThan(r.Price)
}

// Remove takes the order matching key out of the book and returns it.
func (b *Book) Remove(key model.OrderKey) (*model.Order, error) {
	for i, r := range b.orders {
		if r.Key() == key {
			b.orders = append(b.orders[:i], b.orders[i+1:]...)
			return r, nil
		}
	}
	return nil, ErrOrderNotFound
}

// ByCurrency yields the book's orders for one currency in book order. The
// sequence is lazy and restartable; it must not outlive mutations of the
// book.
func (b *Book) ByCurrency(currency model.Currency) iter.Seq[*model.Order] {
	return func(yield func(*model.Order) bool) {
		for _, r := range b.orders {
			if r.Currency != currency {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Snapshot copies the book's orders for one currency, for read-only
// consumers such as the presentation binding.
func (b *Book) Snapshot(currency model.Currency) []model.Order {
	var out []model.Order
	for o := range b.ByCurrency(currency) {
		out = append(out, *o)
	}
	return out
}

// ProcessIncoming hands a remote order to the bound engine, which matches
// it and books whatever quantity survives so the local copy of the peer's
// book converges. Without an owner the order is only booked.
func (b *Book) ProcessIncoming(o *model.Order) error {
	if b.owner != nil {
		return b.owner.IncomingOrder(o)
	}
	if !o.IsEnd() && o.Quantity.IsPositive() {
		b.Insert(o)
	}
	return nil
}
