package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/peertrade/tradecore/pkg/engine/book"
	"github.com/peertrade/tradecore/pkg/engine/journal"
	"github.com/peertrade/tradecore/pkg/engine/model"
	"github.com/peertrade/tradecore/pkg/logging"
	"github.com/peertrade/tradecore/pkg/publish"
	"github.com/peertrade/tradecore/pkg/settlement"
)

type Config struct {
	OwnID       string
	Bids        *book.Book
	Asks        *book.Book
	Coordinator settlement.Coordinator
	Publisher   publish.Publisher
	Journal     *journal.Journal
	Logger      *logging.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine matches incoming orders against resting liquidity in price
// priority and drives escrow settlement for every trade. One mutex
// serializes matching, settlement callbacks and cancellation, so book
// mutation never interleaves.
type Engine struct {
	mu    sync.Mutex
	log   *logging.Logger
	ownID string

	bids *book.Book
	asks *book.Book

	// mine tracks the engine's own orders, best price first.
	mine []*model.Order

	coord settlement.Coordinator
	pub   publish.Publisher
	jrnl  *journal.Journal

	// reservations holds quantity locked per pending escrow session.
	reservations map[uuid.UUID]*reservation

	now func() time.Time
}

// reservation is quantity held on a resting order while its escrow session
// is in flight. applied means the quantity was already deducted (own-book
// matches apply optimistically); a failed session then restores it.
type reservation struct {
	resting    *model.Order
	qty        decimal.Decimal
	applied    bool
	removed    bool
	prevStatus model.Status
}

func New(cfg Config) *Engine {
	e := &Engine{
		log:          cfg.Logger,
		ownID:        cfg.OwnID,
		bids:         cfg.Bids,
		asks:         cfg.Asks,
		coord:        cfg.Coordinator,
		pub:          cfg.Publisher,
		jrnl:         cfg.Journal,
		reservations: make(map[uuid.UUID]*reservation),
		now:          cfg.Now,
	}
	if e.log == nil {
		e.log = logging.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.bids.BindOwner(e)
	e.asks.BindOwner(e)
	return e
}

func (e *Engine) OwnID() string {
	return e.ownID
}

// OwnOrders snapshots the engine's own order list, for the presentation
// binding. Rows resolve back to the engine through their stable keys.
func (e *Engine) OwnOrders() []model.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Order, 0, len(e.mine))
	for _, o := range e.mine {
		out = append(out, *o)
	}
	return out
}

// SubmitOrder books a new own order, publishes it, and runs the matching
// path for its side.
func (e *Engine) SubmitOrder(ctx context.Context, o *model.Order) (*MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !o.Quantity.IsPositive() || !o.Price.IsPositive() {
		return &MatchResult{Outcome: OutcomeFailure}, fmt.Errorf("%w: quantity and price must be positive", ErrInvalidOrder)
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = e.now()
	}
	o.Trader = e.ownID
	o.Status = model.StatusOpen

	e.insertMineLocked(o)
	e.bookFor(o).Insert(o)
	e.publishLocked(ctx, o)

	if o.Side != model.Bid {
		return &MatchResult{Outcome: OutcomeSuccess}, nil
	}

	res, err := e.matchLocked(ctx, o)
	if err != nil {
		return res, err
	}
	if len(res.Fills) > 0 {
		if o.Quantity.IsZero() {
			o.Status = model.StatusFilled
			e.removeMineLocked(o.Key())
			_, _ = e.bids.Remove(o.Key())
		} else {
			o.Status = model.StatusPartlyFilled
		}
		e.publishLocked(ctx, o)
	}
	return res, nil
}

// Match walks the public ask book for the incoming bid's currency, best
// price first, and initiates escrow for every crossing slice. The incoming
// order's quantity is reduced in place; resting asks are only reserved here,
// their quantity falls when the escrow session completes.
func (e *Engine) Match(ctx context.Context, incoming *model.Order) (*MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchLocked(ctx, incoming)
}

func (e *Engine) matchLocked(ctx context.Context, incoming *model.Order) (*MatchResult, error) {
	if incoming.Side == model.Ask {
		return &MatchResult{Outcome: OutcomeFailure}, ErrWrongSide
	}
	if !incoming.Quantity.IsPositive() || !incoming.Price.IsPositive() {
		return &MatchResult{Outcome: OutcomeFailure}, fmt.Errorf("%w: quantity and price must be positive", ErrInvalidOrder)
	}

	res := &MatchResult{Outcome: OutcomeSuccess}
	for r := range e.asks.ByCurrency(incoming.Currency) {
		if r.Trader == incoming.Trader {
			continue
		}
		if incoming.Price.LessThan(r.Price) {
			break
		}
		avail := r.Available()
		if !avail.IsPositive() {
			continue
		}
		traded := decimal.Min(avail, incoming.Quantity)

		if _, err := e.buyLocked(ctx, r, r, traded); err != nil {
			res.EscrowErrors++
			e.log.Warn(ctx, "escrow initiation failed, skipping resting order",
				zap.String("resting", r.Key().String()), zap.Error(err))
			continue
		}

		incoming.Quantity = incoming.Quantity.Sub(traded)
		res.Fills = append(res.Fills, Fill{Seller: r.Key(), Quantity: traded, Price: r.Price})
		e.publishLocked(ctx, r)

		if incoming.Quantity.IsZero() {
			res.Outcome = OutcomeFinish
			return res, nil
		}
	}
	return res, nil
}

// MatchAgainstMine matches an incoming ask against the engine's own resting
// bids, best bid first. Own-book quantity is applied optimistically: each
// slice is deducted as soon as its escrow session is initiated, and restored
// if the session fails.
func (e *Engine) MatchAgainstMine(ctx context.Context, incoming *model.Order) (*MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.matchAgainstMineLocked(ctx, incoming)
}

func (e *Engine) matchAgainstMineLocked(ctx context.Context, incoming *model.Order) (*MatchResult, error) {
	if incoming.Side != model.Ask {
		return &MatchResult{Outcome: OutcomeFailure}, ErrWrongSide
	}
	if !incoming.Quantity.IsPositive() || !incoming.Price.IsPositive() {
		return &MatchResult{Outcome: OutcomeFailure}, fmt.Errorf("%w: quantity and price must be positive", ErrInvalidOrder)
	}

	res := &MatchResult{Outcome: OutcomeSuccess}
	// applyLocked may remove fully consumed bids from e.mine, so walk a copy.
	mine := make([]*model.Order, len(e.mine))
	copy(mine, e.mine)
	for _, r := range mine {
		if r.Side != model.Bid || r.Currency != incoming.Currency {
			continue
		}
		if r.Trader == incoming.Trader {
			continue
		}
		if r.Price.LessThan(incoming.Price) {
			break
		}
		avail := r.Available()
		if !avail.IsPositive() {
			continue
		}
		traded := decimal.Min(avail, incoming.Quantity)

		id, err := e.buyLocked(ctx, incoming, r, traded)
		if err != nil {
			res.EscrowErrors++
			e.log.Warn(ctx, "escrow initiation failed, skipping own bid",
				zap.String("bid", r.Key().String()), zap.Error(err))
			continue
		}
		e.applyLocked(ctx, id, traded)

		incoming.Quantity = incoming.Quantity.Sub(traded)
		res.Fills = append(res.Fills, Fill{Seller: incoming.Key(), Quantity: traded, Price: incoming.Price})

		if incoming.Quantity.IsZero() {
			res.Outcome = OutcomeFinish
			return res, nil
		}
	}
	return res, nil
}

// buyLocked reserves traded quantity on the resting order atomically with
// escrow initiation toward the seller. The reservation is released if
// initiation fails, so concurrent matches never offer the same liquidity
// twice.
func (e *Engine) buyLocked(ctx context.Context, seller, resting *model.Order, qty decimal.Decimal) (uuid.UUID, error) {
	resting.Reserved = resting.Reserved.Add(qty)

	req := settlement.Request{
		Payer:        e.ownID,
		Counterparty: seller.Trader,
		Amount:       qty.Mul(seller.Price),
		Currency:     seller.Currency,
		Correlation:  model.EncodeCorrelation(seller.Timestamp),
	}
	s, err := e.coord.Initiate(ctx, req)
	if err != nil {
		resting.Reserved = resting.Reserved.Sub(qty)
		return uuid.Nil, fmt.Errorf("%w: %v", ErrEscrowInitiation, err)
	}

	e.reservations[s.ID] = &reservation{
		resting:    resting,
		qty:        qty,
		prevStatus: resting.Status,
	}
	return s.ID, nil
}

// applyLocked converts a pending reservation into an immediate quantity
// deduction on an own-book order.
func (e *Engine) applyLocked(ctx context.Context, id uuid.UUID, qty decimal.Decimal) {
	rv := e.reservations[id]
	r := rv.resting
	rv.applied = true

	r.Reserved = r.Reserved.Sub(qty)
	r.Quantity = r.Quantity.Sub(qty)
	if r.Quantity.IsZero() {
		r.Status = model.StatusFilled
		rv.removed = true
		e.removeMineLocked(r.Key())
		_, _ = e.bookFor(r).Remove(r.Key())
	} else {
		r.Status = model.StatusPartlyFilled
	}
	e.publishLocked(ctx, r)
}

// OnEscrowResult finalizes a session's reservation: commit on success,
// release or restore on failure. Runs under the same lock as matching, so
// completion never races a concurrent match or cancel.
func (e *Engine) OnEscrowResult(ctx context.Context, res settlement.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rv, ok := e.reservations[res.Session.ID]
	if !ok {
		return
	}
	delete(e.reservations, res.Session.ID)

	r := rv.resting
	failed := res.Err != nil || res.Session.State == settlement.StateFailed

	if !rv.applied {
		r.Reserved = r.Reserved.Sub(rv.qty)
		if failed {
			e.log.Warn(ctx, "escrow session failed, reservation released",
				zap.String("order", r.Key().String()), zap.Error(res.Err))
			return
		}
		r.Quantity = r.Quantity.Sub(rv.qty)
		if r.Quantity.IsZero() {
			r.Status = model.StatusFilled
			_, _ = e.bookFor(r).Remove(r.Key())
		} else {
			r.Status = model.StatusPartlyFilled
		}
		e.publishLocked(ctx, r)
		return
	}

	if !failed {
		return // already applied at match time
	}
	if r.Status == model.StatusCancelled {
		return // cancelled while in flight, nothing to restore
	}
	r.Quantity = r.Quantity.Add(rv.qty)
	r.Status = rv.prevStatus
	if rv.removed {
		e.insertMineLocked(r)
		e.bookFor(r).Insert(r)
	}
	e.publishLocked(ctx, r)
	e.log.Warn(ctx, "escrow session failed, own-book quantity restored",
		zap.String("order", r.Key().String()), zap.Error(res.Err))
}

// StartExecute is the pre-commit gate of the settlement protocol: it
// verifies the payment correlates to one of our orders and does not exceed
// its remaining notional. No state is mutated.
func (e *Engine) StartExecute(ctx context.Context, p model.Payment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be positive", ErrInvalidPayment, p.Amount)
	}
	key, err := p.CorrelationKey(e.ownID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	o := e.findMineLocked(key)
	if o == nil {
		return ErrOrderNotFound
	}
	if o.Notional().LessThan(p.Amount) {
		return ErrExceedsNotional
	}
	return nil
}

// FinishExecute applies a completed settlement to the correlated own order:
// partial payments reduce quantity in place, a full payment removes the
// order from the list and its book. Replays of the same payment are
// rejected.
func (e *Engine) FinishExecute(ctx context.Context, p model.Payment) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount %s must be positive", ErrInvalidPayment, p.Amount)
	}
	key, err := p.CorrelationKey(e.ownID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
	}
	o := e.findMineLocked(key)
	if o == nil {
		return ErrOrderNotFound
	}
	if !e.jrnl.MarkSettled(p.Fingerprint()) {
		return ErrDuplicateSettlement
	}

	if p.Amount.LessThan(o.Notional()) {
		o.Status = model.StatusPartlyFilled
		o.Quantity = o.Quantity.Sub(p.Amount.Div(o.Price))
	} else {
		e.removeMineLocked(key)
		if _, err := e.bookFor(o).Remove(key); err != nil {
			e.log.Warn(ctx, "settled order missing from book", zap.String("order", key.String()))
		}
		o.Quantity = decimal.Zero
		o.Status = model.StatusFilled
	}
	e.publishLocked(ctx, o)
	return nil
}

// CancelOrder removes an own order identified by its stable key from the
// tracking list and its book, marks it cancelled and publishes exactly one
// update.
func (e *Engine) CancelOrder(ctx context.Context, key model.OrderKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o := e.findMineLocked(key)
	if o == nil {
		return ErrOrderNotFound
	}
	e.removeMineLocked(key)
	if _, err := e.bookFor(o).Remove(key); err != nil {
		e.log.Warn(ctx, "cancelled order missing from book", zap.String("order", key.String()))
	}
	o.Status = model.StatusCancelled
	e.publishLocked(ctx, o)
	return nil
}

// IncomingOrder routes a remote order delivered through a bound book: asks
// run against our resting bids, the surviving remainder is booked so the
// local copy of the peer's book converges. A transition of an already booked
// remote order replaces the stale copy, unless that copy has quantity locked
// by a pending escrow session; settlement completion reconciles it instead.
func (e *Engine) IncomingOrder(o *model.Order) error {
	ctx := context.Background()
	e.mu.Lock()
	defer e.mu.Unlock()

	if o.Trader == e.ownID {
		return nil
	}
	if !o.Price.IsPositive() || (!o.IsEnd() && !o.Quantity.IsPositive()) {
		return fmt.Errorf("%w: remote order %s has quantity %s at price %s",
			ErrInvalidOrder, o.Key().String(), o.Quantity, o.Price)
	}
	if prev := e.peekBookLocked(o); prev != nil {
		if prev.Reserved.IsPositive() {
			return nil
		}
		_, _ = e.bookFor(o).Remove(o.Key())
	}
	if o.IsEnd() {
		return nil
	}

	if o.Side == model.Ask {
		if _, err := e.matchAgainstMineLocked(ctx, o); err != nil {
			return err
		}
	}
	if !o.IsEnd() && o.Quantity.IsPositive() {
		e.bookFor(o).Insert(o)
	}
	return nil
}

func (e *Engine) peekBookLocked(o *model.Order) *model.Order {
	for r := range e.bookFor(o).ByCurrency(o.Currency) {
		if r.Key() == o.Key() {
			return r
		}
	}
	return nil
}

func (e *Engine) bookFor(o *model.Order) *book.Book {
	if o.Side == model.Ask {
		return e.asks
	}
	return e.bids
}

// insertMineLocked keeps the own list best price first, ties by arrival.
func (e *Engine) insertMineLocked(o *model.Order) {
	at := len(e.mine)
	for i, r := range e.mine {
		if o.Price.GreaterThan(r.Price) {
			at = i
			break
		}
	}
	e.mine = append(e.mine, nil)
	copy(e.mine[at+1:], e.mine[at:])
	e.mine[at] = o
}

func (e *Engine) findMineLocked(key model.OrderKey) *model.Order {
	for _, o := range e.mine {
		if o.Key() == key {
			return o
		}
	}
	return nil
}

func (e *Engine) removeMineLocked(key model.OrderKey) {
	for i, o := range e.mine {
		if o.Key() == key {
			e.mine = append(e.mine[:i], e.mine[i+1:]...)
			return
		}
	}
}

// publishLocked broadcasts one observable transition and journals it.
func (e *Engine) publishLocked(ctx context.Context, o *model.Order) {
	snap := *o
	if err := e.pub.PublishOrder(ctx, snap); err != nil {
		e.log.Error(ctx, "publish order failed",
			zap.String("order", snap.Key().String()), zap.Error(err))
	}
	e.jrnl.Append(model.NewOrderEvent(snap, e.now()))
}
