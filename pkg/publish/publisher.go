package publish

import (
	"context"

	"go.uber.org/zap"

	"github.com/peertrade/tradecore/pkg/engine/model"
	"github.com/peertrade/tradecore/pkg/logging"
)

// Publisher is the peer broadcast contract. The engine calls it exactly once
// per observable state transition of an order so remote book copies can
// converge.
type Publisher interface {
	PublishOrder(ctx context.Context, o model.Order) error
}

// LogPublisher writes transitions to the log only. Used when no transport is
// wired, and by tests.
type LogPublisher struct {
	log *logging.Logger
}

func NewLogPublisher(log *logging.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishOrder(ctx context.Context, o model.Order) error {
	p.log.Info(ctx, "publish order",
		zap.String("trader", o.Trader),
		zap.String("currency", string(o.Currency)),
		zap.String("side", string(o.Side)),
		zap.String("status", string(o.Status)),
		zap.String("quantity", o.Quantity.String()),
		zap.String("price", o.Price.String()),
		zap.Int64("order_ts", o.Timestamp.UnixNano()),
	)
	return nil
}
