package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/peertrade/tradecore/pkg/engine/model"
	"github.com/peertrade/tradecore/pkg/engine/repo"
	"github.com/peertrade/tradecore/pkg/logging"
)

// Worker drains the journal feed into the audit store. Persistence runs off
// the matching path; a lost event here never blocks or corrupts matching.
type Worker struct {
	orderEvent repo.IOrderEvent
	log        *logging.Logger
}

func NewWorker(r repo.IRepo, log *logging.Logger) *Worker {
	return &Worker{
		orderEvent: r.OrderEvent(),
		log:        log,
	}
}

// Run consumes events until the context ends or the feed closes.
func (w *Worker) Run(ctx context.Context, feed <-chan *model.OrderEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			if err := w.handleEvent(ctx, ev); err != nil {
				w.log.Error(ctx, "persist order event failed",
					zap.String("event_id", ev.EventID), zap.Error(err))
			}
		}
	}
}

func (w *Worker) handleEvent(ctx context.Context, ev *model.OrderEvent) error {
	_, err := w.orderEvent.Create(ctx, ev)
	return err
}
