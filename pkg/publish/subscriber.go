package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/peertrade/tradecore/pkg/engine/book"
	"github.com/peertrade/tradecore/pkg/engine/model"
	"github.com/peertrade/tradecore/pkg/logging"
)

// RedisSubscriber feeds peer order transitions from the redis channel into
// the local book copies. Messages carrying selfID are our own publishes and
// are dropped.
type RedisSubscriber struct {
	client  *redis.Client
	channel string
	selfID  string
	log     *logging.Logger
}

func NewRedisSubscriber(client *redis.Client, channel, selfID string, log *logging.Logger) *RedisSubscriber {
	return &RedisSubscriber{
		client:  client,
		channel: channel,
		selfID:  selfID,
		log:     log,
	}
}

// Run consumes the channel until the context ends, routing each decoded
// order through its book.
func (s *RedisSubscriber) Run(ctx context.Context, bids, asks *book.Book) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			o, err := s.decode(m.Payload)
			if err != nil {
				s.log.Warn(ctx, "drop malformed order message", zap.Error(err))
				continue
			}
			if o == nil {
				continue
			}
			b := bids
			if o.Side == model.Ask {
				b = asks
			}
			if err := b.ProcessIncoming(o); err != nil {
				s.log.Warn(ctx, "process incoming order failed",
					zap.String("order", o.Key().String()), zap.Error(err))
			}
		}
	}
}

func (s *RedisSubscriber) decode(payload string) (*model.Order, error) {
	var msg orderMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, err
	}
	if msg.Trader == s.selfID {
		return nil, nil
	}
	currency, err := model.CurrencyBySymbol(msg.Currency)
	if err != nil {
		return nil, err
	}
	quantity, err := decimal.NewFromString(msg.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return nil, err
	}
	o := &model.Order{
		Side:      model.Side(msg.Side),
		Trader:    msg.Trader,
		Currency:  currency,
		Quantity:  quantity,
		Price:     price,
		Timestamp: time.Unix(0, msg.Timestamp),
		Status:    model.Status(msg.Status),
	}
	if !o.Price.IsPositive() || (!o.IsEnd() && !o.Quantity.IsPositive()) {
		return nil, fmt.Errorf("order %s has quantity %s at price %s", o.Key().String(), o.Quantity, o.Price)
	}
	return o, nil
}
