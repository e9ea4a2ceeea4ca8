package publish

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/peertrade/tradecore/pkg/engine/model"
)

type orderMessage struct {
	Trader    string `json:"trader"`
	Currency  string `json:"currency"`
	Side      string `json:"side"`
	Status    string `json:"status"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// RedisPublisher fans order transitions out on a redis channel. The p2p
// transport proper is out of scope; this is the hand-off point to it.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
	}
}

func (p *RedisPublisher) PublishOrder(ctx context.Context, o model.Order) error {
	msg := orderMessage{
		Trader:    o.Trader,
		Currency:  string(o.Currency),
		Side:      string(o.Side),
		Status:    string(o.Status),
		Quantity:  o.Quantity.String(),
		Price:     o.Price.String(),
		Timestamp: o.Timestamp.UnixNano(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.client.Publish(ctx, p.channel, b).Err()
}
