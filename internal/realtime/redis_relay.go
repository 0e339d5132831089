package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/guestvoice/guestvoice-backend/internal/logger"
)

// DefaultChannel is the pub/sub channel shared by all instances
const DefaultChannel = "guestvoice:events"

// RedisRelay publishes events to Redis and feeds subscribed events back into the hub
type RedisRelay struct {
	client  *redis.Client
	channel string
}

// NewRedisRelay creates a relay on channel
func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, payload []byte) error {
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Run subscribes and delivers every message to hub until ctx is cancelled.
// ready is closed once the subscription is confirmed.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub, ready chan<- struct{}) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	logger.Info("Realtime relay subscribed", zap.String("channel", r.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			hub.Deliver([]byte(msg.Payload))
		}
	}
}
