package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher fans event ids out over a Redis pub/sub channel. Dashboard
// processes subscribe and hydrate the full event themselves.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, eventID string) error {
	return p.rdb.Publish(ctx, p.channel, eventID).Err()
}
