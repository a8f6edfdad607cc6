package ledger

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a ledger shared across processes, claiming keys with SETNX.
// Entries expire so the key space stays bounded; expiry is safe because
// durable store state backs every guard the ledger fronts.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, prefix: "carebridge:ledger:", ttl: ttl}
}

func (l *Redis) Seen(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *Redis) MarkSeen(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+key, 1, l.ttl).Result()
}

func (l *Redis) Forget(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
