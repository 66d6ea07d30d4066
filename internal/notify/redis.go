package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"hospital-queue/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultChannelPrefix = "notify:user:"

// RedisNotifier publishes each notification on a per-user channel that
// push gateways subscribe to.
type RedisNotifier struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisNotifier(rdb redis.UniversalClient, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &RedisNotifier{rdb: rdb, prefix: prefix}
}

func (r *RedisNotifier) Channel(userID string) string {
	return r.prefix + userID
}

func (r *RedisNotifier) Send(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(newMessage(n))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := r.rdb.Publish(ctx, r.Channel(n.UserID), body).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
