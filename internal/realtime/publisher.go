package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"hospital-queue/internal/models"

	"github.com/redis/go-redis/v9"
)

const DefaultChannelPrefix = "queue:updates:"

// Publisher pushes committed queue snapshots onto Redis so every server
// instance's Hub can forward them to its own websocket clients.
type Publisher struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewPublisher(rdb redis.UniversalClient, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Publisher{rdb: rdb, prefix: prefix}
}

func (p *Publisher) PublishQueueUpdate(ctx context.Context, view *models.QueueStatusView) error {
	body, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode queue update: %w", err)
	}
	return p.rdb.Publish(ctx, p.prefix+view.QueueID, body).Err()
}
