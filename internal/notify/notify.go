// Package notify delivers patient notifications produced by the queue engine.
// Every driver satisfies queue.Notifier; delivery is at-most-once from the
// engine's point of view, retries belong to the transport.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hospital-queue/internal/models"

	"github.com/redis/go-redis/v9"
)

type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// Message is the wire form shared by every driver.
type Message struct {
	UserID  string                   `json:"user_id"`
	Event   models.NotificationEvent `json:"event"`
	Payload map[string]any           `json:"payload"`
	SentAt  time.Time                `json:"sent_at"`
}

func newMessage(n models.Notification) Message {
	return Message{UserID: n.UserID, Event: n.Event, Payload: n.Payload, SentAt: time.Now().UTC()}
}

type Options struct {
	Driver string

	Redis         redis.UniversalClient
	ChannelPrefix string

	AMQPURL      string
	AMQPExchange string

	WebhookURL     string
	WebhookTimeout time.Duration
	WebhookRetries int
}

// New builds the driver named by opts.Driver. The returned close func
// releases any connection the driver opened.
func New(opts Options) (Notifier, func() error, error) {
	noClose := func() error { return nil }

	switch strings.ToLower(opts.Driver) {
	case "", "log":
		return NewLogNotifier(), noClose, nil
	case "redis":
		if opts.Redis == nil {
			return nil, nil, fmt.Errorf("notify: redis driver needs a redis client")
		}
		return NewRedisNotifier(opts.Redis, opts.ChannelPrefix), noClose, nil
	case "amqp":
		p, err := DialAMQP(opts.AMQPURL, opts.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	case "webhook":
		if opts.WebhookURL == "" {
			return nil, nil, fmt.Errorf("notify: webhook driver needs NOTIFY_WEBHOOK_URL")
		}
		return NewWebhookNotifier(opts.WebhookURL, opts.WebhookTimeout, opts.WebhookRetries), noClose, nil
	default:
		return nil, nil, fmt.Errorf("notify: unknown driver %q", opts.Driver)
	}
}
