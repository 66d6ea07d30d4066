package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"hospital-queue/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPNotifier publishes to a topic exchange with routing key queue.<event>.
type AMQPNotifier struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPNotifier, error) {
	if exchange == "" {
		exchange = "hospital.queue"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPNotifier{conn: conn, ch: ch, exchange: exchange}, nil
}

func RoutingKey(event models.NotificationEvent) string {
	return "queue." + string(event)
}

func (p *AMQPNotifier) Send(ctx context.Context, n models.Notification) error {
	b, err := json.Marshal(newMessage(n))
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(n.Event), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{"user_id": n.UserID},
		Body:         b,
	})
}

func (p *AMQPNotifier) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
