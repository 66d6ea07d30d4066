package notify

import (
	"context"
	"fmt"
	"time"

	"hospital-queue/internal/models"

	"github.com/go-resty/resty/v2"
)

// WebhookNotifier POSTs each notification as JSON to an external push service.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

func NewWebhookNotifier(url string, timeout time.Duration, retries int) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WebhookNotifier{client: client, url: url}
}

func (w *WebhookNotifier) Send(ctx context.Context, n models.Notification) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(newMessage(n)).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification webhook returned %d", resp.StatusCode())
	}
	return nil
}
