package notify

import (
	"context"

	"hospital-queue/internal/models"

	"github.com/rs/zerolog/log"
)

// LogNotifier writes notifications to the request logger. Used in
// development and when no push transport is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) Send(ctx context.Context, n models.Notification) error {
	log.Ctx(ctx).Info().
		Str("user_id", n.UserID).
		Str("event", string(n.Event)).
		Interface("payload", n.Payload).
		Msg("notify")
	return nil
}
