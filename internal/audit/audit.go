// Package audit keeps the write-once trail of staff control actions.
package audit

import (
	"context"
	"time"

	"hospital-queue/internal/clock"
	"hospital-queue/internal/models"

	"github.com/rs/zerolog/log"
)

type Sink interface {
	Append(ctx context.Context, entry models.QueueControlLog) error
}

type Reader interface {
	ListByQueue(ctx context.Context, queueID string, limit int) ([]models.QueueControlLog, error)
}

// Recorder stamps entries with an id and time and hands them to a sink.
// A sink failure is logged and swallowed: the control action already
// committed and must not be reported as failed.
type Recorder struct {
	sink    Sink
	clock   clock.Clock
	ids     clock.IDGenerator
	timeout time.Duration
}

func NewRecorder(sink Sink, clk clock.Clock, ids clock.IDGenerator) *Recorder {
	if clk == nil {
		clk = clock.System{}
	}
	if ids == nil {
		ids = clock.UUIDGenerator{}
	}
	return &Recorder{sink: sink, clock: clk, ids: ids, timeout: 5 * time.Second}
}

func (r *Recorder) Record(ctx context.Context, queueID, staffID string, action models.ControlAction, details map[string]any) {
	entry := models.QueueControlLog{
		LogID:     r.ids.NewID(),
		QueueID:   queueID,
		StaffID:   staffID,
		Action:    action,
		Details:   details,
		Timestamp: r.clock.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.sink.Append(ctx, entry); err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("queue_id", queueID).
			Str("staff_id", staffID).
			Str("action", string(action)).
			Msg("audit append failed")
	}
}

// LogSink writes entries to the structured log only.
type LogSink struct{}

func (LogSink) Append(ctx context.Context, e models.QueueControlLog) error {
	log.Ctx(ctx).Info().
		Str("log_id", e.LogID).
		Str("queue_id", e.QueueID).
		Str("staff_id", e.StaffID).
		Str("action", string(e.Action)).
		Interface("details", e.Details).
		Time("timestamp", e.Timestamp).
		Msg("staff action")
	return nil
}
