package queue

import (
	"context"
	"strconv"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/models"

	"github.com/rs/zerolog/log"
)

// ControlInput identifies the queue, the acting staff member and the
// caller's idempotency key for a staff control operation.
type ControlInput struct {
	Key            models.QueueKey
	StaffID        string
	IdempotencyKey string
}

func (in ControlInput) mutation(op, args string) mutation {
	return mutation{op: op, key: in.Key, actor: in.StaffID, idemKey: in.IdempotencyKey, args: args}
}

func statusResult(tx *txn) *models.QueueStatusView {
	return BuildStatusView(tx.queue, tx.tokens)
}

// PauseQueue stops automatic advancement. Bookings are still accepted.
// Pausing a paused queue changes nothing and notifies nobody.
func (e *Engine) PauseQueue(ctx context.Context, in ControlInput) (*models.QueueStatusView, error) {
	return e.setStatus(ctx, in, models.QueuePaused, models.ActionPause, models.EventQueuePaused)
}

// ResumeQueue restores automatic advancement without touching the sequence.
func (e *Engine) ResumeQueue(ctx context.Context, in ControlInput) (*models.QueueStatusView, error) {
	return e.setStatus(ctx, in, models.QueueActive, models.ActionResume, models.EventQueueResumed)
}

func (e *Engine) setStatus(ctx context.Context, in ControlInput, status models.QueueStatus, action models.ControlAction, event models.NotificationEvent) (*models.QueueStatusView, error) {
	return run(ctx, e, in.mutation(string(action), ""),
		func(_ context.Context, tx *txn) error {
			if tx.queue.Status == status {
				tx.noop = true
				return nil
			}
			previous := tx.queue.Status
			tx.queue.Status = status
			tx.event = event
			tx.audit = &auditEntry{
				staffID: in.StaffID,
				action:  action,
				details: map[string]any{"previous_status": string(previous), "queue_length": len(tx.queue.TokenSequence)},
			}
			return nil
		},
		statusResult,
	)
}

// AddDelay adds minutes to the queue delay and immediately recomputes every
// queued token's wait time.
func (e *Engine) AddDelay(ctx context.Context, in ControlInput, minutes int) (*models.QueueStatusView, error) {
	if minutes <= 0 || minutes > e.cfg.MaxDelayMinutes {
		return nil, apperror.NewValidation("delay must be between 1 and %d minutes", e.cfg.MaxDelayMinutes)
	}

	return run(ctx, e, in.mutation(string(models.ActionDelay), strconv.Itoa(minutes)),
		func(_ context.Context, tx *txn) error {
			tx.queue.DelayMinutes += minutes
			tx.event = models.EventQueueDelayed
			tx.audit = &auditEntry{
				staffID: in.StaffID,
				action:  models.ActionDelay,
				details: map[string]any{"minutes": minutes, "total_delay_minutes": tx.queue.DelayMinutes},
			}
			return nil
		},
		statusResult,
	)
}

// UpdateServiceTime replaces the average service time used by the wait formula.
func (e *Engine) UpdateServiceTime(ctx context.Context, in ControlInput, minutes int) (*models.QueueStatusView, error) {
	if minutes <= 0 || minutes > e.cfg.MaxServiceMinutes {
		return nil, apperror.NewValidation("average service time must be between 1 and %d minutes", e.cfg.MaxServiceMinutes)
	}

	return run(ctx, e, in.mutation(string(models.ActionServiceTime), strconv.Itoa(minutes)),
		func(_ context.Context, tx *txn) error {
			previous := tx.queue.AverageServiceTimeMinutes
			if previous == minutes {
				tx.noop = true
				return nil
			}
			tx.queue.AverageServiceTimeMinutes = minutes
			tx.audit = &auditEntry{
				staffID: in.StaffID,
				action:  models.ActionServiceTime,
				details: map[string]any{"previous_minutes": previous, "minutes": minutes},
			}
			return nil
		},
		statusResult,
	)
}

// AdvanceQueue marks tokenID served and shifts everyone behind it forward.
// An empty tokenID serves the head of the queue. Serving out of order is
// allowed and recorded in the audit details.
func (e *Engine) AdvanceQueue(ctx context.Context, in ControlInput, tokenID string) (*models.Token, error) {
	return e.dequeueByStaff(ctx, in, tokenID, models.TokenServed, models.ActionAdvance)
}

// MarkNoShow removes a patient who did not turn up.
func (e *Engine) MarkNoShow(ctx context.Context, in ControlInput, tokenID string) (*models.Token, error) {
	return e.dequeueByStaff(ctx, in, tokenID, models.TokenNoShow, models.ActionNoShow)
}

func (e *Engine) dequeueByStaff(ctx context.Context, in ControlInput, tokenID string, status models.TokenStatus, action models.ControlAction) (*models.Token, error) {
	var target string

	return run(ctx, e, in.mutation(string(action), tokenID),
		func(ctx context.Context, tx *txn) error {
			target = tokenID
			if target == "" {
				if len(tx.queue.TokenSequence) == 0 {
					return apperror.NewValidation("queue %s is empty", tx.queue.ID)
				}
				target = tx.queue.TokenSequence[0]
			}

			t, ok := tx.tokens[target]
			if !ok {
				return e.notQueued(ctx, tx.queue, target)
			}

			position := tx.queue.PositionOf(target)
			outOfOrder := position != 1
			if outOfOrder {
				log.Ctx(ctx).Warn().
					Str("queue_id", tx.queue.ID).
					Str("token_id", target).
					Int("position", position).
					Str("action", string(action)).
					Msg("token dequeued out of order")
			}

			if status == models.TokenServed {
				now := tx.now
				t.ServedAt = &now
			}
			tx.dequeue(t, status)
			tx.audit = &auditEntry{
				staffID: in.StaffID,
				action:  action,
				details: map[string]any{
					"token_id":     target,
					"token_number": t.TokenNumber,
					"position":     position,
					"out_of_order": outOfOrder,
					"at":           tx.now,
				},
			}
			return nil
		},
		func(tx *txn) *models.Token {
			return tx.touched[target]
		},
	)
}
