package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/models"
	"hospital-queue/internal/store"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// mutation describes one conditional-write cycle against a single queue.
type mutation struct {
	op      string
	key     models.QueueKey
	create  bool
	actor   string
	idemKey string
	// args fingerprints the request; a key replayed with other args is rejected.
	args string
}

// idempotencyRecord is what an idempotency key stores: the request
// fingerprint next to the result that was returned for it.
type idempotencyRecord struct {
	Args   string          `json:"args"`
	Result json.RawMessage `json:"result"`
}

// idempotencyKey scopes a caller key to the operation, queue and actor.
func (m mutation) idempotencyKey() string {
	if m.idemKey == "" {
		return ""
	}
	return m.op + ":" + m.key.ID() + ":" + m.actor + ":" + m.idemKey
}

type auditEntry struct {
	staffID string
	action  models.ControlAction
	details map[string]any
}

// txn is the working copy of one attempt. It is discarded on conflict.
type txn struct {
	now     time.Time
	queue   *models.Queue
	tokens  map[string]*models.Token
	before  map[string]models.TokenStatus
	touched map[string]*models.Token
	order   []string

	created string
	event   models.NotificationEvent
	audit   *auditEntry

	// noop marks a mutation that changes nothing; it is not committed.
	noop bool
}

func (tx *txn) touch(t *models.Token) {
	if _, ok := tx.touched[t.ID]; !ok {
		tx.order = append(tx.order, t.ID)
	}
	t.UpdatedAt = tx.now
	tx.touched[t.ID] = t
}

// dequeue moves a queued token into a terminal status.
func (tx *txn) dequeue(t *models.Token, status models.TokenStatus) {
	tx.queue.Remove(t.ID)
	delete(tx.tokens, t.ID)
	t.Status = status
	t.QueuePosition = 0
	t.EstimatedWaitTimeMinutes = 0
	tx.touch(t)
}

func (tx *txn) changedTokens() []*models.Token {
	out := make([]*models.Token, 0, len(tx.order))
	for _, id := range tx.order {
		out = append(out, tx.touched[id])
	}
	return out
}

func (e *Engine) begin(ctx context.Context, m mutation) (*txn, error) {
	now := e.clock.Now()

	q, err := e.store.GetQueue(ctx, m.key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if !m.create {
			return nil, apperror.NewNotFound("queue %s not found", m.key)
		}
		q = &models.Queue{
			ID:                        m.key.ID(),
			HospitalID:                m.key.HospitalID,
			Department:                m.key.Department,
			Date:                      m.key.Date,
			Status:                    models.QueueActive,
			AverageServiceTimeMinutes: e.cfg.DefaultServiceMinutes,
			TokenSequence:             []string{},
			CreatedAt:                 now,
			UpdatedAt:                 now,
		}
	case err != nil:
		return nil, apperror.NewDependencyFailure("read queue", err)
	}

	tokens, err := e.store.GetTokens(ctx, q.TokenSequence)
	if err != nil {
		return nil, apperror.NewDependencyFailure("read queued tokens", err)
	}

	before := make(map[string]models.TokenStatus, len(q.TokenSequence))
	for _, id := range q.TokenSequence {
		t, ok := tokens[id]
		if !ok {
			return nil, apperror.NewDependencyFailure(fmt.Sprintf("queue %s references missing token %s", q.ID, id), nil)
		}
		before[id] = t.Status
	}

	return &txn{
		now:     now,
		queue:   q,
		tokens:  tokens,
		before:  before,
		touched: make(map[string]*models.Token),
	}, nil
}

func (e *Engine) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.BackoffBase
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.cfg.MaxAttempts-1)), ctx)
}

// run executes apply inside the optimistic read-compute-write loop.
// result is evaluated after recomputation, so it sees final positions.
// Side effects (notifications, audit, live updates) happen only after a
// successful commit and never change the outcome.
func run[T any](ctx context.Context, e *Engine, m mutation, apply func(ctx context.Context, tx *txn) error, result func(tx *txn) T) (T, error) {
	var zero T

	ctx, span := e.tracer.Start(ctx, "queue."+m.op, trace.WithAttributes(
		attribute.String("queue.id", m.key.ID()),
		attribute.String("queue.op", m.op),
	))
	defer span.End()

	logger := log.Ctx(ctx).With().Str("op", m.op).Str("queue_id", m.key.ID()).Logger()

	idemKey := m.idempotencyKey()

	var (
		out       T
		committed *txn
		attempts  int
	)

	operation := func() error {
		attempts++
		committed = nil

		if idemKey != "" {
			raw, err := e.store.GetIdempotent(ctx, idemKey)
			switch {
			case err == nil:
				var rec idempotencyRecord
				if err := json.Unmarshal(raw, &rec); err != nil {
					return backoff.Permanent(apperror.NewDependencyFailure("decode idempotency record", err))
				}
				if rec.Args != m.args {
					return backoff.Permanent(apperror.NewValidation("idempotency key %q was already used for a different %s request", m.idemKey, m.op))
				}
				if err := json.Unmarshal(rec.Result, &out); err != nil {
					return backoff.Permanent(apperror.NewDependencyFailure("decode idempotent result", err))
				}
				logger.Debug().Str("idempotency_key", m.idemKey).Msg("replayed idempotent mutation")
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return backoff.Permanent(apperror.NewDependencyFailure("read idempotency record", err))
			}
		}

		tx, err := e.begin(ctx, m)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := apply(ctx, tx); err != nil {
			return backoff.Permanent(err)
		}
		if tx.noop {
			out = result(tx)
			return nil
		}

		for _, t := range Recompute(tx.queue, tx.tokens) {
			tx.touch(t)
		}
		tx.queue.UpdatedAt = tx.now

		// The result carries the version this commit stores; Commit expects
		// the version that was read.
		read := tx.queue.Version
		tx.queue.Version = read + 1
		res := result(tx)
		tx.queue.Version = read

		c := store.Commit{Queue: tx.queue, Tokens: tx.changedTokens()}
		if idemKey != "" {
			body, err := json.Marshal(res)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("encode idempotent result: %w", err))
			}
			raw, err := json.Marshal(idempotencyRecord{Args: m.args, Result: body})
			if err != nil {
				return backoff.Permanent(fmt.Errorf("encode idempotency record: %w", err))
			}
			c.Idempotency = &store.IdempotencyRecord{Key: idemKey, Result: raw, TTL: e.cfg.IdempotencyTTL}
		}

		err = e.store.Commit(ctx, c)
		if errors.Is(err, store.ErrVersionConflict) {
			logger.Debug().Int("attempt", attempts).Msg("version conflict, retrying")
			return err
		}
		if err != nil {
			return backoff.Permanent(apperror.NewDependencyFailure("commit queue", err))
		}

		out = res
		committed = tx
		return nil
	}

	if err := backoff.Retry(operation, e.newBackOff(ctx)); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			err = apperror.NewConflict(fmt.Sprintf("queue %s is busy after %d attempts, retry later", m.key, attempts), err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	span.SetAttributes(attribute.Int("queue.attempts", attempts))
	if committed != nil {
		e.afterCommit(context.WithoutCancel(ctx), committed)
	}
	return out, nil
}

func (e *Engine) afterCommit(ctx context.Context, tx *txn) {
	logger := log.Ctx(ctx).With().Str("queue_id", tx.queue.ID).Logger()

	notifications := DecideNotifications(Change{
		Before:         tx.before,
		Queue:          tx.queue,
		Tokens:         tx.tokens,
		QueueEvent:     tx.event,
		CreatedTokenID: tx.created,
	})
	for _, n := range notifications {
		if err := e.notifier.Send(ctx, n); err != nil {
			logger.Warn().Err(err).
				Str("user_id", n.UserID).
				Str("event", string(n.Event)).
				Msg("notification dispatch failed")
		}
	}

	if tx.audit != nil {
		e.audit.Record(ctx, tx.queue.ID, tx.audit.staffID, tx.audit.action, tx.audit.details)
	}

	if err := e.updates.PublishQueueUpdate(ctx, BuildStatusView(tx.queue, tx.tokens)); err != nil {
		logger.Warn().Err(err).Msg("queue update publish failed")
	}
}
