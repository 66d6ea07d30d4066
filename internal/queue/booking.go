package queue

import (
	"context"
	"errors"
	"strings"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/helper"
	"hospital-queue/internal/models"
	"hospital-queue/internal/store"

	"github.com/rs/zerolog/log"
)

type CreateTokenInput struct {
	UserID         string
	HospitalID     string
	Department     string
	Date           string
	IdempotencyKey string
}

// CreateToken books the next sequential token in the queue for
// (hospital, department, date), creating the queue on first booking.
// A patient holding a non-terminal token in the same queue gets a
// DUPLICATE_BOOKING error carrying that token's id.
func (e *Engine) CreateToken(ctx context.Context, in CreateTokenInput) (*models.Token, error) {
	key := models.QueueKey{HospitalID: in.HospitalID, Department: in.Department, Date: in.Date}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, apperror.NewValidation("user_id is required")
	}
	if err := helper.ValidateQueueKey(key); err != nil {
		return nil, err
	}
	if err := helper.ValidateBookingDate(in.Date, e.clock.Now(), e.cfg.Location, e.cfg.BookingHorizonDays); err != nil {
		return nil, err
	}

	m := mutation{op: "create_token", key: key, create: true, actor: in.UserID, idemKey: in.IdempotencyKey}

	tok, err := run(ctx, e, m,
		func(_ context.Context, tx *txn) error {
			for _, id := range tx.queue.TokenSequence {
				if tx.tokens[id].UserID == in.UserID {
					return apperror.NewDuplicateBooking(id)
				}
			}

			tx.queue.TokenCounter++
			t := &models.Token{
				ID:          e.ids.NewID(),
				UserID:      in.UserID,
				QueueID:     tx.queue.ID,
				HospitalID:  key.HospitalID,
				Department:  key.Department,
				Date:        key.Date,
				TokenNumber: tx.queue.TokenCounter,
				Status:      models.TokenWaiting,
				BookedAt:    tx.now,
			}
			tx.queue.TokenSequence = append(tx.queue.TokenSequence, t.ID)
			tx.tokens[t.ID] = t
			tx.created = t.ID
			tx.touch(t)
			return nil
		},
		func(tx *txn) *models.Token {
			return tx.tokens[tx.created]
		},
	)
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("queue_id", tok.QueueID).
		Str("token_id", tok.ID).
		Int64("token_number", tok.TokenNumber).
		Int("position", tok.QueuePosition).
		Msg("token booked")
	return tok, nil
}

// CancelToken lets the owning patient give up a non-terminal token.
func (e *Engine) CancelToken(ctx context.Context, tokenID, userID, idemKey string) (*models.Token, error) {
	tok, err := e.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if tok.UserID != userID {
		return nil, apperror.NewNotFound("token %s not found", tokenID)
	}

	m := mutation{op: "cancel_token", key: tok.QueueKey(), actor: userID, idemKey: idemKey, args: tokenID}

	return run(ctx, e, m,
		func(ctx context.Context, tx *txn) error {
			t, ok := tx.tokens[tokenID]
			if !ok {
				return e.notQueued(ctx, tx.queue, tokenID)
			}
			now := tx.now
			t.CancelledAt = &now
			tx.dequeue(t, models.TokenCancelled)
			return nil
		},
		func(tx *txn) *models.Token {
			return tx.touched[tokenID]
		},
	)
}

// notQueued explains why tokenID is not a member of q's sequence.
func (e *Engine) notQueued(ctx context.Context, q *models.Queue, tokenID string) error {
	t, err := e.store.GetToken(ctx, tokenID)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NewNotFound("token %s not found", tokenID)
	}
	if err != nil {
		return apperror.NewDependencyFailure("read token", err)
	}
	if t.QueueID != q.ID {
		return apperror.NewInvalidTokenState(tokenID, "token %s does not belong to queue %s", tokenID, q.ID)
	}
	return apperror.NewInvalidTokenState(tokenID, "token %s is already %s", tokenID, t.Status)
}
