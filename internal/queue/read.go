package queue

import (
	"context"
	"errors"

	"hospital-queue/internal/apperror"
	"hospital-queue/internal/helper"
	"hospital-queue/internal/models"
	"hospital-queue/internal/store"
)

// Reads are lock-free snapshots of the latest committed state and may lag a
// concurrent writer by one commit.

func (e *Engine) GetToken(ctx context.Context, tokenID string) (*models.Token, error) {
	if tokenID == "" {
		return nil, apperror.NewValidation("token_id is required")
	}
	t, err := e.store.GetToken(ctx, tokenID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NewNotFound("token %s not found", tokenID)
	}
	if err != nil {
		return nil, apperror.NewDependencyFailure("read token", err)
	}
	return t, nil
}

// GetTokenForStaff returns a token to staff of the hospital it belongs to
// and records the read. Tokens of other hospitals are reported as missing.
func (e *Engine) GetTokenForStaff(ctx context.Context, tokenID, staffID, hospitalID string) (*models.Token, error) {
	t, err := e.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if hospitalID == "" || t.HospitalID != hospitalID {
		return nil, apperror.NewNotFound("token %s not found", tokenID)
	}

	e.audit.Record(ctx, t.QueueID, staffID, models.ActionViewToken, map[string]any{
		"token_id":     t.ID,
		"token_number": t.TokenNumber,
		"token_status": string(t.Status),
	})
	return t, nil
}

func (e *Engine) GetQueueStatus(ctx context.Context, key models.QueueKey) (*models.QueueStatusView, error) {
	if err := helper.ValidateQueueKey(key); err != nil {
		return nil, err
	}

	q, err := e.store.GetQueue(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NewNotFound("queue %s not found", key)
	}
	if err != nil {
		return nil, apperror.NewDependencyFailure("read queue", err)
	}

	tokens, err := e.store.GetTokens(ctx, q.TokenSequence)
	if err != nil {
		return nil, apperror.NewDependencyFailure("read queued tokens", err)
	}
	return BuildStatusView(q, tokens), nil
}

// ListQueues returns every queue a hospital has opened for date.
func (e *Engine) ListQueues(ctx context.Context, hospitalID, date string) ([]*models.QueueStatusView, error) {
	if err := helper.ValidateQueueKey(models.QueueKey{HospitalID: hospitalID, Department: "all", Date: date}); err != nil {
		return nil, err
	}

	queues, err := e.store.ListQueues(ctx, hospitalID, date)
	if err != nil {
		return nil, apperror.NewDependencyFailure("list queues", err)
	}

	views := make([]*models.QueueStatusView, 0, len(queues))
	for _, q := range queues {
		tokens, err := e.store.GetTokens(ctx, q.TokenSequence)
		if err != nil {
			return nil, apperror.NewDependencyFailure("read queued tokens", err)
		}
		views = append(views, BuildStatusView(q, tokens))
	}
	return views, nil
}

// ServiceDate is today's date in the hospital timezone.
func (e *Engine) ServiceDate() string {
	return helper.ServiceDate(e.clock.Now(), e.cfg.Location)
}
