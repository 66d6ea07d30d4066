package store

import (
	"context"
	"errors"
	"time"

	"hospital-queue/internal/models"
)

var (
	// ErrNotFound is returned when a queue, token or idempotency record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by Commit when the stored queue version
	// no longer matches the version the caller read.
	ErrVersionConflict = errors.New("queue version conflict")
)

// IdempotencyRecord stores the result of an applied mutation under its key.
type IdempotencyRecord struct {
	Key    string
	Result []byte
	TTL    time.Duration
}

// Commit is one all-or-nothing conditional write. Queue.Version must be the
// version that was read; on success it is advanced to the stored version.
type Commit struct {
	Queue       *models.Queue
	Tokens      []*models.Token
	Idempotency *IdempotencyRecord
}

// Store is the durable, versioned home of queues and tokens.
type Store interface {
	GetQueue(ctx context.Context, key models.QueueKey) (*models.Queue, error)
	GetToken(ctx context.Context, tokenID string) (*models.Token, error)
	GetTokens(ctx context.Context, tokenIDs []string) (map[string]*models.Token, error)
	GetIdempotent(ctx context.Context, key string) ([]byte, error)
	ListQueues(ctx context.Context, hospitalID, date string) ([]*models.Queue, error)
	Commit(ctx context.Context, c Commit) error
}
