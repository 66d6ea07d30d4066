package store

import (
	"context"
	"testing"
	"time"

	"hospital-queue/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisStore(rdb, "test:")
}

func newQueue() *models.Queue {
	key := models.QueueKey{HospitalID: "rs-01", Department: "gigi", Date: "2026-10-19"}
	return &models.Queue{
		ID:                        key.ID(),
		HospitalID:                key.HospitalID,
		Department:                key.Department,
		Date:                      key.Date,
		Status:                    models.QueueActive,
		AverageServiceTimeMinutes: 10,
	}
}

func TestRedisStore_GetQueue_NotFound(t *testing.T) {
	_, s := setupTestRedis(t)

	_, err := s.GetQueue(context.Background(), models.QueueKey{HospitalID: "x", Department: "y", Date: "2026-10-19"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Commit_CreatesAndVersions(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	q := newQueue()
	q.TokenCounter = 1
	q.TokenSequence = []string{"tok-1"}
	tok := &models.Token{ID: "tok-1", UserID: "u-1", QueueID: q.ID, TokenNumber: 1, Status: models.TokenReady, QueuePosition: 1}

	require.NoError(t, s.Commit(ctx, Commit{Queue: q, Tokens: []*models.Token{tok}}))
	assert.Equal(t, int64(1), q.Version)

	stored, err := s.GetQueue(ctx, q.Key())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, []string{"tok-1"}, stored.TokenSequence)

	gotTok, err := s.GetToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, models.TokenReady, gotTok.Status)

	stored.DelayMinutes = 5
	require.NoError(t, s.Commit(ctx, Commit{Queue: stored}))
	assert.Equal(t, int64(2), stored.Version)
}

func TestRedisStore_Commit_RejectsStaleVersion(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, Commit{Queue: newQueue()}))

	a, err := s.GetQueue(ctx, newQueue().Key())
	require.NoError(t, err)
	b, err := s.GetQueue(ctx, newQueue().Key())
	require.NoError(t, err)

	a.DelayMinutes = 10
	require.NoError(t, s.Commit(ctx, Commit{Queue: a}))

	b.DelayMinutes = 20
	b.TokenSequence = []string{"tok-x"}
	err = s.Commit(ctx, Commit{Queue: b, Tokens: []*models.Token{{ID: "tok-x"}}})
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(1), b.Version, "version restored after conflict")

	stored, err := s.GetQueue(ctx, a.Key())
	require.NoError(t, err)
	assert.Equal(t, 10, stored.DelayMinutes)

	_, err = s.GetToken(ctx, "tok-x")
	assert.ErrorIs(t, err, ErrNotFound, "rejected commit writes nothing")
}

func TestRedisStore_Commit_CreateRaceOnlyOneWins(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, Commit{Queue: newQueue()}))
	assert.ErrorIs(t, s.Commit(ctx, Commit{Queue: newQueue()}), ErrVersionConflict)
}

func TestRedisStore_Idempotency(t *testing.T) {
	mr, s := setupTestRedis(t)
	ctx := context.Background()

	_, err := s.GetIdempotent(ctx, "create:u-1:k1")
	assert.ErrorIs(t, err, ErrNotFound)

	rec := &IdempotencyRecord{Key: "create:u-1:k1", Result: []byte(`{"id":"tok-1"}`), TTL: time.Hour}
	require.NoError(t, s.Commit(ctx, Commit{Queue: newQueue(), Idempotency: rec}))

	got, err := s.GetIdempotent(ctx, "create:u-1:k1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"tok-1"}`, string(got))

	mr.FastForward(2 * time.Hour)
	_, err = s.GetIdempotent(ctx, "create:u-1:k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_GetTokens_SkipsMissing(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	q := newQueue()
	toks := []*models.Token{{ID: "a", TokenNumber: 1}, {ID: "b", TokenNumber: 2}}
	require.NoError(t, s.Commit(ctx, Commit{Queue: q, Tokens: toks}))

	got, err := s.GetTokens(ctx, []string{"a", "missing", "b"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, int64(2), got["b"].TokenNumber)
}

func TestRedisStore_ListQueues(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	gigi := newQueue()
	umum := newQueue()
	umum.Department = "umum"
	umum.ID = umum.Key().ID()
	other := newQueue()
	other.Date = "2026-10-20"
	other.ID = other.Key().ID()

	for _, q := range []*models.Queue{gigi, umum, other} {
		require.NoError(t, s.Commit(ctx, Commit{Queue: q}))
	}

	queues, err := s.ListQueues(ctx, "rs-01", "2026-10-19")
	require.NoError(t, err)
	require.Len(t, queues, 2)
	assert.Equal(t, "gigi", queues[0].Department)
	assert.Equal(t, "umum", queues[1].Department)
}
