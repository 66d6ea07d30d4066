package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"hospital-queue/internal/models"

	"github.com/redis/go-redis/v9"
)

// commitScript performs the version-checked write of a queue together with
// every record that must change with it.
//
// KEYS[1] queue hash, KEYS[2] per-hospital/date index, KEYS[3..] records
// ARGV[1] expected version, ARGV[2] queue blob, ARGV[3] queue id,
// then (value, ttl_ms) pairs for each record key.
var commitScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'version')
if not current then current = '0' end
if current ~= ARGV[1] then return 0 end
local nextVersion = tonumber(ARGV[1]) + 1
redis.call('HSET', KEYS[1], 'version', tostring(nextVersion), 'data', ARGV[2])
redis.call('SADD', KEYS[2], ARGV[3])
for i = 3, #KEYS do
	local j = i - 2
	local value = ARGV[2 + 2 * j]
	local ttl = tonumber(ARGV[3 + 2 * j])
	if ttl > 0 then
		redis.call('SET', KEYS[i], value, 'PX', ttl)
	else
		redis.call('SET', KEYS[i], value)
	end
end
return nextVersion
`)

// RedisStore keeps each queue as a hash {version, data} and each token as a
// JSON string keyed by token id.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) queueKey(id string) string {
	return s.prefix + "queue:" + id
}

func (s *RedisStore) indexKey(hospitalID, date string) string {
	return fmt.Sprintf("%squeues:%s:%s", s.prefix, hospitalID, date)
}

func (s *RedisStore) tokenKey(id string) string {
	return s.prefix + "token:" + id
}

func (s *RedisStore) idemKey(key string) string {
	return s.prefix + "idem:" + key
}

func (s *RedisStore) GetQueue(ctx context.Context, key models.QueueKey) (*models.Queue, error) {
	data, err := s.rdb.HGet(ctx, s.queueKey(key.ID()), "data").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get queue %s: %w", key, err)
	}

	var q models.Queue
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("decode queue %s: %w", key, err)
	}
	return &q, nil
}

func (s *RedisStore) GetToken(ctx context.Context, tokenID string) (*models.Token, error) {
	data, err := s.rdb.Get(ctx, s.tokenKey(tokenID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get token %s: %w", tokenID, err)
	}

	var t models.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", tokenID, err)
	}
	return &t, nil
}

// GetTokens returns the tokens that exist; missing ids are simply absent from the map.
func (s *RedisStore) GetTokens(ctx context.Context, tokenIDs []string) (map[string]*models.Token, error) {
	out := make(map[string]*models.Token, len(tokenIDs))
	if len(tokenIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(tokenIDs))
	for i, id := range tokenIDs {
		keys[i] = s.tokenKey(id)
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get tokens: %w", err)
	}

	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var t models.Token
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode token %s: %w", tokenIDs[i], err)
		}
		out[t.ID] = &t
	}
	return out, nil
}

func (s *RedisStore) GetIdempotent(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.idemKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return data, nil
}

func (s *RedisStore) ListQueues(ctx context.Context, hospitalID, date string) ([]*models.Queue, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey(hospitalID, date)).Result()
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	sort.Strings(ids)

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, s.queueKey(id), "data")
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("list queues: %w", err)
	}

	queues := make([]*models.Queue, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list queues: %w", err)
		}
		var q models.Queue
		if err := json.Unmarshal(data, &q); err != nil {
			return nil, fmt.Errorf("decode queue %s: %w", ids[i], err)
		}
		queues = append(queues, &q)
	}
	return queues, nil
}

func (s *RedisStore) Commit(ctx context.Context, c Commit) error {
	if c.Queue == nil {
		return errors.New("commit without queue")
	}

	expected := c.Queue.Version
	c.Queue.Version = expected + 1
	blob, err := json.Marshal(c.Queue)
	if err != nil {
		c.Queue.Version = expected
		return fmt.Errorf("encode queue %s: %w", c.Queue.ID, err)
	}

	keys := []string{s.queueKey(c.Queue.ID), s.indexKey(c.Queue.HospitalID, c.Queue.Date)}
	args := []any{strconv.FormatInt(expected, 10), blob, c.Queue.ID}

	for _, t := range c.Tokens {
		data, err := json.Marshal(t)
		if err != nil {
			c.Queue.Version = expected
			return fmt.Errorf("encode token %s: %w", t.ID, err)
		}
		keys = append(keys, s.tokenKey(t.ID))
		args = append(args, data, 0)
	}
	if c.Idempotency != nil {
		keys = append(keys, s.idemKey(c.Idempotency.Key))
		args = append(args, c.Idempotency.Result, c.Idempotency.TTL.Milliseconds())
	}

	res, err := commitScript.Run(ctx, s.rdb, keys, args...).Int64()
	if err != nil {
		c.Queue.Version = expected
		return fmt.Errorf("commit queue %s: %w", c.Queue.ID, err)
	}
	if res == 0 {
		c.Queue.Version = expected
		return ErrVersionConflict
	}
	return nil
}
