package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-queue/internal/models"

	"github.com/alicebob/miniredis/v2"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() models.Notification {
	return models.Notification{
		UserID: "u-7",
		Event:  models.EventYourTurn,
		Payload: map[string]any{
			"queue_id":       "rs-01:gigi:2026-10-19",
			"token_number":   4,
			"queue_position": 1,
		},
	}
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisNotifier_PublishesOnUserChannel(t *testing.T) {
	rdb := setupTestRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "notify:user:u-7")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(rdb, "")
	require.NoError(t, n.Send(ctx, sample()))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "u-7", got.UserID)
		assert.Equal(t, models.EventYourTurn, got.Event)
		assert.Equal(t, "rs-01:gigi:2026-10-19", got.Payload["queue_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(srv.Close)

	n := NewWebhookNotifier(srv.URL, time.Second, 0)
	require.NoError(t, n.Send(context.Background(), sample()))

	var got Message
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "u-7", got.UserID)
	assert.Equal(t, models.EventYourTurn, got.Event)
}

func TestWebhookNotifier_ClientErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	n := NewWebhookNotifier(srv.URL, time.Second, 2)
	err := n.Send(context.Background(), sample())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return nil
}

func (f *fakeChannel) Close() error { return nil }

func TestAMQPNotifier_RoutesByEvent(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPNotifier{ch: ch, exchange: "hospital.queue"}

	require.NoError(t, p.Send(context.Background(), sample()))
	assert.Equal(t, "hospital.queue", ch.exchange)
	assert.Equal(t, "queue.your_turn", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, "u-7", ch.msg.Headers["user_id"])

	var got Message
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, models.EventYourTurn, got.Event)
	assert.NoError(t, p.Close())
}

func TestLogNotifier_WritesToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	require.NoError(t, NewLogNotifier().Send(ctx, sample()))
	assert.Contains(t, buf.String(), `"event":"your_turn"`)
	assert.Contains(t, buf.String(), `"user_id":"u-7"`)
}

func TestNew_SelectsDriver(t *testing.T) {
	rdb := setupTestRedis(t)

	n, closeFn, err := New(Options{Driver: "redis", Redis: rdb})
	require.NoError(t, err)
	assert.IsType(t, &RedisNotifier{}, n)
	assert.NoError(t, closeFn())

	n, _, err = New(Options{})
	require.NoError(t, err)
	assert.IsType(t, &LogNotifier{}, n)

	n, _, err = New(Options{Driver: "webhook", WebhookURL: "http://localhost:1/push"})
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)

	_, _, err = New(Options{Driver: "webhook"})
	assert.Error(t, err)

	_, _, err = New(Options{Driver: "redis"})
	assert.Error(t, err)

	_, _, err = New(Options{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}
