package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client wraps one display connection. Writes are serialised so the hub's
// fan-out and the handler's pings never interleave frames.
type Client struct {
	ID      string
	QueueID string

	conn     Conn
	writeMux sync.Mutex
	closed   bool
}

func NewClient(id, queueID string, conn Conn) *Client {
	return &Client{ID: id, QueueID: queueID, conn: conn}
}

func (c *Client) Write(messageType int, data []byte) error {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if c.closed {
		return fmt.Errorf("client %s closed", c.ID)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) close() {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

// Hub fans queue snapshots from Redis out to the websocket clients watching
// each queue.
type Hub struct {
	rdb    redis.UniversalClient
	prefix string

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}

	ready chan struct{}
}

func NewHub(rdb redis.UniversalClient, prefix string) *Hub {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &Hub{
		rdb:     rdb,
		prefix:  prefix,
		clients: make(map[string]map[*Client]struct{}),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the pattern subscription is live.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.QueueID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.QueueID] = set
	}
	set[c] = struct{}{}
	total := len(set)
	h.mu.Unlock()

	log.Debug().Str("client", c.ID).Str("queue_id", c.QueueID).Int("watchers", total).Msg("display registered")
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.QueueID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.QueueID)
		}
	}
	h.mu.Unlock()

	c.close()
	log.Debug().Str("client", c.ID).Str("queue_id", c.QueueID).Msg("display unregistered")
}

// Watchers reports how many clients watch queueID.
func (h *Hub) Watchers(queueID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[queueID])
}

// Broadcast writes msg to every client of queueID and drops clients whose
// write fails.
func (h *Hub) Broadcast(queueID string, msg []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[queueID]))
	for c := range h.clients[queueID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Write(websocket.TextMessage, msg); err != nil {
			log.Warn().Err(err).Str("client", c.ID).Msg("display write failed, dropping")
			h.Unregister(c)
		}
	}
}

// Run subscribes to every queue update channel and forwards messages until
// ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	sub := h.rdb.PSubscribe(ctx, h.prefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe queue updates: %w", err)
	}
	close(h.ready)
	log.Info().Str("pattern", h.prefix+"*").Msg("realtime hub listening")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case m, ok := <-msgs:
			if !ok {
				h.closeAll()
				return nil
			}
			h.Broadcast(strings.TrimPrefix(m.Channel, h.prefix), []byte(m.Payload))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			c.close()
		}
	}
}
