package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"hospital-queue/internal/models"
	"hospital-queue/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog/log"
)

var clientCounter uint64

// WebSocketUpgrade rejects plain HTTP requests on the websocket route.
func WebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// QueueWebSocket streams queue snapshots to a waiting-room display. The
// current state is sent on connect; later snapshots arrive through the hub.
func (h *Handler) QueueWebSocket(c *websocket.Conn) {
	id := atomic.AddUint64(&clientCounter, 1)
	clientID := fmt.Sprintf("display-%d", id)

	key := queueKeyFromConn(c)
	client := realtime.NewClient(clientID, key.ID(), c)
	logger := log.With().Str("client", clientID).Str("queue_id", key.ID()).Logger()

	h.Hub.Register(client)
	defer h.Hub.Unregister(client)

	view, err := h.Engine.GetQueueStatus(context.Background(), key)
	if err == nil {
		if msg, err := json.Marshal(view); err == nil {
			_ = client.Write(websocket.TextMessage, msg)
		}
	} else {
		logger.Debug().Err(err).Msg("no initial snapshot")
	}

	_ = c.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	done := make(chan struct{})
	defer close(done)

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := client.Write(websocket.PingMessage, nil); err != nil {
					logger.Debug().Err(err).Msg("ping failed")
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				logger.Warn().Err(err).Msg("display closed unexpectedly")
			}
			return
		}
	}
}

func queueKeyFromConn(c *websocket.Conn) models.QueueKey {
	return models.QueueKey{
		HospitalID: c.Params("hospitalId"),
		Department: c.Params("department"),
		Date:       c.Params("date"),
	}
}
