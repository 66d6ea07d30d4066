// Package bootstrap wires the queue engine to its collaborators from
// configuration. The server and queuectl share it.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"hospital-queue/internal/audit"
	"hospital-queue/internal/clock"
	"hospital-queue/internal/config"
	"hospital-queue/internal/notify"
	"hospital-queue/internal/queue"
	"hospital-queue/internal/realtime"
	"hospital-queue/internal/store"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Engine *queue.Engine
	Hub    *realtime.Hub
	// Logs is nil when audit entries only go to the log.
	Logs audit.Reader

	closers []func() error
}

// Build assembles the engine. db may be nil when AUDIT_DRIVER is log.
func Build(ctx context.Context, cfg config.App, rdb redis.UniversalClient, db *sql.DB) (*Services, error) {
	svc := &Services{}

	notifier, closeNotifier, err := notify.New(notify.Options{
		Driver:         cfg.NotifyDriver,
		Redis:          rdb,
		ChannelPrefix:  cfg.NotifyChannelPrefix,
		AMQPURL:        cfg.AMQPURL,
		AMQPExchange:   cfg.AMQPExchange,
		WebhookURL:     cfg.WebhookURL,
		WebhookTimeout: cfg.WebhookTimeout,
		WebhookRetries: cfg.WebhookRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("notifier: %w", err)
	}
	svc.closers = append(svc.closers, closeNotifier)

	var sink audit.Sink = audit.LogSink{}
	if db != nil {
		sqlSink, err := audit.NewSQLSink(db, cfg.AuditDriver)
		if err != nil {
			svc.Close()
			return nil, err
		}
		if cfg.AuditAutoMigrate {
			if err := sqlSink.EnsureSchema(ctx); err != nil {
				svc.Close()
				return nil, err
			}
		}
		sink = sqlSink
		svc.Logs = sqlSink
	}

	clk := clock.System{}
	ids := clock.UUIDGenerator{}

	svc.Engine = queue.New(queue.Deps{
		Store:    store.NewRedisStore(rdb, cfg.RedisKeyPrefix),
		Notifier: notifier,
		Audit:    audit.NewRecorder(sink, clk, ids),
		Updates:  realtime.NewPublisher(rdb, cfg.UpdatesChannelPrefix),
		Clock:    clk,
		IDs:      ids,
	}, config.QueueConfig(cfg))
	svc.Hub = realtime.NewHub(rdb, cfg.UpdatesChannelPrefix)

	log.Info().
		Str("notify_driver", cfg.NotifyDriver).
		Str("audit_driver", cfg.AuditDriver).
		Str("timezone", cfg.QueueTimezone).
		Msg("queue engine ready")
	return svc, nil
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
	s.closers = nil
}
