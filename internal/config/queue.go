package config

import (
	"hospital-queue/internal/helper"
	"hospital-queue/internal/queue"
)

// QueueConfig maps the QUEUE_* settings onto the engine configuration.
func QueueConfig(cfg App) queue.Config {
	qc := queue.DefaultConfig()
	qc.MaxAttempts = cfg.MaxAttempts
	qc.BackoffBase = cfg.BackoffBase
	qc.DefaultServiceMinutes = cfg.DefaultServiceMinutes
	qc.MaxDelayMinutes = cfg.MaxDelayMinutes
	qc.MaxServiceMinutes = cfg.MaxServiceMinutes
	qc.BookingHorizonDays = cfg.BookingHorizonDays
	qc.IdempotencyTTL = cfg.IdempotencyTTL
	qc.Location = helper.LoadLocation(cfg.QueueTimezone)
	return qc
}
