package queue

import (
	"context"
	"time"

	"hospital-queue/internal/clock"
	"hospital-queue/internal/models"
	"hospital-queue/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Notifier delivers notification requests; delivery retry is its own concern.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

// Auditor records staff control actions. It must not fail the caller.
type Auditor interface {
	Record(ctx context.Context, queueID, staffID string, action models.ControlAction, details map[string]any)
}

// UpdatePublisher pushes fresh queue snapshots to live displays.
type UpdatePublisher interface {
	PublishQueueUpdate(ctx context.Context, view *models.QueueStatusView) error
}

type Config struct {
	MaxAttempts           int
	BackoffBase           time.Duration
	DefaultServiceMinutes int
	MaxDelayMinutes       int
	MaxServiceMinutes     int
	BookingHorizonDays    int
	IdempotencyTTL        time.Duration
	Location              *time.Location
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:           3,
		BackoffBase:           100 * time.Millisecond,
		DefaultServiceMinutes: 10,
		MaxDelayMinutes:       480,
		MaxServiceMinutes:     240,
		BookingHorizonDays:    7,
		IdempotencyTTL:        24 * time.Hour,
		Location:              time.UTC,
	}
}

type Deps struct {
	Store    store.Store
	Notifier Notifier
	Audit    Auditor
	Updates  UpdatePublisher
	Clock    clock.Clock
	IDs      clock.IDGenerator
}

// Engine is the token allocator and queue state machine. It holds no queue
// state of its own; every operation is a read-compute-conditional-write
// cycle against the store, so any number of engines may serve one store.
type Engine struct {
	store    store.Store
	notifier Notifier
	audit    Auditor
	updates  UpdatePublisher
	clock    clock.Clock
	ids      clock.IDGenerator
	cfg      Config
	tracer   trace.Tracer
}

func New(deps Deps, cfg Config) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.IDs == nil {
		deps.IDs = clock.UUIDGenerator{}
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Audit == nil {
		deps.Audit = nopAuditor{}
	}
	if deps.Updates == nil {
		deps.Updates = nopPublisher{}
	}

	return &Engine{
		store:    deps.Store,
		notifier: deps.Notifier,
		audit:    deps.Audit,
		updates:  deps.Updates,
		clock:    deps.Clock,
		ids:      deps.IDs,
		cfg:      cfg,
		tracer:   otel.Tracer("hospital-queue/queue"),
	}
}

type nopNotifier struct{}

func (nopNotifier) Send(context.Context, models.Notification) error { return nil }

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, string, string, models.ControlAction, map[string]any) {}

type nopPublisher struct{}

func (nopPublisher) PublishQueueUpdate(context.Context, *models.QueueStatusView) error { return nil }
