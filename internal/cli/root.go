package cli

import (
	"context"
	"fmt"

	"hospital-queue/internal/bootstrap"
	"hospital-queue/internal/config"
	"hospital-queue/internal/models"
	"hospital-queue/internal/queue"

	"github.com/spf13/cobra"
)

// EngineFactory opens an engine and returns a func releasing its resources.
type EngineFactory func(ctx context.Context) (*queue.Engine, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format         string // "json" | "text"
	HospitalID     string
	Department     string
	Date           string
	StaffID        string
	IdempotencyKey string

	newEngine EngineFactory
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates queuectl wired to the environment's Redis.
func NewRootCommand() *cobra.Command {
	return newRootCommand(envEngine)
}

func newRootCommand(factory EngineFactory) *cobra.Command {
	opts := &RootOptions{newEngine: factory}

	cmd := &cobra.Command{
		Use:   "queuectl",
		Short: "Operate hospital department queues",
		Long: `queuectl inspects and controls hospital department queues directly
against the queue store, for operators working outside the staff UI.
Every control action is audited under --staff.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.HospitalID, "hospital", "", "hospital id")
	cmd.PersistentFlags().StringVar(&opts.Department, "department", "", "department")
	cmd.PersistentFlags().StringVar(&opts.Date, "date", "", "service date YYYY-MM-DD (default today)")
	cmd.PersistentFlags().StringVar(&opts.StaffID, "staff", "operator", "staff id recorded in the audit log")
	cmd.PersistentFlags().StringVar(&opts.IdempotencyKey, "idempotency-key", "", "make a control action safe to repeat")

	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewPauseCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewDelayCommand(opts))
	cmd.AddCommand(NewServiceTimeCommand(opts))
	cmd.AddCommand(NewAdvanceCommand(opts))
	cmd.AddCommand(NewNoShowCommand(opts))
	cmd.AddCommand(NewMintJWTCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envEngine(ctx context.Context) (*queue.Engine, func(), error) {
	config.LoadEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	rdb, err := config.NewRedis(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	closers = append(closers, func() { _ = rdb.Close() })

	db, err := dbFor(ctx, cfg)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
	}

	svc, err := bootstrap.Build(ctx, cfg, rdb, db)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	return svc.Engine, func() {
		svc.Close()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// withEngine resolves the queue key and runs fn against a fresh engine.
func (o *RootOptions) withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *queue.Engine, key models.QueueKey) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if o.HospitalID == "" || o.Department == "" {
		return fmt.Errorf("--hospital and --department are required")
	}

	engine, closeFn, err := o.newEngine(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	key := models.QueueKey{HospitalID: o.HospitalID, Department: o.Department, Date: o.Date}
	if key.Date == "" {
		key.Date = engine.ServiceDate()
	}
	return fn(ctx, engine, key)
}

func (o *RootOptions) control(key models.QueueKey) queue.ControlInput {
	return queue.ControlInput{Key: key, StaffID: o.StaffID, IdempotencyKey: o.IdempotencyKey}
}
