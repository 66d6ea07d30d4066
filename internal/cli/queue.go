package cli

import (
	"context"
	"fmt"
	"strconv"

	"hospital-queue/internal/models"
	"hospital-queue/internal/queue"

	"github.com/spf13/cobra"
)

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a queue's status and waiting list",
		Example: `  queuectl status --hospital rs-01 --department gigi
  queuectl status --hospital rs-01 --department gigi --date 2026-10-20 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				view, err := e.GetQueueStatus(ctx, key)
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).queue(view)
			})
		},
	}
}

func NewPauseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause automatic advancement; bookings stay open",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				view, err := e.PauseQueue(ctx, opts.control(key))
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).queue(view)
			})
		},
	}
}

func NewResumeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume a paused queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				view, err := e.ResumeQueue(ctx, opts.control(key))
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).queue(view)
			})
		},
	}
}

func minutesArg(args []string) (int, error) {
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("minutes must be a number, got %q", args[0])
	}
	return n, nil
}

func NewDelayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delay <minutes>",
		Short: "Add minutes to the queue delay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := minutesArg(args)
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				view, err := e.AddDelay(ctx, opts.control(key), minutes)
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).queue(view)
			})
		},
	}
}

func NewServiceTimeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "service-time <minutes>",
		Short: "Set the average service time used for wait estimates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := minutesArg(args)
			if err != nil {
				return err
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				view, err := e.UpdateServiceTime(ctx, opts.control(key), minutes)
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).queue(view)
			})
		},
	}
}

func NewAdvanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "advance [token-id]",
		Short: "Mark a token served (default: the head of the queue)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID := ""
			if len(args) == 1 {
				tokenID = args[0]
			}
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				tok, err := e.AdvanceQueue(ctx, opts.control(key), tokenID)
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).token(tok)
			})
		},
	}
}

func NewNoShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "no-show <token-id>",
		Short: "Remove a patient who did not turn up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withEngine(cmd, func(ctx context.Context, e *queue.Engine, key models.QueueKey) error {
				tok, err := e.MarkNoShow(ctx, opts.control(key), args[0])
				if err != nil {
					return err
				}
				return newOutput(cmd, opts.Format).token(tok)
			})
		},
	}
}
