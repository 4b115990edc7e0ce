package cli

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/referee"
	"github.com/hupe1980/leaguemesh/transport"
)

// NewRefereeCommand registers a referee with the coordinator, waits for the
// schedule and drives every assigned match to completion.
func NewRefereeCommand(opts *RootOptions) *cobra.Command {
	var (
		name string
		poll time.Duration
	)

	cmd := &cobra.Command{
		Use:   "referee",
		Short: "Run a match referee",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, opts)

			client := transport.NewClient(func(o *transport.ClientOptions) {
				o.Logger = logger
			})
			ref := referee.New(name, client, cfg.CoordinatorEndpoint, func(o *referee.Options) {
				o.JoinTimeout = cfg.JoinTimeout
				o.ChoiceTimeout = cfg.ChoiceTimeout
				o.MaxConcurrentMatches = cfg.MaxConcurrentMatches
				o.Logger = logger
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := ref.Register(ctx); err != nil {
				return err
			}
			logger.Info("referee registered", "referee_id", ref.AgentID())

			// The schedule appears once the operator freezes the roster; poll
			// until assignments exist, then drive them.
			ticker := time.NewTicker(poll)
			defer ticker.Stop()
			for {
				assigned, err := ref.Assignments(ctx)
				if err != nil {
					logger.Warn("schedule not available yet", "error", err.Error())
				} else if len(assigned) > 0 {
					logger.Info("assignments received", "matches", len(assigned))
					return ref.RunAssigned(ctx)
				}

				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().StringVar(&name, "name", "referee", "display name announced at registration")
	cmd.Flags().DurationVar(&poll, "poll-interval", 2*time.Second, "how often to poll for the schedule")
	return cmd
}
