package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/league"
	"github.com/hupe1980/leaguemesh/transport"
)

// NewCoordinatorCommand serves the league coordinator over HTTP until
// interrupted. On startup any persisted league state is recovered.
func NewCoordinatorCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "coordinator",
		Short: "Serve the league coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, opts)

			st, err := cfg.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			coord := league.New(cfg.LeagueID, func(o *league.Options) {
				o.Store = st
				o.Logger = logger
			})
			if err := coord.Recover(); err != nil {
				return fmt.Errorf("recover league state: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := transport.NewServer(league.NewHandler(coord), logger)
			addr, err := srv.Listen(ctx, cfg.ListenAddr)
			if err != nil {
				return err
			}
			logger.Info("coordinator listening", "addr", addr, "league_id", cfg.LeagueID, "store", cfg.StoreDriver)

			<-ctx.Done()
			logger.Info("coordinator shutting down")
			return nil
		},
	}
}
