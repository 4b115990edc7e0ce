package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/player"
	"github.com/hupe1980/leaguemesh/transport"
)

// NewPlayerCommand serves a player agent: it registers with the coordinator,
// announces its own endpoint and answers referee calls until interrupted.
func NewPlayerCommand(opts *RootOptions) *cobra.Command {
	var (
		name     string
		strategy string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "player",
		Short: "Run a player agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, opts)

			kind, err := player.ParseStrategyKind(strategy)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p := player.New(name, func(o *player.Options) {
				o.Strategy = player.NewStrategy(kind)
				o.Logger = logger
			})

			srv := transport.NewServer(p, logger)
			addr, err := srv.Listen(ctx, cfg.ListenAddr)
			if err != nil {
				return err
			}

			// The endpoint must be known before registration so the
			// coordinator can hand it to referees.
			if endpoint == "" {
				endpoint = "http://" + addr
			}
			p.SetEndpoint(endpoint)

			client := transport.NewClient(func(o *transport.ClientOptions) {
				o.Logger = logger
			})
			if err := p.Register(ctx, client, cfg.CoordinatorEndpoint); err != nil {
				return err
			}
			logger.Info("player listening", "addr", addr, "player_id", p.AgentID(),
				"strategy", strategy, "endpoint", endpoint)

			<-ctx.Done()
			logger.Info("player shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "player", "display name announced at registration")
	cmd.Flags().StringVar(&strategy, "strategy", string(player.StrategyRandom),
		fmt.Sprintf("choice strategy, one of %v", player.StrategyKinds()))
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "externally reachable base URL (defaults to the bound address)")
	return cmd
}
