package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/transport"
)

// NewScheduleCommand asks the coordinator to freeze the roster and generate
// the round-robin schedule.
func NewScheduleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create-schedule",
		Short: "Freeze the roster and generate the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg, opts)

			client := transport.NewClient(func(o *transport.ClientOptions) {
				o.Logger = logger
			})

			env := protocol.NewEnvelope(protocol.MsgScheduleRequest, protocol.AgentTypeCoordinator, "operator")
			env.LeagueID = cfg.LeagueID
			raw, err := client.Call(cmd.Context(), cfg.CoordinatorEndpoint,
				protocol.MethodCreateSchedule, protocol.CreateScheduleRequest{Envelope: env})
			if err != nil {
				return err
			}

			var resp protocol.CreateScheduleResponse
			if err := transport.DecodeResult(raw, &resp); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schedule created: %d rounds, %d matches\n",
				resp.TotalRounds, resp.TotalMatches)
			for _, m := range resp.Matches {
				fmt.Fprintf(cmd.OutOrStdout(), "  round %d: %s vs %s (match %s, referee %s)\n",
					m.RoundID, m.PlayerAID, m.PlayerBID, m.MatchID, m.RefereeID)
			}
			return nil
		},
	}
}
