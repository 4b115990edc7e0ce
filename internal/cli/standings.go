package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh/config"
)

// NewStandingsCommand prints the last persisted standings snapshot straight
// from the store, without going through the coordinator's protected query.
func NewStandingsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "standings",
		Short: "Show the persisted standings snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			st, err := cfg.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.LoadStandings(cfg.LeagueID)
			if err != nil {
				return err
			}
			return printStandings(cmd, opts, snap)
		},
	}
}
