package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh"
	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/protocol"
)

// NewRunCommand plays a complete league inside one process from a declarative
// league file.
func NewRunCommand(opts *RootOptions) *cobra.Command {
	var leagueFile string

	cmd := &cobra.Command{
		Use:     "run",
		Aliases: []string{"demo"},
		Short:   "Play a full league locally from a league file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			lf, err := config.LoadLeagueFile(leagueFile)
			if err != nil {
				return err
			}

			l, err := leaguemesh.FromDefinition(lf, func(o *leaguemesh.Options) {
				o.JoinTimeout = cfg.JoinTimeout
				o.ChoiceTimeout = cfg.ChoiceTimeout
				o.MaxConcurrentMatches = cfg.MaxConcurrentMatches
				o.Logger = newLogger(cfg, opts)
			})
			if err != nil {
				return err
			}

			snap, err := l.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printStandings(cmd, opts, snap)
		},
	}

	cmd.Flags().StringVarP(&leagueFile, "league-file", "f", "league.yaml", "path to the YAML league definition")
	return cmd
}

// printStandings renders a standings snapshot in the selected output format.
func printStandings(cmd *cobra.Command, opts *RootOptions, snap protocol.StandingsSnapshot) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "league %s (rounds completed: %d)\n", snap.LeagueID, snap.RoundsCompleted)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tNAME\tP\tW\tD\tL\tPTS")
	for _, row := range snap.Standings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			row.Rank, row.PlayerID, row.DisplayName, row.Played, row.Wins, row.Draws, row.Losses, row.Points)
	}
	return w.Flush()
}
