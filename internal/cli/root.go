// Package cli implements the leaguemesh command line interface: a local demo
// runner plus one subcommand per distributed actor.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the leaguemesh CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "leaguemesh",
		Short: "leaguemesh - even/odd league orchestration",
		Long:  "Runs even/odd parity game leagues: a coordinator, match referees and strategy-driven players talking JSON-RPC.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewCoordinatorCommand(opts))
	cmd.AddCommand(NewRefereeCommand(opts))
	cmd.AddCommand(NewPlayerCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewStandingsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the process logger from configuration and the verbose flag.
func newLogger(cfg config.Config, opts *RootOptions) logging.Logger {
	level := logging.ParseLogLevel(cfg.LogLevel)
	if opts.Verbose {
		level = logging.LogLevelDebug
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:    level,
		Format:   cfg.LogFormat,
		Output:   os.Stderr,
		LeagueID: cfg.LeagueID,
	})
}
