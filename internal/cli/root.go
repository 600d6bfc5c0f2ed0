// Package cli implements reportctl, the offline companion to the match
// report service.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/matchreport/pkg/logger"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// options shared by the scoring subcommands.
type options struct {
	root          string
	minuteStyle   string
	json          bool
	statsOrder    []string
	selectedStats []string
	statKinds     map[string]string
	strict        bool
}

// NewRootCmd builds the reportctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Score and inspect match performance reports",
		Long: `reportctl scores match performance reports stored as YAML or JSON files.

It prints action tiers, the raw score, R90 and xG chain of each report,
resolves advanced stats into successful/attempted pairs, and can drive a
running service with generated reports.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.root, "root", ".", "Directory that file patterns are relative to")
	flags.StringVar(&opts.minuteStyle, "minute-style", "carry", "Minute display style: carry or legacy")
	flags.BoolVar(&opts.json, "json", false, "Output JSON instead of formatted text")
	flags.StringSliceVar(&opts.statsOrder, "stats-order", nil, "Stat keys in display order")
	flags.StringSliceVar(&opts.selectedStats, "selected-stats", nil, "Stat keys to show")
	flags.StringToStringVar(&opts.statKinds, "stat-kind", nil, "Per-90 kind of a stat, e.g. distance=rate")
	flags.BoolVar(&opts.strict, "strict-stat-kinds", false, "Only stats named with --stat-kind may show per-90 values")

	root.AddCommand(newScoreCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newLoadCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs reportctl with the process arguments.
func Execute(ctx context.Context) error {
	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		return err
	}
	return NewRootCmd().ExecuteContext(ctx)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the reportctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), "reportctl "+Version+"\n")
			return err
		},
	}
}
