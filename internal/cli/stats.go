package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Show the resolved advanced stats of one report file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.OutOrStdout(), opts, args[0])
		},
	}
}

func runStats(out io.Writer, opts *options, name string) error {
	_, resolver, err := opts.engine()
	if err != nil {
		return err
	}
	files, err := matchFiles(opts.root, []string{name})
	if err != nil {
		return err
	}
	r, err := loadReport(files[0])
	if err != nil {
		return err
	}

	entries := resolver.Resolve(r.Stats, opts.hint())
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	newRenderer(out).stats(entries)
	return nil
}
