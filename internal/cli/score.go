package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/matchreport/internal/domain/scoring"
	"github.com/okian/matchreport/internal/domain/stats"
	"github.com/okian/matchreport/internal/domain/types"
)

// scoredFile is the JSON output of one scored file.
type scoredFile struct {
	File  string           `json:"file"`
	View  types.ReportView `json:"report,omitzero"`
	Error string           `json:"error,omitempty"`
}

func newScoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "score <pattern>...",
		Short: "Score report files",
		Long: `Scores every report file matching the patterns.

Patterns are relative to --root and may use ** to match nested
directories, e.g. "season/**/*.yaml". Files ending in .yaml, .yml or
.json are read. A report that fails validation is listed with its error
and makes the command exit non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.OutOrStdout(), opts, args)
		},
	}
}

func runScore(out io.Writer, opts *options, patterns []string) error {
	engine, resolver, err := opts.engine()
	if err != nil {
		return err
	}
	files, err := matchFiles(opts.root, patterns)
	if err != nil {
		return err
	}
	reports, err := loadReports(files)
	if err != nil {
		return err
	}

	results := make([]scoredFile, 0, len(reports))
	failed := 0
	for _, rf := range reports {
		res := scoredFile{File: rf.Path}
		sum, err := engine.Summarize(rf.Report)
		if err != nil {
			res.Error = err.Error()
			failed++
		} else {
			res.View = viewOf(rf, sum, resolver.Resolve(rf.Report.Stats, opts.hint()))
		}
		results = append(results, res)
	}

	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		newRenderer(out).scored(results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d reports failed to score", failed, len(results))
	}
	return nil
}

// engine builds the scorer and stat resolver selected by the flags.
func (o *options) engine() (*scoring.Engine, *stats.Resolver, error) {
	style, err := scoring.ParseMinuteStyle(o.minuteStyle)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := stats.NewCatalog(o.statKinds)
	if err != nil {
		return nil, nil, err
	}
	if o.strict {
		catalog = catalog.Strict()
	}
	return scoring.NewEngine(scoring.WithMinuteStyle(style)), stats.NewResolver(stats.WithCatalog(catalog)), nil
}

func (o *options) hint() stats.Hint {
	return stats.Hint{StatsOrder: o.statsOrder, SelectedStats: o.selectedStats}
}

func viewOf(rf reportFile, sum scoring.Summary, entries []stats.Entry) types.ReportView {
	r := rf.Report
	return types.ReportView{
		ID:            r.ID,
		PlayerName:    r.PlayerName,
		Opponent:      r.Opponent,
		MatchDate:     r.MatchDate,
		MinutesPlayed: r.MinutesPlayed,
		StoredR90:     r.R90Score,
		Summary:       sum,
		Stats:         entries,
	}
}
