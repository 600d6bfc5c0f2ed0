package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/matchreport/internal/loadgen"
	"github.com/okian/matchreport/pkg/logger"
)

func newLoadCmd() *cobra.Command {
	var cfg loadgen.Config

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Drive a running service with generated reports",
		Long: `Creates generated reports on a running service and checks that every
served summary matches the one computed locally. Exits non-zero when any
create fails or any summary differs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := loadgen.NewRunner(cfg, logger.Get().Named("load")).Run(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(),
				"created %d/%d reports in %s (%.1f/s), verified %d, mismatched %d, failed %d\n",
				st.Created, st.Generated, st.Duration.Round(time.Millisecond), st.ReportsPerSecond(),
				st.Verified, st.Mismatched, st.Failed)
			if st.Failed > 0 || st.Mismatched > 0 {
				return fmt.Errorf("load run had %d failures and %d mismatches", st.Failed, st.Mismatched)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", loadgen.DefaultBaseURL, "Base URL of the service")
	f.IntVar(&cfg.Reports, "reports", loadgen.DefaultReports, "Number of reports to create")
	f.IntVar(&cfg.ActionsPerReport, "actions", loadgen.DefaultActionsPerReport, "Actions per generated report")
	f.IntVar(&cfg.Workers, "workers", 0, "Concurrent submitters (default CPU cores * 2)")
	f.DurationVar(&cfg.Timeout, "timeout", loadgen.DefaultTimeout, "HTTP request timeout")
	f.StringVar(&cfg.Role, "role", loadgen.DefaultRole, "Staff role sent on writes")
	f.Uint64Var(&cfg.Seed, "seed", 1, "Generator seed")
	return cmd
}
