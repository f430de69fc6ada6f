package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olegiv/logreport-ai-go/internal/storage"
	"github.com/spf13/cobra"
)

var errHistoryDisabled = errors.New("report history is disabled (HISTORY_ENABLED=false) or unavailable")

type historyOptions struct {
	limit     int
	pruneDays int
}

func newHistoryCmd(flags *globalFlags, in io.Reader, out io.Writer) *cobra.Command {
	o := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously generated reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(flags, in, out)
			if err != nil {
				return err
			}
			defer env.Close()

			if env.history == nil {
				return errHistoryDisabled
			}

			if o.pruneDays > 0 {
				deleted, err := env.history.CleanupOldReports(o.pruneDays)
				if err != nil {
					return err
				}
				env.console.Info(fmt.Sprintf("Removed %d history record(s) older than %d days", deleted, o.pruneDays))
			}

			records, err := env.history.RecentReports(o.limit)
			if err != nil {
				return err
			}
			stats, err := env.history.GetStatistics()
			if err != nil {
				return err
			}

			_, err = io.WriteString(out, formatHistory(records, stats, time.Now()))
			return err
		},
	}

	cmd.Flags().IntVarP(&o.limit, "limit", "n", 10, "Maximum number of reports to list (0 lists all)")
	cmd.Flags().IntVar(&o.pruneDays, "prune-days", 0, "Delete history records older than this many days before listing")

	return cmd
}

// formatHistory renders the history listing as plain text
func formatHistory(records []*storage.ReportRecord, stats *storage.Statistics, now time.Time) string {
	var b strings.Builder

	if len(records) == 0 {
		b.WriteString("No reports recorded yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d report(s) recorded, %s of logs analyzed, last %s\n\n",
		stats.TotalReports,
		humanize.IBytes(uint64(stats.TotalBytes)),
		humanize.RelTime(stats.LastReportAt, now, "ago", "from now"))

	for _, r := range records {
		fmt.Fprintf(&b, "%s  %s\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.FileName)
		fmt.Fprintf(&b, "    template: %s, model: %s, %s in %s, took %.1fs\n",
			r.TemplateName,
			r.Model,
			humanize.IBytes(uint64(r.TotalBytes)),
			strings.Join(r.LogFiles, ", "),
			r.DurationSeconds)
	}

	return b.String()
}
