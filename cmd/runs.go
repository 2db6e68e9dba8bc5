package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fundscan/internal/config"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/pipeline"
	"github.com/sells-group/fundscan/internal/store"
)

// statsScanLimit caps how many runs `runs stats` reads.
const statsScanLimit = 10000

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect analysis run history",
	Long:  "List, inspect and summarize persisted analysis runs, and prune the profile cache.",
}

// withRunStore validates config, opens the run store and hands it to fn.
func withRunStore(ctx context.Context, fn func(store.Store) error) error {
	if err := cfg.Validate(config.ModeRuns); err != nil {
		return err
	}
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	return fn(st)
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, _ := cmd.Flags().GetString("status")
		company, _ := cmd.Flags().GetString("company")
		limit, _ := cmd.Flags().GetInt("limit")

		return withRunStore(cmd.Context(), func(st store.Store) error {
			runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
				Status:     model.RunStatus(status),
				CompanyURL: company,
				Limit:      limit,
			})
			if err != nil {
				return eris.Wrap(err, "runs list")
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs found.")
				return nil
			}
			formatRunsList(os.Stdout, runs)
			return nil
		})
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print a run, its report and its stage timings as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunStore(cmd.Context(), func(st store.Store) error {
			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return eris.Wrapf(err, "runs show %s", args[0])
			}
			phases, err := st.ListPhases(cmd.Context(), run.ID)
			if err != nil {
				return eris.Wrapf(err, "runs show %s: phases", args[0])
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				*model.Run
				Phases []model.RunPhase `json:"phases"`
			}{run, phases})
		})
	},
}

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize outlooks, degraded reports and failures",
	RunE: func(cmd *cobra.Command, _ []string) error {
		since, _ := cmd.Flags().GetDuration("since")

		return withRunStore(cmd.Context(), func(st store.Store) error {
			runs, err := st.ListRuns(cmd.Context(), store.RunFilter{Limit: statsScanLimit})
			if err != nil {
				return eris.Wrap(err, "runs stats")
			}
			var cutoff time.Time
			if since > 0 {
				cutoff = time.Now().Add(-since)
			}
			formatRunStats(os.Stdout, computeRunStats(runs, cutoff))
			return nil
		})
	},
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired entries from the profile cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunStore(cmd.Context(), func(st store.Store) error {
			n, err := st.DeleteExpiredProfiles(cmd.Context())
			if err != nil {
				return eris.Wrap(err, "runs prune")
			}
			fmt.Fprintf(os.Stdout, "Pruned %d expired profile(s).\n", n)
			return nil
		})
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (collecting, analyzing, synthesizing, complete, failed)")
	runsListCmd.Flags().String("company", "", "filter by company URL")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 7*24*time.Hour, "only count runs created within this window (0 for all)")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsStatsCmd, runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// runStats aggregates run history.
type runStats struct {
	Total      int
	Complete   int
	Degraded   int
	Failed     int
	TimedOut   int
	InFlight   int
	Outlooks   map[string]int
	AvgDurSecs float64
}

// computeRunStats summarizes runs created at or after cutoff. A zero cutoff
// counts everything.
func computeRunStats(runs []model.Run, cutoff time.Time) runStats {
	s := runStats{Outlooks: make(map[string]int)}

	var total time.Duration
	for _, r := range runs {
		if !cutoff.IsZero() && r.CreatedAt.Before(cutoff) {
			continue
		}
		s.Total++

		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			total += r.UpdatedAt.Sub(r.CreatedAt)
			if r.Report != nil {
				s.Outlooks[r.Report.Outlook.Level]++
				if r.Report.Degraded() {
					s.Degraded++
				}
			}
		case model.RunStatusFailed:
			s.Failed++
			if strings.Contains(r.Error, pipeline.ErrPipelineTimeout.Error()) {
				s.TimedOut++
			}
		default:
			s.InFlight++
		}
	}

	if s.Complete > 0 {
		s.AvgDurSecs = total.Seconds() / float64(s.Complete)
	}
	return s
}

// formatRunStats writes aggregate stats to out.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	for _, level := range []string{model.LevelStrong, model.LevelModerate, model.LevelWeak} {
		_, _ = fmt.Fprintf(w, "  %s:\t%d\n", level, s.Outlooks[level])
	}
	_, _ = fmt.Fprintf(w, "  Degraded:\t%d\n", s.Degraded)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "  Timed out:\t%d\n", s.TimedOut)
	_, _ = fmt.Fprintf(w, "In flight:\t%d\n", s.InFlight)
	if s.AvgDurSecs > 0 {
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// formatRunsList writes one row per run to out.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tSTATUS\tOUTLOOK\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t-------\t-------\t--------")

	for _, r := range runs {
		company, outlook := r.Request.CompanyURL, ""
		if r.Report != nil {
			company, outlook = r.Report.Name, r.Report.Outlook.Level
			if r.Report.Degraded() {
				outlook += "*"
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			ellipsize(company, 30),
			r.Status,
			outlook,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second),
		)
	}
	_ = w.Flush()
}

func ellipsize(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// truncateID shortens a UUID to its first 8 characters.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
