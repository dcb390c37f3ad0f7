package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/metrics"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/pgsink"
	"github.com/pable/go-dota-metrics/internal/pipeline"
	"github.com/pable/go-dota-metrics/internal/report"
	"github.com/pable/go-dota-metrics/internal/storage"
)

var (
	leagueID       int64
	leagueKind     string
	leagueGrouping string
	leagueMetric   string
	leagueKey      string
)

var leagueCmd = &cobra.Command{
	Use:   "league",
	Short: "Run and inspect league pipelines",
}

var leagueRunCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Ingest every event log in dir, resolve roles and aggregate",
	Long: `Ingest every .jsonl, .jsonl.gz and .jsonl.zst log in dir into the league,
then resolve roles for all its matches and recompute the league aggregates.

Logs already stored are skipped. A log that fails to decode or ingest does not
stop the others. If role resolution or aggregation still fails after retries,
the run is parked and can be continued with 'dotametrics league resume'.`,
	Args: cobra.ExactArgs(1),
	RunE: runLeagueRun,
}

var leagueResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue a parked league run at the stage it stopped in",
	Args:  cobra.NoArgs,
	RunE:  runLeagueResume,
}

var leagueAggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute league aggregates from stored matches",
	Args:  cobra.NoArgs,
	RunE:  runLeagueAggregate,
}

var leagueShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print stored league aggregates",
	Args:  cobra.NoArgs,
	RunE:  runLeagueShow,
}

var leagueStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the progress of every league run",
	Args:  cobra.NoArgs,
	RunE:  runLeagueStatus,
}

func init() {
	for _, c := range []*cobra.Command{leagueRunCmd, leagueResumeCmd, leagueAggregateCmd, leagueShowCmd} {
		c.Flags().Int64Var(&leagueID, "league", 0, "league id")
		_ = c.MarkFlagRequired("league")
	}
	leagueShowCmd.Flags().StringVar(&leagueKind, "kind", "", "plain or cross (default both)")
	leagueShowCmd.Flags().StringVar(&leagueGrouping, "grouping", "", "player, hero or role")
	leagueShowCmd.Flags().StringVar(&leagueMetric, "metric", "", "only metrics starting with this prefix")
	leagueShowCmd.Flags().StringVar(&leagueKey, "key", "", "only this group key")

	leagueCmd.AddCommand(leagueRunCmd, leagueResumeCmd, leagueAggregateCmd, leagueShowCmd, leagueStatusCmd)
}

// newPipeline wires storage, metrics and the optional Postgres mirror. The
// returned cleanup closes the mirror.
func newPipeline(cmd *cobra.Command, db *storage.DB) (*pipeline.Pipeline, func()) {
	log := logger.Named("league")
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics.NewManager()),
	}
	cleanup := func() {}
	if cfg.PostgresURL != "" {
		sink, err := pgsink.Open(cmd.Context(), cfg.PostgresURL)
		if err != nil {
			log.Warn(cmd.Context(), "postgres mirror disabled", logger.Error(err))
		} else {
			opts = append(opts, pipeline.WithMirror(sink))
			cleanup = sink.Close
		}
	}
	return pipeline.New(db, cfg, opts...), cleanup
}

func runLeagueRun(cmd *cobra.Command, args []string) error {
	return withPipeline(cmd, func(p *pipeline.Pipeline) (*pipeline.Report, error) {
		fmt.Fprintf(os.Stdout, "Running league %d from %s...\n", leagueID, args[0])
		return p.Run(cmd.Context(), leagueID, args[0])
	})
}

func runLeagueResume(cmd *cobra.Command, args []string) error {
	return withPipeline(cmd, func(p *pipeline.Pipeline) (*pipeline.Report, error) {
		return p.Resume(cmd.Context(), leagueID)
	})
}

func runLeagueAggregate(cmd *cobra.Command, args []string) error {
	return withPipeline(cmd, func(p *pipeline.Pipeline) (*pipeline.Report, error) {
		return p.Aggregate(cmd.Context(), leagueID)
	})
}

func withPipeline(cmd *cobra.Command, fn func(*pipeline.Pipeline) (*pipeline.Report, error)) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	p, cleanup := newPipeline(cmd, db)
	defer cleanup()

	rep, err := fn(p)
	if rep != nil {
		printRunReport(rep)
	}
	return err
}

func printRunReport(rep *pipeline.Report) {
	counts := map[string]int{}
	for _, o := range rep.Outcomes {
		counts[o.Status]++
	}
	fmt.Fprintf(os.Stdout, "\n=== League %d, run %s ===\n\n", rep.LeagueID, rep.RunID)
	if len(rep.Outcomes) > 0 || rep.Undispatched > 0 {
		fmt.Fprintf(os.Stdout, "  Logs ingested : %d\n", counts[metrics.StatusOK])
		fmt.Fprintf(os.Stdout, "  Already stored: %d\n", counts[metrics.StatusSkipped])
		fmt.Fprintf(os.Stdout, "  Failed        : %d\n", counts[metrics.StatusFailed])
		if rep.Undispatched > 0 {
			fmt.Fprintf(os.Stdout, "  Not started   : %d\n", rep.Undispatched)
		}
	}
	fmt.Fprintf(os.Stdout, "  Roles resolved: %d\n", rep.Resolved)
	fmt.Fprintf(os.Stdout, "  Role errors   : %d\n", len(rep.RoleErrors))
	for _, kind := range []model.AggregateKind{model.AggregatePlain, model.AggregateCross} {
		if n, ok := rep.Rows[kind]; ok {
			fmt.Fprintf(os.Stdout, "  %-14s: %d rows\n", string(kind), n)
		}
	}
	for _, o := range rep.Failed() {
		fmt.Fprintf(os.Stderr, "  failed %s: %v\n", o.Path, o.Err)
	}
	for id, msg := range rep.RoleErrors {
		fmt.Fprintf(os.Stderr, "  match %d roles: %s\n", id, msg)
	}
}

func runLeagueShow(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Aggregates(cmd.Context(), leagueID, model.AggregateKind(leagueKind))
	if err != nil {
		return fmt.Errorf("get aggregates: %w", err)
	}
	rows = filterAggregates(rows, leagueGrouping, leagueKey, leagueMetric)
	if len(rows) == 0 {
		fmt.Fprintf(os.Stdout, "No aggregates for league %d. Run 'dotametrics league aggregate --league %d'.\n", leagueID, leagueID)
		return nil
	}
	report.PrintAggregates(os.Stdout, rows)
	return nil
}

func filterAggregates(rows []model.AggregateRow, grouping, key, metric string) []model.AggregateRow {
	var out []model.AggregateRow
	for _, r := range rows {
		if grouping != "" && r.Grouping != grouping {
			continue
		}
		if key != "" && r.Key != key {
			continue
		}
		if metric != "" && !strings.HasPrefix(r.Metric, metric) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func runLeagueStatus(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := db.Stages(cmd.Context())
	if err != nil {
		return fmt.Errorf("get stages: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stdout, "No league runs recorded.")
		return nil
	}
	report.PrintStages(os.Stdout, recs)
	return nil
}
