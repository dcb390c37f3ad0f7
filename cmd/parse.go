package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/aggregator"
	"github.com/pable/go-dota-metrics/internal/eventlog"
	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/report"
	"github.com/pable/go-dota-metrics/internal/storage"
)

var (
	parseAccount int64
	parseLeague  int64
	parseMetrics bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <match.jsonl>",
	Short: "Ingest one event log, resolve roles and store its metrics",
	Long: `Decode a single match event log (.jsonl, .jsonl.gz or .jsonl.zst), compute
its per-window metrics and comparisons, and store them. League aggregates are
not touched; run 'dotametrics league aggregate' for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().Int64Var(&parseAccount, "player", 0, "highlight player account id")
	parseCmd.Flags().Int64Var(&parseLeague, "league", 0, "league id for logs that carry none")
	parseCmd.Flags().BoolVar(&parseMetrics, "metrics", false, "print every metric row")
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]
	log := logger.Named("parse")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stdout, "Parsing %s...\n", path)
	raw, err := eventlog.Open(ctx, path, log)
	if err != nil {
		return fmt.Errorf("decode log: %w", err)
	}
	if raw.SkippedRows > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d malformed lines.\n", raw.SkippedRows)
	}
	if raw.LeagueID == 0 {
		raw.LeagueID = parseLeague
	}

	exists, err := db.MatchExists(ctx, raw.MatchID)
	if err != nil {
		return fmt.Errorf("check match: %w", err)
	}
	if exists {
		fmt.Fprintf(os.Stdout, "Match %d already stored, showing cached results.\n", raw.MatchID)
		return showMatch(cmd, db, raw.MatchID, parseAccount, parseMetrics)
	}

	m, err := aggregator.Ingest(ctx, raw, cfg.Catalog, log)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := db.InsertMatch(ctx, m); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	res, err := aggregator.Resolve(m, cfg.Catalog)
	if err != nil {
		if merr := db.MarkRoleError(ctx, raw.MatchID, err.Error()); merr != nil {
			return fmt.Errorf("mark role error: %w", merr)
		}
		fmt.Fprintf(os.Stderr, "Roles could not be resolved: %v\n", err)
	} else if err := db.SaveResolution(ctx, raw.MatchID, res.Roles, res.Metrics, res.Comparisons); err != nil {
		return fmt.Errorf("save roles: %w", err)
	}
	return showMatch(cmd, db, raw.MatchID, parseAccount, parseMetrics)
}

func showMatch(cmd *cobra.Command, db *storage.DB, matchID, account int64, withMetrics bool) error {
	ctx := cmd.Context()
	m, err := db.GetMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("load match %d: %w", matchID, err)
	}
	report.PrintMatchSummary(os.Stdout, m.Summary)
	report.PrintPlayers(os.Stdout, m.Players, account)
	report.PrintWindows(os.Stdout, m.Windows)
	report.PrintBuildings(os.Stdout, m.Buildings)
	if withMetrics {
		report.PrintMetrics(os.Stdout, m.Metrics)
	}
	return nil
}
