package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/report"
	"github.com/pable/go-dota-metrics/internal/storage"
)

var trendCmd = &cobra.Command{
	Use:   "trend <account-id> <metric>",
	Short: "Chronological per-match series of one metric for a player",
	Args:  cobra.ExactArgs(2),
	RunE:  runTrend,
}

func runTrend(cmd *cobra.Command, args []string) error {
	accountID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid account id: %w", err)
	}
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return printTrend(cmd.Context(), os.Stdout, db, accountID, args[1])
}

func printTrend(ctx context.Context, w io.Writer, db *storage.DB, accountID int64, metric string) error {
	hist, err := db.PlayerHistory(ctx, accountID)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}
	var pts []report.TrendPoint
	// History comes newest first.
	for i := len(hist) - 1; i >= 0; i-- {
		p := hist[i]
		rows, err := db.Metrics(ctx, p.MatchID, metric)
		if err != nil {
			return fmt.Errorf("query metrics of match %d: %w", p.MatchID, err)
		}
		for _, r := range rows {
			if r.Metric == metric && r.Slot == p.Slot {
				pts = append(pts, report.TrendPoint{MatchID: p.MatchID, HeroID: p.HeroID, Role: p.Role, Series: r.Series})
			}
		}
	}
	if len(pts) == 0 {
		fmt.Fprintln(w, "no matches found")
		return nil
	}
	report.PrintTrend(w, metric, pts)
	return nil
}
