package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/report"
	"github.com/pable/go-dota-metrics/internal/storage"
)

var (
	showAccount int64
	showMetrics bool
	showPrefix  string
	showCompare string
)

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show a stored match",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Int64Var(&showAccount, "player", 0, "highlight player account id")
	showCmd.Flags().BoolVar(&showMetrics, "metrics", false, "print metric rows")
	showCmd.Flags().StringVar(&showPrefix, "metric", "", "only metrics starting with this prefix (implies --metrics)")
	showCmd.Flags().StringVar(&showCompare, "compare", "", "print comparisons of this kind: direct, cross, average or all")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	matchID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid match id: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := showMatch(cmd, db, matchID, showAccount, false); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "No match %d stored.\n", matchID)
			return nil
		}
		return err
	}
	if showMetrics || showPrefix != "" {
		rows, err := db.Metrics(ctx, matchID, showPrefix)
		if err != nil {
			return fmt.Errorf("get metrics: %w", err)
		}
		report.PrintMetrics(os.Stdout, rows)
	}
	if showCompare != "" {
		kind := model.CompareKind(showCompare)
		if showCompare == "all" {
			kind = ""
		}
		cmps, err := db.Comparisons(ctx, matchID, kind)
		if err != nil {
			return fmt.Errorf("get comparisons: %w", err)
		}
		report.PrintComparisons(os.Stdout, cmps)
	}
	return nil
}
