package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/report"
)

var (
	exportLeague   int64
	exportKind     string
	exportGrouping string
	exportMetric   string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export league aggregates as CSV",
	Long: `Write the stored aggregates of a league as CSV, one row per group and metric.
Absent cells are written empty.

Example:
  dotametrics export --league 15728 --kind cross --out cross.csv`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Int64Var(&exportLeague, "league", 0, "league id")
	exportCmd.Flags().StringVar(&exportKind, "kind", "", "plain or cross (default both)")
	exportCmd.Flags().StringVar(&exportGrouping, "grouping", "", "player, hero or role")
	exportCmd.Flags().StringVar(&exportMetric, "metric", "", "only metrics starting with this prefix")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "-", "output file, - for stdout")
	_ = exportCmd.MarkFlagRequired("league")
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Aggregates(cmd.Context(), exportLeague, model.AggregateKind(exportKind))
	if err != nil {
		return fmt.Errorf("get aggregates: %w", err)
	}
	rows = filterAggregates(rows, exportGrouping, "", exportMetric)
	if len(rows) == 0 {
		return fmt.Errorf("no aggregates for league %d", exportLeague)
	}

	var w io.Writer = os.Stdout
	if exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}
	if err := report.WriteAggregatesCSV(w, rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if exportOut != "-" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(rows), exportOut)
	}
	return nil
}
