package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/report"
)

var listLeague int64

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored matches",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().Int64Var(&listLeague, "league", 0, "only matches of this league")
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ms, err := db.ListMatches(cmd.Context(), listLeague)
	if err != nil {
		return fmt.Errorf("list matches: %w", err)
	}
	if len(ms) == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'dotametrics parse <match.jsonl>' to add one.")
		return nil
	}
	report.PrintMatchList(os.Stdout, ms)
	return nil
}
