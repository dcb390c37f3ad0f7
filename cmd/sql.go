package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the metrics database",
	Long: `Run an arbitrary SQL query against the metrics database and print results as a table.

Schema overview:
  matches(match_id, league_id, source_hash, duration, radiant_win, roles_resolved,
    role_error, ingested_at, plain_run_id, cross_run_id)
  match_windows(match_id, field, present, incomplete, start_s, end_s, length, length_minutes)
  match_players(match_id, slot, account_id, hero_id, unit, raw_role, role, neutral_kills)
  side_buildings(match_id, side, towers_lost, rax_lost, first_tower_lost, first_tower_time, ...)
  player_metrics(match_id, slot, metric, lane_0..lane_total, game_0..game_total, lane_mask, game_mask)
  player_comparisons(match_id, comparandum, comparans, mode, kind, metric, <same series columns>)
  league_aggregates(league_id, kind, source, grouping, group_key, archetype, metric,
    matches, small_sample, <same series columns>)
  aggregation_runs(run_id, league_id, kind, row_count, created_at)
  league_stages(league_id, run_id, dir, stage, status, error, updated_at)

Note: zero-only lane or game groups are stored as NULL cells plus a bitmask in
lane_mask/game_mask. Use 'dotametrics show --metrics' for decoded values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(cmd.Context(), query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}
	printRaw(cols, rows)
	return nil
}

func printRaw(cols []string, rows [][]string) {
	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
}
