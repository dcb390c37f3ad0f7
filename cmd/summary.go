package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about all matches stored in the database:
match and player counts, role resolution, a per-league breakdown and the
most played heroes.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetOverview(ctx)
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.Matches == 0 {
		fmt.Fprintln(os.Stdout, "No matches stored yet. Run 'dotametrics parse <match.jsonl>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	fmt.Fprintf(os.Stdout, "  Matches stored : %d\n", ov.Matches)
	fmt.Fprintf(os.Stdout, "  Ingested       : %s -> %s\n", ov.FirstIngest, ov.LastIngest)
	fmt.Fprintf(os.Stdout, "  Roles resolved : %d\n", ov.Resolved)
	fmt.Fprintf(os.Stdout, "  Role errors    : %d\n", ov.RoleErrors)
	fmt.Fprintf(os.Stdout, "  Players seen   : %d\n", ov.Players)
	fmt.Fprintf(os.Stdout, "  Aggregate rows : %d\n", ov.AggregateRows)

	leagues, err := db.GetLeagueOverviews(ctx)
	if err != nil {
		return fmt.Errorf("get leagues: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Leagues ---\n\n")
	lt := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	lt.Header("LEAGUE", "MATCHES", "RESOLVED", "RADIANT WIN%", "AVG LENGTH")
	for _, l := range leagues {
		lt.Append(
			fmt.Sprintf("%d", l.LeagueID),
			fmt.Sprintf("%d", l.Matches),
			fmt.Sprintf("%d", l.Resolved),
			fmt.Sprintf("%.0f%%", 100*l.RadiantWR),
			fmt.Sprintf("%d:%02d", int(l.AvgLength)/60, int(l.AvgLength)%60),
		)
	}
	lt.Render()

	heroes, err := db.GetTopHeroes(ctx, 10)
	if err != nil {
		return fmt.Errorf("get top heroes: %w", err)
	}
	fmt.Fprintf(os.Stdout, "\n--- Most Played Heroes ---\n\n")
	ht := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	ht.Header("HERO", "MATCHES")
	for _, h := range heroes {
		ht.Append(fmt.Sprintf("%d", h.HeroID), fmt.Sprintf("%d", h.Matches))
	}
	ht.Render()
	return nil
}
