package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/league"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/report"
	"github.com/pable/go-dota-metrics/internal/storage"
)

var playerLeague int64

// playerCmd is the cobra command for cross-match analysis of one or more players.
var playerCmd = &cobra.Command{
	Use:   "player <account-id> [<account-id>...]",
	Short: "Match history and league aggregates for one or more players",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlayer,
}

func init() {
	playerCmd.Flags().Int64Var(&playerLeague, "league", 0, "also print the player's aggregates in this league")
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid account id %q: %w", arg, err)
		}
		if err := printPlayer(cmd.Context(), os.Stdout, db, id, playerLeague); err != nil {
			return err
		}
	}
	return nil
}

// printPlayer writes the match history of accountID and, when leagueID is
// set, its player-grouped aggregates.
func printPlayer(ctx context.Context, w io.Writer, db *storage.DB, accountID, leagueID int64) error {
	hist, err := db.PlayerHistory(ctx, accountID)
	if err != nil {
		return fmt.Errorf("query history for %d: %w", accountID, err)
	}
	if len(hist) == 0 {
		fmt.Fprintf(os.Stderr, "No data found for account %d\n", accountID)
		return nil
	}
	fmt.Fprintf(w, "\n=== Account %d: %d matches ===\n\n", accountID, len(hist))
	report.PrintHistory(w, hist)

	if leagueID == 0 {
		return nil
	}
	rows, err := db.Aggregates(ctx, leagueID, model.AggregatePlain)
	if err != nil {
		return fmt.Errorf("get aggregates: %w", err)
	}
	rows = filterAggregates(rows, league.GroupPlayer, strconv.FormatInt(accountID, 10), "")
	if len(rows) > 0 {
		fmt.Fprintln(w)
		report.PrintAggregates(w, rows)
	}
	return nil
}
