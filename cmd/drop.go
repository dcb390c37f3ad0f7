package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dropForce bool

// dropCmd deletes the metrics database file, or one match with --match.
var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Delete the metrics database or one stored match",
	Long: `Permanently delete the SQLite metrics database. All stored match data will be
lost. Re-ingest your logs afterwards to rebuild.

With --match only that match and its metrics are removed; league aggregates
keep their rows until the next 'dotametrics league aggregate'.`,
	Args: cobra.NoArgs,
	RunE: runDrop,
}

var dropMatch int64

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
	dropCmd.Flags().Int64Var(&dropMatch, "match", 0, "delete only this match")
}

func runDrop(cmd *cobra.Command, args []string) error {
	target := dbPath
	if dropMatch != 0 {
		target = fmt.Sprintf("match %d in %s", dropMatch, dbPath)
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", target)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if dropMatch != 0 {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.DeleteMatch(cmd.Context(), dropMatch); err != nil {
			return fmt.Errorf("delete match %d: %w", dropMatch, err)
		}
		fmt.Fprintf(os.Stdout, "Deleted: %s\n", target)
		return nil
	}
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if err := os.Remove(p); err != nil {
			if os.IsNotExist(err) {
				if p == dbPath {
					fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
					return nil
				}
				continue
			}
			return fmt.Errorf("remove database: %w", err)
		}
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", dbPath)
	return nil
}
