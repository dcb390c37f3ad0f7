package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/report"
	"github.com/pable/go-dota-metrics/internal/storage"
)

var (
	cPrompt   = color.New(color.FgCyan, color.Bold)
	cMuted    = color.New(color.Faint)
	cError    = color.New(color.FgRed, color.Bold)
	cWarn     = color.New(color.FgYellow)
	cCmd      = color.New(color.FgYellow, color.Bold)
	cGreeting = color.New(color.Bold)
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive REPL session",
	Long:  "Open a persistent session against the database. Type 'help' for available commands.",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

func runShell(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	cGreeting.Println("dotametrics shell")
	cMuted.Println("type 'help' or 'exit'")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		cPrompt.Print("dotametrics")
		cMuted.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		tokens := strings.Fields(line)
		name, args := tokens[0], tokens[1:]

		var err error
		switch name {
		case "exit", "quit":
			return nil
		case "help":
			shellHelp()
		case "list":
			err = shellList(ctx, db, args)
		case "show":
			err = shellShow(ctx, db, args)
		case "player":
			err = shellPlayer(ctx, db, args)
		case "trend":
			if len(args) != 2 {
				err = fmt.Errorf("usage: trend <account-id> <metric>")
				break
			}
			var id int64
			if id, err = strconv.ParseInt(args[0], 10, 64); err == nil {
				err = printTrend(ctx, os.Stdout, db, id, args[1])
			}
		case "league":
			err = shellLeague(ctx, db, args)
		case "sql":
			err = shellSQL(ctx, db, strings.TrimSpace(strings.TrimPrefix(line, name)))
		default:
			cWarn.Fprintf(os.Stderr, "unknown command %q, type 'help'\n", name)
		}
		if err != nil {
			cError.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	return nil
}

func shellHelp() {
	fmt.Println()
	type entry struct{ cmd, desc string }
	rows := []entry{
		{"list [<league-id>]", "list stored matches"},
		{"show <match-id> [--player <id>]", "show a match, highlighting one player"},
		{"player <account-id> [...]", "match history for one or more players"},
		{"trend <account-id> <metric>", "per-match series of one metric"},
		{"league <league-id> [<metric-prefix>]", "print league aggregates"},
		{"sql <query>", "run a raw SQL query"},
		{"help", "show this message"},
		{"exit / quit", "close the session"},
	}
	for _, r := range rows {
		fmt.Print("  ")
		cCmd.Printf("%-40s", r.cmd)
		fmt.Println(r.desc)
	}
	fmt.Println()
}

func shellList(ctx context.Context, db *storage.DB, args []string) error {
	var leagueID int64
	if len(args) > 0 {
		var err error
		if leagueID, err = strconv.ParseInt(args[0], 10, 64); err != nil {
			return fmt.Errorf("invalid league id %q", args[0])
		}
	}
	ms, err := db.ListMatches(ctx, leagueID)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		cMuted.Println("No matches stored yet.")
		return nil
	}
	report.PrintMatchList(os.Stdout, ms)
	return nil
}

func shellShow(ctx context.Context, db *storage.DB, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: show <match-id> [--player <account-id>]")
	}
	matchID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid match id %q", args[0])
	}
	var account int64
	for i := 1; i+1 < len(args); i++ {
		if args[i] == "--player" {
			account, _ = strconv.ParseInt(args[i+1], 10, 64)
		}
	}
	m, err := db.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	report.PrintMatchSummary(os.Stdout, m.Summary)
	report.PrintPlayers(os.Stdout, m.Players, account)
	report.PrintWindows(os.Stdout, m.Windows)
	report.PrintBuildings(os.Stdout, m.Buildings)
	return nil
}

func shellPlayer(ctx context.Context, db *storage.DB, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: player <account-id> [<account-id>...]")
	}
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			cError.Fprintf(os.Stderr, "invalid account id %q\n", arg)
			continue
		}
		if err := printPlayer(ctx, os.Stdout, db, id, 0); err != nil {
			return err
		}
	}
	return nil
}

func shellLeague(ctx context.Context, db *storage.DB, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: league <league-id> [<metric-prefix>]")
	}
	leagueID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid league id %q", args[0])
	}
	prefix := ""
	if len(args) > 1 {
		prefix = args[1]
	}
	rows, err := db.Aggregates(ctx, leagueID, model.AggregateKind(""))
	if err != nil {
		return err
	}
	rows = filterAggregates(rows, "", "", prefix)
	if len(rows) == 0 {
		cMuted.Println("No aggregates.")
		return nil
	}
	report.PrintAggregates(os.Stdout, rows)
	return nil
}

func shellSQL(ctx context.Context, db *storage.DB, query string) error {
	if query == "" {
		return fmt.Errorf("usage: sql <query>")
	}
	cols, rows, err := db.QueryRaw(ctx, query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		cMuted.Println("(no rows)")
		return nil
	}
	printRaw(cols, rows)
	return nil
}
