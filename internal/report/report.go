package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-dota-metrics/internal/model"
)

const missing = "-"

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

func value(v model.Value) string {
	if !v.Valid {
		return missing
	}
	return strconv.FormatFloat(v.V, 'f', 2, 64)
}

func seriesCells(s model.Series) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = value(v)
	}
	return out
}

func seriesHeader(lead ...string) []string {
	return append(lead, model.FieldNames()...)
}

func row(c ...string) []string { return c }

func cells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func winner(w *bool) string {
	switch {
	case w == nil:
		return missing
	case *w:
		return "radiant"
	default:
		return "dire"
	}
}

// PrintMatchSummary prints a one-line summary header for the match.
func PrintMatchSummary(w io.Writer, s model.MatchSummary) {
	hash := s.SourceHash
	if len(hash) > 12 {
		hash = hash[:12]
	}
	roles := "resolved"
	if !s.RolesResolved {
		roles = "unresolved"
		if s.RoleError != "" {
			roles += " (" + s.RoleError + ")"
		}
	}
	fmt.Fprintf(w, "\nMatch: %d  |  League: %d  |  Duration: %ds  |  Winner: %s  |  Roles: %s  |  Hash: %s\n\n",
		s.MatchID, s.LeagueID, s.Duration, winner(s.RadiantWin), roles, hash)
}

// PrintMatchList prints one row per stored match.
func PrintMatchList(w io.Writer, ms []model.MatchSummary) {
	table := newTable(w)
	table.Header("MATCH", "LEAGUE", "DURATION", "WINNER", "ROLES", "INGESTED")
	for _, m := range ms {
		roles := "ok"
		if !m.RolesResolved {
			roles = "pending"
			if m.RoleError != "" {
				roles = "error"
			}
		}
		table.Append(
			strconv.FormatInt(m.MatchID, 10),
			strconv.FormatInt(m.LeagueID, 10),
			strconv.Itoa(m.Duration),
			winner(m.RadiantWin),
			roles,
			m.IngestedAt,
		)
	}
	table.Render()
}

// PrintWindows prints the observed window layout of a match.
func PrintWindows(w io.Writer, ws []model.WindowInfo) {
	table := newTable(w)
	table.Header("FIELD", "EXISTS", "START", "END", "LENGTH", "MINUTES", "INCOMPLETE")
	for _, win := range ws {
		if !win.Exists {
			table.Append(win.Field.String(), "no", missing, missing, missing, missing, missing)
			continue
		}
		incomplete := ""
		if win.Incomplete {
			incomplete = "*"
		}
		table.Append(
			win.Field.String(),
			"yes",
			strconv.Itoa(win.Start),
			strconv.Itoa(win.End),
			strconv.Itoa(win.Length),
			strconv.Itoa(win.LengthMinutes),
			incomplete,
		)
	}
	table.Render()
}

// PrintPlayers prints the roster. If focusAccount is non-zero, that player's
// row is marked with ">".
func PrintPlayers(w io.Writer, ps []model.PlayerInfo, focusAccount int64) {
	table := newTable(w)
	table.Header(" ", "SLOT", "SIDE", "ACCOUNT", "HERO", "UNIT", "LANE_ROLE", "ROLE", "NEUTRALS")
	for _, p := range ps {
		marker := " "
		if focusAccount != 0 && p.AccountID == focusAccount {
			marker = ">"
		}
		role := missing
		if p.Role != 0 {
			role = strconv.Itoa(int(p.Role))
		}
		table.Append(
			marker,
			strconv.Itoa(int(p.Slot)),
			p.Slot.Side().String(),
			strconv.FormatInt(p.AccountID, 10),
			strconv.Itoa(p.HeroID),
			p.Unit,
			strconv.Itoa(int(p.RawRole)),
			role,
			strconv.Itoa(p.NeutralKills),
		)
	}
	table.Render()
}

// PrintHistory prints the matches a player appeared in.
func PrintHistory(w io.Writer, ps []model.PlayerInfo) {
	table := newTable(w)
	table.Header("MATCH", "SLOT", "HERO", "LANE_ROLE", "ROLE")
	for _, p := range ps {
		role := missing
		if p.Role != 0 {
			role = strconv.Itoa(int(p.Role))
		}
		table.Append(
			strconv.FormatInt(p.MatchID, 10),
			strconv.Itoa(int(p.Slot)),
			strconv.Itoa(p.HeroID),
			strconv.Itoa(int(p.RawRole)),
			role,
		)
	}
	table.Render()
}

// PrintBuildings prints per-side structure losses.
func PrintBuildings(w io.Writer, bs []model.SideBuildings) {
	table := newTable(w)
	table.Header("SIDE", "TOWERS", "RAX", "LANES", "MEGAS", "NAKED", "FIRST_TOWER", "AT")
	for _, b := range bs {
		first, at := missing, missing
		if b.FirstTowerLost != model.LaneNone {
			first, at = b.FirstTowerLost.String(), strconv.Itoa(b.FirstTowerTime)
		}
		table.Append(
			b.Side.String(),
			strconv.Itoa(b.TowersLost),
			strconv.Itoa(b.RaxLost),
			strconv.Itoa(b.LanesDestroyed),
			strconv.FormatBool(b.Megacreeps),
			strconv.FormatBool(b.NakedThrone),
			first,
			at,
		)
	}
	table.Render()
}

// PrintMetrics prints one row per (metric, slot).
func PrintMetrics(w io.Writer, rows []model.MetricRow) {
	table := newTable(w)
	table.Header(cells(seriesHeader("METRIC", "SLOT"))...)
	for _, r := range rows {
		table.Append(cells(append(row(r.Metric, strconv.Itoa(int(r.Slot))), seriesCells(r.Series)...))...)
	}
	table.Render()
}

// PrintComparisons prints comparison records. The averaged comparans is
// shown as "avg".
func PrintComparisons(w io.Writer, cmps []model.Comparison) {
	table := newTable(w)
	table.Header(cells(seriesHeader("METRIC", "FROM", "TO", "MODE", "KIND"))...)
	for _, c := range cmps {
		to := strconv.Itoa(c.Comparans)
		if c.Comparans == model.AllOpponents {
			to = "avg"
		}
		lead := row(c.Metric, strconv.Itoa(int(c.Comparandum)), to, string(c.Mode), string(c.Kind))
		table.Append(cells(append(lead, seriesCells(c.Series)...))...)
	}
	table.Render()
}

func sampleFlag(a model.AggregateRow) string {
	if a.SmallSample {
		return "LOW"
	}
	return "OK"
}

// PrintAggregates prints league aggregate rows.
func PrintAggregates(w io.Writer, rows []model.AggregateRow) {
	table := newTable(w)
	table.Header(cells(seriesHeader("KIND", "SOURCE", "GROUPING", "KEY", "ARCHETYPE", "METRIC", "N", "SAMPLE"))...)
	for _, a := range rows {
		arch := a.Archetype
		if arch == "" {
			arch = missing
		}
		lead := row(string(a.Kind), a.Source, a.Grouping, a.Key, arch, a.Metric, strconv.Itoa(a.Matches), sampleFlag(a))
		table.Append(cells(append(lead, seriesCells(a.Series)...))...)
	}
	table.Render()
}

// PrintStages prints the progress record of every league run.
func PrintStages(w io.Writer, recs []model.StageRecord) {
	table := newTable(w)
	table.Header("LEAGUE", "RUN", "STAGE", "STATUS", "UPDATED", "ERROR")
	for _, r := range recs {
		table.Append(strconv.FormatInt(r.LeagueID, 10), r.RunID, string(r.Stage), string(r.Status), r.UpdatedAt, r.Error)
	}
	table.Render()
}

// aggregateCSV is the flat CSV shape of an AggregateRow. Absent cells are empty.
type aggregateCSV struct {
	model.AggregateRow
	Lane0     string `csv:"lane_0"`
	Lane1     string `csv:"lane_1"`
	Lane2     string `csv:"lane_2"`
	Lane3     string `csv:"lane_3"`
	Lane4     string `csv:"lane_4"`
	LaneTotal string `csv:"lane_total"`
	Game0     string `csv:"game_0"`
	Game1     string `csv:"game_1"`
	Game2     string `csv:"game_2"`
	Game3     string `csv:"game_3"`
	Game4     string `csv:"game_4"`
	GameTotal string `csv:"game_total"`
}

func csvCell(v model.Value) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.V, 'g', -1, 64)
}

// WriteAggregatesCSV writes rows as CSV with a header line.
func WriteAggregatesCSV(w io.Writer, rows []model.AggregateRow) error {
	out := make([]*aggregateCSV, len(rows))
	for i, r := range rows {
		s := r.Series
		out[i] = &aggregateCSV{
			AggregateRow: r,
			Lane0:        csvCell(s[model.Lane0]),
			Lane1:        csvCell(s[model.Lane1]),
			Lane2:        csvCell(s[model.Lane2]),
			Lane3:        csvCell(s[model.Lane3]),
			Lane4:        csvCell(s[model.Lane4]),
			LaneTotal:    csvCell(s[model.LaneTotal]),
			Game0:        csvCell(s[model.Game0]),
			Game1:        csvCell(s[model.Game1]),
			Game2:        csvCell(s[model.Game2]),
			Game3:        csvCell(s[model.Game3]),
			Game4:        csvCell(s[model.Game4]),
			GameTotal:    csvCell(s[model.GameTotal]),
		}
	}
	return gocsv.Marshal(out, w)
}

// TrendPoint is one match of a player's metric history.
type TrendPoint struct {
	MatchID int64
	HeroID  int
	Role    model.Role
	Series  model.Series
}

// PrintTrend prints a player's series for one metric, one row per match.
func PrintTrend(w io.Writer, metric string, pts []TrendPoint) {
	fmt.Fprintf(w, "\n--- %s ---\n\n", metric)
	table := newTable(w)
	table.Header(cells(seriesHeader("MATCH", "HERO", "ROLE"))...)
	for _, p := range pts {
		role := missing
		if p.Role != 0 {
			role = strconv.Itoa(int(p.Role))
		}
		lead := row(strconv.FormatInt(p.MatchID, 10), strconv.Itoa(p.HeroID), role)
		table.Append(cells(append(lead, seriesCells(p.Series)...))...)
	}
	table.Render()
}
