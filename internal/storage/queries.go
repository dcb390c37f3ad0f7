package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-dota-metrics/internal/codec"
	"github.com/pable/go-dota-metrics/internal/model"
)

var seriesCols = strings.Join(model.FieldNames(), ", ")

// MatchExists returns true if a match with the given id is already stored.
func (db *DB) MatchExists(ctx context.Context, matchID int64) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(1) FROM matches WHERE match_id = ?", matchID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MatchIDs returns every stored match id.
func (db *DB) MatchIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT match_id FROM matches ORDER BY match_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// InsertMatch stores everything Ingest produced for one match in a single
// transaction, replacing any previous copy of the match.
func (db *DB) InsertMatch(ctx context.Context, m *model.MatchRecord) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		id := m.Summary.MatchID
		if _, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE match_id = ?", id); err != nil {
			return fmt.Errorf("clear match %d: %w", id, err)
		}
		s := m.Summary
		var win sql.NullInt64
		if s.RadiantWin != nil {
			win = sql.NullInt64{Int64: int64(boolInt(*s.RadiantWin)), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO matches(match_id, league_id, source_hash, duration, radiant_win, roles_resolved, role_error, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, s.LeagueID, s.SourceHash, s.Duration, win, boolInt(s.RolesResolved), s.RoleError, s.IngestedAt,
		); err != nil {
			return fmt.Errorf("insert match %d: %w", id, err)
		}
		if err := insertWindows(ctx, tx, id, m.Windows); err != nil {
			return err
		}
		if err := insertPlayers(ctx, tx, m.Players); err != nil {
			return err
		}
		if err := insertKills(ctx, tx, id, m.Kills); err != nil {
			return err
		}
		if err := insertBuildings(ctx, tx, m.Buildings); err != nil {
			return err
		}
		return insertMetrics(ctx, tx, m.Metrics, db.eps)
	})
}

func insertWindows(ctx context.Context, tx *sql.Tx, matchID int64, ws []model.WindowInfo) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_windows(match_id, field, present, incomplete, start_s, end_s, length, length_minutes)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, w := range ws {
		if _, err := stmt.ExecContext(ctx, matchID, w.Field.String(), boolInt(w.Exists), boolInt(w.Incomplete),
			w.Start, w.End, w.Length, w.LengthMinutes); err != nil {
			return fmt.Errorf("insert window %s: %w", w.Field, err)
		}
	}
	return nil
}

func insertPlayers(ctx context.Context, tx *sql.Tx, ps []model.PlayerInfo) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO match_players(match_id, slot, account_id, hero_id, unit, name, raw_role, role, neutral_kills)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range ps {
		if _, err := stmt.ExecContext(ctx, p.MatchID, int(p.Slot), p.AccountID, p.HeroID, p.Unit, p.Name,
			int(p.RawRole), int(p.Role), p.NeutralKills); err != nil {
			return fmt.Errorf("insert player %d: %w", p.Slot, err)
		}
	}
	return nil
}

func insertKills(ctx context.Context, tx *sql.Tx, matchID int64, kills []model.Kill) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO match_kills(match_id, seq, time, attacker, victim) VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, k := range kills {
		var attacker sql.NullInt64
		if k.Attacker != nil {
			attacker = sql.NullInt64{Int64: int64(*k.Attacker), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, matchID, i, k.Time, attacker, int(k.Victim)); err != nil {
			return fmt.Errorf("insert kill %d: %w", i, err)
		}
	}
	return nil
}

func insertBuildings(ctx context.Context, tx *sql.Tx, bs []model.SideBuildings) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO side_buildings(match_id, side, towers_lost, rax_lost, lanes_destroyed,
			lane_1_destroyed, lane_2_destroyed, lane_3_destroyed, megacreeps, naked_throne,
			first_tower_lost, first_tower_time)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, b := range bs {
		if _, err := stmt.ExecContext(ctx, b.MatchID, b.Side.String(), b.TowersLost, b.RaxLost, b.LanesDestroyed,
			boolInt(b.Lane1Destroyed), boolInt(b.Lane2Destroyed), boolInt(b.Lane3Destroyed),
			boolInt(b.Megacreeps), boolInt(b.NakedThrone), b.FirstTowerLost.String(), b.FirstTowerTime); err != nil {
			return fmt.Errorf("insert buildings for %s: %w", b.Side, err)
		}
	}
	return nil
}

// insertMetrics encodes and upserts metric rows.
func insertMetrics(ctx context.Context, tx *sql.Tx, rs []model.MetricRow, eps float64) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO player_metrics(match_id, slot, metric, `+seriesCols+`, lane_mask, game_mask)
		VALUES (?,?,?,`+placeholders(int(model.NumFields))+`,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rs {
		codec.EncodeRow(&r, eps)
		args := []any{r.MatchID, int(r.Slot), r.Metric}
		args = append(args, seriesArgs(r.Series)...)
		args = append(args, maskArg(r.LaneMask), maskArg(r.GameMask))
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert metric %s slot %d: %w", r.Metric, r.Slot, err)
		}
	}
	return nil
}

// SaveResolution stores resolved roles, role-sensitive metrics and the
// comparisons of one match, replacing earlier comparisons.
func (db *DB) SaveResolution(ctx context.Context, matchID int64, assigned map[model.Slot]model.Role,
	metrics []model.MetricRow, cmps []model.Comparison) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for slot, role := range assigned {
			if _, err := tx.ExecContext(ctx, "UPDATE match_players SET role = ? WHERE match_id = ? AND slot = ?",
				int(role), matchID, int(slot)); err != nil {
				return fmt.Errorf("update role of slot %d: %w", slot, err)
			}
		}
		if err := insertMetrics(ctx, tx, metrics, db.eps); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM player_comparisons WHERE match_id = ?", matchID); err != nil {
			return fmt.Errorf("clear comparisons: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO player_comparisons(match_id, comparandum, comparans, mode, kind, metric, `+seriesCols+`, lane_mask, game_mask)
			VALUES (?,?,?,?,?,?,`+placeholders(int(model.NumFields))+`,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range cmps {
			codec.EncodeComparison(&c, db.eps)
			args := []any{c.MatchID, int(c.Comparandum), c.Comparans, string(c.Mode), string(c.Kind), c.Metric}
			args = append(args, seriesArgs(c.Series)...)
			args = append(args, maskArg(c.LaneMask), maskArg(c.GameMask))
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert comparison %s %d->%d: %w", c.Metric, c.Comparandum, c.Comparans, err)
			}
		}
		_, err = tx.ExecContext(ctx, "UPDATE matches SET roles_resolved = 1, role_error = '' WHERE match_id = ?", matchID)
		return err
	})
}

// MarkRoleError records why roles of a match could not be resolved.
func (db *DB) MarkRoleError(ctx context.Context, matchID int64, msg string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE matches SET roles_resolved = 0, role_error = ? WHERE match_id = ?", msg, matchID)
	return err
}

const summaryCols = `match_id, league_id, source_hash, duration, radiant_win, roles_resolved, role_error, ingested_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner) (model.MatchSummary, error) {
	var s model.MatchSummary
	var win sql.NullInt64
	var resolved int
	if err := sc.Scan(&s.MatchID, &s.LeagueID, &s.SourceHash, &s.Duration, &win, &resolved, &s.RoleError, &s.IngestedAt); err != nil {
		return s, err
	}
	if win.Valid {
		w := win.Int64 != 0
		s.RadiantWin = &w
	}
	s.RolesResolved = resolved != 0
	return s, nil
}

// ListMatches returns stored match summaries, newest id first. leagueID 0
// lists every league.
func (db *DB) ListMatches(ctx context.Context, leagueID int64) ([]model.MatchSummary, error) {
	q := "SELECT " + summaryCols + " FROM matches"
	var args []any
	if leagueID != 0 {
		q += " WHERE league_id = ?"
		args = append(args, leagueID)
	}
	rows, err := db.conn.QueryContext(ctx, q+" ORDER BY match_id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMatch loads a stored match with decoded metric rows.
func (db *DB) GetMatch(ctx context.Context, matchID int64) (*model.MatchRecord, error) {
	s, err := scanSummary(db.conn.QueryRowContext(ctx, "SELECT "+summaryCols+" FROM matches WHERE match_id = ?", matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	m := &model.MatchRecord{Summary: s}
	if m.Windows, err = db.windows(ctx, matchID); err != nil {
		return nil, err
	}
	if m.Players, err = db.Players(ctx, matchID); err != nil {
		return nil, err
	}
	if m.Kills, err = db.kills(ctx, matchID); err != nil {
		return nil, err
	}
	if m.Buildings, err = db.Buildings(ctx, matchID); err != nil {
		return nil, err
	}
	if m.Metrics, err = db.Metrics(ctx, matchID, ""); err != nil {
		return nil, err
	}
	return m, nil
}

func (db *DB) windows(ctx context.Context, matchID int64) ([]model.WindowInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT field, present, incomplete, start_s, end_s, length, length_minutes
		FROM match_windows WHERE match_id = ?`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WindowInfo
	for rows.Next() {
		var w model.WindowInfo
		var field string
		var present, incomplete int
		if err := rows.Scan(&field, &present, &incomplete, &w.Start, &w.End, &w.Length, &w.LengthMinutes); err != nil {
			return nil, err
		}
		f, ok := model.ParseField(field)
		if !ok {
			return nil, fmt.Errorf("unknown window field %q", field)
		}
		w.Field, w.Exists, w.Incomplete = f, present != 0, incomplete != 0
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// Players returns the roster of a match in slot order.
func (db *DB) Players(ctx context.Context, matchID int64) ([]model.PlayerInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT match_id, slot, account_id, hero_id, unit, name, raw_role, role, neutral_kills
		FROM match_players WHERE match_id = ? ORDER BY slot`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

// PlayerHistory returns every stored roster row of an account, newest match first.
func (db *DB) PlayerHistory(ctx context.Context, accountID int64) ([]model.PlayerInfo, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT match_id, slot, account_id, hero_id, unit, name, raw_role, role, neutral_kills
		FROM match_players WHERE account_id = ? ORDER BY match_id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func scanPlayers(rows *sql.Rows) ([]model.PlayerInfo, error) {
	var out []model.PlayerInfo
	for rows.Next() {
		var p model.PlayerInfo
		var slot, rawRole, role int
		if err := rows.Scan(&p.MatchID, &slot, &p.AccountID, &p.HeroID, &p.Unit, &p.Name, &rawRole, &role, &p.NeutralKills); err != nil {
			return nil, err
		}
		p.Slot, p.RawRole, p.Role = model.Slot(slot), model.Role(rawRole), model.Role(role)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (db *DB) kills(ctx context.Context, matchID int64) ([]model.Kill, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT time, attacker, victim FROM match_kills WHERE match_id = ? ORDER BY seq", matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Kill
	for rows.Next() {
		var k model.Kill
		var attacker sql.NullInt64
		var victim int
		if err := rows.Scan(&k.Time, &attacker, &victim); err != nil {
			return nil, err
		}
		if attacker.Valid {
			a := model.Slot(attacker.Int64)
			k.Attacker = &a
		}
		k.Victim = model.Slot(victim)
		out = append(out, k)
	}
	return out, rows.Err()
}

// Buildings returns both side summaries of a match.
func (db *DB) Buildings(ctx context.Context, matchID int64) ([]model.SideBuildings, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT side, towers_lost, rax_lost, lanes_destroyed, lane_1_destroyed, lane_2_destroyed,
		       lane_3_destroyed, megacreeps, naked_throne, first_tower_lost, first_tower_time
		FROM side_buildings WHERE match_id = ? ORDER BY side DESC`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SideBuildings
	for rows.Next() {
		b := model.SideBuildings{MatchID: matchID}
		var side, lane string
		var l1, l2, l3, mega, naked int
		if err := rows.Scan(&side, &b.TowersLost, &b.RaxLost, &b.LanesDestroyed, &l1, &l2, &l3, &mega, &naked,
			&lane, &b.FirstTowerTime); err != nil {
			return nil, err
		}
		b.Side = model.ParseSide(side)
		b.Lane1Destroyed, b.Lane2Destroyed, b.Lane3Destroyed = l1 != 0, l2 != 0, l3 != 0
		b.Megacreeps, b.NakedThrone = mega != 0, naked != 0
		b.FirstTowerLost = model.ParseLane(lane)
		out = append(out, b)
	}
	return out, rows.Err()
}

// Metrics returns the decoded metric rows of a match, optionally restricted
// to metric names starting with prefix.
func (db *DB) Metrics(ctx context.Context, matchID int64, prefix string) ([]model.MetricRow, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT match_id, slot, metric, `+seriesCols+`, lane_mask, game_mask
		FROM player_metrics WHERE match_id = ? AND metric LIKE ? ORDER BY metric, slot`, matchID, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MetricRow
	for rows.Next() {
		r, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanMetric(sc scanner, extra ...any) (model.MetricRow, error) {
	var r model.MetricRow
	var slot int
	cells, lane, game := seriesDest()
	dest := append([]any{&r.MatchID, &slot, &r.Metric}, cells...)
	dest = append(dest, lane, game)
	dest = append(dest, extra...)
	if err := sc.Scan(dest...); err != nil {
		return r, err
	}
	r.Slot = model.Slot(slot)
	r.Series, r.LaneMask, r.GameMask = seriesFrom(cells), maskFrom(lane), maskFrom(game)
	codec.DecodeRow(&r)
	return r, nil
}

// Comparisons returns the decoded comparisons of a match, optionally
// restricted to one kind.
func (db *DB) Comparisons(ctx context.Context, matchID int64, kind model.CompareKind) ([]model.Comparison, error) {
	q := `SELECT match_id, comparandum, comparans, mode, kind, metric, ` + seriesCols + `, lane_mask, game_mask
		FROM player_comparisons WHERE match_id = ?`
	args := []any{matchID}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	rows, err := db.conn.QueryContext(ctx, q+" ORDER BY metric, comparandum, comparans, mode", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Comparison
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanComparison(sc scanner, extra ...any) (model.Comparison, error) {
	var c model.Comparison
	var from int
	var mode, kind string
	cells, lane, game := seriesDest()
	dest := append([]any{&c.MatchID, &from, &c.Comparans, &mode, &kind, &c.Metric}, cells...)
	dest = append(dest, lane, game)
	dest = append(dest, extra...)
	if err := sc.Scan(dest...); err != nil {
		return c, err
	}
	c.Comparandum = model.Slot(from)
	c.Mode, c.Kind = model.CompareMode(mode), model.CompareKind(kind)
	c.Series, c.LaneMask, c.GameMask = seriesFrom(cells), maskFrom(lane), maskFrom(game)
	codec.DecodeComparison(&c)
	return c, nil
}

// DeleteMatch removes a match and everything hanging off it.
func (db *DB) DeleteMatch(ctx context.Context, matchID int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM matches WHERE match_id = ?", matchID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("match %d: %w", matchID, ErrNotFound)
	}
	return nil
}

// ---- helpers ----

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

func seriesArgs(s model.Series) []any {
	out := make([]any, len(s))
	for i, v := range s {
		if v.Valid {
			out[i] = v.V
		}
	}
	return out
}

func maskArg(m model.Mask) any {
	if !m.Valid {
		return nil
	}
	return int64(m.Bits)
}

func seriesDest() ([]any, *sql.NullInt64, *sql.NullInt64) {
	cells := make([]any, model.NumFields)
	for i := range cells {
		cells[i] = new(sql.NullFloat64)
	}
	return cells, new(sql.NullInt64), new(sql.NullInt64)
}

func seriesFrom(cells []any) model.Series {
	var s model.Series
	for i, c := range cells {
		if v := c.(*sql.NullFloat64); v.Valid {
			s[i] = model.Of(v.Float64)
		}
	}
	return s
}

func maskFrom(n *sql.NullInt64) model.Mask {
	if !n.Valid {
		return model.Mask{}
	}
	return model.Mask{Bits: uint64(n.Int64), Valid: true}
}
