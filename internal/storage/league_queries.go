package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pable/go-dota-metrics/internal/model"
)

// LeagueMatchIDs returns the ids of a league's matches. With resolvedOnly
// only matches whose roles were resolved are returned.
func (db *DB) LeagueMatchIDs(ctx context.Context, leagueID int64, resolvedOnly bool) ([]int64, error) {
	q := "SELECT match_id FROM matches WHERE league_id = ?"
	if resolvedOnly {
		q += " AND roles_resolved = 1"
	}
	rows, err := db.conn.QueryContext(ctx, q+" ORDER BY match_id", leagueID)
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

// LeagueMetrics returns every decoded metric row of the league's
// role-resolved matches, joined with the player's identity.
func (db *DB) LeagueMetrics(ctx context.Context, leagueID int64) ([]model.LeagueMetric, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT m.match_id, m.slot, m.metric, `+prefixed("m", model.FieldNames())+`, m.lane_mask, m.game_mask,
		       p.account_id, p.hero_id, p.role
		FROM player_metrics m
		JOIN matches x ON x.match_id = m.match_id
		JOIN match_players p ON p.match_id = m.match_id AND p.slot = m.slot
		WHERE x.league_id = ? AND x.roles_resolved = 1
		ORDER BY m.match_id, m.metric, m.slot`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeagueMetric
	for rows.Next() {
		var lm model.LeagueMetric
		var role int
		r, err := scanMetric(rows, &lm.Player.AccountID, &lm.Player.HeroID, &role)
		if err != nil {
			return nil, err
		}
		lm.Row = r
		lm.Player.Role = model.Role(role)
		out = append(out, lm)
	}
	return out, rows.Err()
}

// LeagueComparisons returns the decoded comparisons of the given kinds for
// the league's role-resolved matches, joined with both identities.
func (db *DB) LeagueComparisons(ctx context.Context, leagueID int64, kinds ...model.CompareKind) ([]model.LeagueComparison, error) {
	if len(kinds) == 0 {
		return nil, nil
	}
	args := []any{leagueID}
	for _, k := range kinds {
		args = append(args, string(k))
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.match_id, c.comparandum, c.comparans, c.mode, c.kind, c.metric, `+prefixed("c", model.FieldNames())+`,
		       c.lane_mask, c.game_mask,
		       f.account_id, f.hero_id, f.role,
		       COALESCE(t.account_id, 0), COALESCE(t.hero_id, 0), COALESCE(t.role, 0)
		FROM player_comparisons c
		JOIN matches x ON x.match_id = c.match_id
		JOIN match_players f ON f.match_id = c.match_id AND f.slot = c.comparandum
		LEFT JOIN match_players t ON t.match_id = c.match_id AND t.slot = c.comparans
		WHERE x.league_id = ? AND x.roles_resolved = 1 AND c.kind IN (`+placeholders(len(kinds))+`)
		ORDER BY c.match_id, c.metric, c.comparandum, c.comparans, c.mode`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeagueComparison
	for rows.Next() {
		var lc model.LeagueComparison
		var fromRole, toRole int
		c, err := scanComparison(rows,
			&lc.From.AccountID, &lc.From.HeroID, &fromRole,
			&lc.To.AccountID, &lc.To.HeroID, &toRole)
		if err != nil {
			return nil, err
		}
		lc.Cmp = c
		lc.From.Role, lc.To.Role = model.Role(fromRole), model.Role(toRole)
		out = append(out, lc)
	}
	return out, rows.Err()
}

func runColumn(kind model.AggregateKind) (string, error) {
	switch kind {
	case model.AggregatePlain:
		return "plain_run_id", nil
	case model.AggregateCross:
		return "cross_run_id", nil
	default:
		return "", fmt.Errorf("unknown aggregate kind %q", kind)
	}
}

// ReplaceAggregates swaps the league's aggregates of one kind for rows in a
// single transaction: back-references from matches are cleared, old runs and
// rows deleted, then the new run, its rows and the back-references of the
// contributing matches written. Readers never see a partial set.
func (db *DB) ReplaceAggregates(ctx context.Context, leagueID int64, kind model.AggregateKind, runID string,
	rows []model.AggregateRow, matchIDs []int64) error {
	col, err := runColumn(kind)
	if err != nil {
		return err
	}
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE matches SET "+col+" = NULL WHERE league_id = ?", leagueID); err != nil {
			return fmt.Errorf("clear back-references: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM aggregation_runs WHERE league_id = ? AND kind = ?", leagueID, string(kind)); err != nil {
			return fmt.Errorf("delete runs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM league_aggregates WHERE league_id = ? AND kind = ?", leagueID, string(kind)); err != nil {
			return fmt.Errorf("delete aggregates: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO aggregation_runs(run_id, league_id, kind, row_count, created_at) VALUES (?,?,?,?,?)`,
			runID, leagueID, string(kind), len(rows), time.Now().UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO league_aggregates(league_id, kind, source, grouping, group_key, archetype, metric, matches, small_sample, `+seriesCols+`)
			VALUES (?,?,?,?,?,?,?,?,?,`+placeholders(int(model.NumFields))+`)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range rows {
			args := []any{leagueID, string(kind), r.Source, r.Grouping, r.Key, r.Archetype, r.Metric, r.Matches, boolInt(r.SmallSample)}
			args = append(args, seriesArgs(r.Series)...)
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert aggregate %s/%s/%s/%s: %w", r.Source, r.Grouping, r.Key, r.Metric, err)
			}
		}

		ref, err := tx.PrepareContext(ctx, "UPDATE matches SET "+col+" = ? WHERE match_id = ? AND league_id = ?")
		if err != nil {
			return err
		}
		defer ref.Close()
		for _, id := range matchIDs {
			if _, err := ref.ExecContext(ctx, runID, id, leagueID); err != nil {
				return fmt.Errorf("set back-reference of %d: %w", id, err)
			}
		}
		return nil
	})
}

// Aggregates returns the league's aggregate rows of one kind in key order.
// An empty kind returns both.
func (db *DB) Aggregates(ctx context.Context, leagueID int64, kind model.AggregateKind) ([]model.AggregateRow, error) {
	q := `SELECT league_id, kind, source, grouping, group_key, archetype, metric, matches, small_sample, ` + seriesCols + `
		FROM league_aggregates WHERE league_id = ?`
	args := []any{leagueID}
	if kind != "" {
		q += " AND kind = ?"
		args = append(args, string(kind))
	}
	rows, err := db.conn.QueryContext(ctx, q+" ORDER BY kind, source, grouping, group_key, archetype, metric", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AggregateRow
	for rows.Next() {
		var r model.AggregateRow
		var k string
		var small int
		cells, _, _ := seriesDest()
		dest := append([]any{&r.LeagueID, &k, &r.Source, &r.Grouping, &r.Key, &r.Archetype, &r.Metric, &r.Matches, &small}, cells...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		r.Kind, r.SmallSample, r.Series = model.AggregateKind(k), small != 0, seriesFrom(cells)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunIDs returns the run id each match of the league currently points at for kind.
func (db *DB) RunIDs(ctx context.Context, leagueID int64, kind model.AggregateKind) (map[int64]string, error) {
	col, err := runColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, "SELECT match_id, "+col+" FROM matches WHERE league_id = ?", leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int64]string{}
	for rows.Next() {
		var id int64
		var run sql.NullString
		if err := rows.Scan(&id, &run); err != nil {
			return nil, err
		}
		if run.Valid {
			out[id] = run.String
		}
	}
	return out, rows.Err()
}

// SetStage upserts the progress record of a league run.
func (db *DB) SetStage(ctx context.Context, rec model.StageRecord) error {
	if rec.UpdatedAt == "" {
		rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO league_stages(league_id, run_id, dir, stage, status, error, updated_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(league_id) DO UPDATE SET
			run_id = excluded.run_id, dir = excluded.dir, stage = excluded.stage,
			status = excluded.status, error = excluded.error, updated_at = excluded.updated_at`,
		rec.LeagueID, rec.RunID, rec.Dir, string(rec.Stage), string(rec.Status), rec.Error, rec.UpdatedAt)
	return err
}

// GetStage returns the progress record of a league.
func (db *DB) GetStage(ctx context.Context, leagueID int64) (model.StageRecord, error) {
	var rec model.StageRecord
	var stage, status string
	err := db.conn.QueryRowContext(ctx, `
		SELECT league_id, run_id, dir, stage, status, error, updated_at FROM league_stages WHERE league_id = ?`, leagueID).
		Scan(&rec.LeagueID, &rec.RunID, &rec.Dir, &stage, &status, &rec.Error, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("league %d: %w", leagueID, ErrNotFound)
	}
	if err != nil {
		return rec, err
	}
	rec.Stage, rec.Status = model.Stage(stage), model.StageStatus(status)
	return rec, nil
}

// Stages returns every league progress record.
func (db *DB) Stages(ctx context.Context) ([]model.StageRecord, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT league_id, run_id, dir, stage, status, error, updated_at FROM league_stages ORDER BY league_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StageRecord
	for rows.Next() {
		var rec model.StageRecord
		var stage, status string
		if err := rows.Scan(&rec.LeagueID, &rec.RunID, &rec.Dir, &stage, &status, &rec.Error, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Stage, rec.Status = model.Stage(stage), model.StageStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// QueryRaw runs an arbitrary query and returns the column names and every
// row rendered as strings.
func (db *DB) QueryRaw(ctx context.Context, query string) ([]string, [][]string, error) {
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}
	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			switch x := v.(type) {
			case nil:
				row[i] = "NULL"
			case []byte:
				row[i] = string(x)
			default:
				row[i] = fmt.Sprint(x)
			}
		}
		out = append(out, row)
	}
	return cols, out, rows.Err()
}

func prefixed(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}
