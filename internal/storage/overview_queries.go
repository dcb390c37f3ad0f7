package storage

import (
	"context"
	"database/sql"

	"github.com/pable/go-dota-metrics/internal/model"
)

// GetOverview returns database-wide counts.
func (db *DB) GetOverview(ctx context.Context) (model.Overview, error) {
	var ov model.Overview
	var first, last sql.NullString
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(roles_resolved), 0),
		       COALESCE(SUM(CASE WHEN role_error <> '' THEN 1 ELSE 0 END), 0),
		       MIN(ingested_at), MAX(ingested_at)
		FROM matches`).Scan(&ov.Matches, &ov.Resolved, &ov.RoleErrors, &first, &last)
	if err != nil {
		return ov, err
	}
	ov.FirstIngest, ov.LastIngest = first.String, last.String
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT account_id) FROM match_players WHERE account_id <> 0").Scan(&ov.Players); err != nil {
		return ov, err
	}
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM league_aggregates").Scan(&ov.AggregateRows); err != nil {
		return ov, err
	}
	return ov, nil
}

// GetLeagueOverviews returns one row per league, by league id.
func (db *DB) GetLeagueOverviews(ctx context.Context) ([]model.LeagueOverview, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT league_id,
		       COUNT(*),
		       COALESCE(SUM(roles_resolved), 0),
		       COALESCE(AVG(radiant_win), 0),
		       COALESCE(AVG(duration), 0)
		FROM matches
		GROUP BY league_id
		ORDER BY league_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeagueOverview
	for rows.Next() {
		var l model.LeagueOverview
		if err := rows.Scan(&l.LeagueID, &l.Matches, &l.Resolved, &l.RadiantWR, &l.AvgLength); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// GetTopHeroes returns the limit most played heroes.
func (db *DB) GetTopHeroes(ctx context.Context, limit int) ([]model.HeroCount, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT hero_id, COUNT(*) AS n
		FROM match_players
		GROUP BY hero_id
		ORDER BY n DESC, hero_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.HeroCount
	for rows.Next() {
		var h model.HeroCount
		if err := rows.Scan(&h.HeroID, &h.Matches); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
