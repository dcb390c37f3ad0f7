// Package pgsink mirrors league aggregates into Postgres so they can be
// queried alongside other services. SQLite stays the source of truth.
package pgsink

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pable/go-dota-metrics/internal/model"
)

const table = "dota_league_aggregates"

// Sink writes aggregate rows to a Postgres pool.
type Sink struct {
	pool *pgxpool.Pool
}

// Open connects to url and makes sure the mirror table exists.
func Open(ctx context.Context, url string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTable()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create mirror table: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// Close releases the pool.
func (s *Sink) Close() {
	s.pool.Close()
}

// Mirror replaces the (league, kind) rows of the mirror table with rows.
func (s *Sink) Mirror(ctx context.Context, leagueID int64, kind model.AggregateKind, rows []model.AggregateRow) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE league_id = $1 AND kind = $2", leagueID, string(kind)); err != nil {
		return fmt.Errorf("clear mirror: %w", err)
	}
	batch := &pgx.Batch{}
	q := insertStmt()
	for _, r := range rows {
		batch.Queue(q, rowArgs(r)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert mirror rows: %w", err)
	}
	return tx.Commit(ctx)
}

func createTable() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + table + ` (
    league_id    BIGINT NOT NULL,
    kind         TEXT NOT NULL,
    source       TEXT NOT NULL,
    grouping     TEXT NOT NULL,
    group_key    TEXT NOT NULL,
    archetype    TEXT NOT NULL,
    metric       TEXT NOT NULL,
    matches      INTEGER NOT NULL,
    small_sample BOOLEAN NOT NULL,
`)
	for _, f := range model.FieldNames() {
		b.WriteString("    " + f + " DOUBLE PRECISION,\n")
	}
	b.WriteString("    PRIMARY KEY (league_id, kind, source, grouping, group_key, archetype, metric)\n)")
	return b.String()
}

func insertStmt() string {
	cols := append([]string{"league_id", "kind", "source", "grouping", "group_key", "archetype", "metric", "matches", "small_sample"},
		model.FieldNames()...)
	params := make([]string, len(cols))
	for i := range cols {
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), strings.Join(params, ", "))
}

func rowArgs(r model.AggregateRow) []any {
	args := []any{r.LeagueID, string(r.Kind), r.Source, r.Grouping, r.Key, r.Archetype, r.Metric, r.Matches, r.SmallSample}
	for _, v := range r.Series {
		if v.Valid {
			args = append(args, v.V)
		} else {
			args = append(args, nil)
		}
	}
	return args
}
