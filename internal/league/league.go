// Package league rolls stored match records up into league-level means.
//
// Plain aggregation groups performance records and direct comparisons by
// player, hero and role. Cross aggregation groups cross comparisons by
// (comparandum, comparans) pairs inside each role archetype. Every run
// replaces the previous rows of its kind.
package league

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

// Sources of aggregated series.
const (
	SourceStats = "stats"
	SourceFlat  = "flat"
	SourcePerc  = "perc"
)

// Groupings of aggregated series.
const (
	GroupPlayer = "player"
	GroupHero   = "hero"
	GroupRole   = "role"
)

var groupings = []string{GroupPlayer, GroupHero, GroupRole}

// Store is the subset of storage the aggregator reads and writes.
type Store interface {
	LeagueMatchIDs(ctx context.Context, leagueID int64, resolvedOnly bool) ([]int64, error)
	LeagueMetrics(ctx context.Context, leagueID int64) ([]model.LeagueMetric, error)
	LeagueComparisons(ctx context.Context, leagueID int64, kinds ...model.CompareKind) ([]model.LeagueComparison, error)
	ReplaceAggregates(ctx context.Context, leagueID int64, kind model.AggregateKind, runID string,
		rows []model.AggregateRow, matchIDs []int64) error
}

// Run recomputes one kind of aggregate for a league and replaces the stored
// rows. It returns the number of rows written.
func Run(ctx context.Context, store Store, cat config.Catalog, leagueID int64, kind model.AggregateKind, runID string) (int, error) {
	matchIDs, err := store.LeagueMatchIDs(ctx, leagueID, true)
	if err != nil {
		return 0, fmt.Errorf("list matches: %w", err)
	}
	var rows []model.AggregateRow
	switch kind {
	case model.AggregatePlain:
		metrics, err := store.LeagueMetrics(ctx, leagueID)
		if err != nil {
			return 0, fmt.Errorf("load metrics: %w", err)
		}
		cmps, err := store.LeagueComparisons(ctx, leagueID, model.KindDirect)
		if err != nil {
			return 0, fmt.Errorf("load comparisons: %w", err)
		}
		rows = Plain(cat, leagueID, metrics, cmps)
	case model.AggregateCross:
		cmps, err := store.LeagueComparisons(ctx, leagueID, model.KindCross)
		if err != nil {
			return 0, fmt.Errorf("load comparisons: %w", err)
		}
		rows = Cross(cat, leagueID, cmps)
	default:
		return 0, fmt.Errorf("unknown aggregate kind %q", kind)
	}
	if err := store.ReplaceAggregates(ctx, leagueID, kind, runID, rows, matchIDs); err != nil {
		return 0, fmt.Errorf("replace %s aggregates: %w", kind, err)
	}
	return len(rows), nil
}

// groupKey identifies one aggregate row before its mean is known.
type groupKey struct {
	source, grouping, key, archetype, metric string
}

// accumulator collects per-cell samples and contributing matches of one group.
type accumulator struct {
	cells   [model.NumFields][]float64
	matches map[int64]struct{}
}

type groups map[groupKey]*accumulator

func (g groups) add(k groupKey, matchID int64, s model.Series) {
	acc, ok := g[k]
	if !ok {
		acc = &accumulator{matches: map[int64]struct{}{}}
		g[k] = acc
	}
	acc.matches[matchID] = struct{}{}
	for i, v := range s {
		if v.Valid {
			acc.cells[i] = append(acc.cells[i], v.V)
		}
	}
}

// rows turns the groups into sorted aggregate rows.
func (g groups) rows(cat config.Catalog, leagueID int64, kind model.AggregateKind) []model.AggregateRow {
	out := make([]model.AggregateRow, 0, len(g))
	for k, acc := range g {
		var mean model.Series
		for i, vals := range acc.cells {
			if len(vals) > 0 {
				mean[i] = model.Of(stat.Mean(vals, nil))
			}
		}
		out = append(out, model.AggregateRow{
			LeagueID:    leagueID,
			Kind:        kind,
			Source:      k.source,
			Grouping:    k.grouping,
			Key:         k.key,
			Archetype:   k.archetype,
			Metric:      k.metric,
			Matches:     len(acc.matches),
			SmallSample: len(acc.matches) < cat.SmallSample,
			Series:      mean,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Grouping != b.Grouping {
			return a.Grouping < b.Grouping
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Archetype != b.Archetype {
			return a.Archetype < b.Archetype
		}
		return a.Metric < b.Metric
	})
	return out
}

// keyOf renders the grouping key of one identity.
func keyOf(grouping string, id model.Identity) string {
	switch grouping {
	case GroupPlayer:
		return strconv.FormatInt(id.AccountID, 10)
	case GroupHero:
		return strconv.Itoa(id.HeroID)
	default:
		return strconv.Itoa(int(id.Role))
	}
}

// Plain averages performance records and direct comparisons per player, hero
// and role.
func Plain(cat config.Catalog, leagueID int64, metrics []model.LeagueMetric, direct []model.LeagueComparison) []model.AggregateRow {
	g := groups{}
	for _, m := range metrics {
		for _, grouping := range groupings {
			g.add(groupKey{source: SourceStats, grouping: grouping, key: keyOf(grouping, m.Player), metric: m.Row.Metric},
				m.Row.MatchID, m.Row.Series)
		}
	}
	for _, c := range direct {
		if c.Cmp.Kind != model.KindDirect {
			continue
		}
		for _, grouping := range groupings {
			g.add(groupKey{source: string(c.Cmp.Mode), grouping: grouping, key: keyOf(grouping, c.From), metric: c.Cmp.Metric},
				c.Cmp.MatchID, c.Cmp.Series)
		}
	}
	return g.rows(cat, leagueID, model.AggregatePlain)
}

// Cross averages cross comparisons per (comparandum, comparans) pair within
// each archetype, keeping only metrics on the archetype's column allowlist.
func Cross(cat config.Catalog, leagueID int64, cross []model.LeagueComparison) []model.AggregateRow {
	g := groups{}
	for _, c := range cross {
		if c.Cmp.Kind != model.KindCross {
			continue
		}
		arch, ok := cat.ArchetypeOf(c.From.Role)
		if !ok || !arch.Covers(c.Cmp.Metric) {
			continue
		}
		if to, ok := cat.ArchetypeOf(c.To.Role); !ok || to.Name != arch.Name {
			continue
		}
		for _, grouping := range groupings {
			key := keyOf(grouping, c.From) + ":" + keyOf(grouping, c.To)
			g.add(groupKey{source: string(c.Cmp.Mode), grouping: grouping, key: key, archetype: arch.Name, metric: c.Cmp.Metric},
				c.Cmp.MatchID, c.Cmp.Series)
		}
	}
	return g.rows(cat, leagueID, model.AggregateCross)
}
