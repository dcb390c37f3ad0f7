// Package aggregator turns one decoded match into stored-ready records.
//
// Ingest runs everything that does not depend on roles: the timeline, the
// seven classifiers and phase totals. Resolve runs once roles can be decided
// and adds the role-sensitive first-tower metrics and the comparisons.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pable/go-dota-metrics/internal/classify"
	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/postprocess"
	"github.com/pable/go-dota-metrics/internal/roles"
	"github.com/pable/go-dota-metrics/internal/timeline"
)

// Match is the role-independent output of Ingest.
type Match = model.MatchRecord

// Ingest computes all role-independent metrics of raw.
func Ingest(ctx context.Context, raw *model.RawMatch, cat config.Catalog, log logger.Logger) (*Match, error) {
	if raw == nil {
		return nil, fmt.Errorf("nil RawMatch")
	}
	tl := timeline.New(cat, raw.Origin)
	for _, hb := range raw.Heartbeats {
		tl.Heartbeat(hb.Time)
	}
	tl.Close()
	length, err := tl.MatchLength()
	if err != nil {
		return nil, err
	}

	in := &classify.Input{Raw: raw, Timeline: tl, Roster: classify.NewRoster(raw.Players), Catalog: cat}
	classifiers := classify.All()
	results := make([]*classify.Result, len(classifiers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range classifiers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.Classify(in)
			if err != nil {
				return fmt.Errorf("classify %s: %w", c.Name(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f := model.NewFrame()
	m := &Match{
		Summary: model.MatchSummary{
			MatchID:    raw.MatchID,
			LeagueID:   raw.LeagueID,
			SourceHash: raw.SourceHash,
			Duration:   length,
			RadiantWin: raw.RadiantWin,
			IngestedAt: time.Now().UTC().Format(time.RFC3339),
		},
		Windows: tl.Infos(),
	}
	neutrals := map[model.Slot]int{}
	for _, res := range results {
		f.Merge(res.Frame)
		m.Buildings = append(m.Buildings, res.Buildings...)
		m.Kills = append(m.Kills, res.Kills...)
		for s, n := range res.NeutralKills {
			neutrals[s] += n
		}
	}
	postprocess.FillTotals(f, cat, tl.Exists)

	for _, p := range raw.Players {
		m.Players = append(m.Players, model.PlayerInfo{
			MatchID:      raw.MatchID,
			Slot:         p.Slot,
			AccountID:    p.AccountID,
			HeroID:       p.HeroID,
			Unit:         p.Unit,
			Name:         p.Name,
			RawRole:      p.LaneRole,
			NeutralKills: neutrals[p.Slot],
		})
	}
	m.Metrics = rows(raw.MatchID, f)

	log.Debug(ctx, "match ingested",
		logger.MatchID(raw.MatchID),
		logger.Int("duration", length),
		logger.Int("metrics", f.Len()),
		logger.Int("kills", len(m.Kills)),
	)
	return m, nil
}

// Resolved is the role-dependent output of Resolve.
type Resolved struct {
	Roles       map[model.Slot]model.Role
	Metrics     []model.MetricRow // role-sensitive metrics only
	Comparisons []model.Comparison
}

// Resolve assigns roles and derives everything that depends on them. m is
// usually reloaded from the store, so only Summary, Windows, Players,
// Buildings and Metrics need to be set.
func Resolve(m *Match, cat config.Catalog) (*Resolved, error) {
	assigned, err := roles.Resolve(cat, m.Players)
	if err != nil {
		return nil, fmt.Errorf("match %d: %w", m.Summary.MatchID, err)
	}

	f := frame(m.Metrics)
	exists := existsFunc(m.Windows)
	first, ok := classify.FirstTower(m.Buildings)
	var field model.Field
	if ok {
		field, ok = locate(cat, m.Windows, first.FirstTowerTime)
	}
	classify.AttributeFirstTower(f, cat, m.Buildings, assigned, field, ok, exists)
	postprocess.FillTotals(f, cat, exists)

	sensitive := model.NewFrame()
	for _, metric := range []string{classify.LostTowerFirst, classify.DestroyedTowerFirst} {
		for _, slot := range model.AllSlots() {
			s, _ := f.Series(metric, slot)
			sensitive.SetSeries(metric, slot, s)
		}
	}

	return &Resolved{
		Roles:       assigned,
		Metrics:     rows(m.Summary.MatchID, sensitive),
		Comparisons: postprocess.Compare(m.Summary.MatchID, f, assigned, cat),
	}, nil
}

// ApplyRoles copies resolved roles onto the roster.
func ApplyRoles(players []model.PlayerInfo, assigned map[model.Slot]model.Role) []model.PlayerInfo {
	out := make([]model.PlayerInfo, len(players))
	for i, p := range players {
		p.Role = assigned[p.Slot]
		out[i] = p
	}
	return out
}

func rows(matchID int64, f *model.Frame) []model.MetricRow {
	var out []model.MetricRow
	for _, metric := range f.Metrics() {
		for _, slot := range model.AllSlots() {
			s, _ := f.Series(metric, slot)
			out = append(out, model.MetricRow{MatchID: matchID, Slot: slot, Metric: metric, Series: s})
		}
	}
	return out
}

func frame(rs []model.MetricRow) *model.Frame {
	f := model.NewFrame()
	for _, r := range rs {
		f.SetSeries(r.Metric, r.Slot, r.Series)
	}
	return f
}

func existsFunc(windows []model.WindowInfo) func(model.Field) bool {
	var seen [model.NumFields]bool
	for _, w := range windows {
		if w.Field >= 0 && w.Field < model.NumFields {
			seen[w.Field] = w.Exists
		}
	}
	return func(f model.Field) bool { return f >= 0 && f < model.NumFields && seen[f] }
}

// locate maps a time relative to the horn to the existing window declaring it.
func locate(cat config.Catalog, windows []model.WindowInfo, rel int) (model.Field, bool) {
	exists := existsFunc(windows)
	for _, p := range model.Phases {
		for i, spec := range cat.Windows(p) {
			field := p.WindowField(i)
			if !exists(field) || rel < spec.Start || (spec.Bounded() && rel >= spec.End) {
				continue
			}
			return field, true
		}
	}
	return 0, false
}
