package aggregator

import (
	"context"
	"fmt"
	"testing"

	"github.com/pable/go-dota-metrics/internal/classify"
	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/model"
)

func unitOf(s int) string { return fmt.Sprintf("npc_dota_hero_h%d", s) }

func testCatalog(t *testing.T) config.Catalog {
	t.Helper()
	cat, err := config.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	return cat
}

// makeRaw builds a match of end+1 seconds where slot s holds role s%5+1 and
// earns (s+1) gold per second.
func makeRaw(end int) *model.RawMatch {
	raw := &model.RawMatch{MatchID: 77, LeagueID: 9, SourceHash: "hash77"}
	for s := 0; s < model.NumSlots; s++ {
		raw.Players = append(raw.Players, model.RawPlayer{
			Slot: model.Slot(s), Unit: unitOf(s), AccountID: int64(1000 + s), HeroID: 10 + s,
			LaneRole: model.Role(s%5 + 1),
		})
	}
	for t := 0; t <= end; t++ {
		for s := 0; s < model.NumSlots; s++ {
			raw.Heartbeats = append(raw.Heartbeats, model.RawHeartbeat{
				Time: t, Slot: model.Slot(s), Gold: 600 + (s+1)*t, XP: (s + 1) * t, Level: 1,
			})
		}
	}
	return raw
}

func ingest(t *testing.T, raw *model.RawMatch) *Match {
	t.Helper()
	m, err := Ingest(context.Background(), raw, testCatalog(t), logger.Discard())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	return m
}

func findRow(rows []model.MetricRow, metric string, slot model.Slot) (model.MetricRow, bool) {
	for _, r := range rows {
		if r.Metric == metric && r.Slot == slot {
			return r, true
		}
	}
	return model.MetricRow{}, false
}

func TestIngestNilMatch(t *testing.T) {
	if _, err := Ingest(context.Background(), nil, testCatalog(t), logger.Discard()); err == nil {
		t.Error("expected error for nil match")
	}
}

func TestIngestSummaryAndWindows(t *testing.T) {
	m := ingest(t, makeRaw(1300))
	if m.Summary.MatchID != 77 || m.Summary.LeagueID != 9 || m.Summary.Duration != 1300 {
		t.Errorf("summary = %+v", m.Summary)
	}
	if len(m.Windows) != 2*model.NumPhaseWindows {
		t.Fatalf("got %d windows", len(m.Windows))
	}
	for _, w := range m.Windows {
		switch w.Field {
		case model.Game1:
			if !w.Exists || w.Length != 101 || !w.Incomplete {
				t.Errorf("game_1 = %+v", w)
			}
		case model.Game2:
			if w.Exists {
				t.Errorf("game_2 should not exist: %+v", w)
			}
		}
	}
	if len(m.Players) != model.NumSlots || m.Players[3].RawRole != 4 {
		t.Errorf("players = %+v", m.Players)
	}
}

func TestIngestFillsTotals(t *testing.T) {
	m := ingest(t, makeRaw(1300))
	row, ok := findRow(m.Metrics, "gold.gained_per_window", 0)
	if !ok {
		t.Fatal("gold.gained_per_window missing")
	}
	// Five lane windows of 120 seconds, each gaining 119 gold at 1 gold/s.
	if got := row.Series[model.LaneTotal]; !got.Valid || got.V != 5*119 {
		t.Errorf("lane total = %v", got)
	}
	if got := row.Series[model.Game2]; got.Valid {
		t.Errorf("game_2 = %v, want absent", got)
	}
	max, _ := findRow(m.Metrics, "gold.max", 0)
	if max.Series[model.LaneTotal].Valid {
		t.Errorf("gold.max has no total, got %v", max.Series[model.LaneTotal])
	}
}

func TestIngestMissingCategoriesAreAbsent(t *testing.T) {
	m := ingest(t, makeRaw(200))
	row, ok := findRow(m.Metrics, "pings.sum", 2)
	if !ok {
		t.Fatal("pings.sum scaffold missing")
	}
	for i, v := range row.Series {
		if v.Valid {
			t.Errorf("pings.sum field %d = %v, want absent", i, v)
		}
	}
}

func TestResolveComparisonsAndFirstTower(t *testing.T) {
	raw := makeRaw(1300)
	raw.Deaths = []model.RawDeath{
		{Time: 500, Attacker: unitOf(0), Target: "npc_dota_badguys_tower1_bot"},
	}
	m := ingest(t, raw)
	res, err := Resolve(m, testCatalog(t))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Roles[0] != 1 || res.Roles[6] != 2 {
		t.Errorf("roles = %v", res.Roles)
	}

	// Dire bottom is Dire's off lane: roles 3 and 4 (slots 7 and 8) lose it,
	// Radiant's safe-lane roles 1 and 5 (slots 0 and 4) take it.
	lost, ok := findRow(res.Metrics, classify.LostTowerFirst, 7)
	if !ok || lost.Series[model.Lane4].V != 1 || lost.Series[model.LaneTotal].V != 1 {
		t.Errorf("lost_tower_first slot 7 = %+v", lost.Series)
	}
	won, _ := findRow(res.Metrics, classify.DestroyedTowerFirst, 4)
	if won.Series[model.Lane4].V != 1 {
		t.Errorf("destroyed_tower_first slot 4 = %+v", won.Series)
	}
	other, _ := findRow(res.Metrics, classify.LostTowerFirst, 5)
	if other.Series[model.Lane4].V != 0 || other.Series[model.Game2].Valid {
		t.Errorf("lost_tower_first slot 5 = %+v", other.Series)
	}

	var found bool
	for _, c := range res.Comparisons {
		if c.Comparandum == 0 && c.Comparans == 5 && c.Mode == model.ModeFlat && c.Metric == "gold.gained_per_window" {
			found = true
			// Slot 0 gains 1/s, slot 5 gains 6/s over 119 seconds in lane_0.
			if got := c.Series[model.Lane0].V; got != 119-6*119 {
				t.Errorf("flat lane_0 = %v", got)
			}
		}
	}
	if !found {
		t.Error("direct carry comparison missing")
	}
}

func TestResolveSurfacesRoleFailure(t *testing.T) {
	m := ingest(t, makeRaw(10))
	m.Players[0].RawRole = 9
	m.Players[1].RawRole = 1
	if _, err := Resolve(m, testCatalog(t)); err == nil {
		t.Error("expected role resolution error")
	}
}

func TestApplyRoles(t *testing.T) {
	players := []model.PlayerInfo{{Slot: 0, RawRole: 1}, {Slot: 1, RawRole: 1}}
	out := ApplyRoles(players, map[model.Slot]model.Role{0: 5, 1: 1})
	if out[0].Role != 5 || out[1].Role != 1 || players[0].Role != 0 {
		t.Errorf("ApplyRoles = %+v (input %+v)", out, players)
	}
}
