package classify

import (
	"fmt"
	"math"
	"testing"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/timeline"
)

func unitOf(s int) string { return fmt.Sprintf("npc_dota_hero_h%d", s) }

// makeRaw builds a match with one heartbeat per slot per second over [0, end].
// Slot s earns (s+1) gold and xp per second on top of 600 starting gold.
func makeRaw(end int) *model.RawMatch {
	raw := &model.RawMatch{MatchID: 1}
	for s := 0; s < model.NumSlots; s++ {
		raw.Players = append(raw.Players, model.RawPlayer{
			Slot: model.Slot(s), Unit: unitOf(s), AccountID: int64(100 + s), HeroID: s + 1,
			LaneRole: model.Role(s%5 + 1),
		})
	}
	for t := 0; t <= end; t++ {
		for s := 0; s < model.NumSlots; s++ {
			raw.Heartbeats = append(raw.Heartbeats, model.RawHeartbeat{
				Time: t, Slot: model.Slot(s),
				Gold: 600 + (s+1)*t, XP: (s + 1) * t, LastHits: t / 10, Level: 1 + t/100,
			})
		}
	}
	return raw
}

func makeInput(t *testing.T, raw *model.RawMatch) *Input {
	t.Helper()
	cat, err := config.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	tl := timeline.New(cat, raw.Origin)
	for _, hb := range raw.Heartbeats {
		tl.Heartbeat(hb.Time)
	}
	tl.Close()
	return &Input{Raw: raw, Timeline: tl, Roster: NewRoster(raw.Players), Catalog: cat}
}

func mustClassify(t *testing.T, c Classifier, in *Input) *Result {
	t.Helper()
	res, err := c.Classify(in)
	if err != nil {
		t.Fatalf("%s: %v", c.Name(), err)
	}
	return res
}

func wantValue(t *testing.T, f *model.Frame, metric string, slot model.Slot, field model.Field, want float64) {
	t.Helper()
	got := f.Get(metric, slot, field)
	if !got.Valid || math.Abs(got.V-want) > 1e-9 {
		t.Errorf("%s[%s][%s] = %v, want %v", metric, slot, field, got, want)
	}
}

func wantAbsent(t *testing.T, f *model.Frame, metric string, slot model.Slot, field model.Field) {
	t.Helper()
	if got := f.Get(metric, slot, field); got.Valid {
		t.Errorf("%s[%s][%s] = %v, want absent", metric, slot, field, got)
	}
}

func TestPingsCountsPerWindow(t *testing.T) {
	raw := makeRaw(300)
	raw.Pings = []model.RawPing{{Time: 10, Slot: 2}, {Time: 20, Slot: 2}, {Time: 130, Slot: 2}, {Time: -30, Slot: 2}}
	res := mustClassify(t, Pings{}, makeInput(t, raw))

	wantValue(t, res.Frame, "pings.sum", 2, model.Lane0, 2)
	wantValue(t, res.Frame, "pings.sum", 2, model.Lane1, 1)
	wantValue(t, res.Frame, "pings.sum", 3, model.Lane0, 0)
	wantAbsent(t, res.Frame, "pings.sum", 2, model.Lane3)
	wantAbsent(t, res.Frame, "pings.sum", 2, model.Game0)
}

func TestMissingCategoryYieldsAbsentScaffold(t *testing.T) {
	in := makeInput(t, makeRaw(300))
	for _, c := range []Classifier{Pings{}, Wards{}, Damage{}} {
		res := mustClassify(t, c, in)
		if res.Frame.Len() == 0 {
			t.Fatalf("%s registered no metrics", c.Name())
		}
		for _, m := range res.Frame.Metrics() {
			s, _ := res.Frame.Series(m, 0)
			if s != (model.Series{}) {
				t.Errorf("%s: %s should be all absent, got %v", c.Name(), m, s)
			}
		}
	}
}

func TestGoldSeriesFunctions(t *testing.T) {
	res := mustClassify(t, Gold{}, makeInput(t, makeRaw(300)))
	f := res.Frame

	wantValue(t, f, "gold.max", 0, model.Lane0, 719)
	wantValue(t, f, "gold.gained_per_window", 0, model.Lane0, 119)
	wantValue(t, f, "gold.avg_by_length", 0, model.Lane0, 59.5)
	wantValue(t, f, "gold.gained_pm_median", 0, model.Lane0, 59)
	wantValue(t, f, "gold.max_global_perc", 0, model.Lane0, 719.0/1790.0)
	wantValue(t, f, "gold.max_global_perc", 9, model.Lane0, 1)

	// lane_2 is cut at 300: 61 samples, ceil(61/60) = 2 minutes.
	wantValue(t, f, "gold.gained_per_window", 1, model.Lane2, 120)
	wantValue(t, f, "gold.avg_by_length", 1, model.Lane2, 60)
	wantAbsent(t, f, "gold.max", 0, model.Lane3)
	wantAbsent(t, f, "gold.max_global_perc", 0, model.Game0)
	wantValue(t, f, "last_hits.gained_per_window", 0, model.Lane0, 11)
}

func TestGainedFunctionsUseSpread(t *testing.T) {
	// Gold rises to 2000 by t=50, then drops to 700 after a death.
	var samples []Sample
	for ts := 0; ts < 120; ts++ {
		v := 600 + float64(ts)*28
		if ts > 50 {
			v = 700
		}
		samples = append(samples, Sample{T: ts, V: v})
	}
	w := timeline.Window{Exists: true, ObservedStart: 0, ObservedEnd: 119, Length: 120, LengthMinutes: 2}

	cases := []struct {
		fn   string
		want float64
	}{
		{"gained_per_window", 1400},
		{"avg_by_length", 700},
		// minute 0 spans 600..2000, minute 1 is flat at 700.
		{"gained_pm_median", 700},
	}
	for _, c := range cases {
		got := SeriesFuncs[c.fn](w, samples)
		if !got.Valid || math.Abs(got.V-c.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", c.fn, got, c.want)
		}
	}
	if got := SeriesFuncs["gained_per_window"](w, nil); got.Valid {
		t.Errorf("gained_per_window of empty window = %v, want absent", got)
	}
}

func TestMaxGlobalPercZeroDenominator(t *testing.T) {
	got := MaxGlobalPerc(model.Of(0), []model.Value{model.Of(0), model.Null})
	if got != model.Of(0) {
		t.Errorf("MaxGlobalPerc = %v, want 0", got)
	}
	if got := MaxGlobalPerc(model.Of(5), []model.Value{model.Null}); got != model.Of(0) {
		t.Errorf("MaxGlobalPerc with absent denominators = %v, want 0", got)
	}
	if got := MaxGlobalPerc(model.Null, []model.Value{model.Of(3)}); got.Valid {
		t.Errorf("absent own value should stay absent, got %v", got)
	}
}

func TestMedianEvenAndOdd(t *testing.T) {
	if got := median([]float64{1, 3, 9}); got != 3 {
		t.Errorf("median odd = %v", got)
	}
	if got := median([]float64{1, 3, 5, 9}); got != 4 {
		t.Errorf("median even = %v", got)
	}
}

func TestDamageCategories(t *testing.T) {
	raw := makeRaw(300)
	raw.Damages = []model.RawDamage{
		{Time: 10, Attacker: unitOf(0), Target: unitOf(5), Value: 100, AttackerHero: true, TargetHero: true},
		{Time: 11, Attacker: unitOf(0), Target: unitOf(5), Value: 40, AttackerHero: true, TargetHero: true},
		{Time: 12, Attacker: "npc_dota_lone_druid_bear1", Source: unitOf(0), Target: unitOf(6), Value: 30, TargetHero: true},
		{Time: 13, Attacker: unitOf(0), Target: unitOf(7), Value: 25, AttackerHero: true, TargetHero: true, TargetIllusion: true},
		{Time: 14, Attacker: unitOf(0), Target: "npc_dota_badguys_tower1_top", Value: 60, AttackerHero: true},
		{Time: 15, Attacker: unitOf(0), Target: "npc_dota_neutral_kobold", Value: 15, AttackerHero: true},
		{Time: 16, Attacker: "npc_dota_creep_badguys_melee", Target: unitOf(0), Value: 20, TargetHero: true},
		{Time: 17, Attacker: unitOf(5), Target: unitOf(0), Value: 70, AttackerHero: true, TargetHero: true, AttackerIllusion: true},
	}
	res := mustClassify(t, Damage{}, makeInput(t, raw))
	f := res.Frame

	wantValue(t, f, dmgToHeroes, 0, model.Lane0, 140)
	wantValue(t, f, dmgToHeroesWithSummons, 0, model.Lane0, 170)
	wantValue(t, f, dmgToIllusions, 0, model.Lane0, 25)
	wantValue(t, f, dmgToBuildings, 0, model.Lane0, 60)
	wantValue(t, f, dmgToNeutrals, 0, model.Lane0, 15)
	wantValue(t, f, dmgTaken, 0, model.Lane0, 90)
	wantValue(t, f, dmgFromHeroes, 0, model.Lane0, 0)
	wantValue(t, f, dmgFromHeroes, 5, model.Lane0, 140)
	wantValue(t, f, dmgMaxHit, 0, model.Lane0, 100)
	wantAbsent(t, f, dmgMaxHit, 1, model.Lane0)
}

func TestWardsDewardAndLifetime(t *testing.T) {
	raw := makeRaw(700)
	raw.Wards = []model.RawWard{
		{Time: 30, Slot: 4, Kind: model.WardObserver, Handle: 1},
		{Time: 40, Slot: 4, Kind: model.WardSentry, Handle: 2},
		{Time: 390, Slot: 4, Kind: model.WardObserver, Removed: true, Handle: 1, Attacker: unitOf(8)},
		{Time: 500, Slot: 9, Kind: model.WardObserver, Handle: 3},
		{Time: 620, Slot: 9, Kind: model.WardObserver, Removed: true, Handle: 3},
	}
	res := mustClassify(t, Wards{}, makeInput(t, raw))
	f := res.Frame

	wantValue(t, f, "wards.observers_placed.sum", 4, model.Lane0, 1)
	wantValue(t, f, "wards.sentries_placed.sum", 4, model.Lane0, 1)
	wantValue(t, f, "wards.observers_dewarded.sum", 8, model.Lane3, 1)
	wantValue(t, f, "wards.observers_dewarded.sum", 4, model.Lane3, 0)
	wantValue(t, f, wardLifetime, 4, model.Lane0, 360)
	wantValue(t, f, wardLifetime, 9, model.Lane4, 120)
	wantAbsent(t, f, wardLifetime, 4, model.Lane1)
}

func TestBuildingsDireBottomRaxFirst(t *testing.T) {
	raw := makeRaw(1300)
	raw.Deaths = []model.RawDeath{
		{Time: 100, Attacker: unitOf(0), Target: "npc_dota_badguys_melee_rax_bot"},
		{Time: 110, Attacker: unitOf(0), Target: "npc_dota_badguys_range_rax_bot"},
		{Time: 500, Attacker: unitOf(0), Target: "npc_dota_badguys_tower1_bot"},
		{Time: 700, Attacker: unitOf(7), Target: "npc_dota_goodguys_tower1_top"},
	}
	in := makeInput(t, raw)
	res := mustClassify(t, Buildings{}, in)

	var dire, radiant model.SideBuildings
	for _, sb := range res.Buildings {
		if sb.Side == model.Dire {
			dire = sb
		} else {
			radiant = sb
		}
	}
	if !dire.Lane1Destroyed || dire.Lane2Destroyed || dire.Megacreeps || dire.LanesDestroyed != 1 {
		t.Errorf("dire summary = %+v", dire)
	}
	if dire.FirstTowerLost != model.LaneBot || dire.FirstTowerTime != 500 {
		t.Errorf("dire first tower = %v at %d", dire.FirstTowerLost, dire.FirstTowerTime)
	}
	if radiant.Lane1Destroyed || radiant.FirstTowerLost != model.LaneTop {
		t.Errorf("radiant summary = %+v", radiant)
	}
	wantValue(t, res.Frame, raxLost, 5, model.Lane0, 2)
	wantValue(t, res.Frame, raxDestroyed, 0, model.Lane0, 2)
	wantValue(t, res.Frame, towersLost, 9, model.Lane4, 1)
	wantValue(t, res.Frame, towersDestroyed, 5, model.Game0, 1)

	roles := map[model.Slot]model.Role{}
	for s := 0; s < model.NumSlots; s++ {
		roles[model.Slot(s)] = model.Role(s%5 + 1)
	}
	field, ok := in.Timeline.Locate(500)
	AttributeFirstTower(res.Frame, in.Catalog, res.Buildings, roles, field, ok, in.Timeline.Exists)

	// Dire bottom is Dire's off lane (roles 3 and 4), Radiant bottom its safe lane (1 and 5).
	for s := 0; s < model.NumSlots; s++ {
		slot := model.Slot(s)
		lost, destroyed := 0.0, 0.0
		switch s {
		case 7, 8:
			lost = 1
		case 0, 4:
			destroyed = 1
		}
		wantValue(t, res.Frame, LostTowerFirst, slot, model.Lane4, lost)
		wantValue(t, res.Frame, DestroyedTowerFirst, slot, model.Lane4, destroyed)
		wantValue(t, res.Frame, LostTowerFirst, slot, model.Lane0, 0)
	}
}

func TestParseBuilding(t *testing.T) {
	cases := []struct {
		unit string
		want Building
	}{
		{"npc_dota_goodguys_tower2_mid", Building{Side: model.Radiant, Kind: BuildingTower, Tier: 2, Lane: model.LaneMid}},
		{"npc_dota_badguys_tower4", Building{Side: model.Dire, Kind: BuildingTower, Tier: 4}},
		{"npc_dota_badguys_range_rax_top", Building{Side: model.Dire, Kind: BuildingRax, Lane: model.LaneTop}},
		{"npc_dota_goodguys_fort", Building{Side: model.Radiant, Kind: BuildingFort}},
	}
	for _, c := range cases {
		got, ok := ParseBuilding(c.unit)
		if !ok || got != c.want {
			t.Errorf("ParseBuilding(%q) = %+v, %v", c.unit, got, ok)
		}
	}
	if _, ok := ParseBuilding("npc_dota_hero_axe"); ok {
		t.Error("hero parsed as building")
	}
}

func TestNakedThroneAndMegacreeps(t *testing.T) {
	raw := makeRaw(2000)
	for i, lane := range []string{"top", "mid", "bot"} {
		raw.Deaths = append(raw.Deaths,
			model.RawDeath{Time: 1000 + i*10, Target: "npc_dota_goodguys_melee_rax_" + lane},
			model.RawDeath{Time: 1001 + i*10, Target: "npc_dota_goodguys_range_rax_" + lane},
		)
	}
	raw.Deaths = append(raw.Deaths,
		model.RawDeath{Time: 1100, Target: "npc_dota_goodguys_tower4"},
		model.RawDeath{Time: 1101, Target: "npc_dota_goodguys_tower4"},
	)
	res := mustClassify(t, Buildings{}, makeInput(t, raw))
	rad := res.Buildings[0]
	if !rad.Megacreeps || !rad.Lane3Destroyed || !rad.NakedThrone || rad.LanesDestroyed != 3 {
		t.Errorf("radiant = %+v", rad)
	}
}

func heroDeath(time, killer, victim int) model.RawDeath {
	d := model.RawDeath{Time: time, Target: unitOf(victim), TargetHero: true}
	if killer >= 0 {
		d.Attacker, d.AttackerHero = unitOf(killer), true
	} else {
		d.Attacker = "npc_dota_creep_goodguys_melee"
	}
	return d
}

func TestDeathsFirstBloodNullActor(t *testing.T) {
	raw := makeRaw(700)
	raw.Deaths = []model.RawDeath{
		heroDeath(200, -1, 6),
		heroDeath(210, 1, 6),
		{Time: 220, Attacker: unitOf(3), Target: "npc_dota_neutral_kobold"},
		{Time: 230, Attacker: "npc_dota_visage_familiar", Source: unitOf(3), Target: "npc_dota_neutral_kobold"},
	}
	raw.Roshans = []model.RawRoshanKill{{Time: 650, Side: model.Dire}}
	res := mustClassify(t, Deaths{}, makeInput(t, raw))
	f := res.Frame

	if len(res.Kills) != 2 || res.Kills[0].Attacker != nil {
		t.Fatalf("kills = %+v", res.Kills)
	}
	wantValue(t, f, fbVictim, 6, model.Lane1, 1)
	for s := 0; s < model.NumSlots; s++ {
		wantValue(t, f, fbClaimed, model.Slot(s), model.Lane1, 0)
	}
	wantValue(t, f, killsSum, 1, model.Lane1, 1)
	wantValue(t, f, deathsSum, 6, model.Lane1, 2)
	wantValue(t, f, neutralsKilled, 3, model.Lane1, 2)
	if res.NeutralKills[3] != 2 {
		t.Errorf("neutral kills = %v", res.NeutralKills)
	}
	wantValue(t, f, roshanKills, 7, model.Game0, 1)
	wantValue(t, f, roshanKills, 2, model.Game0, 0)
}

func TestFirstTenKills(t *testing.T) {
	radiantKill := func(i int) model.Kill { s := model.Slot(0); return model.Kill{Time: i, Attacker: &s, Victim: 5} }
	direKill := func(i int) model.Kill { s := model.Slot(5); return model.Kill{Time: i, Attacker: &s, Victim: 0} }
	nullKill := func(i int) model.Kill { return model.Kill{Time: i, Victim: 0} }

	var kills []model.Kill
	for i := 0; i < 6; i++ {
		kills = append(kills, radiantKill(i))
	}
	for i := 6; i < 9; i++ {
		kills = append(kills, direKill(i))
	}
	resolved := append(append([]model.Kill(nil), kills...), direKill(9))
	if side, ok := FirstTenWinner(resolved); !ok || side != model.Radiant {
		t.Errorf("winner = %v, %v; want radiant", side, ok)
	}

	unresolved := append(append([]model.Kill(nil), kills...), nullKill(9))
	if _, ok := FirstTenWinner(unresolved); ok {
		t.Error("unresolved tenth kill must leave the race indeterminate")
	}
	if _, ok := FirstTenWinner(kills); ok {
		t.Error("fewer than ten kills must be indeterminate")
	}
}
