package classify

import (
	"regexp"
	"strconv"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

// BuildingKind separates towers, barracks and the ancient.
type BuildingKind int

const (
	BuildingTower BuildingKind = iota
	BuildingRax
	BuildingFort
)

// Building is a parsed building unit name.
type Building struct {
	Side  model.Side // owner
	Kind  BuildingKind
	Tier  int // towers only
	Lane  model.Lane
	Melee bool // barracks only
}

var buildingRe = regexp.MustCompile(`^npc_dota_(goodguys|badguys)_(?:tower([1-4])(?:_(top|mid|bot))?|(melee|range)_rax_(top|mid|bot)|(fort))$`)

// ParseBuilding parses names like npc_dota_badguys_melee_rax_bot.
func ParseBuilding(unit string) (Building, bool) {
	m := buildingRe.FindStringSubmatch(unit)
	if m == nil {
		return Building{}, false
	}
	b := Building{Side: model.Radiant}
	if m[1] == "badguys" {
		b.Side = model.Dire
	}
	switch {
	case m[2] != "":
		b.Kind = BuildingTower
		b.Tier, _ = strconv.Atoi(m[2])
		b.Lane = model.ParseLane(m[3])
	case m[4] != "":
		b.Kind = BuildingRax
		b.Melee = m[4] == "melee"
		b.Lane = model.ParseLane(m[5])
	default:
		b.Kind = BuildingFort
	}
	return b, true
}

// Buildings derives side-level destruction counts and flags.
type Buildings struct{}

func (Buildings) Name() string { return "buildings" }

const (
	towersDestroyed = "buildings.towers_destroyed.sum"
	towersLost      = "buildings.towers_lost.sum"
	raxDestroyed    = "buildings.rax_destroyed.sum"
	raxLost         = "buildings.rax_lost.sum"

	// Filled once roles are known, see AttributeFirstTower.
	LostTowerFirst      = "buildings.lost_tower_first"
	DestroyedTowerFirst = "buildings.destroyed_tower_first"
)

var buildingCounters = []string{towersDestroyed, towersLost, raxDestroyed, raxLost}

type raxState struct {
	melee, ranged bool
}

func (Buildings) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	type kill struct {
		clock int
		b     Building
	}
	var kills []kill
	for _, d := range in.Raw.Deaths {
		if b, ok := ParseBuilding(d.Target); ok {
			kills = append(kills, kill{clock: d.Time, b: b})
		}
	}

	summary := map[model.Side]*model.SideBuildings{
		model.Radiant: {MatchID: in.Raw.MatchID, Side: model.Radiant},
		model.Dire:    {MatchID: in.Raw.MatchID, Side: model.Dire},
	}
	if len(kills) == 0 {
		scaffold(f, buildingCounters...)
		return &Result{Frame: f, Buildings: []model.SideBuildings{*summary[model.Radiant], *summary[model.Dire]}}, nil
	}
	in.counters(f, buildingCounters...)

	rax := map[model.Side]map[model.Lane]*raxState{model.Radiant: {}, model.Dire: {}}
	tier4 := map[model.Side]int{}
	for _, k := range kills {
		owner := k.b.Side
		sb := summary[owner]
		switch k.b.Kind {
		case BuildingTower:
			sb.TowersLost++
			in.addSide(f, towersLost, owner, k.clock, 1)
			in.addSide(f, towersDestroyed, owner.Opponent(), k.clock, 1)
			if sb.FirstTowerLost == model.LaneNone && k.b.Lane != model.LaneNone && sb.TowersLost == 1 {
				sb.FirstTowerLost = k.b.Lane
				sb.FirstTowerTime = in.Timeline.Relative(k.clock)
			}
			if k.b.Tier == 4 {
				tier4[owner]++
				sb.NakedThrone = tier4[owner] >= 2
			}
		case BuildingRax:
			sb.RaxLost++
			in.addSide(f, raxLost, owner, k.clock, 1)
			in.addSide(f, raxDestroyed, owner.Opponent(), k.clock, 1)
			st, ok := rax[owner][k.b.Lane]
			if !ok {
				st = &raxState{}
				rax[owner][k.b.Lane] = st
			}
			wasDown := st.melee && st.ranged
			if k.b.Melee {
				st.melee = true
			} else {
				st.ranged = true
			}
			if !wasDown && st.melee && st.ranged {
				sb.LanesDestroyed++
			}
			sb.Lane1Destroyed = sb.LanesDestroyed >= 1
			sb.Lane2Destroyed = sb.LanesDestroyed >= 2
			sb.Lane3Destroyed = sb.LanesDestroyed >= 3
			sb.Megacreeps = sb.LanesDestroyed >= 3
		}
	}
	return &Result{Frame: f, Buildings: []model.SideBuildings{*summary[model.Radiant], *summary[model.Dire]}}, nil
}

// FirstTower picks the side that lost the first tower of the match.
func FirstTower(sides []model.SideBuildings) (model.SideBuildings, bool) {
	var first model.SideBuildings
	found := false
	for _, sb := range sides {
		if sb.FirstTowerLost == model.LaneNone {
			continue
		}
		if !found || sb.FirstTowerTime < first.FirstTowerTime {
			first, found = sb, true
		}
	}
	return first, found
}

// AttributeFirstTower fills the role-sensitive first-tower metrics. The two
// (or, for mid, one) slots holding the lane on the losing side are credited
// with the loss and those holding the same lane on the other side with the
// kill. field is the window of the first tower; exists reports which windows
// were observed.
func AttributeFirstTower(f *model.Frame, cat config.Catalog, sides []model.SideBuildings, roles map[model.Slot]model.Role,
	field model.Field, fieldOK bool, exists func(model.Field) bool) {
	for _, m := range []string{LostTowerFirst, DestroyedTowerFirst} {
		s := f.Ensure(m)
		for slot := range s {
			s[slot] = model.Series{}
			for _, p := range model.Phases {
				for i := 0; i < model.NumPhaseWindows; i++ {
					if wf := p.WindowField(i); exists(wf) {
						s[slot][wf] = model.Of(0)
					}
				}
			}
		}
	}
	first, ok := FirstTower(sides)
	if !ok || !fieldOK {
		return
	}
	credit := func(metric string, side model.Side) {
		for _, want := range cat.ResponsibleRoles(side, first.FirstTowerLost) {
			for _, slot := range side.Slots() {
				if roles[slot] == want {
					f.Set(metric, slot, field, model.Of(1))
				}
			}
		}
	}
	credit(LostTowerFirst, first.Side)
	credit(DestroyedTowerFirst, first.Side.Opponent())
}
