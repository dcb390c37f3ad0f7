package classify

import "github.com/pable/go-dota-metrics/internal/model"

// Deaths covers hero kills and deaths, neutral and Roshan kills, first blood
// and the first-ten-kills race.
type Deaths struct{}

func (Deaths) Name() string { return "deaths" }

const (
	killsSum       = "kills.sum"
	deathsSum      = "deaths.sum"
	neutralsKilled = "neutrals.killed.sum"
	roshanKills    = "roshan.kills.sum"
	fbClaimed      = "first_blood.claimed"
	fbVictim       = "first_blood.victim"
	firstTenWon    = "first_ten_kills.won"
)

// firstTen is the number of kills the early race is decided on.
const firstTen = 10

func (Deaths) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	res := &Result{Frame: f, NeutralKills: map[model.Slot]int{}}

	heroMetrics := []string{killsSum, deathsSum, fbClaimed, fbVictim, firstTenWon}
	if len(in.Raw.Deaths) == 0 {
		scaffold(f, heroMetrics...)
		scaffold(f, neutralsKilled)
	} else {
		in.counters(f, heroMetrics...)
		in.counters(f, neutralsKilled)
	}
	if len(in.Raw.Roshans) == 0 {
		scaffold(f, roshanKills)
	} else {
		in.counters(f, roshanKills)
		for _, r := range in.Raw.Roshans {
			in.addSide(f, roshanKills, r.Side, r.Time, 1)
		}
	}

	for _, d := range in.Raw.Deaths {
		if isNeutral(d.Target) {
			if slot, ok := in.Roster.ResolveWithSummons(d.Attacker, d.Source); ok {
				res.NeutralKills[slot]++
				in.add(f, neutralsKilled, slot, d.Time, 1)
			}
			continue
		}
		if !d.TargetHero || d.TargetIllusion {
			continue
		}
		victim, ok := in.Roster.Resolve(d.Target)
		if !ok {
			continue
		}
		k := model.Kill{Time: d.Time, Victim: victim}
		// Kills by creeps, towers, neutrals or teammates keep a null actor.
		if killer, ok := in.Roster.ResolveWithSummons(d.Attacker, d.Source); ok && killer.Side() != victim.Side() {
			k.Attacker = &killer
		}
		res.Kills = append(res.Kills, k)
		in.add(f, deathsSum, victim, d.Time, 1)
		if k.Attacker != nil {
			in.add(f, killsSum, *k.Attacker, d.Time, 1)
		}
	}

	if len(res.Kills) > 0 {
		fb := res.Kills[0]
		in.add(f, fbVictim, fb.Victim, fb.Time, 1)
		if fb.Attacker != nil {
			in.add(f, fbClaimed, *fb.Attacker, fb.Time, 1)
		}
	}
	if side, ok := FirstTenWinner(res.Kills); ok {
		in.addSide(f, firstTenWon, side, res.Kills[firstTen-1].Time, 1)
	}
	return res, nil
}

// FirstTenWinner returns the side with more resolved kills among the first
// ten. It is indeterminate when fewer than ten kills happened, when the tenth
// kill has no resolved killer, or on a tie.
func FirstTenWinner(kills []model.Kill) (model.Side, bool) {
	if len(kills) < firstTen || kills[firstTen-1].Attacker == nil {
		return model.SideUnknown, false
	}
	count := map[model.Side]int{}
	for _, k := range kills[:firstTen] {
		if k.Attacker != nil {
			count[k.Attacker.Side()]++
		}
	}
	switch {
	case count[model.Radiant] > count[model.Dire]:
		return model.Radiant, true
	case count[model.Dire] > count[model.Radiant]:
		return model.Dire, true
	default:
		return model.SideUnknown, false
	}
}
