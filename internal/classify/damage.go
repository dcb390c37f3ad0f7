package classify

import "github.com/pable/go-dota-metrics/internal/model"

// Damage splits combat-log damage by target category, from the dealer's and
// the receiver's perspective.
type Damage struct{}

func (Damage) Name() string { return "damage" }

const (
	dmgToHeroes            = "damage.to_heroes.sum"
	dmgToHeroesWithSummons = "damage.to_heroes_with_summons.sum"
	dmgToBuildings         = "damage.to_buildings.sum"
	dmgToNeutrals          = "damage.to_neutrals.sum"
	dmgToIllusions         = "damage.to_illusions.sum"
	dmgFromHeroes          = "damage.from_heroes.sum"
	dmgTaken               = "damage.taken.sum"
	dmgMaxHit              = "damage.to_heroes.max"
)

var damageCounters = []string{
	dmgToHeroes, dmgToHeroesWithSummons, dmgToBuildings, dmgToNeutrals,
	dmgToIllusions, dmgFromHeroes, dmgTaken,
}

func (Damage) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	if len(in.Raw.Damages) == 0 {
		scaffold(f, damageCounters...)
		scaffold(f, dmgMaxHit)
		return &Result{Frame: f}, nil
	}
	in.counters(f, damageCounters...)

	hits := windowSamples{}
	for _, d := range in.Raw.Damages {
		v := float64(d.Value)
		target, targetOK := in.Roster.Resolve(d.Target)
		targetIsHero := targetOK && d.TargetHero && !d.TargetIllusion

		var dealer model.Slot
		dealerOK := false
		if !d.AttackerIllusion {
			dealer, dealerOK = in.Roster.Resolve(d.Attacker)
		}
		if dealerOK {
			switch {
			case targetIsHero && target.Side() != dealer.Side():
				in.add(f, dmgToHeroes, dealer, d.Time, v)
				if field, ok := in.Timeline.Locate(d.Time); ok {
					hits.push(dealer, field, v)
				}
			case d.TargetIllusion:
				in.add(f, dmgToIllusions, dealer, d.Time, v)
			case isBuilding(d.Target):
				in.add(f, dmgToBuildings, dealer, d.Time, v)
			case isNeutral(d.Target):
				in.add(f, dmgToNeutrals, dealer, d.Time, v)
			}
		}
		if owner, ok := in.Roster.ResolveWithSummons(d.Attacker, d.Source); ok && !d.AttackerIllusion &&
			targetIsHero && target.Side() != owner.Side() {
			in.add(f, dmgToHeroesWithSummons, owner, d.Time, v)
		}
		if targetIsHero {
			in.add(f, dmgTaken, target, d.Time, v)
			if d.AttackerHero && !d.AttackerIllusion {
				in.add(f, dmgFromHeroes, target, d.Time, v)
			}
		}
	}
	in.reduce(f, dmgMaxHit, hits, Max)
	return &Result{Frame: f}, nil
}
