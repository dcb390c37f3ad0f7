package classify

import "github.com/pable/go-dota-metrics/internal/model"

// Wards counts placements and dewards and averages observer lifetime.
type Wards struct{}

func (Wards) Name() string { return "wards" }

var (
	wardPlaced   = [2]string{"wards.observers_placed.sum", "wards.sentries_placed.sum"}
	wardDewarded = [2]string{"wards.observers_dewarded.sum", "wards.sentries_dewarded.sum"}
)

const wardLifetime = "wards.observer_lifetime.avg"

type placement struct {
	slot  model.Slot
	clock int
}

func (Wards) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	counts := append(wardPlaced[:], wardDewarded[:]...)
	if len(in.Raw.Wards) == 0 {
		scaffold(f, counts...)
		scaffold(f, wardLifetime)
		return &Result{Frame: f}, nil
	}
	in.counters(f, counts...)

	placed := map[int64]placement{}
	lifetimes := windowSamples{}
	for _, w := range in.Raw.Wards {
		if !w.Removed {
			in.add(f, wardPlaced[w.Kind], w.Slot, w.Time, 1)
			if w.Kind == model.WardObserver && w.Handle != 0 {
				placed[w.Handle] = placement{slot: w.Slot, clock: w.Time}
			}
			continue
		}
		// A removal by an enemy hero is a deward credited to that hero.
		if killer, ok := in.Roster.Resolve(w.Attacker); ok && killer.Side() != w.Slot.Side() {
			in.add(f, wardDewarded[w.Kind], killer, w.Time, 1)
		}
		if w.Kind != model.WardObserver {
			continue
		}
		if p, ok := placed[w.Handle]; ok {
			delete(placed, w.Handle)
			if field, ok := in.Timeline.Locate(p.clock); ok {
				lifetimes.push(p.slot, field, float64(w.Time-p.clock))
			}
		}
	}
	in.reduce(f, wardLifetime, lifetimes, Avg)
	return &Result{Frame: f}, nil
}
