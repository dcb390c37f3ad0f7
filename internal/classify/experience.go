package classify

import "github.com/pable/go-dota-metrics/internal/model"

// Experience covers XP and level from heartbeats and XP gains by source.
type Experience struct{}

func (Experience) Name() string { return "experience" }

var xpReasonMetric = map[int]string{
	model.XPReasonHero:   "xp.from_heroes.sum",
	model.XPReasonCreep:  "xp.from_creeps.sum",
	model.XPReasonRoshan: "xp.from_roshan.sum",
}

func (Experience) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	in.seriesMetrics(f, seriesSpec{
		prefix:     "xp",
		value:      func(h model.RawHeartbeat) float64 { return float64(h.XP) },
		funcs:      seriesFuncNames,
		globalPerc: true,
	})
	in.seriesMetrics(f, seriesSpec{
		prefix: "level",
		value:  func(h model.RawHeartbeat) float64 { return float64(h.Level) },
		funcs:  []string{"max"},
	})

	metrics := []string{"xp.from_heroes.sum", "xp.from_creeps.sum", "xp.from_roshan.sum"}
	if len(in.Raw.XP) == 0 {
		scaffold(f, metrics...)
		return &Result{Frame: f}, nil
	}
	in.counters(f, metrics...)
	for _, x := range in.Raw.XP {
		slot, ok := in.Roster.Resolve(x.Target)
		if !ok {
			continue
		}
		if m, ok := xpReasonMetric[x.Reason]; ok {
			in.add(f, m, slot, x.Time, float64(x.Value))
		}
	}
	return &Result{Frame: f}, nil
}
