package classify

import "github.com/pable/go-dota-metrics/internal/model"

// Gold covers net worth, last hits and denies from heartbeats plus the gold
// transactions of the combat log.
type Gold struct{}

func (Gold) Name() string { return "gold" }

var seriesFuncNames = []string{"max", "gained_per_window", "avg_by_length", "gained_pm_median"}

func (Gold) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	in.seriesMetrics(f, seriesSpec{
		prefix:     "gold",
		value:      func(h model.RawHeartbeat) float64 { return float64(h.Gold) },
		funcs:      seriesFuncNames,
		globalPerc: true,
	})
	in.seriesMetrics(f, seriesSpec{
		prefix: "last_hits",
		value:  func(h model.RawHeartbeat) float64 { return float64(h.LastHits) },
		funcs:  []string{"max", "gained_per_window"},
	})
	in.seriesMetrics(f, seriesSpec{
		prefix: "denies",
		value:  func(h model.RawHeartbeat) float64 { return float64(h.Denies) },
		funcs:  []string{"gained_per_window"},
	})

	if len(in.Raw.Gold) == 0 {
		scaffold(f, "gold.earned.sum", "gold.lost.sum")
		return &Result{Frame: f}, nil
	}
	in.counters(f, "gold.earned.sum", "gold.lost.sum")
	for _, g := range in.Raw.Gold {
		slot, ok := in.Roster.Resolve(g.Target)
		if !ok {
			continue
		}
		switch {
		case g.Value > 0:
			in.add(f, "gold.earned.sum", slot, g.Time, float64(g.Value))
		case g.Value < 0:
			in.add(f, "gold.lost.sum", slot, g.Time, float64(-g.Value))
		}
	}
	return &Result{Frame: f}, nil
}
