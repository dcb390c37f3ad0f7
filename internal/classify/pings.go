package classify

import "github.com/pable/go-dota-metrics/internal/model"

// Pings counts map pings per slot.
type Pings struct{}

func (Pings) Name() string { return "pings" }

func (Pings) Classify(in *Input) (*Result, error) {
	f := model.NewFrame()
	if len(in.Raw.Pings) == 0 {
		scaffold(f, "pings.sum")
		return &Result{Frame: f}, nil
	}
	in.counters(f, "pings.sum")
	for _, p := range in.Raw.Pings {
		in.add(f, "pings.sum", p.Slot, p.Time, 1)
	}
	return &Result{Frame: f}, nil
}
