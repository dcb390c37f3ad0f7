package classify

import (
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/timeline"
)

// seriesSpec describes metrics derived from one cumulative heartbeat column.
// globalPerc requires "max" among funcs.
type seriesSpec struct {
	prefix     string
	value      func(model.RawHeartbeat) float64
	funcs      []string
	globalPerc bool
}

func (s seriesSpec) metrics() []string {
	out := make([]string, 0, len(s.funcs)+1)
	for _, fn := range s.funcs {
		out = append(out, s.prefix+"."+fn)
	}
	if s.globalPerc {
		out = append(out, s.prefix+".max_global_perc")
	}
	return out
}

// heartbeatSamples collects one slot's samples relative to the horn.
func (in *Input) heartbeatSamples(slot model.Slot, value func(model.RawHeartbeat) float64) []Sample {
	var out []Sample
	for _, hb := range in.Raw.Heartbeats {
		if hb.Slot == slot {
			out = append(out, Sample{T: in.Timeline.Relative(hb.Time), V: value(hb)})
		}
	}
	return out
}

// dense reports whether samples sit on consecutive seconds.
func dense(samples []Sample) bool {
	for i := 1; i < len(samples); i++ {
		if samples[i].T != samples[i-1].T+1 {
			return false
		}
	}
	return true
}

func (in *Input) split(samples []Sample, p model.Phase) []timeline.Slice[Sample] {
	specs := in.Catalog.Windows(p)
	if dense(samples) {
		return timeline.SplitByOffset(samples, samples[0].T, specs, in.Catalog.Tolerance)
	}
	return timeline.SplitByTime(samples, func(s Sample) int { return s.T }, specs, in.Catalog.Tolerance)
}

// seriesMetrics fills every function of spec for every slot.
func (in *Input) seriesMetrics(f *model.Frame, spec seriesSpec) {
	scaffold(f, spec.metrics()...)
	maxName := spec.prefix + ".max"
	for _, slot := range model.AllSlots() {
		samples := in.heartbeatSamples(slot, spec.value)
		if len(samples) == 0 {
			continue
		}
		for _, p := range model.Phases {
			for i, sl := range in.split(samples, p) {
				if !sl.Exists {
					continue
				}
				field := p.WindowField(i)
				for _, fn := range spec.funcs {
					f.Set(spec.prefix+"."+fn, slot, field, SeriesFuncs[fn](sl.Window, sl.Rows))
				}
			}
		}
	}
	if !spec.globalPerc {
		return
	}
	for _, p := range model.Phases {
		for i := 0; i < model.NumPhaseWindows; i++ {
			field := p.WindowField(i)
			all := make([]model.Value, model.NumSlots)
			for _, slot := range model.AllSlots() {
				all[slot] = f.Get(maxName, slot, field)
			}
			for _, slot := range model.AllSlots() {
				f.Set(spec.prefix+".max_global_perc", slot, field, MaxGlobalPerc(all[slot], all))
			}
		}
	}
}
