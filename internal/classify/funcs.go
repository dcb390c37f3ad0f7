package classify

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/timeline"
)

// Sample is one time-stamped observation (seconds since the horn).
type Sample struct {
	T int
	V float64
}

// WindowFunc reduces one window's samples of a cumulative series.
type WindowFunc func(w timeline.Window, samples []Sample) model.Value

// SeriesFuncs is the catalog of reductions applied per window to cumulative
// series. max_global_perc is derived afterwards from max across slots.
var SeriesFuncs = map[string]WindowFunc{
	"max":               seriesMax,
	"gained_per_window": gainedPerWindow,
	"avg_by_length":     avgByLength,
	"gained_pm_median":  gainedPMMedian,
}

// Sum adds values; an empty window sums to zero.
func Sum(vals []float64) model.Value {
	var s float64
	for _, v := range vals {
		s += v
	}
	return model.Of(s)
}

// Max returns the largest value, absent when empty.
func Max(vals []float64) model.Value {
	if len(vals) == 0 {
		return model.Null
	}
	m := vals[0]
	for _, v := range vals[1:] {
		m = max(m, v)
	}
	return model.Of(m)
}

// Min returns the smallest value, absent when empty.
func Min(vals []float64) model.Value {
	if len(vals) == 0 {
		return model.Null
	}
	m := vals[0]
	for _, v := range vals[1:] {
		m = min(m, v)
	}
	return model.Of(m)
}

// Avg returns the arithmetic mean, absent when empty.
func Avg(vals []float64) model.Value {
	if len(vals) == 0 {
		return model.Null
	}
	return model.Of(stat.Mean(vals, nil))
}

func values(samples []Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.V
	}
	return out
}

func seriesMax(_ timeline.Window, samples []Sample) model.Value {
	return Max(values(samples))
}

// spread is max minus min, absent when empty.
func spread(vals []float64) model.Value {
	hi, lo := Max(vals), Min(vals)
	if !hi.Valid {
		return model.Null
	}
	return model.Of(hi.V - lo.V)
}

// gainedPerWindow is the spread of the series within the window. Net worth
// can drop, so this is not last minus first.
func gainedPerWindow(_ timeline.Window, samples []Sample) model.Value {
	return spread(values(samples))
}

func avgByLength(w timeline.Window, samples []Sample) model.Value {
	g := gainedPerWindow(w, samples)
	if !g.Valid || w.LengthMinutes == 0 {
		return model.Null
	}
	return model.Of(g.V / float64(w.LengthMinutes))
}

// gainedPMMedian splits the window into one-minute slices from its observed
// start and takes the median of the per-slice spread.
func gainedPMMedian(w timeline.Window, samples []Sample) model.Value {
	if len(samples) == 0 {
		return model.Null
	}
	slices := map[int][]float64{}
	var keys []int
	for _, s := range samples {
		k := (s.T - w.ObservedStart) / 60
		if _, ok := slices[k]; !ok {
			keys = append(keys, k)
		}
		slices[k] = append(slices[k], s.V)
	}
	deltas := make([]float64, 0, len(keys))
	for _, k := range keys {
		deltas = append(deltas, spread(slices[k]).V)
	}
	sort.Float64s(deltas)
	return model.Of(median(deltas))
}

// median returns the median of a sorted slice.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MaxGlobalPerc is own divided by the largest value among all; zero when the
// denominator is zero or absent.
func MaxGlobalPerc(own model.Value, all []model.Value) model.Value {
	if !own.Valid {
		return model.Null
	}
	var denom model.Value
	for _, v := range all {
		if v.Valid && (!denom.Valid || v.V > denom.V) {
			denom = v
		}
	}
	if !denom.Valid || denom.V == 0 {
		return model.Of(0)
	}
	return model.Of(own.V / denom.V)
}
