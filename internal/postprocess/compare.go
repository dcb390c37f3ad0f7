package postprocess

import (
	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/roles"
)

// Flat is a − b, absent when either side is absent.
func Flat(a, b model.Value) model.Value {
	if !a.Valid || !b.Valid {
		return model.Null
	}
	return model.Of(a.V - b.V)
}

// Perc is a / b. A zero or absent denominator gives 0; an absent numerator
// stays absent.
func Perc(a, b model.Value, eps float64) model.Value {
	if !a.Valid {
		return model.Null
	}
	if !b.Valid || b.Zero(eps) {
		return model.Of(0)
	}
	return model.Of(a.V / b.V)
}

// Mean averages the present values, absent when none are.
func Mean(vs []model.Value) model.Value {
	var sum float64
	n := 0
	for _, v := range vs {
		if v.Valid {
			sum += v.V
			n++
		}
	}
	if n == 0 {
		return model.Null
	}
	return model.Of(sum / float64(n))
}

// CompareSeries applies mode cell by cell.
func CompareSeries(a, b model.Series, mode model.CompareMode, eps float64) model.Series {
	var out model.Series
	for i := range out {
		if mode == model.ModePerc {
			out[i] = Perc(a[i], b[i], eps)
		} else {
			out[i] = Flat(a[i], b[i])
		}
	}
	return out
}

// AverageSeries is the cell-wise mean of several series.
func AverageSeries(ss []model.Series) model.Series {
	var out model.Series
	col := make([]model.Value, len(ss))
	for i := range out {
		for k, s := range ss {
			col[k] = s[i]
		}
		out[i] = Mean(col)
	}
	return out
}

var modes = []model.CompareMode{model.ModeFlat, model.ModePerc}

// Compare builds, for every slot with a resolved role, one comparison per
// opponent and one against the average of all opponents, in both modes and
// for every metric of f. Slots without opponents yield nothing.
func Compare(matchID int64, f *model.Frame, assigned map[model.Slot]model.Role, cat config.Catalog) []model.Comparison {
	var out []model.Comparison
	for _, slot := range model.AllSlots() {
		opponents := roles.Opponents(cat, assigned, slot)
		if len(opponents) == 0 {
			continue
		}
		for _, metric := range f.Metrics() {
			own, _ := f.Series(metric, slot)
			others := make([]model.Series, 0, len(opponents))
			for _, opp := range opponents {
				theirs, _ := f.Series(metric, opp)
				others = append(others, theirs)
				kind := roles.Kind(assigned[slot], assigned[opp])
				for _, mode := range modes {
					out = append(out, model.Comparison{
						MatchID:     matchID,
						Comparandum: slot,
						Comparans:   int(opp),
						Mode:        mode,
						Kind:        kind,
						Metric:      metric,
						Series:      CompareSeries(own, theirs, mode, cat.ZeroEpsilon),
					})
				}
			}
			avg := AverageSeries(others)
			for _, mode := range modes {
				out = append(out, model.Comparison{
					MatchID:     matchID,
					Comparandum: slot,
					Comparans:   model.AllOpponents,
					Mode:        mode,
					Kind:        model.KindAverage,
					Metric:      metric,
					Series:      CompareSeries(own, avg, mode, cat.ZeroEpsilon),
				})
			}
		}
	}
	return out
}
