// Package postprocess fills phase totals and builds positional comparisons.
package postprocess

import (
	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

// FillTotals writes lane_total and game_total for every metric on the sum or
// average allowlist. Only windows for which exists returns true contribute,
// and only their present cells; a phase with nothing to reduce stays absent.
// Metrics on neither list keep absent totals.
func FillTotals(f *model.Frame, cat config.Catalog, exists func(model.Field) bool) {
	for _, metric := range f.Metrics() {
		rule := cat.Total(metric)
		if rule == config.TotalNone {
			continue
		}
		for _, slot := range model.AllSlots() {
			s, _ := f.Series(metric, slot)
			for _, p := range model.Phases {
				s[p.TotalField()] = total(s, p, rule, exists)
			}
			f.SetSeries(metric, slot, s)
		}
	}
}

func total(s model.Series, p model.Phase, rule config.TotalRule, exists func(model.Field) bool) model.Value {
	var sum float64
	n := 0
	for i := 0; i < model.NumPhaseWindows; i++ {
		field := p.WindowField(i)
		if exists != nil && !exists(field) {
			continue
		}
		if v := s[field]; v.Valid {
			sum += v.V
			n++
		}
	}
	if n == 0 {
		return model.Null
	}
	if rule == config.TotalAvg {
		return model.Of(sum / float64(n))
	}
	return model.Of(sum)
}
