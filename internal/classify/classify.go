// Package classify turns a decoded match into per-slot, per-window metric
// series. Each classifier covers one event category and writes into its own
// Frame so classifiers can run concurrently over the shared read-only input.
package classify

import (
	"strings"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
	"github.com/pable/go-dota-metrics/internal/timeline"
)

// Input is the shared read-only state every classifier sees.
type Input struct {
	Raw      *model.RawMatch
	Timeline *timeline.Timeline
	Roster   *Roster
	Catalog  config.Catalog
}

// Result is what a classifier produced. Only Frame is always set.
type Result struct {
	Frame        *model.Frame
	Buildings    []model.SideBuildings
	Kills        []model.Kill
	NeutralKills map[model.Slot]int
}

// Classifier fills metrics for one event category.
type Classifier interface {
	Name() string
	Classify(in *Input) (*Result, error)
}

// All returns the seven classifiers in a stable order.
func All() []Classifier {
	return []Classifier{
		Pings{}, Wards{}, Damage{}, Gold{}, Experience{}, Buildings{}, Deaths{},
	}
}

// Roster resolves unit names to slots.
type Roster struct {
	players []model.RawPlayer
	units   map[string]model.Slot
}

// NewRoster indexes the players by hero unit.
func NewRoster(players []model.RawPlayer) *Roster {
	r := &Roster{players: players, units: make(map[string]model.Slot, len(players))}
	for _, p := range players {
		r.units[p.Unit] = p.Slot
	}
	return r
}

// Resolve maps a unit name to its slot.
func (r *Roster) Resolve(unit string) (model.Slot, bool) {
	if unit == "" {
		return 0, false
	}
	s, ok := r.units[unit]
	return s, ok
}

// ResolveWithSummons tries the unit and then the unit's owner.
func (r *Roster) ResolveWithSummons(unit, owner string) (model.Slot, bool) {
	if s, ok := r.Resolve(unit); ok {
		return s, true
	}
	return r.Resolve(owner)
}

// Players returns the roster in slot order.
func (r *Roster) Players() []model.RawPlayer { return r.players }

// ---- frame helpers ----

// scaffold registers metrics with every cell absent.
func scaffold(f *model.Frame, metrics ...string) {
	for _, m := range metrics {
		f.Ensure(m)
	}
}

// counters registers metrics with zero in every existing window and absent elsewhere.
func (in *Input) counters(f *model.Frame, metrics ...string) {
	for _, m := range metrics {
		s := f.Ensure(m)
		for slot := range s {
			for _, p := range model.Phases {
				for i := 0; i < model.NumPhaseWindows; i++ {
					field := p.WindowField(i)
					if in.Timeline.Exists(field) {
						s[slot][field] = model.Of(0)
					}
				}
			}
		}
	}
}

// add increments a counter cell at the window holding clock. Times outside
// any existing window are dropped.
func (in *Input) add(f *model.Frame, metric string, slot model.Slot, clock int, amount float64) {
	field, ok := in.Timeline.Locate(clock)
	if !ok {
		return
	}
	cur := f.Get(metric, slot, field)
	f.Set(metric, slot, field, model.Of(cur.Or(0)+amount))
}

// addSide increments a counter for every slot of side.
func (in *Input) addSide(f *model.Frame, metric string, side model.Side, clock int, amount float64) {
	for _, s := range side.Slots() {
		in.add(f, metric, s, clock, amount)
	}
}

// windowSamples buckets samples per slot and window field.
type windowSamples map[model.Slot]map[model.Field][]float64

func (ws windowSamples) push(slot model.Slot, field model.Field, v float64) {
	m, ok := ws[slot]
	if !ok {
		m = map[model.Field][]float64{}
		ws[slot] = m
	}
	m[field] = append(m[field], v)
}

// reduce writes agg over each existing window's samples; windows without
// samples stay absent.
func (in *Input) reduce(f *model.Frame, metric string, ws windowSamples, agg func([]float64) model.Value) {
	f.Ensure(metric)
	for slot, byField := range ws {
		for field, vals := range byField {
			if in.Timeline.Exists(field) {
				f.Set(metric, slot, field, agg(vals))
			}
		}
	}
}

// ---- unit name helpers ----

func isNeutral(unit string) bool { return strings.HasPrefix(unit, "npc_dota_neutral_") }

func isBuilding(unit string) bool {
	_, ok := ParseBuilding(unit)
	return ok
}
