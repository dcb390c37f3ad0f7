package timeline

import (
	"fmt"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

// Timeline tracks both phase catalogs of one match.
type Timeline struct {
	origin int
	phases [2]*Windower
	last   int
	seen   bool
	closed bool
}

// New returns an open timeline. origin is the match-clock value of the horn;
// heartbeat times are shifted by it before windowing.
func New(cat config.Catalog, origin int) *Timeline {
	return &Timeline{
		origin: origin,
		phases: [2]*Windower{
			NewWindower(cat.LaneWindows, cat.Tolerance),
			NewWindower(cat.GameWindows, cat.Tolerance),
		},
	}
}

// Relative converts a match-clock time into seconds since the horn.
func (t *Timeline) Relative(clock int) int { return clock - t.origin }

// Heartbeat feeds one heartbeat at match-clock time clock.
func (t *Timeline) Heartbeat(clock int) {
	if t.closed {
		return
	}
	rel := t.Relative(clock)
	if !t.seen || rel > t.last {
		t.last = rel
		t.seen = true
	}
	for _, w := range t.phases {
		w.Observe(rel)
	}
}

// Close ends ingestion.
func (t *Timeline) Close() {
	for _, w := range t.phases {
		w.Close()
	}
	t.closed = true
}

// MatchLength is the time of the last heartbeat relative to the horn.
func (t *Timeline) MatchLength() (int, error) {
	if !t.closed {
		return 0, ErrOpen
	}
	if !t.seen {
		return 0, nil
	}
	return t.last, nil
}

// Windows returns the windows of a phase.
func (t *Timeline) Windows(p model.Phase) []Window {
	return t.phases[p].Windows()
}

// Window returns the window stored in field f. Totals have no window.
func (t *Timeline) Window(f model.Field) (Window, error) {
	for _, p := range model.Phases {
		lo, hi := p.Group()
		if f >= lo && f < hi && f != p.TotalField() {
			return t.phases[p].windows[f-lo], nil
		}
	}
	return Window{}, fmt.Errorf("field %s has no window", f)
}

// Locate maps a match-clock time to the field of the existing window holding it.
func (t *Timeline) Locate(clock int) (model.Field, bool) {
	rel := t.Relative(clock)
	for _, p := range model.Phases {
		if i, ok := t.phases[p].Locate(rel); ok {
			return p.WindowField(i), true
		}
	}
	return 0, false
}

// Exists reports whether the window in field f was observed.
func (t *Timeline) Exists(f model.Field) bool {
	w, err := t.Window(f)
	return err == nil && w.Exists
}

// Infos returns the stored shape of all ten windows in field order.
func (t *Timeline) Infos() []model.WindowInfo {
	out := make([]model.WindowInfo, 0, 2*model.NumPhaseWindows)
	for _, p := range model.Phases {
		for i, w := range t.phases[p].windows {
			out = append(out, model.WindowInfo{
				Field:         p.WindowField(i),
				Exists:        w.Exists,
				Incomplete:    w.Incomplete,
				Start:         w.ObservedStart,
				End:           w.ObservedEnd,
				Length:        w.Length,
				LengthMinutes: w.LengthMinutes,
			})
		}
	}
	return out
}
