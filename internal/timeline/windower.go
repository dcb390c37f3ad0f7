package timeline

import (
	"github.com/pable/go-dota-metrics/internal/config"
)

// Windower assigns heartbeats to one window catalog.
type Windower struct {
	windows   []Window
	cursor    int
	tolerance int
	closed    bool
}

// NewWindower returns a windower positioned on the first window of specs.
func NewWindower(specs []config.WindowSpec, tolerance int) *Windower {
	return &Windower{windows: newWindows(specs), tolerance: tolerance}
}

// Observe places a heartbeat at t (seconds relative to the horn) and returns
// the index of the window it extended, or -1 when t precedes the catalog or
// lies past its bounded end. Heartbeats must arrive in time order.
func (w *Windower) Observe(t int) int {
	for w.cursor < len(w.windows) {
		cur := &w.windows[w.cursor]
		if t < cur.Spec.Start {
			return -1
		}
		if cur.Contains(t) {
			cur.extend(t)
			return w.cursor
		}
		w.cursor++
	}
	return -1
}

// Close settles incomplete flags. Further heartbeats are ignored.
func (w *Windower) Close() {
	if w.closed {
		return
	}
	for i := range w.windows {
		w.windows[i].settle(w.tolerance)
	}
	w.cursor = len(w.windows)
	w.closed = true
}

// Windows returns a copy of the windows.
func (w *Windower) Windows() []Window {
	out := make([]Window, len(w.windows))
	copy(out, w.windows)
	return out
}

// Locate returns the index of the existing window containing t.
func (w *Windower) Locate(t int) (int, bool) {
	for i, win := range w.windows {
		if win.Exists && win.Contains(t) {
			return i, true
		}
	}
	return -1, false
}
