// Package timeline partitions a match into lane and game windows.
//
// Heartbeat events drive a cursor over an ordered window catalog. Each
// heartbeat extends the window it falls into; windows never reached are left
// non-existent, and windows whose observed length strays from the declared
// length by more than the tolerance are flagged incomplete.
package timeline

import (
	"github.com/pable/go-dota-metrics/internal/config"
)

// Window is a declared window plus what was observed of it.
type Window struct {
	Spec          config.WindowSpec
	Exists        bool
	Incomplete    bool
	ObservedStart int
	ObservedEnd   int // last observed second, inclusive
	Length        int
	LengthMinutes int
}

// Contains reports whether t (relative to the horn) falls inside the declared range.
func (w Window) Contains(t int) bool {
	if t < w.Spec.Start {
		return false
	}
	return !w.Spec.Bounded() || t < w.Spec.End
}

// extend grows the observed range to t and recomputes the derived lengths.
func (w *Window) extend(t int) {
	if !w.Exists {
		w.Exists = true
		w.ObservedStart = t
	}
	w.ObservedEnd = t
	w.Length = w.ObservedEnd - w.ObservedStart + 1
	w.LengthMinutes = ceilDiv(w.Length, 60)
}

func (w *Window) settle(tolerance int) {
	if !w.Exists || !w.Spec.Bounded() {
		w.Incomplete = false
		return
	}
	d := w.Length - w.Spec.Declared()
	w.Incomplete = d > tolerance || d < -tolerance
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func newWindows(specs []config.WindowSpec) []Window {
	out := make([]Window, len(specs))
	for i, s := range specs {
		out[i] = Window{Spec: s}
	}
	return out
}
