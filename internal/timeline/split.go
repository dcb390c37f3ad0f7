package timeline

import (
	"github.com/pable/go-dota-metrics/internal/config"
)

// Slice is one window's share of a split series.
type Slice[T any] struct {
	Window
	Rows []T
}

// SplitByOffset slices a dense series where row i was sampled at first+i
// seconds after the horn. Once a window receives no rows, every later window
// is treated as past the end of the match.
func SplitByOffset[T any](rows []T, first int, specs []config.WindowSpec, tolerance int) []Slice[T] {
	out := make([]Slice[T], len(specs))
	ended := false
	for i, s := range specs {
		out[i].Spec = s
		if ended {
			continue
		}
		lo := clamp(s.Start-first, 0, len(rows))
		hi := len(rows)
		if s.Bounded() {
			hi = clamp(s.End-first, 0, len(rows))
		}
		if hi <= lo {
			ended = true
			continue
		}
		out[i].Rows = rows[lo:hi]
		out[i].extend(first + lo)
		out[i].extend(first + hi - 1)
		out[i].settle(tolerance)
	}
	return out
}

// SplitByTime slices an irregular series by each row's time (relative to the
// horn). Rows must be sorted by time.
func SplitByTime[T any](rows []T, timeOf func(T) int, specs []config.WindowSpec, tolerance int) []Slice[T] {
	out := make([]Slice[T], len(specs))
	ended := false
	pos := 0
	for i, s := range specs {
		out[i].Spec = s
		if ended {
			continue
		}
		for pos < len(rows) && timeOf(rows[pos]) < s.Start {
			pos++
		}
		start := pos
		for pos < len(rows) && out[i].Contains(timeOf(rows[pos])) {
			out[i].extend(timeOf(rows[pos]))
			pos++
		}
		if pos == start {
			ended = true
			continue
		}
		out[i].Rows = rows[start:pos]
		out[i].settle(tolerance)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
