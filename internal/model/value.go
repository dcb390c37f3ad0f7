package model

import (
	"math"
	"sort"
	"strconv"
)

// Value is an optional number. The zero Value is absent.
type Value struct {
	V     float64
	Valid bool
}

// Null is the absent value.
var Null = Value{}

// Of returns a present value.
func Of(v float64) Value { return Value{V: v, Valid: true} }

// Zero reports whether the value is present and within eps of zero.
func (v Value) Zero(eps float64) bool { return v.Valid && math.Abs(v.V) <= eps }

// Or returns the value or def when absent.
func (v Value) Or(def float64) float64 {
	if !v.Valid {
		return def
	}
	return v.V
}

func (v Value) String() string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.V, 'f', -1, 64)
}

// Series is one metric's twelve cells for a single slot.
type Series [NumFields]Value

// NullSeries returns a series where every cell is absent.
func NullSeries() Series { return Series{} }

// Frame holds metric series per slot, keyed by metric name.
type Frame struct {
	metrics map[string]*[NumSlots]Series
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{metrics: make(map[string]*[NumSlots]Series)}
}

// Ensure registers metric with an all-absent scaffold if it is not present yet.
func (f *Frame) Ensure(metric string) *[NumSlots]Series {
	s, ok := f.metrics[metric]
	if !ok {
		s = new([NumSlots]Series)
		f.metrics[metric] = s
	}
	return s
}

// Set stores one cell.
func (f *Frame) Set(metric string, slot Slot, field Field, v Value) {
	f.Ensure(metric)[slot][field] = v
}

// Get returns one cell; absent when the metric is unknown.
func (f *Frame) Get(metric string, slot Slot, field Field) Value {
	s, ok := f.metrics[metric]
	if !ok {
		return Null
	}
	return s[slot][field]
}

// Series returns the full series of a slot.
func (f *Frame) Series(metric string, slot Slot) (Series, bool) {
	s, ok := f.metrics[metric]
	if !ok {
		return Series{}, false
	}
	return s[slot], true
}

// SetSeries replaces the full series of a slot.
func (f *Frame) SetSeries(metric string, slot Slot, s Series) {
	f.Ensure(metric)[slot] = s
}

// Has reports whether metric is registered.
func (f *Frame) Has(metric string) bool {
	_, ok := f.metrics[metric]
	return ok
}

// Metrics returns the registered metric names sorted.
func (f *Frame) Metrics() []string {
	out := make([]string, 0, len(f.metrics))
	for k := range f.metrics {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge copies every metric of other into f, overwriting on name collision.
func (f *Frame) Merge(other *Frame) {
	for k, v := range other.metrics {
		cp := *v
		f.metrics[k] = &cp
	}
}

// Len returns the number of registered metrics.
func (f *Frame) Len() int { return len(f.metrics) }
