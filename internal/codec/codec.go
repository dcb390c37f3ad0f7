// Package codec compresses metric groups that carry no information beyond
// "zero" versus "absent" into a single bitmask.
//
// Each field of a group maps to one bit, first field most significant: 1 means
// the value was zero, 0 means it was absent. A compressed group stores every
// field as absent plus the mask; an uncompressed group stores its values and no
// mask.
package codec

import (
	"github.com/pable/go-dota-metrics/internal/model"
)

// DefaultEpsilon is the tolerance below which a value counts as zero.
const DefaultEpsilon = 1e-9

// Bits packs flags into an integer, first flag most significant.
func Bits(flags []bool) uint64 {
	var out uint64
	for _, f := range flags {
		out <<= 1
		if f {
			out |= 1
		}
	}
	return out
}

// Flags unpacks n flags from mask.
func Flags(mask uint64, n int) []bool {
	out := make([]bool, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = mask&1 == 1
		mask >>= 1
	}
	return out
}

// Compressible reports whether every value of the group is absent or zero.
func Compressible(group []model.Value, eps float64) bool {
	for _, v := range group {
		if v.Valid && !v.Zero(eps) {
			return false
		}
	}
	return true
}

// EncodeGroup compresses group in place when eligible and returns its mask.
func EncodeGroup(group []model.Value, eps float64) model.Mask {
	if !Compressible(group, eps) {
		return model.Mask{}
	}
	flags := make([]bool, len(group))
	for i, v := range group {
		flags[i] = v.Valid
		group[i] = model.Null
	}
	return model.Mask{Bits: Bits(flags), Valid: true}
}

// DecodeGroup restores a compressed group in place. Without a mask the group
// is left untouched.
func DecodeGroup(group []model.Value, mask model.Mask) {
	if !mask.Valid {
		return
	}
	for i, zero := range Flags(mask.Bits, len(group)) {
		if zero {
			group[i] = model.Of(0)
		} else {
			group[i] = model.Null
		}
	}
}

// Encode compresses the lane and game groups of s.
func Encode(s model.Series, eps float64) (out model.Series, lane, game model.Mask) {
	out = s
	lo, hi := model.PhaseLane.Group()
	lane = EncodeGroup(out[lo:hi], eps)
	lo, hi = model.PhaseGame.Group()
	game = EncodeGroup(out[lo:hi], eps)
	return out, lane, game
}

// Decode reverses Encode.
func Decode(s model.Series, lane, game model.Mask) model.Series {
	out := s
	lo, hi := model.PhaseLane.Group()
	DecodeGroup(out[lo:hi], lane)
	lo, hi = model.PhaseGame.Group()
	DecodeGroup(out[lo:hi], game)
	return out
}

// EncodeRow compresses a metric row in place.
func EncodeRow(r *model.MetricRow, eps float64) {
	r.Series, r.LaneMask, r.GameMask = Encode(r.Series, eps)
}

// DecodeRow expands a metric row in place.
func DecodeRow(r *model.MetricRow) {
	r.Series = Decode(r.Series, r.LaneMask, r.GameMask)
	r.LaneMask, r.GameMask = model.Mask{}, model.Mask{}
}

// EncodeComparison compresses a comparison in place.
func EncodeComparison(c *model.Comparison, eps float64) {
	c.Series, c.LaneMask, c.GameMask = Encode(c.Series, eps)
}

// DecodeComparison expands a comparison in place.
func DecodeComparison(c *model.Comparison) {
	c.Series = Decode(c.Series, c.LaneMask, c.GameMask)
	c.LaneMask, c.GameMask = model.Mask{}, model.Mask{}
}
