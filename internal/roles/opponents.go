package roles

import (
	"fmt"
	"sort"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

// Unambiguous reports whether the labels already form a permutation of 1–5.
func Unambiguous(labels []model.Role) bool {
	if len(labels) != heroesPerSide {
		return false
	}
	seen := map[model.Role]bool{}
	for _, r := range labels {
		if !r.Valid() || seen[r] {
			return false
		}
		seen[r] = true
	}
	return true
}

// Resolve assigns a role to every slot of a match. Sides whose raw labels are
// already a permutation keep them; others go through Normalize with neutral
// kills as the tie-break.
func Resolve(cat config.Catalog, players []model.PlayerInfo) (map[model.Slot]model.Role, error) {
	out := make(map[model.Slot]model.Role, model.NumSlots)
	for _, side := range []model.Side{model.Radiant, model.Dire} {
		var heroes []Hero
		var labels []model.Role
		for _, p := range players {
			if p.Slot.Side() != side {
				continue
			}
			heroes = append(heroes, Hero{ID: int64(p.Slot), RawRole: p.RawRole, TieBreak: p.NeutralKills})
			labels = append(labels, p.RawRole)
		}
		if Unambiguous(labels) {
			for _, h := range heroes {
				out[model.Slot(h.ID)] = h.RawRole
			}
			continue
		}
		assigned, err := Normalize(cat, heroes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", side, err)
		}
		for id, r := range assigned {
			out[model.Slot(id)] = r
		}
	}
	return out, nil
}

// Opponents returns the enemy slots whose role shares slot's archetype, in slot order.
func Opponents(cat config.Catalog, assigned map[model.Slot]model.Role, slot model.Slot) []model.Slot {
	arch, ok := cat.ArchetypeOf(assigned[slot])
	if !ok {
		return nil
	}
	var out []model.Slot
	for _, enemy := range slot.Side().Opponent().Slots() {
		if a, ok := cat.ArchetypeOf(assigned[enemy]); ok && a.Name == arch.Name {
			out = append(out, enemy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Kind tags a pairwise comparison: same role is direct, otherwise cross.
func Kind(a, b model.Role) model.CompareKind {
	if a == b {
		return model.KindDirect
	}
	return model.KindCross
}
