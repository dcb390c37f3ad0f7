// Package roles turns raw, possibly duplicated role labels into one distinct
// positional role per hero and derives positional opponents.
package roles

import (
	"fmt"
	"sort"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

// heroesPerSide is the number of heroes the normalizer distributes.
const heroesPerSide = 5

// maxRounds bounds the rebalancing loop; four moves always suffice for five heroes.
const maxRounds = 8

// Hero is one hero of a side as seen by the normalizer.
type Hero struct {
	ID       int64 // any identity unique within the side, e.g. the slot
	RawRole  model.Role
	TieBreak int // neutral kills; higher means more farm
}

// Normalize assigns roles 1–5 to the five heroes of one side.
//
// Heroes are grouped by raw role (0 is its own group that must be emptied)
// and each group is sorted by tie-break ascending. While some role holds more
// than one hero, every over-subscribed role moves one occupant: to its
// priority target when that role is still empty, otherwise to an empty role
// taken from the sorted empty list (lowest when moving out of role 1,
// highest otherwise; role 2 sorts last). Moving towards a lower role number
// takes the highest tie-break occupant, moving towards a higher one the
// lowest.
func Normalize(cat config.Catalog, heroes []Hero) (map[int64]model.Role, error) {
	if len(heroes) != heroesPerSide {
		return nil, fmt.Errorf("%w: %d heroes, want %d", ErrNoBijection, len(heroes), heroesPerSide)
	}
	groups := map[model.Role][]Hero{}
	seen := map[int64]bool{}
	for _, h := range heroes {
		if seen[h.ID] {
			return nil, fmt.Errorf("%w: duplicate hero %d", ErrNoBijection, h.ID)
		}
		seen[h.ID] = true
		if h.RawRole < model.RoleUnknown || h.RawRole > model.RoleHard {
			return nil, fmt.Errorf("%w: hero %d has role %d", ErrNoBijection, h.ID, h.RawRole)
		}
		groups[h.RawRole] = append(groups[h.RawRole], h)
	}
	for r := range groups {
		g := groups[r]
		sort.SliceStable(g, func(i, j int) bool { return g[i].TieBreak < g[j].TieBreak })
	}

	for round := 0; ; round++ {
		over := overSubscribed(groups)
		if len(over) == 0 {
			break
		}
		if round >= maxRounds {
			return nil, fmt.Errorf("%w: still over-subscribed after %d rounds", ErrNoBijection, maxRounds)
		}
		under := underSubscribed(groups)
		for _, from := range over {
			if !needsMove(groups, from) {
				continue
			}
			if len(under) == 0 {
				return nil, fmt.Errorf("%w: no free role for role %d", ErrNoBijection, from)
			}
			to, ok := cat.Priority(from)
			if idx := indexOf(under, to); ok && idx >= 0 {
				under = append(under[:idx], under[idx+1:]...)
			} else if from == model.RoleCarry {
				to, under = under[0], under[1:]
			} else {
				to, under = under[len(under)-1], under[:len(under)-1]
			}
			move(groups, from, to)
		}
	}

	out := make(map[int64]model.Role, heroesPerSide)
	for r, g := range groups {
		for _, h := range g {
			out[h.ID] = r
		}
	}
	return out, nil
}

// needsMove reports whether role still has to give up an occupant. The
// missing-label group must empty completely.
func needsMove(groups map[model.Role][]Hero, r model.Role) bool {
	if r == model.RoleUnknown {
		return len(groups[r]) > 0
	}
	return len(groups[r]) > 1
}

// overSubscribed lists roles with surplus occupants ascending, role 2 last.
func overSubscribed(groups map[model.Role][]Hero) []model.Role {
	var out []model.Role
	for r := range groups {
		if needsMove(groups, r) {
			out = append(out, r)
		}
	}
	sortMidLast(out)
	return out
}

// underSubscribed lists empty roles ascending, role 2 last.
func underSubscribed(groups map[model.Role][]Hero) []model.Role {
	var out []model.Role
	for r := model.RoleCarry; r <= model.RoleHard; r++ {
		if len(groups[r]) == 0 {
			out = append(out, r)
		}
	}
	sortMidLast(out)
	return out
}

func sortMidLast(rs []model.Role) {
	sort.Slice(rs, func(i, j int) bool {
		if (rs[i] == model.RoleMid) != (rs[j] == model.RoleMid) {
			return rs[j] == model.RoleMid
		}
		return rs[i] < rs[j]
	})
}

func indexOf(rs []model.Role, r model.Role) int {
	for i, x := range rs {
		if x == r {
			return i
		}
	}
	return -1
}

// move pops the boundary occupant of from and appends it to to, keeping to sorted.
func move(groups map[model.Role][]Hero, from, to model.Role) {
	g := groups[from]
	var h Hero
	if to < from && from != model.RoleUnknown {
		h, g = g[len(g)-1], g[:len(g)-1]
	} else {
		h, g = g[0], g[1:]
	}
	groups[from] = g
	dst := append(groups[to], h)
	sort.SliceStable(dst, func(i, j int) bool { return dst[i].TieBreak < dst[j].TieBreak })
	groups[to] = dst
}
