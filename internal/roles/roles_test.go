package roles

import (
	"errors"
	"testing"

	"github.com/pable/go-dota-metrics/internal/config"
	"github.com/pable/go-dota-metrics/internal/model"
)

func testCatalog(t *testing.T) config.Catalog {
	t.Helper()
	cat, err := config.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	return cat
}

func TestNormalizeScenario(t *testing.T) {
	heroes := []Hero{
		{ID: 1, RawRole: 1, TieBreak: 9},
		{ID: 2, RawRole: 1, TieBreak: 112},
		{ID: 3, RawRole: 3, TieBreak: 9},
		{ID: 4, RawRole: 3, TieBreak: 28},
		{ID: 5, RawRole: 2, TieBreak: 43},
	}
	got, err := Normalize(testCatalog(t), heroes)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := map[int64]model.Role{2: 1, 5: 2, 4: 3, 3: 4, 1: 5}
	for id, r := range want {
		if got[id] != r {
			t.Errorf("hero %d -> %d, want %d (all: %v)", id, got[id], r, got)
		}
	}
}

func TestNormalizeBijectionExhaustive(t *testing.T) {
	cat := testCatalog(t)
	labels := make([]model.Role, 5)
	var walk func(i int)
	walk = func(i int) {
		if i == len(labels) {
			heroes := make([]Hero, 5)
			for k := range heroes {
				heroes[k] = Hero{ID: int64(k), RawRole: labels[k], TieBreak: 10 * (k + 1)}
			}
			got, err := Normalize(cat, heroes)
			if err != nil {
				t.Fatalf("labels %v: %v", labels, err)
			}
			seen := map[model.Role]bool{}
			for _, r := range got {
				if !r.Valid() || seen[r] {
					t.Fatalf("labels %v: not a bijection: %v", labels, got)
				}
				seen[r] = true
			}
			if len(got) != 5 {
				t.Fatalf("labels %v: %d assignments", labels, len(got))
			}
			return
		}
		for r := model.RoleUnknown; r <= model.RoleHard; r++ {
			labels[i] = r
			walk(i + 1)
		}
	}
	walk(0)
}

func TestNormalizeKeepsPermutation(t *testing.T) {
	heroes := []Hero{{ID: 1, RawRole: 3}, {ID: 2, RawRole: 1}, {ID: 3, RawRole: 5}, {ID: 4, RawRole: 2}, {ID: 5, RawRole: 4}}
	got, err := Normalize(testCatalog(t), heroes)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range heroes {
		if got[h.ID] != h.RawRole {
			t.Errorf("hero %d moved from %d to %d", h.ID, h.RawRole, got[h.ID])
		}
	}
}

func TestNormalizeMalformedInput(t *testing.T) {
	cat := testCatalog(t)
	cases := map[string][]Hero{
		"too few":   {{ID: 1, RawRole: 1}},
		"duplicate": {{ID: 1, RawRole: 1}, {ID: 1, RawRole: 2}, {ID: 3, RawRole: 3}, {ID: 4, RawRole: 4}, {ID: 5, RawRole: 5}},
		"bad label": {{ID: 1, RawRole: 9}, {ID: 2, RawRole: 2}, {ID: 3, RawRole: 3}, {ID: 4, RawRole: 4}, {ID: 5, RawRole: 5}},
	}
	for name, heroes := range cases {
		if _, err := Normalize(cat, heroes); !errors.Is(err, ErrNoBijection) {
			t.Errorf("%s: expected ErrNoBijection, got %v", name, err)
		}
	}
}

func TestMidOverflowPrefersMid(t *testing.T) {
	// Two carries with mid empty: the priority target 5 is taken, so the
	// surplus carry takes the lowest free role.
	heroes := []Hero{
		{ID: 1, RawRole: 1, TieBreak: 50},
		{ID: 2, RawRole: 1, TieBreak: 10},
		{ID: 3, RawRole: 3, TieBreak: 5},
		{ID: 4, RawRole: 4, TieBreak: 4},
		{ID: 5, RawRole: 5, TieBreak: 3},
	}
	got, err := Normalize(testCatalog(t), heroes)
	if err != nil {
		t.Fatal(err)
	}
	if got[1] != 1 || got[2] != 2 {
		t.Errorf("got %v, want hero 1 carry and hero 2 mid", got)
	}
}

func players(labels [10]model.Role) []model.PlayerInfo {
	out := make([]model.PlayerInfo, 10)
	for i := range out {
		out[i] = model.PlayerInfo{Slot: model.Slot(i), RawRole: labels[i], NeutralKills: i}
	}
	return out
}

func TestResolveAndOpponents(t *testing.T) {
	cat := testCatalog(t)
	assigned, err := Resolve(cat, players([10]model.Role{1, 2, 3, 4, 5, 1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatal(err)
	}
	if got := Opponents(cat, assigned, 0); len(got) != 2 || got[0] != 5 || got[1] != 7 {
		t.Errorf("opponents of carry = %v, want [5 7]", got)
	}
	if got := Opponents(cat, assigned, 1); len(got) != 1 || got[0] != 6 {
		t.Errorf("opponents of mid = %v, want [6]", got)
	}
	if got := Opponents(cat, assigned, 9); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("opponents of dire hard support = %v, want [3 4]", got)
	}
	if Kind(1, 1) != model.KindDirect || Kind(1, 3) != model.KindCross {
		t.Error("Kind mismatch")
	}
}

func TestResolveNormalizesAmbiguousSide(t *testing.T) {
	cat := testCatalog(t)
	assigned, err := Resolve(cat, players([10]model.Role{1, 1, 3, 3, 2, 1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatal(err)
	}
	seen := map[model.Role]bool{}
	for s := model.Slot(0); s < 5; s++ {
		seen[assigned[s]] = true
	}
	if len(seen) != 5 {
		t.Errorf("radiant roles not distinct: %v", assigned)
	}
	if assigned[5] != 1 || assigned[9] != 5 {
		t.Errorf("dire roles changed: %v", assigned)
	}
}
