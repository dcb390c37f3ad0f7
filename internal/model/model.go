package model

import "fmt"

// NumSlots is the fixed number of player positions in a match.
const NumSlots = 10

// Slot identifies one of the ten player positions. 0–4 are Radiant, 5–9 Dire.
type Slot uint8

// Valid reports whether s is within 0–9.
func (s Slot) Valid() bool { return s < NumSlots }

// Side returns the side the slot plays on.
func (s Slot) Side() Side {
	if s < 5 {
		return Radiant
	}
	return Dire
}

func (s Slot) String() string { return fmt.Sprintf("slot%d", uint8(s)) }

// AllSlots returns the ten slots in order.
func AllSlots() []Slot {
	out := make([]Slot, NumSlots)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// Side represents which team a slot is on.
type Side int

const (
	SideUnknown Side = 0
	Radiant     Side = 2
	Dire        Side = 3
)

func (s Side) String() string {
	switch s {
	case Radiant:
		return "radiant"
	case Dire:
		return "dire"
	default:
		return "?"
	}
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	switch s {
	case Radiant:
		return Dire
	case Dire:
		return Radiant
	default:
		return SideUnknown
	}
}

// Slots returns the five slots of the side.
func (s Side) Slots() []Slot {
	switch s {
	case Radiant:
		return []Slot{0, 1, 2, 3, 4}
	case Dire:
		return []Slot{5, 6, 7, 8, 9}
	default:
		return nil
	}
}

// ParseSide accepts "radiant"/"dire" as well as the numeric team codes 2/3.
func ParseSide(s string) Side {
	switch s {
	case "radiant", "2":
		return Radiant
	case "dire", "3":
		return Dire
	default:
		return SideUnknown
	}
}

// Role is a positional role 1–5. 0 means unknown.
type Role int

const (
	RoleUnknown Role = 0
	RoleCarry   Role = 1
	RoleMid     Role = 2
	RoleOfflane Role = 3
	RoleSoft    Role = 4
	RoleHard    Role = 5
)

// Valid reports whether r is one of the five positional roles.
func (r Role) Valid() bool { return r >= RoleCarry && r <= RoleHard }

// Archetype groups roles whose holders oppose each other positionally.
type Archetype string

const (
	ArchetypeSupport Archetype = "support"
	ArchetypeCore    Archetype = "core"
	ArchetypeMid     Archetype = "mid"
)

// Lane is one of the three map lanes.
type Lane int

const (
	LaneNone Lane = 0
	LaneTop  Lane = 1
	LaneMid  Lane = 2
	LaneBot  Lane = 3
)

func (l Lane) String() string {
	switch l {
	case LaneTop:
		return "top"
	case LaneMid:
		return "mid"
	case LaneBot:
		return "bot"
	default:
		return ""
	}
}

// ParseLane parses the lane suffix used in building unit names.
func ParseLane(s string) Lane {
	switch s {
	case "top":
		return LaneTop
	case "mid":
		return LaneMid
	case "bot":
		return LaneBot
	default:
		return LaneNone
	}
}

// ---- Window layout ----

// Field is one of the twelve cells stored per metric series.
type Field int

const (
	Lane0 Field = iota
	Lane1
	Lane2
	Lane3
	Lane4
	LaneTotal
	Game0
	Game1
	Game2
	Game3
	Game4
	GameTotal
	NumFields
)

// NumPhaseWindows is the number of windows in each phase catalog.
const NumPhaseWindows = 5

var fieldNames = [NumFields]string{
	"lane_0", "lane_1", "lane_2", "lane_3", "lane_4", "lane_total",
	"game_0", "game_1", "game_2", "game_3", "game_4", "game_total",
}

func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return "?"
	}
	return fieldNames[f]
}

// IsTotal reports whether f is one of the two phase totals.
func (f Field) IsTotal() bool { return f == LaneTotal || f == GameTotal }

// FieldNames returns the storage column names in field order.
func FieldNames() []string {
	out := make([]string, NumFields)
	copy(out, fieldNames[:])
	return out
}

// ParseField maps a column name back to its Field.
func ParseField(s string) (Field, bool) {
	for i, n := range fieldNames {
		if n == s {
			return Field(i), true
		}
	}
	return 0, false
}

// Phase selects one of the two window catalogs.
type Phase int

const (
	PhaseLane Phase = iota
	PhaseGame
)

func (p Phase) String() string {
	if p == PhaseLane {
		return "lane"
	}
	return "game"
}

// WindowField returns the field holding window i of the phase.
func (p Phase) WindowField(i int) Field {
	if p == PhaseLane {
		return Lane0 + Field(i)
	}
	return Game0 + Field(i)
}

// TotalField returns the phase total field.
func (p Phase) TotalField() Field {
	if p == PhaseLane {
		return LaneTotal
	}
	return GameTotal
}

// Group returns the contiguous field range [lo, hi) of the phase, totals included.
func (p Phase) Group() (lo, hi Field) {
	if p == PhaseLane {
		return Lane0, LaneTotal + 1
	}
	return Game0, GameTotal + 1
}

// Phases lists both phases in storage order.
var Phases = []Phase{PhaseLane, PhaseGame}
