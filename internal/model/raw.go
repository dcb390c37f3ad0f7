package model

// ---- Raw events emitted by the event-log decoder ----

// RawPlayer is the roster entry of one slot.
type RawPlayer struct {
	Slot      Slot
	AccountID int64
	HeroID    int
	Unit      string // hero unit name, e.g. npc_dota_hero_axe
	Name      string
	LaneRole  Role // raw role label from the log; RoleUnknown when missing
}

// RawHeartbeat is a per-slot per-second sample. Gold, XP, LastHits and Denies are cumulative.
type RawHeartbeat struct {
	Time     int
	Slot     Slot
	Gold     int
	XP       int
	LastHits int
	Denies   int
	Level    int
}

type RawPing struct {
	Time int
	Slot Slot
}

// WardKind distinguishes observer and sentry wards.
type WardKind int

const (
	WardObserver WardKind = iota
	WardSentry
)

// RawWard is a ward placement (Removed=false) or removal (Removed=true).
type RawWard struct {
	Time     int
	Slot     Slot // placer
	Kind     WardKind
	Removed  bool
	Handle   int64
	Attacker string // unit that destroyed the ward, empty on expiry
}

type RawDamage struct {
	Time             int
	Attacker         string
	Target           string
	Source           string // owning unit of the attacker, set for summons
	TargetSource     string
	Value            int
	AttackerHero     bool
	TargetHero       bool
	AttackerIllusion bool
	TargetIllusion   bool
}

type RawGold struct {
	Time   int
	Target string
	Value  int
	Reason int
}

// XP reasons as reported by the combat log.
const (
	XPReasonOther  = 0
	XPReasonHero   = 1
	XPReasonCreep  = 2
	XPReasonRoshan = 3
)

type RawXP struct {
	Time   int
	Target string
	Value  int
	Reason int
}

type RawDeath struct {
	Time           int
	Attacker       string
	Target         string
	Source         string
	AttackerHero   bool
	TargetHero     bool
	TargetIllusion bool
}

type RawRoshanKill struct {
	Time int
	Side Side
}

// RawMatch is everything decoded from one match's event log.
type RawMatch struct {
	MatchID     int64
	LeagueID    int64
	SourceHash  string
	Origin      int // match-clock value of the horn
	RadiantWin  *bool
	Players     []RawPlayer
	Heartbeats  []RawHeartbeat
	Pings       []RawPing
	Wards       []RawWard
	Damages     []RawDamage
	Gold        []RawGold
	XP          []RawXP
	Deaths      []RawDeath
	Roshans     []RawRoshanKill
	SkippedRows int
}
