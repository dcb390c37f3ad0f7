package model

// ---- Output records ----

// MatchSummary is the stored header of an ingested match.
type MatchSummary struct {
	MatchID       int64
	LeagueID      int64
	SourceHash    string
	Duration      int
	RadiantWin    *bool
	RolesResolved bool
	RoleError     string
	IngestedAt    string
}

// WindowInfo is the stored shape of one observed window.
type WindowInfo struct {
	Field         Field
	Exists        bool
	Incomplete    bool
	Start         int
	End           int
	Length        int
	LengthMinutes int
}

// PlayerInfo is one roster row with both the raw and the resolved role.
type PlayerInfo struct {
	MatchID      int64
	Slot         Slot
	AccountID    int64
	HeroID       int
	Unit         string
	Name         string
	RawRole      Role
	Role         Role
	NeutralKills int
}

// Mask is an optional sparse-codec bitmask.
type Mask struct {
	Bits  uint64
	Valid bool
}

// MetricRow is one slot's series for one metric as persisted.
type MetricRow struct {
	MatchID  int64
	Slot     Slot
	Metric   string
	Series   Series
	LaneMask Mask
	GameMask Mask
}

// CompareMode is flat (difference) or perc (ratio).
type CompareMode string

const (
	ModeFlat CompareMode = "flat"
	ModePerc CompareMode = "perc"
)

// CompareKind tags how the comparans was chosen.
type CompareKind string

const (
	KindDirect  CompareKind = "direct"
	KindCross   CompareKind = "cross"
	KindAverage CompareKind = "average"
)

// AllOpponents is the comparans slot value of an averaged comparison.
const AllOpponents = -1

// Comparison is one comparandum/comparans pair for one metric.
type Comparison struct {
	MatchID     int64
	Comparandum Slot
	Comparans   int // a slot, or AllOpponents
	Mode        CompareMode
	Kind        CompareKind
	Metric      string
	Series      Series
	LaneMask    Mask
	GameMask    Mask
}

// SideBuildings summarises barracks and tower losses of one side.
type SideBuildings struct {
	MatchID        int64
	Side           Side
	TowersLost     int
	RaxLost        int
	LanesDestroyed int
	Lane1Destroyed bool
	Lane2Destroyed bool
	Lane3Destroyed bool
	Megacreeps     bool
	NakedThrone    bool
	FirstTowerLost Lane
	FirstTowerTime int
}

// Kill is a hero death. Attacker is nil when the killer could not be resolved.
type Kill struct {
	Time     int
	Attacker *Slot
	Victim   Slot
}

// AggregateKind separates plain aggregation from cross-comparison aggregation.
type AggregateKind string

const (
	AggregatePlain AggregateKind = "plain"
	AggregateCross AggregateKind = "cross"
)

// AggregateRow is one league-level group mean.
type AggregateRow struct {
	LeagueID    int64         `csv:"league_id"`
	Kind        AggregateKind `csv:"kind"`
	Source      string        `csv:"source"`
	Grouping    string        `csv:"grouping"`
	Key         string        `csv:"key"`
	Archetype   string        `csv:"archetype"`
	Metric      string        `csv:"metric"`
	Matches     int           `csv:"matches"`
	SmallSample bool          `csv:"small_sample"`
	Series      Series        `csv:"-"`
}

// MatchRecord is everything stored for one ingested match.
type MatchRecord struct {
	Summary   MatchSummary
	Windows   []WindowInfo
	Players   []PlayerInfo
	Buildings []SideBuildings
	Kills     []Kill
	Metrics   []MetricRow
}

// Identity is the grouping key material of one slot in one match.
type Identity struct {
	AccountID int64
	HeroID    int
	Role      Role
}

// LeagueMetric is a stored metric row joined with its player's identity.
type LeagueMetric struct {
	Row    MetricRow
	Player Identity
}

// LeagueComparison is a stored comparison joined with both identities. To is
// zero for averaged comparisons.
type LeagueComparison struct {
	Cmp  Comparison
	From Identity
	To   Identity
}

// Stage names a barrier stage of the league pipeline.
type Stage string

const (
	StageIngest    Stage = "ingest"
	StageRoles     Stage = "roles"
	StageAggregate Stage = "aggregate"
	StageDone      Stage = "done"
)

// StageStatus is the outcome of the last attempt at a stage.
type StageStatus string

const (
	StatusRunning StageStatus = "running"
	StatusFailed  StageStatus = "failed"
	StatusDone    StageStatus = "done"
)

// StageRecord is the persisted progress of one league run.
type StageRecord struct {
	LeagueID  int64
	RunID     string
	Dir       string
	Stage     Stage
	Status    StageStatus
	Error     string
	UpdatedAt string
}

// Overview is a high-level count of what the database holds.
type Overview struct {
	Matches       int
	Resolved      int
	RoleErrors    int
	Players       int
	AggregateRows int
	FirstIngest   string
	LastIngest    string
}

// LeagueOverview is the per-league breakdown of an Overview.
type LeagueOverview struct {
	LeagueID  int64
	Matches   int
	Resolved  int
	RadiantWR float64 // share of decided matches won by Radiant, 0..1
	AvgLength float64 // seconds
}

// HeroCount is how often a hero was played.
type HeroCount struct {
	HeroID  int
	Matches int
}
