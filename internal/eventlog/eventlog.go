// Package eventlog decodes line-delimited JSON match event logs into a RawMatch.
package eventlog

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/pable/go-dota-metrics/internal/logger"
	"github.com/pable/go-dota-metrics/internal/model"
)

// maxLine bounds a single event line.
const maxLine = 1024 * 1024

// Event types understood by the decoder.
const (
	TypeMatch      = "match"
	TypePlayer     = "player"
	TypeInterval   = "interval"
	TypePings      = "pings"
	TypeObs        = "obs"
	TypeSen        = "sen"
	TypeObsLeft    = "obs_left"
	TypeSenLeft    = "sen_left"
	TypeDamage     = "DOTA_COMBATLOG_DAMAGE"
	TypeGold       = "DOTA_COMBATLOG_GOLD"
	TypeXP         = "DOTA_COMBATLOG_XP"
	TypeDeath      = "DOTA_COMBATLOG_DEATH"
	TypeRoshanKill = "CHAT_MESSAGE_ROSHAN_KILL"
)

// line is the union of every field any event type carries.
type line struct {
	Type string `json:"type"`
	Time int    `json:"time"`
	Slot *int   `json:"slot"`

	MatchID    int64 `json:"match_id"`
	LeagueID   int64 `json:"league_id"`
	GameStart  int   `json:"game_start"`
	RadiantWin *bool `json:"radiant_win"`

	AccountID int64  `json:"account_id"`
	HeroID    int    `json:"hero_id"`
	Unit      string `json:"unit"`
	Name      string `json:"name"`
	LaneRole  int    `json:"lane_role"`

	Gold     int `json:"gold"`
	XP       int `json:"xp"`
	LastHits int `json:"lh"`
	Denies   int `json:"denies"`
	Level    int `json:"level"`

	EHandle int64 `json:"ehandle"`

	AttackerName     string `json:"attackername"`
	TargetName       string `json:"targetname"`
	SourceName       string `json:"sourcename"`
	TargetSourceName string `json:"targetsourcename"`
	AttackerHero     bool   `json:"attackerhero"`
	TargetHero       bool   `json:"targethero"`
	AttackerIllusion bool   `json:"attackerillusion"`
	TargetIllusion   bool   `json:"targetillusion"`
	Value            int    `json:"value"`
	GoldReason       int    `json:"gold_reason"`
	XPReason         int    `json:"xp_reason"`

	Team int `json:"team"`
}

// Open decodes the log at path. Files ending in .gz or .zst are decompressed
// while streaming. The source hash covers the file bytes as stored.
func Open(ctx context.Context, path string, log logger.Logger) (*model.RawMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hash event log: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek event log: %w", err)
	}

	var src io.Reader = f
	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		src = dec
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	raw, err := Decode(ctx, src, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	raw.SourceHash = fmt.Sprintf("%x", h.Sum(nil))
	return raw, nil
}

// Decode reads one event per line. Malformed lines are skipped with a warning
// and counted in RawMatch.SkippedRows; unknown event types are ignored.
func Decode(ctx context.Context, r io.Reader, log logger.Logger) (*model.RawMatch, error) {
	raw := &model.RawMatch{}
	players := map[model.Slot]*model.RawPlayer{}
	units := map[model.Slot]string{}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	n := 0
	for sc.Scan() {
		n++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var ev line
		if err := json.Unmarshal(b, &ev); err != nil {
			raw.SkippedRows++
			log.Warn(ctx, "skipping malformed event", logger.Int("line", n), logger.Error(err))
			continue
		}
		if !ev.apply(raw, players, units) {
			raw.SkippedRows++
			log.Warn(ctx, "skipping event with bad slot", logger.Int("line", n), logger.String("type", ev.Type))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read event log: %w", err)
	}
	if raw.MatchID == 0 {
		return nil, ErrNoMatchID
	}

	roster, err := buildRoster(players, units)
	if err != nil {
		return nil, err
	}
	raw.Players = roster
	sortByTime(raw)
	return raw, nil
}

// apply routes one decoded line into raw. It returns false when a slot-bearing
// event has no usable slot.
func (ev *line) apply(raw *model.RawMatch, players map[model.Slot]*model.RawPlayer, units map[model.Slot]string) bool {
	slot, slotOK := ev.slot()
	switch ev.Type {
	case TypeMatch:
		if ev.MatchID != 0 {
			raw.MatchID = ev.MatchID
		}
		if ev.LeagueID != 0 {
			raw.LeagueID = ev.LeagueID
		}
		raw.Origin = ev.GameStart
		if ev.RadiantWin != nil {
			raw.RadiantWin = ev.RadiantWin
		}
	case TypePlayer:
		if !slotOK {
			return false
		}
		players[slot] = &model.RawPlayer{
			Slot:      slot,
			AccountID: ev.AccountID,
			HeroID:    ev.HeroID,
			Unit:      ev.Unit,
			Name:      ev.Name,
			LaneRole:  model.Role(ev.LaneRole),
		}
	case TypeInterval:
		if !slotOK {
			return false
		}
		if ev.Unit != "" {
			units[slot] = ev.Unit
		}
		raw.Heartbeats = append(raw.Heartbeats, model.RawHeartbeat{
			Time: ev.Time, Slot: slot, Gold: ev.Gold, XP: ev.XP,
			LastHits: ev.LastHits, Denies: ev.Denies, Level: ev.Level,
		})
	case TypePings:
		if !slotOK {
			return false
		}
		raw.Pings = append(raw.Pings, model.RawPing{Time: ev.Time, Slot: slot})
	case TypeObs, TypeSen, TypeObsLeft, TypeSenLeft:
		if !slotOK {
			return false
		}
		kind := model.WardObserver
		if ev.Type == TypeSen || ev.Type == TypeSenLeft {
			kind = model.WardSentry
		}
		raw.Wards = append(raw.Wards, model.RawWard{
			Time:     ev.Time,
			Slot:     slot,
			Kind:     kind,
			Removed:  ev.Type == TypeObsLeft || ev.Type == TypeSenLeft,
			Handle:   ev.EHandle,
			Attacker: ev.AttackerName,
		})
	case TypeDamage:
		raw.Damages = append(raw.Damages, model.RawDamage{
			Time: ev.Time, Attacker: ev.AttackerName, Target: ev.TargetName,
			Source: ev.SourceName, TargetSource: ev.TargetSourceName, Value: ev.Value,
			AttackerHero: ev.AttackerHero, TargetHero: ev.TargetHero,
			AttackerIllusion: ev.AttackerIllusion, TargetIllusion: ev.TargetIllusion,
		})
	case TypeGold:
		raw.Gold = append(raw.Gold, model.RawGold{Time: ev.Time, Target: ev.TargetName, Value: ev.Value, Reason: ev.GoldReason})
	case TypeXP:
		raw.XP = append(raw.XP, model.RawXP{Time: ev.Time, Target: ev.TargetName, Value: ev.Value, Reason: ev.XPReason})
	case TypeDeath:
		raw.Deaths = append(raw.Deaths, model.RawDeath{
			Time: ev.Time, Attacker: ev.AttackerName, Target: ev.TargetName, Source: ev.SourceName,
			AttackerHero: ev.AttackerHero, TargetHero: ev.TargetHero, TargetIllusion: ev.TargetIllusion,
		})
	case TypeRoshanKill:
		raw.Roshans = append(raw.Roshans, model.RawRoshanKill{Time: ev.Time, Side: model.Side(ev.Team)})
	}
	return true
}

func (ev *line) slot() (model.Slot, bool) {
	if ev.Slot == nil || *ev.Slot < 0 || *ev.Slot >= model.NumSlots {
		return 0, false
	}
	return model.Slot(*ev.Slot), true
}

// buildRoster requires all ten slots, filling hero units from heartbeats when
// the player line left them out.
func buildRoster(players map[model.Slot]*model.RawPlayer, units map[model.Slot]string) ([]model.RawPlayer, error) {
	if len(players) != model.NumSlots {
		return nil, fmt.Errorf("%w: %d player lines, want %d", ErrRoster, len(players), model.NumSlots)
	}
	out := make([]model.RawPlayer, 0, model.NumSlots)
	seen := map[string]model.Slot{}
	for _, s := range model.AllSlots() {
		p := players[s]
		if p.Unit == "" {
			p.Unit = units[s]
		}
		if p.Unit == "" {
			return nil, fmt.Errorf("%w: slot %d has no hero unit", ErrRoster, s)
		}
		if prev, dup := seen[p.Unit]; dup {
			return nil, fmt.Errorf("%w: unit %s on slots %d and %d", ErrRoster, p.Unit, prev, s)
		}
		seen[p.Unit] = s
		if p.LaneRole < model.RoleUnknown || p.LaneRole > model.RoleHard {
			p.LaneRole = model.RoleUnknown
		}
		out = append(out, *p)
	}
	return out, nil
}

func sortByTime(raw *model.RawMatch) {
	sort.SliceStable(raw.Heartbeats, func(i, j int) bool { return raw.Heartbeats[i].Time < raw.Heartbeats[j].Time })
	sort.SliceStable(raw.Pings, func(i, j int) bool { return raw.Pings[i].Time < raw.Pings[j].Time })
	sort.SliceStable(raw.Wards, func(i, j int) bool { return raw.Wards[i].Time < raw.Wards[j].Time })
	sort.SliceStable(raw.Damages, func(i, j int) bool { return raw.Damages[i].Time < raw.Damages[j].Time })
	sort.SliceStable(raw.Gold, func(i, j int) bool { return raw.Gold[i].Time < raw.Gold[j].Time })
	sort.SliceStable(raw.XP, func(i, j int) bool { return raw.XP[i].Time < raw.XP[j].Time })
	sort.SliceStable(raw.Deaths, func(i, j int) bool { return raw.Deaths[i].Time < raw.Deaths[j].Time })
	sort.SliceStable(raw.Roshans, func(i, j int) bool { return raw.Roshans[i].Time < raw.Roshans[j].Time })
}
