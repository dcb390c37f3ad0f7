package config

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pable/go-dota-metrics/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Unbounded marks a window without a declared end.
const Unbounded = -1

// WindowSpec declares one window in seconds relative to the horn.
type WindowSpec struct {
	Name  string `yaml:"name" koanf:"name"`
	Start int    `yaml:"start" koanf:"start"`
	End   int    `yaml:"end" koanf:"end"`
}

// Bounded reports whether the window has a declared end.
func (w WindowSpec) Bounded() bool { return w.End != Unbounded }

// Declared returns the declared length, 0 when unbounded.
func (w WindowSpec) Declared() int {
	if !w.Bounded() {
		return 0
	}
	return w.End - w.Start
}

// RoleMove is one entry of the over-subscription priority map.
type RoleMove struct {
	From int `yaml:"from" koanf:"from"`
	To   int `yaml:"to" koanf:"to"`
}

// ArchetypeSpec lists the roles of an archetype and the metric prefixes it compares.
type ArchetypeSpec struct {
	Name    string   `yaml:"name" koanf:"name"`
	Roles   []int    `yaml:"roles" koanf:"roles"`
	Columns []string `yaml:"columns" koanf:"columns"`
}

// LaneResponsibility maps lane kinds to the roles that hold them.
type LaneResponsibility struct {
	Safe []int `yaml:"safe" koanf:"safe"`
	Off  []int `yaml:"off" koanf:"off"`
	Mid  []int `yaml:"mid" koanf:"mid"`
}

// Catalog is the static description of windows, totals and roles.
type Catalog struct {
	Tolerance          int                `yaml:"tolerance" koanf:"tolerance"`
	ZeroEpsilon        float64            `yaml:"zero_epsilon" koanf:"zero_epsilon"`
	SmallSample        int                `yaml:"small_sample" koanf:"small_sample"`
	LaneWindows        []WindowSpec       `yaml:"lane_windows" koanf:"lane_windows"`
	GameWindows        []WindowSpec       `yaml:"game_windows" koanf:"game_windows"`
	SumMetrics         []string           `yaml:"sum_metrics" koanf:"sum_metrics"`
	AvgMetrics         []string           `yaml:"avg_metrics" koanf:"avg_metrics"`
	RolePriority       []RoleMove         `yaml:"role_priority" koanf:"role_priority"`
	Archetypes         []ArchetypeSpec    `yaml:"archetypes" koanf:"archetypes"`
	LaneResponsibility LaneResponsibility `yaml:"lane_responsibility" koanf:"lane_responsibility"`
}

// DefaultCatalog decodes the embedded catalog.
func DefaultCatalog() (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return Catalog{}, fmt.Errorf("%w: embedded catalog: %v", ErrLoadConfig, err)
	}
	return c, nil
}

func mustDefaultCatalog() Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Windows returns the catalog of a phase.
func (c Catalog) Windows(p model.Phase) []WindowSpec {
	if p == model.PhaseLane {
		return c.LaneWindows
	}
	return c.GameWindows
}

// TotalRule reports how the phase total of metric is derived.
type TotalRule int

const (
	TotalNone TotalRule = iota
	TotalSum
	TotalAvg
)

// Total returns the totals rule for metric. Sum wins if a name is on both lists.
func (c Catalog) Total(metric string) TotalRule {
	for _, m := range c.SumMetrics {
		if m == metric {
			return TotalSum
		}
	}
	for _, m := range c.AvgMetrics {
		if m == metric {
			return TotalAvg
		}
	}
	return TotalNone
}

// Priority returns the preferred destination of an over-subscribed role.
func (c Catalog) Priority(from model.Role) (model.Role, bool) {
	for _, m := range c.RolePriority {
		if model.Role(m.From) == from {
			return model.Role(m.To), true
		}
	}
	return model.RoleUnknown, false
}

// ArchetypeOf returns the archetype that contains role.
func (c Catalog) ArchetypeOf(role model.Role) (ArchetypeSpec, bool) {
	for _, a := range c.Archetypes {
		for _, r := range a.Roles {
			if model.Role(r) == role {
				return a, true
			}
		}
	}
	return ArchetypeSpec{}, false
}

// Covers reports whether metric is in the archetype's column allowlist.
func (a ArchetypeSpec) Covers(metric string) bool {
	for _, p := range a.Columns {
		if strings.HasPrefix(metric, p) {
			return true
		}
	}
	return false
}

// ResponsibleRoles returns the roles of side that hold lane. Radiant's safe
// lane is bottom, Dire's is top.
func (c Catalog) ResponsibleRoles(side model.Side, lane model.Lane) []model.Role {
	var src []int
	switch {
	case lane == model.LaneMid:
		src = c.LaneResponsibility.Mid
	case side == model.Radiant && lane == model.LaneBot, side == model.Dire && lane == model.LaneTop:
		src = c.LaneResponsibility.Safe
	case lane == model.LaneTop, lane == model.LaneBot:
		src = c.LaneResponsibility.Off
	}
	out := make([]model.Role, len(src))
	for i, r := range src {
		out[i] = model.Role(r)
	}
	return out
}

// Validate checks window layout and role tables.
func (c Catalog) Validate() error {
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance must not be negative", ErrInvalidConfig)
	}
	if c.SmallSample < 1 {
		return fmt.Errorf("%w: small_sample must be at least 1", ErrInvalidConfig)
	}
	for _, p := range model.Phases {
		ws := c.Windows(p)
		if len(ws) != model.NumPhaseWindows {
			return fmt.Errorf("%w: %s catalog needs %d windows, got %d", ErrInvalidConfig, p, model.NumPhaseWindows, len(ws))
		}
		for i, w := range ws {
			if w.Bounded() && w.End <= w.Start {
				return fmt.Errorf("%w: window %s ends before it starts", ErrInvalidConfig, w.Name)
			}
			if !w.Bounded() && i != len(ws)-1 {
				return fmt.Errorf("%w: only the last %s window may be unbounded", ErrInvalidConfig, p)
			}
			if i > 0 && ws[i-1].End != w.Start {
				return fmt.Errorf("%w: window %s does not start where %s ends", ErrInvalidConfig, w.Name, ws[i-1].Name)
			}
		}
	}
	for _, m := range c.RolePriority {
		if !model.Role(m.From).Valid() || !model.Role(m.To).Valid() {
			return fmt.Errorf("%w: role priority %d->%d out of range", ErrInvalidConfig, m.From, m.To)
		}
	}
	seen := map[int]string{}
	for _, a := range c.Archetypes {
		for _, r := range a.Roles {
			if prev, dup := seen[r]; dup {
				return fmt.Errorf("%w: role %d in archetypes %s and %s", ErrInvalidConfig, r, prev, a.Name)
			}
			seen[r] = a.Name
		}
	}
	return nil
}
