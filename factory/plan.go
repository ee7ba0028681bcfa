/*
Package factory converts plan definitions into compensation.Plan values.

PURPOSE:
  Lets operators change rates, caps and elite depths without a code
  change. Plans come from JSON (API, database) or YAML (plan files
  mounted next to the server).

JSON SCHEMA:
  {
    "id": "standard",
    "name": "Standard Plan",
    "elite_rate": 0.04,
    "activity_threshold": 10,
    "tiers": [
      {"tier": "pre_junior", "rate": 0.05, "daily_cap": 50,  "elite_depth": 0},
      {"tier": "junior",     "rate": 0.07, "daily_cap": 120, "elite_depth": 0},
      {"tier": "senior",     "rate": 0.08, "daily_cap": 360, "elite_depth": 3},
      {"tier": "master",     "rate": 0.10, "daily_cap": 720, "elite_depth": 6}
    ]
  }

  YAML files use the same field names.

KEY FEATURES:
  - Accepts tier display names ("Pre-Junior") as well as ids
  - Missing elite_rate / activity_threshold fall back to the defaults
  - Every parsed plan is validated (all four tiers, rates in [0, 1])

USAGE:
  f := factory.NewPlanFactory()
  plan, err := f.ParsePlan(compensation.StandardPlanJSON("standard", "Standard"))
  plan, err := f.LoadPlanFile("/etc/bonus/plan.yaml")
  plan, err := f.Preset("double-days")

SEE ALSO:
  - compensation/plan.go: Plan type and DefaultPlan
  - compensation/factory.go: JSON presets
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/compensation"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// SCHEMA TYPES
// =============================================================================

// PlanJSON is the serialized form of a plan.
type PlanJSON struct {
	ID                string     `json:"id" yaml:"id"`
	Name              string     `json:"name" yaml:"name"`
	EliteRate         *float64   `json:"elite_rate,omitempty" yaml:"elite_rate,omitempty"`
	ActivityThreshold *float64   `json:"activity_threshold,omitempty" yaml:"activity_threshold,omitempty"`
	Tiers             []TierJSON `json:"tiers" yaml:"tiers"`
}

// TierJSON is one row of the tier table.
type TierJSON struct {
	Tier       string  `json:"tier" yaml:"tier"`
	Rate       float64 `json:"rate" yaml:"rate"`
	DailyCap   float64 `json:"daily_cap" yaml:"daily_cap"`
	EliteDepth int     `json:"elite_depth" yaml:"elite_depth"`
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// PlanFactory converts serialized plans to compensation.Plan.
type PlanFactory struct{}

func NewPlanFactory() *PlanFactory {
	return &PlanFactory{}
}

// ParsePlan parses a JSON plan.
func (f *PlanFactory) ParsePlan(jsonStr string) (*compensation.Plan, error) {
	var pj PlanJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// ParsePlanYAML parses a YAML plan.
func (f *PlanFactory) ParsePlanYAML(raw []byte) (*compensation.Plan, error) {
	var pj PlanJSON
	if err := yaml.Unmarshal(raw, &pj); err != nil {
		return nil, fmt.Errorf("failed to parse plan YAML: %w", err)
	}
	return f.FromJSON(pj)
}

// ErrUnknownPreset is returned for a preset name that does not exist.
var ErrUnknownPreset = errors.New("unknown plan preset")

// Preset parses one of the named presets in compensation.PresetNames.
func (f *PlanFactory) Preset(name string) (*compensation.Plan, error) {
	jsonStr, ok := compensation.PresetJSON(name)
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownPreset, name, strings.Join(compensation.PresetNames(), ", "))
	}
	return f.ParsePlan(jsonStr)
}

// LoadPlanFile reads a plan from disk. The extension picks the format:
// .yaml/.yml for YAML, anything else for JSON.
func (f *PlanFactory) LoadPlanFile(path string) (*compensation.Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return f.ParsePlanYAML(raw)
	default:
		return f.ParsePlan(string(raw))
	}
}

// FromJSON converts PlanJSON to a validated plan.
func (f *PlanFactory) FromJSON(pj PlanJSON) (*compensation.Plan, error) {
	defaults := compensation.DefaultPlan()

	plan := &compensation.Plan{
		ID:                pj.ID,
		Name:              pj.Name,
		Tiers:             make(map[compensation.Tier]compensation.TierRule, len(pj.Tiers)),
		EliteRate:         defaults.EliteRate,
		ActivityThreshold: defaults.ActivityThreshold,
	}
	if plan.ID == "" {
		plan.ID = compensation.DefaultPlanID
	}
	if pj.EliteRate != nil {
		plan.EliteRate = decimal.NewFromFloat(*pj.EliteRate)
	}
	if pj.ActivityThreshold != nil {
		plan.ActivityThreshold = compensation.BV(*pj.ActivityThreshold)
	}

	for _, tj := range pj.Tiers {
		tier, err := compensation.ParseTier(tj.Tier)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", compensation.ErrInvalidPlan, err)
		}
		if _, dup := plan.Tiers[tier]; dup {
			return nil, fmt.Errorf("%w: tier %s defined twice", compensation.ErrInvalidPlan, tier.DisplayName())
		}
		plan.Tiers[tier] = compensation.TierRule{
			Tier:       tier,
			Rate:       decimal.NewFromFloat(tj.Rate),
			DailyCap:   compensation.USD(tj.DailyCap),
			EliteDepth: tj.EliteDepth,
		}
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// ToJSON converts a plan back to its serialized form.
func (f *PlanFactory) ToJSON(plan compensation.Plan) PlanJSON {
	eliteRate, _ := plan.EliteRate.Float64()
	threshold, _ := plan.ActivityThreshold.Value.Float64()

	pj := PlanJSON{
		ID:                plan.ID,
		Name:              plan.Name,
		EliteRate:         &eliteRate,
		ActivityThreshold: &threshold,
	}
	for _, r := range plan.Rules() {
		rate, _ := r.Rate.Float64()
		dailyCap, _ := r.DailyCap.Value.Float64()
		pj.Tiers = append(pj.Tiers, TierJSON{
			Tier:       string(r.Tier),
			Rate:       rate,
			DailyCap:   dailyCap,
			EliteDepth: r.EliteDepth,
		})
	}
	return pj
}

// Marshal renders a plan as indented JSON.
func (f *PlanFactory) Marshal(plan compensation.Plan) (string, error) {
	b, err := json.MarshalIndent(f.ToJSON(plan), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
