/*
Package compensation provides plan JSON presets.

These functions build JSON plan definitions directly so callers can feed
them to the factory package without an import cycle. Rates and caps are
scaled on decimals and written as exact JSON numbers (0.07 x 3 is 0.21).

PRESETS:
  standard      The published tier table
  double-days   Every rate and cap doubled
  launch-week   Every rate and cap raised by half

USAGE:
  jsonStr := compensation.StandardPlanJSON("standard", "Standard Plan")
  jsonStr, ok := compensation.PresetJSON("double-days")
  plan, err := factory.NewPlanFactory().ParsePlan(jsonStr)
*/
package compensation

import (
	"encoding/json"
	"slices"

	"github.com/shopspring/decimal"
)

// StandardPlanJSON returns the published tier table as plan JSON.
func StandardPlanJSON(id, name string) string {
	return planJSON(id, name, decimal.NewFromInt(1))
}

// PromotionPlanJSON returns a plan with every rate and cap scaled by
// factor, used for promotional periods. Elite depths are unchanged.
func PromotionPlanJSON(id, name string, factor float64) string {
	return planJSON(id, name, decimal.NewFromFloat(factor))
}

func planJSON(id, name string, factor decimal.Decimal) string {
	base := DefaultPlan()
	num := func(d decimal.Decimal) json.Number { return json.Number(d.String()) }

	tiers := make([]map[string]any, 0, len(base.Tiers))
	for _, r := range base.Rules() {
		tiers = append(tiers, map[string]any{
			"tier":        string(r.Tier),
			"rate":        num(r.Rate.Mul(factor)),
			"daily_cap":   num(r.DailyCap.Value.Mul(factor)),
			"elite_depth": r.EliteDepth,
		})
	}
	pj := map[string]any{
		"id":                 id,
		"name":               name,
		"elite_rate":         num(base.EliteRate.Mul(factor)),
		"activity_threshold": num(base.ActivityThreshold.Value),
		"tiers":              tiers,
	}
	b, _ := json.MarshalIndent(pj, "", "  ")
	return string(b)
}

// =============================================================================
// NAMED PRESETS
// =============================================================================

var presets = map[string]func() string{
	"standard":    func() string { return StandardPlanJSON("standard", "Standard Plan") },
	"double-days": func() string { return PromotionPlanJSON("double-days", "Double Days", 2) },
	"launch-week": func() string { return PromotionPlanJSON("launch-week", "Launch Week", 1.5) },
}

// PresetJSON returns the plan JSON of a named preset.
func PresetJSON(name string) (string, bool) {
	build, ok := presets[name]
	if !ok {
		return "", false
	}
	return build(), true
}

// PresetNames lists the presets in name order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
