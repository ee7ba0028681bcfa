package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/factory"
)

func TestParsePlan_StandardPreset(t *testing.T) {
	// GIVEN: The standard plan JSON
	f := factory.NewPlanFactory()

	// WHEN: Parsing it
	plan, err := f.ParsePlan(compensation.StandardPlanJSON("standard", "Standard"))

	// THEN: It matches the built-in default
	require.NoError(t, err)
	def := compensation.DefaultPlan()
	assert.Equal(t, "standard", plan.ID)
	assert.Equal(t, "Standard", plan.Name)
	for _, tier := range compensation.Tiers() {
		got, want := plan.Tiers[tier], def.Tiers[tier]
		assert.True(t, want.Rate.Equal(got.Rate), "rate of %s", tier)
		assert.True(t, want.DailyCap.Equal(got.DailyCap), "cap of %s", tier)
		assert.Equal(t, want.EliteDepth, got.EliteDepth)
	}
	assert.True(t, def.EliteRate.Equal(plan.EliteRate))
	assert.True(t, def.ActivityThreshold.Equal(plan.ActivityThreshold))
}

func TestParsePlan_PromotionScalesRatesAndCaps(t *testing.T) {
	f := factory.NewPlanFactory()

	plan, err := f.ParsePlan(compensation.PromotionPlanJSON("promo", "Double Days", 2))
	require.NoError(t, err)

	master := plan.Tiers[compensation.TierMaster]
	assert.True(t, decimal.RequireFromString("0.2").Equal(master.Rate))
	assert.True(t, decimal.NewFromInt(1440).Equal(master.DailyCap.Value))
	assert.Equal(t, 6, master.EliteDepth)
}

func TestPreset(t *testing.T) {
	f := factory.NewPlanFactory()

	for _, name := range compensation.PresetNames() {
		plan, err := f.Preset(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, plan.ID)
	}

	// Launch week raises the Junior rate by half: 7% -> 10.5%, $120 -> $180
	plan, err := f.Preset("launch-week")
	require.NoError(t, err)
	junior := plan.Tiers[compensation.TierJunior]
	assert.True(t, decimal.RequireFromString("0.105").Equal(junior.Rate), junior.Rate.String())
	assert.True(t, decimal.NewFromInt(180).Equal(junior.DailyCap.Value))

	_, err = f.Preset("black-friday")
	assert.ErrorIs(t, err, factory.ErrUnknownPreset)
	assert.Contains(t, err.Error(), "double-days")
}

func TestParsePlan_DefaultsAndDisplayNames(t *testing.T) {
	// GIVEN: A plan without id, elite rate or threshold, using display names
	jsonStr := `{
		"name": "Display Names",
		"tiers": [
			{"tier": "Pre-Junior", "rate": 0.05, "daily_cap": 50},
			{"tier": "Junior", "rate": 0.07, "daily_cap": 120},
			{"tier": "Senior", "rate": 0.08, "daily_cap": 360, "elite_depth": 3},
			{"tier": "Master", "rate": 0.10, "daily_cap": 720, "elite_depth": 6}
		]
	}`

	plan, err := factory.NewPlanFactory().ParsePlan(jsonStr)

	// THEN: Missing fields fall back to the defaults
	require.NoError(t, err)
	assert.Equal(t, compensation.DefaultPlanID, plan.ID)
	assert.True(t, decimal.RequireFromString("0.04").Equal(plan.EliteRate))
	assert.True(t, decimal.NewFromInt(10).Equal(plan.ActivityThreshold.Value))
	assert.Equal(t, 3, plan.Tiers[compensation.TierSenior].EliteDepth)
}

func TestParsePlan_Invalid(t *testing.T) {
	tests := map[string]string{
		"malformed":      `{"tiers": [`,
		"unknown tier":   `{"tiers": [{"tier": "gold", "rate": 0.1, "daily_cap": 1}]}`,
		"missing tiers":  `{"tiers": [{"tier": "master", "rate": 0.1, "daily_cap": 720, "elite_depth": 6}]}`,
		"duplicate tier": `{"tiers": [{"tier": "master", "rate": 0.1, "daily_cap": 720}, {"tier": "Master", "rate": 0.1, "daily_cap": 720}]}`,
	}

	f := factory.NewPlanFactory()
	for name, jsonStr := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParsePlan(jsonStr)
			assert.Error(t, err)
		})
	}

	_, err := f.ParsePlan(`{"tiers": [{"tier": "gold"}]}`)
	assert.ErrorIs(t, err, compensation.ErrInvalidPlan)
}

func TestParsePlanYAML(t *testing.T) {
	yamlDoc := `
id: yaml-plan
name: YAML Plan
elite_rate: 0.05
activity_threshold: 20
tiers:
  - {tier: pre_junior, rate: 0.05, daily_cap: 50}
  - {tier: junior, rate: 0.07, daily_cap: 120}
  - {tier: senior, rate: 0.08, daily_cap: 360, elite_depth: 4}
  - {tier: master, rate: 0.10, daily_cap: 720, elite_depth: 6}
`
	plan, err := factory.NewPlanFactory().ParsePlanYAML([]byte(yamlDoc))
	require.NoError(t, err)

	assert.Equal(t, "yaml-plan", plan.ID)
	assert.True(t, decimal.RequireFromString("0.05").Equal(plan.EliteRate))
	assert.True(t, decimal.NewFromInt(20).Equal(plan.ActivityThreshold.Value))
	assert.Equal(t, 4, plan.Tiers[compensation.TierSenior].EliteDepth)
}

func TestLoadPlanFile(t *testing.T) {
	f := factory.NewPlanFactory()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "plan.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(compensation.StandardPlanJSON("from-json", "JSON")), 0o644))

	yamlPath := filepath.Join(dir, "plan.YML")
	yamlDoc := "id: from-yaml\nname: YAML\ntiers:\n" +
		"  - {tier: pre_junior, rate: 0.05, daily_cap: 50}\n" +
		"  - {tier: junior, rate: 0.07, daily_cap: 120}\n" +
		"  - {tier: senior, rate: 0.08, daily_cap: 360, elite_depth: 3}\n" +
		"  - {tier: master, rate: 0.10, daily_cap: 720, elite_depth: 6}\n"
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDoc), 0o644))

	fromJSON, err := f.LoadPlanFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "from-json", fromJSON.ID)

	fromYAML, err := f.LoadPlanFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", fromYAML.ID)

	_, err = f.LoadPlanFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	f := factory.NewPlanFactory()
	def := compensation.DefaultPlan()

	jsonStr, err := f.Marshal(def)
	require.NoError(t, err)

	plan, err := f.ParsePlan(jsonStr)
	require.NoError(t, err)
	assert.Equal(t, def.ID, plan.ID)
	assert.Len(t, f.ToJSON(*plan).Tiers, 4)
	assert.True(t, def.Tiers[compensation.TierSenior].Rate.Equal(plan.Tiers[compensation.TierSenior].Rate))
}
