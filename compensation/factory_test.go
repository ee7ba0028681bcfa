package compensation_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/compensation"
)

type rawPlan struct {
	EliteRate json.Number `json:"elite_rate"`
	Tiers     []struct {
		Tier     string      `json:"tier"`
		Rate     json.Number `json:"rate"`
		DailyCap json.Number `json:"daily_cap"`
	} `json:"tiers"`
}

func decodeRawPlan(t *testing.T, s string) rawPlan {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var p rawPlan
	require.NoError(t, dec.Decode(&p))
	return p
}

func TestPromotionPlanJSON_ExactScaling(t *testing.T) {
	// GIVEN: A factor whose float product is inexact (0.07 * 3)
	// WHEN: Building the promotion plan
	p := decodeRawPlan(t, compensation.PromotionPlanJSON("triple", "Triple", 3))

	// THEN: The JSON carries the exact decimal values
	require.Len(t, p.Tiers, 4)
	junior := p.Tiers[1]
	assert.Equal(t, "junior", junior.Tier)
	assert.Equal(t, "0.21", junior.Rate.String())
	assert.Equal(t, "360", junior.DailyCap.String())
	assert.Equal(t, "0.12", p.EliteRate.String())

	p = decodeRawPlan(t, compensation.PromotionPlanJSON("plus-ten", "Plus Ten", 1.1))
	assert.Equal(t, "0.077", p.Tiers[1].Rate.String())
	assert.Equal(t, "0.11", p.Tiers[3].Rate.String())
}

func TestStandardPlanJSON_MatchesDefaultPlan(t *testing.T) {
	p := decodeRawPlan(t, compensation.StandardPlanJSON("standard", "Standard"))
	def := compensation.DefaultPlan()

	for i, r := range def.Rules() {
		assert.Equal(t, string(r.Tier), p.Tiers[i].Tier)
		assert.Equal(t, r.Rate.String(), p.Tiers[i].Rate.String())
		assert.Equal(t, r.DailyCap.Value.String(), p.Tiers[i].DailyCap.String())
	}
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{"double-days", "launch-week", "standard"}, compensation.PresetNames())

	jsonStr, ok := compensation.PresetJSON("double-days")
	require.True(t, ok)
	p := decodeRawPlan(t, jsonStr)
	assert.Equal(t, "0.2", p.Tiers[3].Rate.String())
	assert.Equal(t, "1440", p.Tiers[3].DailyCap.String())

	_, ok = compensation.PresetJSON("nope")
	assert.False(t, ok)
}
