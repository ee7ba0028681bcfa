package compensation_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func assertAmount(t *testing.T, want float64, got generic.Amount) {
	t.Helper()
	assert.Truef(t, decimal.NewFromFloat(want).Equal(got.Value), "want %v, got %s", want, got.Value)
}

func activeTeamInput(tier compensation.Tier, public, private float64) compensation.TeamBonusInput {
	return compensation.TeamBonusInput{
		Tier:         tier,
		PublicLegBV:  compensation.BV(public),
		PrivateLegBV: compensation.BV(private),
		MonthlyBV:    compensation.BV(100),
		Active:       true,
		PaidToday:    compensation.USD(0),
	}
}

func earning(depth int, amount float64) compensation.GenerationEarning {
	return compensation.GenerationEarning{Depth: depth, TeamBonus: compensation.USD(amount)}
}
