package compensation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/compensation"
	"github.com/warp/bonus-engine/generic"
)

func member(id, sponsor string, tier compensation.Tier, monthly, public, private float64) compensation.Affiliate {
	return compensation.Affiliate{
		ID:           generic.AffiliateID(id),
		Name:         id,
		SponsorID:    generic.AffiliateID(sponsor),
		Tier:         tier,
		MonthlyBV:    compensation.BV(monthly),
		PublicLegBV:  compensation.BV(public),
		PrivateLegBV: compensation.BV(private),
	}
}

// testNetwork:
//
//	root (Master)
//	├── a (Master, 3000/2000 -> $200)
//	│   └── c (Junior, 1000/1000 -> $70)
//	│       └── d (Senior, inactive)
//	│           └── e (Pre-Junior, 400/400 -> $20)
//	└── b (Junior, 100/500 -> $7)
func testNetwork() *compensation.Network {
	return compensation.NewNetwork([]compensation.Affiliate{
		member("root", "", compensation.TierMaster, 50, 0, 0),
		member("b", "root", compensation.TierJunior, 20, 100, 500),
		member("a", "root", compensation.TierMaster, 20, 3000, 2000),
		member("c", "a", compensation.TierJunior, 20, 1000, 1000),
		member("d", "c", compensation.TierSenior, 2, 5000, 5000),
		member("e", "d", compensation.TierPreJunior, 20, 400, 400),
	})
}

func TestNetwork_WalkIsBreadthFirstWithDepth(t *testing.T) {
	net := testNetwork()

	var ids []string
	var depths []int
	for e := range net.Walk("root", 0) {
		ids = append(ids, string(e.Affiliate.ID))
		depths = append(depths, e.Depth)
	}

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
	assert.Equal(t, []int{1, 1, 2, 3, 4}, depths)
}

func TestNetwork_WalkStopsAtMaxDepth(t *testing.T) {
	net := testNetwork()

	downline, err := net.Downline("root", 2)
	require.NoError(t, err)
	assert.Len(t, downline, 3)
	for _, e := range downline {
		assert.LessOrEqual(t, e.Depth, 2)
	}
}

func TestNetwork_WalkCanStopEarly(t *testing.T) {
	net := testNetwork()

	count := 0
	for range net.Walk("root", 0) {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestNetwork_SponsorCycleVisitsEachOnce(t *testing.T) {
	// GIVEN: x sponsors y and y sponsors x
	net := compensation.NewNetwork([]compensation.Affiliate{
		member("x", "y", compensation.TierSenior, 20, 0, 0),
		member("y", "x", compensation.TierSenior, 20, 0, 0),
	})

	// WHEN: Walking from x without a depth limit
	downline, err := net.Downline("x", 0)

	// THEN: y is listed once and x is not revisited
	require.NoError(t, err)
	require.Len(t, downline, 1)
	assert.Equal(t, generic.AffiliateID("y"), downline[0].Affiliate.ID)
}

func TestNetwork_UnknownSponsorIsRoot(t *testing.T) {
	net := compensation.NewNetwork([]compensation.Affiliate{
		member("orphan", "gone", compensation.TierJunior, 20, 0, 0),
	})

	_, ok := net.Get("orphan")
	assert.True(t, ok)
	downline, err := net.Downline("orphan", 0)
	require.NoError(t, err)
	assert.Empty(t, downline)
}

func TestNetwork_DownlineUnknownRoot(t *testing.T) {
	_, err := testNetwork().Downline("nobody", 0)

	assert.ErrorIs(t, err, generic.ErrAffiliateNotFound)
	assert.True(t, generic.IsNotFound(err))
}

func TestNetwork_EarningsUseGrossTeamBonus(t *testing.T) {
	net := testNetwork()
	plan := compensation.DefaultPlan()

	got := map[int]float64{}
	for e := range net.Earnings(plan, "root", 0) {
		f, _ := e.TeamBonus.Value.Float64()
		got[e.Depth] += f
	}

	// Inactive d contributes nothing at depth 3
	assert.Equal(t, map[int]float64{1: 207, 2: 70, 3: 0, 4: 20}, got)
}

func TestNetwork_EliteBonusFor(t *testing.T) {
	// GIVEN: root is a Master (6 generations)
	// THEN: 4% of (200 + 7 + 70 + 0 + 20) = 11.88

	net := testNetwork()
	plan := compensation.DefaultPlan()

	res, err := net.EliteBonusFor(plan, "root")
	require.NoError(t, err)
	assertAmount(t, 11.88, res.Total)
	assertAmount(t, 8.28, res.Generations[0])
}

func TestNetwork_EliteBonusForIneligible(t *testing.T) {
	_, err := testNetwork().EliteBonusFor(compensation.DefaultPlan(), "c")
	assert.ErrorIs(t, err, compensation.ErrIneligibleTier)
}
