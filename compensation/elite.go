package compensation

import (
	"iter"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// ELITE BONUS
// =============================================================================

// GenerationEarning is one downline team bonus and how deep it sits.
// Depth 1 is a directly sponsored affiliate.
type GenerationEarning struct {
	Depth     int
	TeamBonus generic.Amount
}

// EliteBonusResult holds the total and the per-generation split.
type EliteBonusResult struct {
	Tier     Tier
	Rate     decimal.Decimal
	MaxDepth int

	// Generations[i] is the elite bonus earned from generation i+1.
	Generations []generic.Amount
	Total       generic.Amount
}

// EliteBonus sums rate * team bonus over every earning whose depth falls in
// [1, tier elite depth]. Earnings outside that window are skipped. The
// sequence is consumed once and may be lazy.
//
// Tiers without elite depth fail with *IneligibleTierError, checked before
// activity. An inactive affiliate earns zero without an error.
func (p Plan) EliteBonus(tier Tier, active bool, earnings iter.Seq[GenerationEarning]) (EliteBonusResult, error) {
	rule, err := p.Rule(tier)
	if err != nil {
		return EliteBonusResult{}, err
	}

	zero := generic.NewAmount(0, UnitUSD)
	res := EliteBonusResult{
		Tier:     tier,
		Rate:     p.EliteRate,
		MaxDepth: rule.EliteDepth,
		Total:    zero,
	}

	if !rule.EliteEligible() {
		return res, &IneligibleTierError{Tier: tier, Eligible: p.EliteTiers()}
	}

	res.Generations = make([]generic.Amount, rule.EliteDepth)
	for i := range res.Generations {
		res.Generations[i] = zero
	}

	if !active || earnings == nil {
		return res, nil
	}

	for e := range earnings {
		if e.Depth < 1 || e.Depth > rule.EliteDepth {
			continue
		}
		if err := requireNonNegative("downline team bonus", e.TeamBonus); err != nil {
			return res, err
		}
		share := e.TeamBonus.Mul(p.EliteRate).In(UnitUSD)
		res.Generations[e.Depth-1] = res.Generations[e.Depth-1].Add(share)
		res.Total = res.Total.Add(share)
	}
	return res, nil
}
