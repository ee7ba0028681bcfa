package compensation

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// TEAM BONUS
// =============================================================================

// TeamBonusInput is everything the team bonus depends on.
type TeamBonusInput struct {
	Tier         Tier
	PublicLegBV  generic.Amount
	PrivateLegBV generic.Amount
	Active       bool
	PaidToday    generic.Amount // team bonus already paid on the same day, USD

	// MonthlyBV is informational; Active decides eligibility.
	MonthlyBV generic.Amount
}

// TeamBonusResult is the amount plus the figures it was derived from.
type TeamBonusResult struct {
	Tier      Tier
	WeakerLeg generic.Amount // BV
	Rate      decimal.Decimal
	Raw       generic.Amount // rate * weaker leg, before any cap
	DailyCap  generic.Amount
	Remaining generic.Amount // cap headroom before this payout
	Amount    generic.Amount
	Capped    bool // Amount < Raw because of the cap
}

// TeamBonus computes the team bonus:
//
//	min(rate * min(public, private), cap - paidToday, cap), never below zero
//
// An inactive affiliate gets a zero result and an *InactiveMembershipError.
func (p Plan) TeamBonus(in TeamBonusInput) (TeamBonusResult, error) {
	rule, err := p.Rule(in.Tier)
	if err != nil {
		return TeamBonusResult{}, err
	}

	zero := generic.NewAmount(0, UnitUSD)
	res := TeamBonusResult{
		Tier:      in.Tier,
		WeakerLeg: generic.NewAmount(0, UnitBV),
		Rate:      rule.Rate,
		Raw:       zero,
		DailyCap:  rule.DailyCap,
		Remaining: zero,
		Amount:    zero,
	}

	if !in.Active {
		return res, &InactiveMembershipError{Tier: in.Tier, MonthlyBV: in.MonthlyBV, Threshold: p.ActivityThreshold}
	}

	if err := requireNonNegative("public leg BV", in.PublicLegBV); err != nil {
		return res, err
	}
	if err := requireNonNegative("private leg BV", in.PrivateLegBV); err != nil {
		return res, err
	}
	if err := requireNonNegative("paid today", in.PaidToday); err != nil {
		return res, err
	}

	res.WeakerLeg = in.PublicLegBV.Min(in.PrivateLegBV).In(UnitBV)
	res.Raw = res.WeakerLeg.Mul(rule.Rate).In(UnitUSD)

	paid := in.PaidToday.In(UnitUSD)
	res.Remaining = rule.DailyCap.Sub(paid).Max(zero)

	res.Amount = res.Raw.Min(res.Remaining).Min(rule.DailyCap).Max(zero)
	res.Capped = res.Amount.LessThan(res.Raw)
	return res, nil
}
