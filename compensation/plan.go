package compensation

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// TierRule holds the parameters a tier unlocks.
type TierRule struct {
	Tier       Tier
	Rate       decimal.Decimal // team bonus share of the weaker leg
	DailyCap   generic.Amount  // USD
	EliteDepth int             // generations counted for the elite bonus, 0 = none
}

// EliteEligible reports whether the tier earns any elite bonus.
func (r TierRule) EliteEligible() bool { return r.EliteDepth > 0 }

// Plan is a complete set of compensation parameters. The zero value is not
// usable; start from DefaultPlan or factory.ParsePlan.
type Plan struct {
	ID                string
	Name              string
	Tiers             map[Tier]TierRule
	EliteRate         decimal.Decimal
	ActivityThreshold generic.Amount // monthly BV
}

const (
	DefaultPlanID   = "standard"
	DefaultPlanName = "Bono de Equipo / Bono Elite"
)

// DefaultPlan returns the published plan.
func DefaultPlan() Plan {
	return Plan{
		ID:   DefaultPlanID,
		Name: DefaultPlanName,
		Tiers: map[Tier]TierRule{
			TierPreJunior: {Tier: TierPreJunior, Rate: decimal.RequireFromString("0.05"), DailyCap: USD(50), EliteDepth: 0},
			TierJunior:    {Tier: TierJunior, Rate: decimal.RequireFromString("0.07"), DailyCap: USD(120), EliteDepth: 0},
			TierSenior:    {Tier: TierSenior, Rate: decimal.RequireFromString("0.08"), DailyCap: USD(360), EliteDepth: 3},
			TierMaster:    {Tier: TierMaster, Rate: decimal.RequireFromString("0.10"), DailyCap: USD(720), EliteDepth: 6},
		},
		EliteRate:         decimal.RequireFromString("0.04"),
		ActivityThreshold: BV(10),
	}
}

// Rule returns the parameters for a tier.
func (p Plan) Rule(t Tier) (TierRule, error) {
	r, ok := p.Tiers[t]
	if !ok {
		return TierRule{}, &UnknownTierError{Name: string(t)}
	}
	return r, nil
}

// Rules returns the tier rules ordered from lowest to highest tier.
func (p Plan) Rules() []TierRule {
	rules := make([]TierRule, 0, len(p.Tiers))
	for _, t := range Tiers() {
		if r, ok := p.Tiers[t]; ok {
			rules = append(rules, r)
		}
	}
	return rules
}

// EliteTiers lists the tiers paid an elite bonus, lowest first.
func (p Plan) EliteTiers() []Tier {
	var tiers []Tier
	for _, r := range p.Rules() {
		if r.EliteEligible() {
			tiers = append(tiers, r.Tier)
		}
	}
	return tiers
}

// IsActive reports whether a monthly volume meets the activity threshold.
func (p Plan) IsActive(monthlyBV generic.Amount) bool {
	return !monthlyBV.LessThan(p.ActivityThreshold)
}

// MaxEliteDepth is the deepest generation any tier reaches.
func (p Plan) MaxEliteDepth() int {
	depth := 0
	for _, r := range p.Tiers {
		if r.EliteDepth > depth {
			depth = r.EliteDepth
		}
	}
	return depth
}

// Validate checks that every tier is defined with sane parameters.
func (p Plan) Validate() error {
	one := decimal.NewFromInt(1)
	for _, t := range Tiers() {
		r, ok := p.Tiers[t]
		if !ok {
			return fmt.Errorf("%w: missing tier %s", ErrInvalidPlan, t.DisplayName())
		}
		if r.Rate.IsNegative() || r.Rate.GreaterThan(one) {
			return fmt.Errorf("%w: %s rate %s outside [0, 1]", ErrInvalidPlan, t.DisplayName(), r.Rate)
		}
		if r.DailyCap.IsNegative() {
			return fmt.Errorf("%w: %s daily cap is negative", ErrInvalidPlan, t.DisplayName())
		}
		if r.EliteDepth < 0 {
			return fmt.Errorf("%w: %s elite depth is negative", ErrInvalidPlan, t.DisplayName())
		}
	}
	if p.EliteRate.IsNegative() || p.EliteRate.GreaterThan(one) {
		return fmt.Errorf("%w: elite rate %s outside [0, 1]", ErrInvalidPlan, p.EliteRate)
	}
	if p.ActivityThreshold.IsNegative() {
		return fmt.Errorf("%w: activity threshold is negative", ErrInvalidPlan)
	}
	return nil
}
