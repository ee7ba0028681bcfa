/*
Package compensation implements the team and elite bonus rules of the
affiliate compensation plan.

PURPOSE:
  Pure calculators on top of the generic engine:
  - Team Bonus: a tier rate applied to the weaker of the two legs,
    limited by a per-day payout cap
  - Elite Bonus: a flat share of the team bonus earned by the downline,
    over as many generations as the tier unlocks

MEMBERSHIP TIERS:
  Tier        Rate   Daily cap   Elite generations
  Pre-Junior   5%      $50          -
  Junior       7%     $120          -
  Senior       8%     $360          3
  Master      10%     $720          6

ACTIVITY:
  An affiliate is active with at least 10 BV of monthly volume. Inactive
  affiliates earn no team bonus and no elite bonus.

UNITS:
  UnitBV:  Business volume (leg totals, monthly volume)
  UnitUSD: Payouts. One BV of weaker leg pays out as one dollar of base.

EXAMPLE FLOW:
  1. Master affiliate, public leg 3000 BV, private leg 2000 BV
  2. Weaker leg = 2000 BV
  3. Team bonus = 2000 * 10% = $200 (cap $720 not reached)
  4. Sponsor (Senior) earns 4% of that as elite bonus: $8

SEE ALSO:
  - plan.go: Tier table and plan parameters
  - team.go / elite.go: The two calculators
  - simulate.go: What-if downline simulator
  - payout.go: Ledger-backed payouts with daily caps
*/
package compensation

import (
	"strings"

	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// UNITS
// =============================================================================

const (
	UnitBV  generic.Unit = "bv"
	UnitUSD generic.Unit = "usd"
)

func BV(n float64) generic.Amount  { return generic.NewAmount(n, UnitBV) }
func USD(n float64) generic.Amount { return generic.NewAmount(n, UnitUSD) }

// =============================================================================
// PAYOUT KINDS
// =============================================================================

const (
	KindTeamBonus  generic.Kind = "team_bonus"
	KindEliteBonus generic.Kind = "elite_bonus"
)

// =============================================================================
// MEMBERSHIP TIER
// =============================================================================

// Tier is an affiliate's membership level.
type Tier string

const (
	TierPreJunior Tier = "pre_junior"
	TierJunior    Tier = "junior"
	TierSenior    Tier = "senior"
	TierMaster    Tier = "master"
)

// Tiers lists every tier from lowest to highest.
func Tiers() []Tier {
	return []Tier{TierPreJunior, TierJunior, TierSenior, TierMaster}
}

// DisplayName returns the name affiliates see ("Pre-Junior", ...).
func (t Tier) DisplayName() string {
	switch t {
	case TierPreJunior:
		return "Pre-Junior"
	case TierJunior:
		return "Junior"
	case TierSenior:
		return "Senior"
	case TierMaster:
		return "Master"
	default:
		return string(t)
	}
}

// ParseTier accepts the stored form ("pre_junior") as well as display
// names ("Pre-Junior"), case-insensitively.
func ParseTier(s string) (Tier, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "pre_junior", "prejunior":
		return TierPreJunior, nil
	case "junior":
		return TierJunior, nil
	case "senior":
		return TierSenior, nil
	case "master":
		return TierMaster, nil
	}
	return "", &UnknownTierError{Name: s}
}

// =============================================================================
// AFFILIATE
// =============================================================================

// Affiliate is a member of the network with this period's volumes.
type Affiliate struct {
	ID           generic.AffiliateID
	Name         string
	SponsorID    generic.AffiliateID // empty for the top of the network
	Tier         Tier
	MonthlyBV    generic.Amount
	PublicLegBV  generic.Amount
	PrivateLegBV generic.Amount
}

// Active reports whether the affiliate meets the plan's monthly volume
// threshold.
func (a Affiliate) Active(p Plan) bool {
	return p.IsActive(a.MonthlyBV)
}

// TeamBonusInput builds the calculator input for this affiliate.
func (a Affiliate) TeamBonusInput(p Plan, paidToday generic.Amount) TeamBonusInput {
	return TeamBonusInput{
		Tier:         a.Tier,
		PublicLegBV:  a.PublicLegBV,
		PrivateLegBV: a.PrivateLegBV,
		MonthlyBV:    a.MonthlyBV,
		Active:       a.Active(p),
		PaidToday:    paidToday,
	}
}
