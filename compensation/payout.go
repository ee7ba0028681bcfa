/*
payout.go - Ledger-backed bonus payouts

PURPOSE:
  Connects the pure calculators to the append-only ledger. The ledger is
  what makes the daily cap real: every team bonus payment for a day is
  summed from recorded transactions and passed to the calculator as the
  amount already paid.

FLOW (team bonus):
  1. Sum today's team_bonus transactions for the affiliate
  2. Compute the bonus with that sum as PaidToday
  3. Truncate to cents; a zero amount writes nothing
  4. Append a payout with key team:{affiliate}:{day}:{reference}

FLOW (elite bonus):
  1. Walk the downline to the tier's elite depth
  2. Read each downline affiliate's team bonus paid that day
  3. Compute the elite bonus and append elite:{affiliate}:{day}

CONCURRENCY:
  Each payment runs in one store transaction (generic.TxStore.WithTx): the
  daily total read and the append commit together, so two payouts for one
  affiliate cannot both read the same total and overshoot the cap. The
  SQLite store takes the write lock when the transaction begins, which
  also holds across server processes sharing one database file.

IDEMPOTENCY:
  The same reference on the same day collides on the idempotency key and
  returns generic.ErrDuplicateIdempotencyKey. Distinct references on the
  same day are separate payouts sharing one daily cap.
*/
package compensation

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/warp/bonus-engine/generic"
)

// DefaultReference is used when the caller gives no payout reference.
const DefaultReference = "daily"

// PayoutService pays bonuses through a transactional store under the
// current plan.
type PayoutService struct {
	Store generic.TxStore

	mu   sync.RWMutex
	plan Plan
}

func NewPayoutService(plan Plan, store generic.TxStore) *PayoutService {
	return &PayoutService{Store: store, plan: plan}
}

// Plan returns the plan payouts are computed with.
func (s *PayoutService) Plan() Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan
}

// SetPlan swaps the plan. Payouts already recorded are not recomputed.
func (s *PayoutService) SetPlan(p Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan = p
}

// TeamPayout is the calculation and, when something was paid, the
// transaction that recorded it.
type TeamPayout struct {
	Result      TeamBonusResult
	Transaction *generic.Transaction
}

// ElitePayout is the elite calculation and its transaction.
type ElitePayout struct {
	Result      EliteBonusResult
	Transaction *generic.Transaction
}

// PayTeamBonus computes and records the team bonus for day.
func (s *PayoutService) PayTeamBonus(ctx context.Context, a Affiliate, day generic.TimePoint, reference, actor string) (TeamPayout, error) {
	if reference == "" {
		reference = DefaultReference
	}
	day = generic.DayOf(day.Time)
	plan := s.Plan()

	var out TeamPayout
	err := s.Store.WithTx(ctx, func(tx generic.Store) error {
		ledger := generic.NewLedger(tx)

		paid, err := ledger.DailyTotal(ctx, a.ID, KindTeamBonus, day, UnitUSD)
		if err != nil {
			return fmt.Errorf("load daily total: %w", err)
		}

		res, err := plan.TeamBonus(a.TeamBonusInput(plan, paid))
		out.Result = res
		if err != nil {
			return err
		}

		amount := res.Amount.TruncateCents()
		if !amount.IsPositive() {
			return nil
		}

		payout := generic.Transaction{
			ID:             generic.NewTransactionID(),
			AffiliateID:    a.ID,
			Kind:           KindTeamBonus,
			EffectiveAt:    day,
			Delta:          amount,
			Type:           generic.TxPayout,
			ReferenceID:    reference,
			Reason:         fmt.Sprintf("Team bonus %s on %s weaker leg", res.Rate.Shift(2).String()+"%", res.WeakerLeg),
			IdempotencyKey: fmt.Sprintf("team:%s:%s:%s", a.ID, day, reference),
			Metadata: map[string]string{
				"tier":       string(a.Tier),
				"weaker_leg": res.WeakerLeg.Value.String(),
				"raw":        res.Raw.Value.String(),
				"capped":     fmt.Sprint(res.Capped),
			},
			CreatedBy: actor,
		}
		if err := ledger.Append(ctx, payout); err != nil {
			return err
		}
		out.Transaction = &payout
		return nil
	})
	if err != nil {
		out.Transaction = nil
	}
	return out, err
}

// PayEliteBonus computes and records the elite bonus for day from the team
// bonus the downline was actually paid that day.
func (s *PayoutService) PayEliteBonus(ctx context.Context, net *Network, id generic.AffiliateID, day generic.TimePoint, actor string) (ElitePayout, error) {
	plan := s.Plan()

	a, ok := net.Get(id)
	if !ok {
		return ElitePayout{}, &generic.AffiliateNotFoundError{AffiliateID: id}
	}
	rule, err := plan.Rule(a.Tier)
	if err != nil {
		return ElitePayout{}, err
	}
	if !rule.EliteEligible() {
		res, err := plan.EliteBonus(a.Tier, a.Active(plan), nil)
		return ElitePayout{Result: res}, err
	}
	day = generic.DayOf(day.Time)

	var out ElitePayout
	err = s.Store.WithTx(ctx, func(tx generic.Store) error {
		ledger := generic.NewLedger(tx)

		var earnings []GenerationEarning
		if a.Active(plan) {
			for e := range net.Walk(id, rule.EliteDepth) {
				paid, err := ledger.DailyTotal(ctx, e.Affiliate.ID, KindTeamBonus, day, UnitUSD)
				if err != nil {
					return fmt.Errorf("load downline total for %s: %w", e.Affiliate.ID, err)
				}
				earnings = append(earnings, GenerationEarning{Depth: e.Depth, TeamBonus: paid.Max(paid.Zero())})
			}
		}

		res, err := plan.EliteBonus(a.Tier, a.Active(plan), slices.Values(earnings))
		out.Result = res
		if err != nil {
			return err
		}

		amount := res.Total.TruncateCents()
		if !amount.IsPositive() {
			return nil
		}

		payout := generic.Transaction{
			ID:             generic.NewTransactionID(),
			AffiliateID:    a.ID,
			Kind:           KindEliteBonus,
			EffectiveAt:    day,
			Delta:          amount,
			Type:           generic.TxPayout,
			ReferenceID:    DefaultReference,
			Reason:         fmt.Sprintf("Elite bonus over %d generations", rule.EliteDepth),
			IdempotencyKey: fmt.Sprintf("elite:%s:%s", a.ID, day),
			Metadata: map[string]string{
				"tier":        string(a.Tier),
				"generations": fmt.Sprint(rule.EliteDepth),
			},
			CreatedBy: actor,
		}
		if err := ledger.Append(ctx, payout); err != nil {
			return err
		}
		out.Transaction = &payout
		return nil
	})
	if err != nil {
		out.Transaction = nil
	}
	return out, err
}
