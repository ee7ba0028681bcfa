/*
Package generic provides the domain-agnostic core of the bonus engine.

PURPOSE:
  Types and storage contracts shared by every payout domain. The
  compensation package computes bonuses; this package records them.
  Nothing here knows what a tier or a leg is.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A quantity with a unit (e.g., 2000 bv, 200 usd)
  - Transaction: An immutable ledger entry recording a payout
  - Kind: Which payout stream a transaction belongs to (team, elite, ...)
  - Affiliate/Transaction IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Immutability: Transactions are never modified, only reversed
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing affiliate/tx IDs
  4. Auditability: Every payout has reason, reference, and idempotency key

USAGE:
  amount := generic.NewAmount(200, "usd")
  tx := generic.Transaction{
      AffiliateID: "aff-123",
      Kind:        "team_bonus",
      Delta:       amount,
      Type:        generic.TxPayout,
  }

SEE ALSO:
  - ledger.go: Append-only payout ledger
  - store.go: Persistence interface
  - time.go: Day-granular time points (daily caps)
*/
package generic

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Quantity with unit
// =============================================================================

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

// Unit is defined by domain packages (bv, usd, ...).
type Unit string

func NewAmount(value float64, unit Unit) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Unit: unit}
}

func NewAmountFromDecimal(value decimal.Decimal, unit Unit) Amount {
	return Amount{Value: value, Unit: unit}
}

// ParseAmount parses a stored decimal string.
func ParseAmount(value string, unit Unit) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return Amount{Value: d, Unit: unit}, nil
}

func (a Amount) Zero() Amount                 { return Amount{Value: decimal.Zero, Unit: a.Unit} }
func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Unit: a.Unit} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Unit: a.Unit} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Unit: a.Unit} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Unit: a.Unit} }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }

func (a Amount) Min(b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

func (a Amount) Max(b Amount) Amount {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// In returns the same value expressed in another unit. Used where the plan
// pays 1 unit of currency per unit of volume.
func (a Amount) In(unit Unit) Amount { return Amount{Value: a.Value, Unit: unit} }

// TruncateCents drops anything below two decimal places.
func (a Amount) TruncateCents() Amount { return Amount{Value: a.Value.Truncate(2), Unit: a.Unit} }

func (a Amount) String() string { return a.Value.StringFixed(2) + " " + string(a.Unit) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AffiliateID string
type TransactionID string

// Kind names the payout stream a transaction belongs to. Domain packages
// declare the concrete values:
//
//	const KindTeamBonus generic.Kind = "team_bonus"
type Kind string

// =============================================================================
// TRANSACTION - Atomic payout record
// =============================================================================

type TransactionType string

const (
	TxPayout     TransactionType = "payout"     // Bonus paid to an affiliate
	TxAdjustment TransactionType = "adjustment" // Manual admin correction
	TxReversal   TransactionType = "reversal"   // Undo a previous transaction
)

type Transaction struct {
	ID             TransactionID
	AffiliateID    AffiliateID
	Kind           Kind
	EffectiveAt    TimePoint
	Delta          Amount
	Type           TransactionType
	ReferenceID    string
	Reason         string
	IdempotencyKey string
	Metadata       map[string]string

	// Audit fields
	CreatedBy string // "system", "scheduler", "admin"
	CreatedAt TimePoint
}
