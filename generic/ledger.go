/*
ledger.go - Append-only payout log

PURPOSE:
  The Ledger is the immutable record of every bonus paid. Daily totals
  (used to enforce per-day payout caps) are always computed by replaying
  transactions - there's no separate "paid today" counter to drift.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: No Update, No Delete. EVER.
  2. IMMUTABLE: Once written, transactions cannot be modified
  3. IDEMPOTENT: Same idempotency key = same transaction (no duplicates)

CORRECTIONS:
  A wrong payout is never edited. Reverse() appends a TxReversal with the
  opposite sign, same kind and same effective day, so the daily total drops
  back and the cap headroom is restored.

SEE ALSO:
  - store.go: Low-level persistence interface
  - compensation/payout.go: Pays bonuses through this ledger
*/
package generic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ledger is the source of truth for all payouts.
type Ledger interface {
	// Append adds a transaction. Fails if idempotency key exists.
	Append(ctx context.Context, tx Transaction) error

	// Transactions returns all transactions for an affiliate, chronologically.
	Transactions(ctx context.Context, affiliateID AffiliateID) ([]Transaction, error)

	// TransactionsInRange returns transactions in [from, to].
	TransactionsInRange(ctx context.Context, affiliateID AffiliateID, from, to TimePoint) ([]Transaction, error)

	// DailyTotal sums every transaction of the given kind effective on day.
	DailyTotal(ctx context.Context, affiliateID AffiliateID, kind Kind, day TimePoint, unit Unit) (Amount, error)

	// Reverse appends a reversal for the given transaction.
	Reverse(ctx context.Context, id TransactionID, reason, actor string) (Transaction, error)
}

// =============================================================================
// DEFAULT LEDGER - Implementation using Store
// =============================================================================

type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

// NewTransactionID returns a fresh random transaction ID.
func NewTransactionID() TransactionID {
	return TransactionID(uuid.NewString())
}

func (l *DefaultLedger) Append(ctx context.Context, tx Transaction) error {
	if tx.IdempotencyKey != "" {
		exists, err := l.Store.Exists(ctx, tx.IdempotencyKey)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.Append(ctx, fillDefaults(tx))
}

func (l *DefaultLedger) Transactions(ctx context.Context, affiliateID AffiliateID) ([]Transaction, error) {
	return l.Store.Load(ctx, affiliateID)
}

func (l *DefaultLedger) TransactionsInRange(ctx context.Context, affiliateID AffiliateID, from, to TimePoint) ([]Transaction, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	return l.Store.LoadRange(ctx, affiliateID, from, to)
}

func (l *DefaultLedger) DailyTotal(ctx context.Context, affiliateID AffiliateID, kind Kind, day TimePoint, unit Unit) (Amount, error) {
	d := DayOf(day.Time)
	txs, err := l.Store.LoadRange(ctx, affiliateID, d, d)
	if err != nil {
		return Amount{}, err
	}

	total := NewAmount(0, unit)
	for _, tx := range txs {
		if tx.Kind != kind {
			continue
		}
		total = total.Add(tx.Delta)
	}
	return total, nil
}

func (l *DefaultLedger) Reverse(ctx context.Context, id TransactionID, reason, actor string) (Transaction, error) {
	orig, err := l.Store.Get(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if orig.Type == TxReversal {
		return Transaction{}, ErrNotReversible
	}

	reversal := Transaction{
		ID:             TransactionID("reversal-" + string(orig.ID)),
		AffiliateID:    orig.AffiliateID,
		Kind:           orig.Kind,
		EffectiveAt:    orig.EffectiveAt,
		Delta:          orig.Delta.Neg(),
		Type:           TxReversal,
		ReferenceID:    string(orig.ID),
		Reason:         reason,
		IdempotencyKey: "reversal:" + string(orig.ID),
		CreatedBy:      actor,
	}
	if reversal.Reason == "" {
		reversal.Reason = fmt.Sprintf("reversal of %s", orig.ID)
	}

	if err := l.Append(ctx, reversal); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			return Transaction{}, ErrAlreadyReversed
		}
		return Transaction{}, err
	}
	return fillDefaults(reversal), nil
}

func fillDefaults(tx Transaction) Transaction {
	if tx.ID == "" {
		tx.ID = NewTransactionID()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = Instant(time.Now())
	}
	if tx.CreatedBy == "" {
		tx.CreatedBy = "system"
	}
	return tx
}
