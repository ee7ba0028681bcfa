/*
store.go - Persistence interface for payout transactions

PURPOSE:
  Defines the interface between the ledger and the database. The Store
  handles persistence while maintaining append-only semantics. Different
  implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  - Append(): Single transaction write
  - WithTx(): Reads and writes that commit together (daily cap checks)
  - NO Update() or Delete() methods exist

IDEMPOTENCY:
  Every payout carries an idempotency key. If the key already exists, the
  write is rejected. The daily scheduler relies on this: paying the same
  affiliate twice for the same day collides on the key.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Higher-level interface using Store
*/
package generic

import "context"

// Store handles persistence of transactions.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete. Ever.
type Store interface {
	// Append persists a transaction. Returns ErrDuplicateIdempotencyKey if
	// the key exists.
	Append(ctx context.Context, tx Transaction) error

	// Load returns all transactions for an affiliate, ordered by EffectiveAt.
	Load(ctx context.Context, affiliateID AffiliateID) ([]Transaction, error)

	// LoadRange returns an affiliate's transactions in [from, to].
	LoadRange(ctx context.Context, affiliateID AffiliateID, from, to TimePoint) ([]Transaction, error)

	// Get returns a single transaction or ErrTransactionNotFound.
	Get(ctx context.Context, id TransactionID) (*Transaction, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. A non-nil error from fn
	// rolls everything back. Transactions are serialized, also across
	// processes sharing one database.
	WithTx(ctx context.Context, fn func(Store) error) error
}
