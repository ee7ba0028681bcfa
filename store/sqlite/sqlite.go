/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the payout ledger, the affiliate roster and the active
  compensation plan.

INTERFACES IMPLEMENTED:
  generic.Store:   Payout ledger persistence
  generic.TxStore: Read-then-write payouts in one transaction

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on the payouts table
  - No DELETE statements on the payouts table (except Reset for demos)
  - Corrections via reversal transactions only

KEY TABLES:
  payouts:    Immutable ledger of all bonus payments
  affiliates: Roster with tier, sponsor and this period's volumes
  plans:      Compensation plan definitions (JSON, versioned)

INDEXES:
  - idx_payouts_affiliate_date: Daily totals (hot path for caps)
  - idx_payouts_idempotency:    One payout per key
  - idx_affiliates_sponsor:     Downline walks

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. Transactions begin IMMEDIATE, so a
  WithTx holds the database write lock from its first read; other
  processes sharing the file wait up to the busy timeout. In-memory
  databases are pinned to a single connection, since every SQLite
  connection to ":memory:" opens a separate database.

USAGE:
  store, err := sqlite.New("./data/bonus.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := generic.NewLedger(store)

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Payouts (append-only ledger)
	CREATE TABLE IF NOT EXISTS payouts (
		id TEXT PRIMARY KEY,
		affiliate_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT,
		metadata_json TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_payouts_idempotency
		ON payouts(idempotency_key) WHERE idempotency_key IS NOT NULL;

	-- Daily totals per affiliate and kind (hot path)
	CREATE INDEX IF NOT EXISTS idx_payouts_affiliate_date
		ON payouts(affiliate_id, effective_at, kind);

	CREATE INDEX IF NOT EXISTS idx_payouts_reference
		ON payouts(reference_id) WHERE reference_id IS NOT NULL;

	-- Affiliates
	CREATE TABLE IF NOT EXISTS affiliates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		sponsor_id TEXT,
		tier TEXT NOT NULL,
		monthly_bv TEXT NOT NULL DEFAULT '0',
		public_leg_bv TEXT NOT NULL DEFAULT '0',
		private_leg_bv TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_affiliates_sponsor
		ON affiliates(sponsor_id);

	-- Plans
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION STORE (generic.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// createdAtLayout keeps a fixed width so created_at sorts as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

const payoutColumns = `id, affiliate_id, kind, effective_at, delta_value, delta_unit,
	tx_type, reference_id, reason, idempotency_key, metadata_json, created_by, created_at`

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendTx(ctx, s.db, tx)
}

func appendTx(ctx context.Context, db execer, tx generic.Transaction) error {
	metadataJSON, _ := json.Marshal(tx.Metadata)

	createdAt := tx.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `INSERT INTO payouts (` + payoutColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.AffiliateID,
		tx.Kind,
		generic.DayOf(tx.EffectiveAt.Time).Time.Format(time.RFC3339),
		tx.Delta.Value.String(),
		tx.Delta.Unit,
		tx.Type,
		nullString(tx.ReferenceID),
		tx.Reason,
		nullString(tx.IdempotencyKey),
		string(metadataJSON),
		tx.CreatedBy,
		createdAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("%w: %v", generic.ErrTransactionFailed, err)
	}
	return nil
}

// Load returns all transactions for an affiliate.
func (s *Store) Load(ctx context.Context, affiliateID generic.AffiliateID) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadTx(ctx, s.db, affiliateID)
}

func loadTx(ctx context.Context, q querier, affiliateID generic.AffiliateID) ([]generic.Transaction, error) {
	query := `SELECT ` + payoutColumns + `
		FROM payouts
		WHERE affiliate_id = ?
		ORDER BY effective_at ASC, created_at ASC`
	return queryTransactions(ctx, q, query, affiliateID)
}

// LoadRange returns an affiliate's transactions in [from, to].
func (s *Store) LoadRange(ctx context.Context, affiliateID generic.AffiliateID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadRangeTx(ctx, s.db, affiliateID, from, to)
}

func loadRangeTx(ctx context.Context, q querier, affiliateID generic.AffiliateID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	query := `SELECT ` + payoutColumns + `
		FROM payouts
		WHERE affiliate_id = ?
		  AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC`
	return queryTransactions(ctx, q, query, affiliateID,
		generic.DayOf(from.Time).Time.Format(time.RFC3339),
		generic.DayOf(to.Time).Time.Format(time.RFC3339))
}

// Get returns a single transaction by ID.
func (s *Store) Get(ctx context.Context, id generic.TransactionID) (*generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTx(ctx, s.db, id)
}

func getTx(ctx context.Context, q querier, id generic.TransactionID) (*generic.Transaction, error) {
	txs, err := queryTransactions(ctx, q, `SELECT `+payoutColumns+` FROM payouts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, generic.ErrTransactionNotFound
	}
	return &txs[0], nil
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return existsTx(ctx, s.db, idempotencyKey)
}

func existsTx(ctx context.Context, q querier, idempotencyKey string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payouts WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

// RecentTransactions returns the newest transactions across all affiliates.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + payoutColumns + `
		FROM payouts
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`
	return queryTransactions(ctx, s.db, query, limit)
}

func queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payouts: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx             generic.Transaction
		kind           string
		effectiveAt    string
		deltaValue     string
		deltaUnit      string
		referenceID    sql.NullString
		reason         sql.NullString
		idempotencyKey sql.NullString
		metadataJSON   sql.NullString
		createdBy      sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&tx.ID, &tx.AffiliateID, &kind, &effectiveAt, &deltaValue, &deltaUnit,
		&tx.Type, &referenceID, &reason, &idempotencyKey, &metadataJSON, &createdBy, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan payout: %w", err)
	}

	tx.Kind = generic.Kind(kind)
	t, err := time.Parse(time.RFC3339, effectiveAt)
	if err != nil {
		return tx, fmt.Errorf("payout %s: invalid effective_at: %w", tx.ID, err)
	}
	tx.EffectiveAt = generic.DayOf(t)
	if tx.Delta, err = generic.ParseAmount(deltaValue, generic.Unit(deltaUnit)); err != nil {
		return tx, fmt.Errorf("payout %s: %w", tx.ID, err)
	}
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	tx.CreatedBy = createdBy.String
	c, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return tx, fmt.Errorf("payout %s: invalid created_at: %w", tx.ID, err)
	}
	tx.CreatedAt = generic.Instant(c)

	if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &tx.Metadata); err != nil {
			return tx, fmt.Errorf("payout %s: invalid metadata: %w", tx.ID, err)
		}
	}

	return tx, nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore reads and writes through the open transaction; the parent lock
// is already held.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Append(ctx context.Context, tx generic.Transaction) error {
	return appendTx(ctx, ts.tx, tx)
}

func (ts *txStore) Load(ctx context.Context, affiliateID generic.AffiliateID) ([]generic.Transaction, error) {
	return loadTx(ctx, ts.tx, affiliateID)
}

func (ts *txStore) LoadRange(ctx context.Context, affiliateID generic.AffiliateID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return loadRangeTx(ctx, ts.tx, affiliateID, from, to)
}

func (ts *txStore) Get(ctx context.Context, id generic.TransactionID) (*generic.Transaction, error) {
	return getTx(ctx, ts.tx, id)
}

func (ts *txStore) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	return existsTx(ctx, ts.tx, idempotencyKey)
}

// =============================================================================
// AFFILIATE STORE
// =============================================================================

// AffiliateRecord is a stored affiliate.
type AffiliateRecord struct {
	ID           string
	Name         string
	SponsorID    string
	Tier         string
	MonthlyBV    decimal.Decimal
	PublicLegBV  decimal.Decimal
	PrivateLegBV decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SaveAffiliate inserts or updates an affiliate.
func (s *Store) SaveAffiliate(ctx context.Context, a AffiliateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO affiliates (id, name, sponsor_id, tier, monthly_bv, public_leg_bv, private_leg_bv, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			sponsor_id = excluded.sponsor_id,
			tier = excluded.tier,
			monthly_bv = excluded.monthly_bv,
			public_leg_bv = excluded.public_leg_bv,
			private_leg_bv = excluded.private_leg_bv,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Name, nullString(a.SponsorID), a.Tier,
		a.MonthlyBV.String(), a.PublicLegBV.String(), a.PrivateLegBV.String(),
		now, now,
	)
	return err
}

const affiliateColumns = `id, name, sponsor_id, tier, monthly_bv, public_leg_bv, private_leg_bv, created_at, updated_at`

// GetAffiliate retrieves an affiliate by ID. Returns nil, nil if missing.
func (s *Store) GetAffiliate(ctx context.Context, id string) (*AffiliateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+affiliateColumns+` FROM affiliates WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	a, err := scanAffiliate(rows)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAffiliates returns every affiliate ordered by name.
func (s *Store) ListAffiliates(ctx context.Context) ([]AffiliateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAffiliates(ctx, `SELECT `+affiliateColumns+` FROM affiliates ORDER BY name, id`)
}

// ListDirectRecruits returns affiliates sponsored by sponsorID.
func (s *Store) ListDirectRecruits(ctx context.Context, sponsorID string) ([]AffiliateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryAffiliates(ctx, `SELECT `+affiliateColumns+` FROM affiliates WHERE sponsor_id = ? ORDER BY id`, sponsorID)
}

func (s *Store) queryAffiliates(ctx context.Context, query string, args ...any) ([]AffiliateRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AffiliateRecord
	for rows.Next() {
		a, err := scanAffiliate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAffiliate(rows *sql.Rows) (AffiliateRecord, error) {
	var (
		a                        AffiliateRecord
		sponsorID                sql.NullString
		monthly, public, private string
		createdAt, updatedAt     string
	)
	if err := rows.Scan(&a.ID, &a.Name, &sponsorID, &a.Tier, &monthly, &public, &private, &createdAt, &updatedAt); err != nil {
		return a, fmt.Errorf("failed to scan affiliate: %w", err)
	}
	a.SponsorID = sponsorID.String
	for _, f := range []struct {
		column string
		raw    string
		dst    *decimal.Decimal
	}{
		{"monthly_bv", monthly, &a.MonthlyBV},
		{"public_leg_bv", public, &a.PublicLegBV},
		{"private_leg_bv", private, &a.PrivateLegBV},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return a, fmt.Errorf("affiliate %s: invalid %s %q: %w", a.ID, f.column, f.raw, err)
		}
		*f.dst = d
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}

// DeleteAffiliate removes an affiliate. Its payouts stay in the ledger.
func (s *Store) DeleteAffiliate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM affiliates WHERE id = ?", id)
	return err
}

// =============================================================================
// PLAN STORE
// =============================================================================

// PlanRecord is a stored plan with its JSON config.
type PlanRecord struct {
	ID         string
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SavePlan saves a plan, bumping the version on update.
func (s *Store) SavePlan(ctx context.Context, p PlanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO plans (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = plans.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.ConfigJSON, now, now)
	return err
}

// GetPlan retrieves a plan by ID. Returns nil, nil if missing.
func (s *Store) GetPlan(ctx context.Context, id string) (*PlanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PlanRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, config_json, version, created_at, updated_at FROM plans WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.ConfigJSON, &p.Version, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears affiliates and payouts (for demos). Plans are kept.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"payouts", "affiliates"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
