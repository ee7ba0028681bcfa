// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions map[generic.AffiliateID][]generic.Transaction
	byID         map[generic.TransactionID]generic.Transaction
	idempotency  map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[generic.AffiliateID][]generic.Transaction),
		byID:         make(map[generic.TransactionID]generic.Transaction),
		idempotency:  make(map[string]bool),
	}
}

var _ generic.TxStore = (*Memory)(nil)

// Append adds a single transaction. Append-only.
func (m *Memory) Append(_ context.Context, tx generic.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if tx.IdempotencyKey != "" && m.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	m.appendLocked(tx)
	return nil
}

func (m *Memory) appendLocked(tx generic.Transaction) {
	txs := m.transactions[tx.AffiliateID]

	// Keep EffectiveAt order; equal days keep insertion order.
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].EffectiveAt.After(tx.EffectiveAt)
	})

	txs = append(txs, generic.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[tx.AffiliateID] = txs
	m.byID[tx.ID] = tx

	if tx.IdempotencyKey != "" {
		m.idempotency[tx.IdempotencyKey] = true
	}
}

func (m *Memory) Load(_ context.Context, affiliateID generic.AffiliateID) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Transaction, len(m.transactions[affiliateID]))
	copy(result, m.transactions[affiliateID])
	return result, nil
}

func (m *Memory) LoadRange(_ context.Context, affiliateID generic.AffiliateID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterRange(m.transactions[affiliateID], from, to), nil
}

func (m *Memory) Get(_ context.Context, id generic.TransactionID) (*generic.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.byID[id]
	if !ok {
		return nil, generic.ErrTransactionNotFound
	}
	return &tx, nil
}

func (m *Memory) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idempotency[idempotencyKey], nil
}

func filterRange(txs []generic.Transaction, from, to generic.TimePoint) []generic.Transaction {
	var result []generic.Transaction
	for _, tx := range txs {
		if from.BeforeOrEqual(tx.EffectiveAt) && tx.EffectiveAt.BeforeOrEqual(to) {
			result = append(result, tx)
		}
	}
	return result
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// WithTx executes fn with the store locked. Writes made by fn are rolled
// back if it returns an error.
func (m *Memory) WithTx(_ context.Context, fn func(generic.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	transactions map[generic.AffiliateID][]generic.Transaction
	byID         map[generic.TransactionID]generic.Transaction
	idempotency  map[string]bool
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		transactions: make(map[generic.AffiliateID][]generic.Transaction, len(m.transactions)),
		byID:         make(map[generic.TransactionID]generic.Transaction, len(m.byID)),
		idempotency:  make(map[string]bool, len(m.idempotency)),
	}
	for k, v := range m.transactions {
		s.transactions[k] = append([]generic.Transaction{}, v...)
	}
	for k, v := range m.byID {
		s.byID[k] = v
	}
	for k, v := range m.idempotency {
		s.idempotency[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.transactions = s.transactions
	m.byID = s.byID
	m.idempotency = s.idempotency
}

// txView runs against the parent while its lock is held.
type txView struct {
	parent *Memory
}

func (tv *txView) Append(_ context.Context, tx generic.Transaction) error {
	if tx.IdempotencyKey != "" && tv.parent.idempotency[tx.IdempotencyKey] {
		return generic.ErrDuplicateIdempotencyKey
	}
	tv.parent.appendLocked(tx)
	return nil
}

func (tv *txView) Load(_ context.Context, affiliateID generic.AffiliateID) ([]generic.Transaction, error) {
	return append([]generic.Transaction{}, tv.parent.transactions[affiliateID]...), nil
}

func (tv *txView) LoadRange(_ context.Context, affiliateID generic.AffiliateID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	return filterRange(tv.parent.transactions[affiliateID], from, to), nil
}

func (tv *txView) Get(_ context.Context, id generic.TransactionID) (*generic.Transaction, error) {
	tx, ok := tv.parent.byID[id]
	if !ok {
		return nil, generic.ErrTransactionNotFound
	}
	return &tx, nil
}

func (tv *txView) Exists(_ context.Context, idempotencyKey string) (bool, error) {
	return tv.parent.idempotency[idempotencyKey], nil
}
