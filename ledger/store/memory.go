// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/consignment-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	stock    map[ledger.Variant]int
	txs      map[ledger.TransactionID]ledger.Transaction
	txOrder  []ledger.TransactionID
	items    map[ledger.Consignee][]ledger.LineItem
	order    []ledger.Consignee // first-appearance order
	payments map[ledger.Consignee][]ledger.PaymentRecord
	audit    []ledger.AuditEvent

	settings    ledger.Settings
	hasSettings bool
}

func NewMemory() *Memory {
	return &Memory{
		stock:    make(map[ledger.Variant]int),
		txs:      make(map[ledger.TransactionID]ledger.Transaction),
		items:    make(map[ledger.Consignee][]ledger.LineItem),
		payments: make(map[ledger.Consignee][]ledger.PaymentRecord),
	}
}

// --- Inventory ---

func (m *Memory) GetStock(_ context.Context, v ledger.Variant) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStockLocked(v)
}

func (m *Memory) getStockLocked(v ledger.Variant) (int, error) {
	count, ok := m.stock[v]
	if !ok {
		return 0, &ledger.NotFoundError{Kind: "variant", Key: string(v)}
	}
	return count, nil
}

func (m *Memory) SetStock(_ context.Context, v ledger.Variant, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[v] = count
	return nil
}

func (m *Memory) ListStock(_ context.Context) (map[ledger.Variant]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listStockLocked()
}

func (m *Memory) listStockLocked() (map[ledger.Variant]int, error) {
	out := make(map[ledger.Variant]int, len(m.stock))
	for v, c := range m.stock {
		out[v] = c
	}
	return out, nil
}

// --- Transactions ---

func (m *Memory) SaveTransaction(_ context.Context, t ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveTransactionLocked(t)
}

func (m *Memory) saveTransactionLocked(t ledger.Transaction) error {
	if _, exists := m.txs[t.ID]; !exists {
		m.txOrder = append(m.txOrder, t.ID)
	}
	m.txs[t.ID] = t
	return nil
}

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTransactionLocked(id)
}

func (m *Memory) getTransactionLocked(id ledger.TransactionID) (*ledger.Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) ListTransactions(_ context.Context) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listTransactionsLocked()
}

func (m *Memory) listTransactionsLocked() ([]ledger.Transaction, error) {
	out := make([]ledger.Transaction, 0, len(m.txOrder))
	for _, id := range m.txOrder {
		if t, ok := m.txs[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) RemoveTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeTransactionLocked(id)
}

func (m *Memory) removeTransactionLocked(id ledger.TransactionID) error {
	delete(m.txs, id)
	for i, tid := range m.txOrder {
		if tid == id {
			m.txOrder = append(m.txOrder[:i], m.txOrder[i+1:]...)
			break
		}
	}
	return nil
}

// --- Line items ---

func (m *Memory) AppendLineItem(_ context.Context, li ledger.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLineItemLocked(li)
}

func (m *Memory) appendLineItemLocked(li ledger.LineItem) error {
	if _, ok := m.items[li.Consignee]; !ok {
		m.order = append(m.order, li.Consignee)
	}
	m.items[li.Consignee] = append(m.items[li.Consignee], li)
	return nil
}

func (m *Memory) SaveLineItem(_ context.Context, li ledger.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLineItemLocked(li)
}

func (m *Memory) saveLineItemLocked(li ledger.LineItem) error {
	items := m.items[li.Consignee]
	for i := range items {
		if items[i].ID == li.ID {
			items[i] = li
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "line item", Key: string(li.ID)}
}

func (m *Memory) RemoveLineItem(_ context.Context, id ledger.LineItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLineItemLocked(id)
}

func (m *Memory) removeLineItemLocked(id ledger.LineItemID) error {
	for c, items := range m.items {
		for i := range items {
			if items[i].ID == id {
				m.items[c] = append(items[:i], items[i+1:]...)
				return nil
			}
		}
	}
	return &ledger.NotFoundError{Kind: "line item", Key: string(id)}
}

func (m *Memory) ListLineItems(_ context.Context, c ledger.Consignee) ([]ledger.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLineItemsLocked(c)
}

func (m *Memory) listLineItemsLocked(c ledger.Consignee) ([]ledger.LineItem, error) {
	out := make([]ledger.LineItem, len(m.items[c]))
	copy(out, m.items[c])
	return out, nil
}

func (m *Memory) ListAllLineItems(_ context.Context) ([]ledger.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAllLineItemsLocked()
}

func (m *Memory) listAllLineItemsLocked() ([]ledger.LineItem, error) {
	var out []ledger.LineItem
	for _, c := range m.order {
		out = append(out, m.items[c]...)
	}
	return out, nil
}

func (m *Memory) ListConsignees(_ context.Context) ([]ledger.Consignee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listConsigneesLocked()
}

func (m *Memory) listConsigneesLocked() ([]ledger.Consignee, error) {
	out := make([]ledger.Consignee, 0, len(m.order))
	for _, c := range m.order {
		if len(m.items[c]) > 0 {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- Payments ---

func (m *Memory) AppendPayment(_ context.Context, p ledger.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPaymentLocked(p)
}

func (m *Memory) appendPaymentLocked(p ledger.PaymentRecord) error {
	m.payments[p.Consignee] = append(m.payments[p.Consignee], p)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, c ledger.Consignee) ([]ledger.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPaymentsLocked(c)
}

func (m *Memory) listPaymentsLocked(c ledger.Consignee) ([]ledger.PaymentRecord, error) {
	out := make([]ledger.PaymentRecord, len(m.payments[c]))
	copy(out, m.payments[c])
	return out, nil
}

// --- Audit ---

func (m *Memory) AppendAudit(_ context.Context, e ledger.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAuditLocked(e)
}

func (m *Memory) appendAuditLocked(e ledger.AuditEvent) error {
	m.audit = append(m.audit, e)
	return nil
}

func (m *Memory) ListAudit(_ context.Context) ([]ledger.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listAuditLocked()
}

func (m *Memory) listAuditLocked() ([]ledger.AuditEvent, error) {
	out := make([]ledger.AuditEvent, len(m.audit))
	copy(out, m.audit)
	return out, nil
}

// --- Settings ---

func (m *Memory) GetSettings(_ context.Context) (ledger.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSettingsLocked()
}

func (m *Memory) getSettingsLocked() (ledger.Settings, error) {
	if !m.hasSettings {
		return ledger.DefaultSettings(), nil
	}
	return m.settings, nil
}

func (m *Memory) SaveSettings(_ context.Context, s ledger.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveSettingsLocked(s)
}

func (m *Memory) saveSettingsLocked(s ledger.Settings) error {
	m.settings = s
	m.hasSettings = true
	return nil
}

// --- Reset ---

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock = make(map[ledger.Variant]int)
	m.txs = make(map[ledger.TransactionID]ledger.Transaction)
	m.txOrder = nil
	m.items = make(map[ledger.Consignee][]ledger.LineItem)
	m.order = nil
	m.payments = make(map[ledger.Consignee][]ledger.PaymentRecord)
	m.audit = nil
	m.hasSettings = false
	return nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	stock       map[ledger.Variant]int
	txs         map[ledger.TransactionID]ledger.Transaction
	txOrder     []ledger.TransactionID
	items       map[ledger.Consignee][]ledger.LineItem
	order       []ledger.Consignee
	payments    map[ledger.Consignee][]ledger.PaymentRecord
	audit       []ledger.AuditEvent
	settings    ledger.Settings
	hasSettings bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		stock:       make(map[ledger.Variant]int, len(tm.stock)),
		txs:         make(map[ledger.TransactionID]ledger.Transaction, len(tm.txs)),
		txOrder:     append([]ledger.TransactionID{}, tm.txOrder...),
		items:       make(map[ledger.Consignee][]ledger.LineItem, len(tm.items)),
		order:       append([]ledger.Consignee{}, tm.order...),
		payments:    make(map[ledger.Consignee][]ledger.PaymentRecord, len(tm.payments)),
		audit:       append([]ledger.AuditEvent{}, tm.audit...),
		settings:    tm.settings,
		hasSettings: tm.hasSettings,
	}
	for k, v := range tm.stock {
		s.stock[k] = v
	}
	for k, v := range tm.txs {
		s.txs[k] = v
	}
	for k, v := range tm.items {
		s.items[k] = append([]ledger.LineItem{}, v...)
	}
	for k, v := range tm.payments {
		s.payments[k] = append([]ledger.PaymentRecord{}, v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.stock = s.stock
	tm.txs = s.txs
	tm.txOrder = s.txOrder
	tm.items = s.items
	tm.order = s.order
	tm.payments = s.payments
	tm.audit = s.audit
	tm.settings = s.settings
	tm.hasSettings = s.hasSettings
}

// txMemoryView operates directly on the locked parent state.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetStock(_ context.Context, v ledger.Variant) (int, error) {
	return tv.parent.getStockLocked(v)
}

func (tv *txMemoryView) SetStock(_ context.Context, v ledger.Variant, count int) error {
	tv.parent.stock[v] = count
	return nil
}

func (tv *txMemoryView) ListStock(_ context.Context) (map[ledger.Variant]int, error) {
	return tv.parent.listStockLocked()
}

func (tv *txMemoryView) SaveTransaction(_ context.Context, t ledger.Transaction) error {
	return tv.parent.saveTransactionLocked(t)
}

func (tv *txMemoryView) GetTransaction(_ context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return tv.parent.getTransactionLocked(id)
}

func (tv *txMemoryView) ListTransactions(_ context.Context) ([]ledger.Transaction, error) {
	return tv.parent.listTransactionsLocked()
}

func (tv *txMemoryView) RemoveTransaction(_ context.Context, id ledger.TransactionID) error {
	return tv.parent.removeTransactionLocked(id)
}

func (tv *txMemoryView) AppendLineItem(_ context.Context, li ledger.LineItem) error {
	return tv.parent.appendLineItemLocked(li)
}

func (tv *txMemoryView) SaveLineItem(_ context.Context, li ledger.LineItem) error {
	return tv.parent.saveLineItemLocked(li)
}

func (tv *txMemoryView) RemoveLineItem(_ context.Context, id ledger.LineItemID) error {
	return tv.parent.removeLineItemLocked(id)
}

func (tv *txMemoryView) ListLineItems(_ context.Context, c ledger.Consignee) ([]ledger.LineItem, error) {
	return tv.parent.listLineItemsLocked(c)
}

func (tv *txMemoryView) ListAllLineItems(_ context.Context) ([]ledger.LineItem, error) {
	return tv.parent.listAllLineItemsLocked()
}

func (tv *txMemoryView) ListConsignees(_ context.Context) ([]ledger.Consignee, error) {
	return tv.parent.listConsigneesLocked()
}

func (tv *txMemoryView) AppendPayment(_ context.Context, p ledger.PaymentRecord) error {
	return tv.parent.appendPaymentLocked(p)
}

func (tv *txMemoryView) ListPayments(_ context.Context, c ledger.Consignee) ([]ledger.PaymentRecord, error) {
	return tv.parent.listPaymentsLocked(c)
}

func (tv *txMemoryView) AppendAudit(_ context.Context, e ledger.AuditEvent) error {
	return tv.parent.appendAuditLocked(e)
}

func (tv *txMemoryView) ListAudit(_ context.Context) ([]ledger.AuditEvent, error) {
	return tv.parent.listAuditLocked()
}

func (tv *txMemoryView) GetSettings(_ context.Context) (ledger.Settings, error) {
	return tv.parent.getSettingsLocked()
}

func (tv *txMemoryView) SaveSettings(_ context.Context, s ledger.Settings) error {
	return tv.parent.saveSettingsLocked(s)
}

func (tv *txMemoryView) Reset(_ context.Context) error {
	tv.parent.stock = make(map[ledger.Variant]int)
	tv.parent.txs = make(map[ledger.TransactionID]ledger.Transaction)
	tv.parent.txOrder = nil
	tv.parent.items = make(map[ledger.Consignee][]ledger.LineItem)
	tv.parent.order = nil
	tv.parent.payments = make(map[ledger.Consignee][]ledger.PaymentRecord)
	tv.parent.audit = nil
	tv.parent.hasSettings = false
	return nil
}
