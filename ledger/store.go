/*
store.go - Persistence interface for inventory, transactions, and ledgers

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:   Full persistence surface (inventory counts, transaction records,
           consignee line items, payment log, audit log, settings)
  TxStore: Store plus WithTx for atomic multi-write operations

APPEND-ONLY CONTRACT:
  Payment records and audit events are append-only: there are no update or
  delete methods for them. Transactions and line items are mutable only
  through the lifecycle (status changes, reversal removal, payment
  allocation) - never edited ad hoc.

ATOMICITY:
  Every mutating engine operation runs inside WithTx. If the closure
  returns an error, the implementation rolls back all writes made through
  the transactional view. This is what makes accept/delete/bulk-consign
  and payment allocation all-or-nothing (no half-applied debit is ever
  observable).

ORDERING:
  ListLineItems and ListPayments return rows in insertion order; payment
  allocation depends on this (FIFO by oldest consignment first).

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - ledger/store/memory.go: In-memory for testing

SEE ALSO:
  - lifecycle.go, consignee.go: Primary consumers
  - audit.go: AuditEvent definition
*/
package ledger

import "context"

// =============================================================================
// STORE - Full persistence surface
// =============================================================================

type Store interface {
	// --- Inventory ---

	// GetStock returns the unit count for a variant.
	// Returns a NotFoundError for variants never stocked.
	GetStock(ctx context.Context, v Variant) (int, error)

	// SetStock sets the unit count for a variant, creating it if absent.
	// Counts are never negative; callers enforce this via debit checks.
	SetStock(ctx context.Context, v Variant, count int) error

	// ListStock returns all variant -> count pairs.
	ListStock(ctx context.Context) (map[Variant]int, error)

	// --- Transactions ---

	// SaveTransaction inserts or updates a transaction record by ID.
	SaveTransaction(ctx context.Context, t Transaction) error

	// GetTransaction returns the transaction, or nil if unknown.
	GetTransaction(ctx context.Context, id TransactionID) (*Transaction, error)

	// ListTransactions returns all transactions in creation order.
	ListTransactions(ctx context.Context) ([]Transaction, error)

	// RemoveTransaction deletes a transaction record (reversal path only).
	RemoveTransaction(ctx context.Context, id TransactionID) error

	// --- Consignee line items ---

	// AppendLineItem adds a line item to the end of its consignee's ledger.
	AppendLineItem(ctx context.Context, li LineItem) error

	// SaveLineItem updates an existing line item by ID (payment allocation).
	SaveLineItem(ctx context.Context, li LineItem) error

	// RemoveLineItem deletes a line item (transaction reversal path only).
	RemoveLineItem(ctx context.Context, id LineItemID) error

	// ListLineItems returns a consignee's items in insertion order.
	ListLineItems(ctx context.Context, c Consignee) ([]LineItem, error)

	// ListAllLineItems returns every line item across all consignees.
	ListAllLineItems(ctx context.Context) ([]LineItem, error)

	// ListConsignees returns all consignees that have ledger entries.
	ListConsignees(ctx context.Context) ([]Consignee, error)

	// --- Payments (append-only) ---

	AppendPayment(ctx context.Context, p PaymentRecord) error
	ListPayments(ctx context.Context, c Consignee) ([]PaymentRecord, error)

	// --- Audit log (append-only) ---

	AppendAudit(ctx context.Context, e AuditEvent) error
	ListAudit(ctx context.Context) ([]AuditEvent, error)

	// --- Settings ---

	GetSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error

	// Reset clears all state. Used by scenario loading only.
	Reset(ctx context.Context) error
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support.
// All mutating engine operations go through WithTx.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error, every write made through the passed Store
	// is rolled back. If fn returns nil, the writes are committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
