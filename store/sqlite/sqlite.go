/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. This is the
  durable store: variant counts, transaction records, per-consignee
  line-item lists, append-only payment and audit logs, and the single
  settings record - all surviving restart.

KEY TABLES:
  inventory:    variant -> unit count (CHECK count >= 0 backs the engine's
                never-negative invariant at the storage layer too)
  transactions: sale proposals keyed by id, insertion order via rowid
  line_items:   per-consignee receivables, insertion order via rowid
  payments:     append-only settlement log (allocation stored as JSON)
  audit_events: append-only domain event log (detail stored as JSON,
                decoded by event type)
  settings:     single row (id = 1)

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statement is ever issued against payments or
  audit_events.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx additionally wraps a
  database transaction so every engine operation is all-or-nothing.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/consignment.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/consignment-engine/ledger"
)

// Store implements ledger.Store and ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS inventory (
		variant TEXT PRIMARY KEY,
		count INTEGER NOT NULL CHECK (count >= 0)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		channel TEXT NOT NULL,
		variant TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		consignee TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		accepted_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_status
		ON transactions(status);

	CREATE TABLE IF NOT EXISTS line_items (
		id TEXT PRIMARY KEY,
		consignee TEXT NOT NULL,
		variant TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		paid INTEGER NOT NULL DEFAULT 0,
		origin_tx_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_line_items_consignee
		ON line_items(consignee);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		consignee TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		remaining_debt TEXT NOT NULL,
		items_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_consignee
		ON payments(consignee);

	CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		detail_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_type
		ON audit_events(event_type);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		base_cost TEXT NOT NULL,
		price_direct TEXT NOT NULL,
		price_discount TEXT NOT NULL,
		price_consignment TEXT NOT NULL,
		price_personal TEXT NOT NULL,
		capital_units INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts *sql.DB and *sql.Tx so the same queries serve both the
// direct path and the WithTx path.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// INVENTORY
// =============================================================================

func (s *Store) GetStock(ctx context.Context, v ledger.Variant) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getStock(ctx, s.db, v)
}

func (s *Store) getStock(ctx context.Context, db dbtx, v ledger.Variant) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT count FROM inventory WHERE variant = ?", v).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, &ledger.NotFoundError{Kind: "variant", Key: string(v)}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get stock: %w", err)
	}
	return count, nil
}

func (s *Store) SetStock(ctx context.Context, v ledger.Variant, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setStock(ctx, s.db, v, count)
}

func (s *Store) setStock(ctx context.Context, db dbtx, v ledger.Variant, count int) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO inventory (variant, count) VALUES (?, ?)
		ON CONFLICT(variant) DO UPDATE SET count = excluded.count`,
		v, count)
	if err != nil {
		return fmt.Errorf("failed to set stock: %w", err)
	}
	return nil
}

func (s *Store) ListStock(ctx context.Context) (map[ledger.Variant]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listStock(ctx, s.db)
}

func (s *Store) listStock(ctx context.Context, db dbtx) (map[ledger.Variant]int, error) {
	rows, err := db.QueryContext(ctx, "SELECT variant, count FROM inventory")
	if err != nil {
		return nil, fmt.Errorf("failed to list stock: %w", err)
	}
	defer rows.Close()

	out := make(map[ledger.Variant]int)
	for rows.Next() {
		var v ledger.Variant
		var count int
		if err := rows.Scan(&v, &count); err != nil {
			return nil, err
		}
		out[v] = count
	}
	return out, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const transactionColumns = `id, channel, variant, quantity, unit_price, consignee, status, created_at, accepted_at`

func (s *Store) SaveTransaction(ctx context.Context, t ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTransaction(ctx, s.db, t)
}

func (s *Store) saveTransaction(ctx context.Context, db dbtx, t ledger.Transaction) error {
	var acceptedAt any
	if t.AcceptedAt != nil {
		acceptedAt = t.AcceptedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, channel, variant, quantity, unit_price, consignee, status, created_at, accepted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			accepted_at = excluded.accepted_at`,
		t.ID, t.Channel, t.Variant, t.Quantity, t.UnitPrice.String(),
		t.Consignee, t.Status, t.CreatedAt.UTC().Format(time.RFC3339Nano), acceptedAt)
	if err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTransaction(ctx, s.db, id)
}

func (s *Store) getTransaction(ctx context.Context, db dbtx, id ledger.TransactionID) (*ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	t, err := scanTransaction(rows)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTransactions(ctx, s.db)
}

func (s *Store) listTransactions(ctx context.Context, db dbtx) ([]ledger.Transaction, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) RemoveTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeTransaction(ctx, s.db, id)
}

func (s *Store) removeTransaction(ctx context.Context, db dbtx, id ledger.TransactionID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove transaction: %w", err)
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		t          ledger.Transaction
		unitPrice  string
		createdAt  string
		acceptedAt sql.NullString
	)
	err := rows.Scan(&t.ID, &t.Channel, &t.Variant, &t.Quantity, &unitPrice,
		&t.Consignee, &t.Status, &createdAt, &acceptedAt)
	if err != nil {
		return t, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.UnitPrice = parseDecimal(unitPrice)
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if acceptedAt.Valid {
		if at, err := time.Parse(time.RFC3339Nano, acceptedAt.String); err == nil {
			t.AcceptedAt = &at
		}
	}
	return t, nil
}

// =============================================================================
// LINE ITEMS
// =============================================================================

const lineItemColumns = `id, consignee, variant, quantity, unit_price, amount_paid, paid, origin_tx_id, created_at`

func (s *Store) AppendLineItem(ctx context.Context, li ledger.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLineItem(ctx, s.db, li)
}

func (s *Store) appendLineItem(ctx context.Context, db dbtx, li ledger.LineItem) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO line_items
			(id, consignee, variant, quantity, unit_price, amount_paid, paid, origin_tx_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		li.ID, li.Consignee, li.Variant, li.Quantity, li.UnitPrice.String(),
		li.AmountPaid.String(), boolToInt(li.Paid), li.OriginTxID,
		li.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append line item: %w", err)
	}
	return nil
}

func (s *Store) SaveLineItem(ctx context.Context, li ledger.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLineItem(ctx, s.db, li)
}

func (s *Store) saveLineItem(ctx context.Context, db dbtx, li ledger.LineItem) error {
	res, err := db.ExecContext(ctx,
		"UPDATE line_items SET amount_paid = ?, paid = ? WHERE id = ?",
		li.AmountPaid.String(), boolToInt(li.Paid), li.ID)
	if err != nil {
		return fmt.Errorf("failed to save line item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &ledger.NotFoundError{Kind: "line item", Key: string(li.ID)}
	}
	return nil
}

func (s *Store) RemoveLineItem(ctx context.Context, id ledger.LineItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLineItem(ctx, s.db, id)
}

func (s *Store) removeLineItem(ctx context.Context, db dbtx, id ledger.LineItemID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM line_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to remove line item: %w", err)
	}
	return nil
}

func (s *Store) ListLineItems(ctx context.Context, c ledger.Consignee) ([]ledger.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLineItems(ctx, s.db, c)
}

func (s *Store) listLineItems(ctx context.Context, db dbtx, c ledger.Consignee) ([]ledger.LineItem, error) {
	return queryLineItems(ctx, db,
		"SELECT "+lineItemColumns+" FROM line_items WHERE consignee = ? ORDER BY rowid ASC", c)
}

func (s *Store) ListAllLineItems(ctx context.Context) ([]ledger.LineItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAllLineItems(ctx, s.db)
}

func (s *Store) listAllLineItems(ctx context.Context, db dbtx) ([]ledger.LineItem, error) {
	return queryLineItems(ctx, db,
		"SELECT "+lineItemColumns+" FROM line_items ORDER BY rowid ASC")
}

func queryLineItems(ctx context.Context, db dbtx, query string, args ...any) ([]ledger.LineItem, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var out []ledger.LineItem
	for rows.Next() {
		var (
			li         ledger.LineItem
			unitPrice  string
			amountPaid string
			paid       int
			createdAt  string
		)
		err := rows.Scan(&li.ID, &li.Consignee, &li.Variant, &li.Quantity,
			&unitPrice, &amountPaid, &paid, &li.OriginTxID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		li.UnitPrice = parseDecimal(unitPrice)
		li.AmountPaid = parseDecimal(amountPaid)
		li.Paid = paid != 0
		li.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, li)
	}
	return out, rows.Err()
}

func (s *Store) ListConsignees(ctx context.Context) ([]ledger.Consignee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listConsignees(ctx, s.db)
}

func (s *Store) listConsignees(ctx context.Context, db dbtx) ([]ledger.Consignee, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT consignee FROM line_items GROUP BY consignee ORDER BY MIN(rowid) ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list consignees: %w", err)
	}
	defer rows.Close()

	var out []ledger.Consignee
	for rows.Next() {
		var c ledger.Consignee
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, p ledger.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendPayment(ctx, s.db, p)
}

func (s *Store) appendPayment(ctx context.Context, db dbtx, p ledger.PaymentRecord) error {
	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return fmt.Errorf("failed to encode payment items: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO payments (id, consignee, kind, amount, remaining_debt, items_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Consignee, p.Kind, p.Amount.String(), p.RemainingDebt.String(),
		string(itemsJSON), p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, c ledger.Consignee) ([]ledger.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPayments(ctx, s.db, c)
}

func (s *Store) listPayments(ctx context.Context, db dbtx, c ledger.Consignee) ([]ledger.PaymentRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, consignee, kind, amount, remaining_debt, items_json, created_at
		FROM payments WHERE consignee = ? ORDER BY rowid ASC`, c)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []ledger.PaymentRecord
	for rows.Next() {
		var (
			p         ledger.PaymentRecord
			amount    string
			remaining string
			itemsJSON string
			createdAt string
		)
		err := rows.Scan(&p.ID, &p.Consignee, &p.Kind, &amount, &remaining, &itemsJSON, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = parseDecimal(amount)
		p.RemainingDebt = parseDecimal(remaining)
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		if err := json.Unmarshal([]byte(itemsJSON), &p.Items); err != nil {
			return nil, fmt.Errorf("failed to decode payment items: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG (append-only)
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e ledger.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendAudit(ctx, s.db, e)
}

func (s *Store) appendAudit(ctx context.Context, db dbtx, e ledger.AuditEvent) error {
	detailJSON, err := ledger.MarshalDetail(e.Detail)
	if err != nil {
		return fmt.Errorf("failed to encode audit detail: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_events (id, event_type, detail_json, created_at)
		VALUES (?, ?, ?, ?)`,
		e.ID, e.Type, string(detailJSON), e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context) ([]ledger.AuditEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listAudit(ctx, s.db)
}

func (s *Store) listAudit(ctx context.Context, db dbtx) ([]ledger.AuditEvent, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, event_type, detail_json, created_at FROM audit_events ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []ledger.AuditEvent
	for rows.Next() {
		var (
			e          ledger.AuditEvent
			detailJSON string
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.Type, &detailJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.Detail, err = ledger.UnmarshalDetail(e.Type, []byte(detailJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to decode audit detail: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) GetSettings(ctx context.Context) (ledger.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSettings(ctx, s.db)
}

func (s *Store) getSettings(ctx context.Context, db dbtx) (ledger.Settings, error) {
	var (
		baseCost, direct, discount, consignment, personal string
		capitalUnits                                      int
	)
	err := db.QueryRowContext(ctx, `
		SELECT base_cost, price_direct, price_discount, price_consignment, price_personal, capital_units
		FROM settings WHERE id = 1`).
		Scan(&baseCost, &direct, &discount, &consignment, &personal, &capitalUnits)
	if err == sql.ErrNoRows {
		return ledger.DefaultSettings(), nil
	}
	if err != nil {
		return ledger.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return ledger.Settings{
		BaseCost:         parseDecimal(baseCost),
		PriceDirect:      parseDecimal(direct),
		PriceDiscount:    parseDecimal(discount),
		PriceConsignment: parseDecimal(consignment),
		PricePersonal:    parseDecimal(personal),
		CapitalUnits:     capitalUnits,
	}, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings ledger.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSettings(ctx, s.db, settings)
}

func (s *Store) saveSettings(ctx context.Context, db dbtx, settings ledger.Settings) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (id, base_cost, price_direct, price_discount, price_consignment, price_personal, capital_units)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			base_cost = excluded.base_cost,
			price_direct = excluded.price_direct,
			price_discount = excluded.price_discount,
			price_consignment = excluded.price_consignment,
			price_personal = excluded.price_personal,
			capital_units = excluded.capital_units`,
		settings.BaseCost.String(), settings.PriceDirect.String(),
		settings.PriceDiscount.String(), settings.PriceConsignment.String(),
		settings.PricePersonal.String(), settings.CapitalUnits)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// RESET
// =============================================================================

// Reset clears all state. Used by scenario loading only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx, s.db)
}

func (s *Store) reset(ctx context.Context, db dbtx) error {
	for _, table := range []string{"inventory", "transactions", "line_items", "payments", "audit_events", "settings"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. The function
// receives a Store view backed by the transaction; any error rolls the
// whole batch back.
func (s *Store) WithTx(ctx context.Context, fn func(store ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &txStore{tx: sqlTx, parent: s}
	if err := fn(view); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through an open *sql.Tx. The parent's mutex
// is already held by WithTx, so these skip locking.
type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) GetStock(ctx context.Context, v ledger.Variant) (int, error) {
	return ts.parent.getStock(ctx, ts.tx, v)
}

func (ts *txStore) SetStock(ctx context.Context, v ledger.Variant, count int) error {
	return ts.parent.setStock(ctx, ts.tx, v, count)
}

func (ts *txStore) ListStock(ctx context.Context) (map[ledger.Variant]int, error) {
	return ts.parent.listStock(ctx, ts.tx)
}

func (ts *txStore) SaveTransaction(ctx context.Context, t ledger.Transaction) error {
	return ts.parent.saveTransaction(ctx, ts.tx, t)
}

func (ts *txStore) GetTransaction(ctx context.Context, id ledger.TransactionID) (*ledger.Transaction, error) {
	return ts.parent.getTransaction(ctx, ts.tx, id)
}

func (ts *txStore) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	return ts.parent.listTransactions(ctx, ts.tx)
}

func (ts *txStore) RemoveTransaction(ctx context.Context, id ledger.TransactionID) error {
	return ts.parent.removeTransaction(ctx, ts.tx, id)
}

func (ts *txStore) AppendLineItem(ctx context.Context, li ledger.LineItem) error {
	return ts.parent.appendLineItem(ctx, ts.tx, li)
}

func (ts *txStore) SaveLineItem(ctx context.Context, li ledger.LineItem) error {
	return ts.parent.saveLineItem(ctx, ts.tx, li)
}

func (ts *txStore) RemoveLineItem(ctx context.Context, id ledger.LineItemID) error {
	return ts.parent.removeLineItem(ctx, ts.tx, id)
}

func (ts *txStore) ListLineItems(ctx context.Context, c ledger.Consignee) ([]ledger.LineItem, error) {
	return ts.parent.listLineItems(ctx, ts.tx, c)
}

func (ts *txStore) ListAllLineItems(ctx context.Context) ([]ledger.LineItem, error) {
	return ts.parent.listAllLineItems(ctx, ts.tx)
}

func (ts *txStore) ListConsignees(ctx context.Context) ([]ledger.Consignee, error) {
	return ts.parent.listConsignees(ctx, ts.tx)
}

func (ts *txStore) AppendPayment(ctx context.Context, p ledger.PaymentRecord) error {
	return ts.parent.appendPayment(ctx, ts.tx, p)
}

func (ts *txStore) ListPayments(ctx context.Context, c ledger.Consignee) ([]ledger.PaymentRecord, error) {
	return ts.parent.listPayments(ctx, ts.tx, c)
}

func (ts *txStore) AppendAudit(ctx context.Context, e ledger.AuditEvent) error {
	return ts.parent.appendAudit(ctx, ts.tx, e)
}

func (ts *txStore) ListAudit(ctx context.Context) ([]ledger.AuditEvent, error) {
	return ts.parent.listAudit(ctx, ts.tx)
}

func (ts *txStore) GetSettings(ctx context.Context) (ledger.Settings, error) {
	return ts.parent.getSettings(ctx, ts.tx)
}

func (ts *txStore) SaveSettings(ctx context.Context, settings ledger.Settings) error {
	return ts.parent.saveSettings(ctx, ts.tx, settings)
}

func (ts *txStore) Reset(ctx context.Context) error {
	return ts.parent.reset(ctx, ts.tx)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
