/*
inventory.go - Per-variant unit stock ledger

PURPOSE:
  Holds non-negative unit counts per variant and exposes the debit/credit
  operations the transaction lifecycle commits against. Debits are
  check-then-subtract and fail without effect when stock is short; credits
  are used only by delete reversal and bulk-batch rollback.

INVARIANT:
  A count never goes negative. Any debit that would drive it negative
  fails with InsufficientStockError and leaves the count unchanged.

SNAPSHOT:
  Snapshot returns an immutable copy of all counts plus derived low-stock
  (count < LowStockThreshold) and out-of-stock (count == 0) lists, in
  catalog order.

SEE ALSO:
  - lifecycle.go: Debits on accept, credits on delete
  - consignee.go: Bulk consignment debit path
*/
package ledger

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// INVENTORY SERVICE
// =============================================================================

type Inventory struct {
	store TxStore
}

func NewInventory(store TxStore) *Inventory {
	return &Inventory{store: store}
}

// Debit atomically subtracts qty units of v.
// Fails with InsufficientStockError if qty exceeds the current count.
func (inv *Inventory) Debit(ctx context.Context, v Variant, qty int) error {
	return inv.store.WithTx(ctx, func(s Store) error {
		return debitStock(ctx, s, v, qty)
	})
}

// Credit atomically adds qty units of v.
func (inv *Inventory) Credit(ctx context.Context, v Variant, qty int) error {
	return inv.store.WithTx(ctx, func(s Store) error {
		return creditStock(ctx, s, v, qty)
	})
}

// StockSnapshot is an immutable view of inventory for reporting.
type StockSnapshot struct {
	Counts     map[Variant]int
	LowStock   []Variant
	OutOfStock []Variant
	AsOf       time.Time
}

// Snapshot returns a copy of all variant counts with derived alerts.
func (inv *Inventory) Snapshot(ctx context.Context) (*StockSnapshot, error) {
	counts, err := inv.store.ListStock(ctx)
	if err != nil {
		return nil, err
	}

	snap := &StockSnapshot{
		Counts: make(map[Variant]int, len(counts)),
		AsOf:   time.Now().UTC(),
	}
	for v, c := range counts {
		snap.Counts[v] = c
	}

	// Catalog order keeps the alert lists stable across calls.
	for _, v := range Catalog {
		c, ok := counts[v]
		if !ok {
			continue
		}
		if c == 0 {
			snap.OutOfStock = append(snap.OutOfStock, v)
		}
		if c < LowStockThreshold {
			snap.LowStock = append(snap.LowStock, v)
		}
	}
	return snap, nil
}

// =============================================================================
// TX-SCOPED HELPERS - Used inside WithTx closures by other services
// =============================================================================

// debitStock performs the check-then-subtract against a transactional view.
func debitStock(ctx context.Context, s Store, v Variant, qty int) error {
	if qty <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	current, err := s.GetStock(ctx, v)
	if err != nil {
		return err
	}
	if current < qty {
		return &InsufficientStockError{Variant: v, Available: current, Requested: qty}
	}
	return s.SetStock(ctx, v, current-qty)
}

// creditStock adds units back. Unknown variants are created at qty so a
// reversal can never fail on a drained catalog entry.
func creditStock(ctx context.Context, s Store, v Variant, qty int) error {
	if qty <= 0 {
		return &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	current, err := s.GetStock(ctx, v)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			current = 0
		} else {
			return err
		}
	}
	return s.SetStock(ctx, v, current+qty)
}
