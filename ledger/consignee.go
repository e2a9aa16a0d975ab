/*
consignee.go - Consignee receivables and payment allocation

PURPOSE:
  Tracks, per consignee, the ordered sequence of consignment line items and
  the debt they represent, and settles that debt via full payment, itemized
  partial payment, or free-amount partial payment with FIFO allocation.

ALLOCATION MODES:
  Full:        every unpaid item is settled; one payment record for the
               whole pre-payment debt.
  Itemized:    the caller selects item indices; the payment amount is
               derived as the sum of the selected items' remaining
               balances (never supplied, preventing mismatch). Every
               selected unpaid item is fully settled - the granularity of
               itemized payment is whole line items.
  Free-amount: the amount is walked over unpaid items in ledger insertion
               order (oldest consignment first) and applied greedily.
               Excess beyond total outstanding debt is capped, never
               carried over or refunded.

DEBT INVARIANT:
  total debt == sum over unpaid items of (quantity x price - amount paid),
  recomputed from the line items on every read - never cached.

BULK CONSIGNMENT:
  BulkConsign appends one line item (and one committed transaction record)
  per entry, debiting inventory for each. If any single debit fails, the
  whole batch rolls back: no inventory change, no line items, no records.

SEE ALSO:
  - lifecycle.go: Single-transaction consignment path
  - types.go: LineItem, PaymentRecord
*/
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSIGNEE BOOK SERVICE
// =============================================================================

type ConsigneeBook struct {
	store TxStore
}

func NewConsigneeBook(store TxStore) *ConsigneeBook {
	return &ConsigneeBook{store: store}
}

// ConsigneeLedger is the per-consignee view: items in insertion order plus
// the derived outstanding debt.
type ConsigneeLedger struct {
	Consignee Consignee
	Items     []LineItem
	TotalDebt decimal.Decimal
}

// TotalDebt derives the outstanding debt from a set of line items.
func TotalDebt(items []LineItem) decimal.Decimal {
	debt := decimal.Zero
	for _, li := range items {
		debt = debt.Add(li.Outstanding())
	}
	return debt
}

// Ledger returns one consignee's ledger.
// Fails with NotFoundError for consignees with no history at all.
func (b *ConsigneeBook) Ledger(ctx context.Context, name Consignee) (*ConsigneeLedger, error) {
	items, err := b.store.ListLineItems(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if known, err := b.hasHistory(ctx, name); err != nil {
			return nil, err
		} else if !known {
			return nil, &NotFoundError{Kind: "consignee", Key: string(name)}
		}
	}
	return &ConsigneeLedger{
		Consignee: name,
		Items:     items,
		TotalDebt: TotalDebt(items),
	}, nil
}

// Summary returns every consignee's ledger, ordered by name as reported
// by the store.
func (b *ConsigneeBook) Summary(ctx context.Context) ([]ConsigneeLedger, error) {
	names, err := b.store.ListConsignees(ctx)
	if err != nil {
		return nil, err
	}
	ledgers := make([]ConsigneeLedger, 0, len(names))
	for _, name := range names {
		items, err := b.store.ListLineItems(ctx, name)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ConsigneeLedger{
			Consignee: name,
			Items:     items,
			TotalDebt: TotalDebt(items),
		})
	}
	return ledgers, nil
}

// History returns the chronological payment records for a consignee.
func (b *ConsigneeBook) History(ctx context.Context, name Consignee) ([]PaymentRecord, error) {
	if known, err := b.hasHistory(ctx, name); err != nil {
		return nil, err
	} else if !known {
		return nil, &NotFoundError{Kind: "consignee", Key: string(name)}
	}
	return b.store.ListPayments(ctx, name)
}

func (b *ConsigneeBook) hasHistory(ctx context.Context, name Consignee) (bool, error) {
	items, err := b.store.ListLineItems(ctx, name)
	if err != nil {
		return false, err
	}
	if len(items) > 0 {
		return true, nil
	}
	payments, err := b.store.ListPayments(ctx, name)
	if err != nil {
		return false, err
	}
	return len(payments) > 0, nil
}

// =============================================================================
// BULK CONSIGNMENT
// =============================================================================

// BulkEntry is one {variant, quantity, price} tuple of a bulk batch.
type BulkEntry struct {
	Variant   Variant
	Quantity  int
	UnitPrice decimal.Decimal
}

// BulkConsign commits a whole consignment batch: one accepted transaction
// record and one unpaid line item per entry, in the order given, debiting
// inventory for each. All-or-nothing: a failed debit rolls back the entire
// batch.
func (b *ConsigneeBook) BulkConsign(ctx context.Context, name Consignee, entries []BulkEntry) ([]LineItem, error) {
	name = Consignee(strings.TrimSpace(string(name)))
	if name == "" {
		return nil, &ValidationError{Field: "consignee", Message: "name is required"}
	}
	if len(entries) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for i, e := range entries {
		if e.Quantity < 1 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be at least 1"}
		}
		if !KnownVariant(e.Variant) {
			return nil, &NotFoundError{Kind: "variant", Key: string(e.Variant)}
		}
		if e.UnitPrice.IsNegative() {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].unit_price", i), Message: "must not be negative"}
		}
	}

	var added []LineItem
	err := b.store.WithTx(ctx, func(s Store) error {
		now := time.Now().UTC()
		total := decimal.Zero
		var detail []BulkItemAdded

		for _, e := range entries {
			if err := debitStock(ctx, s, e.Variant, e.Quantity); err != nil {
				return err
			}

			tx := Transaction{
				ID:         TransactionID(uuid.NewString()),
				Channel:    ChannelConsignment,
				Variant:    e.Variant,
				Quantity:   e.Quantity,
				UnitPrice:  e.UnitPrice,
				Consignee:  name,
				Status:     StatusAccepted,
				CreatedAt:  now,
				AcceptedAt: &now,
			}
			if err := s.SaveTransaction(ctx, tx); err != nil {
				return err
			}

			li := LineItem{
				ID:         LineItemID(uuid.NewString()),
				Consignee:  name,
				Variant:    e.Variant,
				Quantity:   e.Quantity,
				UnitPrice:  e.UnitPrice,
				AmountPaid: decimal.Zero,
				OriginTxID: tx.ID,
				CreatedAt:  now,
			}
			if err := s.AppendLineItem(ctx, li); err != nil {
				return err
			}

			added = append(added, li)
			lineTotal := li.Total()
			total = total.Add(lineTotal)
			detail = append(detail, BulkItemAdded{
				Variant:   e.Variant,
				Quantity:  e.Quantity,
				UnitPrice: e.UnitPrice,
				Total:     lineTotal,
			})
		}

		return appendAudit(ctx, s, EventBulkConsignment, BulkConsignmentDetail{
			Consignee: name,
			ItemCount: len(entries),
			Total:     total,
			Added:     detail,
		})
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// =============================================================================
// SETTLEMENT - Full payment
// =============================================================================

// MarkFullyPaid settles every currently-unpaid line item for the consignee.
// The payment amount is the pre-payment total debt.
func (b *ConsigneeBook) MarkFullyPaid(ctx context.Context, name Consignee) (*PaymentRecord, error) {
	var record *PaymentRecord
	err := b.store.WithTx(ctx, func(s Store) error {
		items, err := s.ListLineItems(ctx, name)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return &NotFoundError{Kind: "consignee", Key: string(name)}
		}

		debt := TotalDebt(items)
		if debt.IsZero() {
			return &ValidationError{Field: "consignee", Message: "no outstanding debt"}
		}

		var touched []PaymentItem
		for _, li := range items {
			if li.Paid {
				continue
			}
			due := li.Outstanding()
			li.AmountPaid = li.Total()
			li.Paid = true
			if err := s.SaveLineItem(ctx, li); err != nil {
				return err
			}
			touched = append(touched, PaymentItem{
				LineItemID: li.ID,
				Variant:    li.Variant,
				Quantity:   li.Quantity,
				Amount:     due,
				Status:     ItemFullyPaid,
			})
		}

		record = &PaymentRecord{
			ID:            PaymentID(uuid.NewString()),
			Consignee:     name,
			Kind:          PaymentFull,
			Amount:        debt,
			RemainingDebt: decimal.Zero,
			Items:         touched,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.AppendPayment(ctx, *record); err != nil {
			return err
		}

		return appendAudit(ctx, s, EventFullPayment, PaymentDetail{
			Consignee:     name,
			Amount:        debt,
			RemainingDebt: decimal.Zero,
			Kind:          PaymentFull,
			Items:         touched,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// =============================================================================
// SETTLEMENT - Partial payment (itemized or free-amount)
// =============================================================================

// SettlePartial records a partial settlement in one of two mutually
// exclusive modes:
//
//   - Itemized (selected non-empty): amount is ignored and derived as the
//     sum of the selected items' remaining balances; every selected unpaid
//     item is fully settled. Indices refer to the consignee's ledger in
//     insertion order.
//   - Free-amount (selected empty): amount must be positive; it is applied
//     FIFO over unpaid items, capped at the total outstanding debt.
func (b *ConsigneeBook) SettlePartial(ctx context.Context, name Consignee, amount decimal.Decimal, selected []int) (*PaymentRecord, error) {
	var record *PaymentRecord
	err := b.store.WithTx(ctx, func(s Store) error {
		items, err := s.ListLineItems(ctx, name)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return &NotFoundError{Kind: "consignee", Key: string(name)}
		}

		var touched []PaymentItem
		var applied decimal.Decimal

		if len(selected) > 0 {
			touched, applied, err = settleItemized(ctx, s, items, selected)
		} else {
			touched, applied, err = settleFreeAmount(ctx, s, items, amount)
		}
		if err != nil {
			return err
		}

		// Recompute debt from the updated items.
		remaining, err := s.ListLineItems(ctx, name)
		if err != nil {
			return err
		}
		debt := TotalDebt(remaining)

		record = &PaymentRecord{
			ID:            PaymentID(uuid.NewString()),
			Consignee:     name,
			Kind:          PaymentPartial,
			Amount:        applied,
			RemainingDebt: debt,
			Items:         touched,
			CreatedAt:     time.Now().UTC(),
		}
		if err := s.AppendPayment(ctx, *record); err != nil {
			return err
		}

		return appendAudit(ctx, s, EventPartialPayment, PaymentDetail{
			Consignee:     name,
			Amount:        applied,
			RemainingDebt: debt,
			Kind:          PaymentPartial,
			Items:         touched,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// settleItemized fully settles each selected unpaid item, in the order
// selected. The payment amount is derived, never supplied.
func settleItemized(ctx context.Context, s Store, items []LineItem, selected []int) ([]PaymentItem, decimal.Decimal, error) {
	for _, idx := range selected {
		if idx < 0 || idx >= len(items) {
			return nil, decimal.Zero, &ValidationError{
				Field:   "selected_items",
				Message: fmt.Sprintf("index %d out of range", idx),
			}
		}
	}

	var touched []PaymentItem
	applied := decimal.Zero

	for _, idx := range selected {
		li := items[idx]
		if li.Paid {
			continue
		}
		due := li.Outstanding()
		if due.LessThanOrEqual(decimal.Zero) {
			continue
		}
		li.AmountPaid = li.Total()
		li.Paid = true
		if err := s.SaveLineItem(ctx, li); err != nil {
			return nil, decimal.Zero, err
		}
		items[idx] = li
		applied = applied.Add(due)
		touched = append(touched, PaymentItem{
			LineItemID: li.ID,
			Variant:    li.Variant,
			Quantity:   li.Quantity,
			Amount:     due,
			Status:     ItemFullyPaid,
		})
	}

	if len(touched) == 0 {
		return nil, decimal.Zero, &ValidationError{
			Field:   "selected_items",
			Message: "no unpaid items among the selection",
		}
	}
	return touched, applied, nil
}

// settleFreeAmount walks unpaid items in insertion order and greedily
// applies the amount. Excess beyond total debt is not applied.
func settleFreeAmount(ctx context.Context, s Store, items []LineItem, amount decimal.Decimal) ([]PaymentItem, decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, decimal.Zero, &ValidationError{Field: "amount", Message: "must be greater than 0"}
	}

	debt := TotalDebt(items)
	if debt.IsZero() {
		return nil, decimal.Zero, &ValidationError{Field: "consignee", Message: "no outstanding debt"}
	}

	// Cap before allocating; equivalently, stop at zero remainder.
	remaining := decimal.Min(amount, debt)
	applied := remaining

	var touched []PaymentItem
	for _, li := range items {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		if li.Paid {
			continue
		}
		due := li.Outstanding()
		if due.LessThanOrEqual(decimal.Zero) {
			continue
		}

		pay := decimal.Min(due, remaining)
		li.AmountPaid = li.AmountPaid.Add(pay)
		status := ItemPartiallyPaid
		if pay.Equal(due) {
			li.Paid = true
			status = ItemFullyPaid
		}
		if err := s.SaveLineItem(ctx, li); err != nil {
			return nil, decimal.Zero, err
		}
		remaining = remaining.Sub(pay)
		touched = append(touched, PaymentItem{
			LineItemID: li.ID,
			Variant:    li.Variant,
			Quantity:   li.Quantity,
			Amount:     pay,
			Status:     status,
		})
	}

	return touched, applied, nil
}
