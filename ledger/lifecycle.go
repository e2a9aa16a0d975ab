/*
lifecycle.go - Transaction lifecycle state machine

PURPOSE:
  Moves a sale proposal through its life: created as pending (no inventory
  effect), then accepted or rejected by the operator. Acceptance commits
  the inventory debit and, for consignments, appends a line item to the
  consignee's ledger. Accepted transactions can later be deleted, which
  reverses the inventory debit and removes any derived line item.

STATE MACHINE:

      create            accept              delete
  ----------> pending ----------> accepted ----------> (removed)
                 |
                 | reject
                 v
              rejected (terminal)

  No transition out of accepted except delete; none out of rejected.

ATOMICITY:
  Accept = debit + line item + status change + audit, all inside one
  WithTx. A failed stock check rolls everything back and the transaction
  stays pending (all-or-nothing, no partial effect).

DELETION SEMANTICS:
  Deleting an accepted consignment transaction removes its line item even
  if partially or fully paid; payments already recorded against it are not
  separately refunded - the receivable is simply discarded. This mirrors
  the documented product behavior (see DESIGN.md).

SEE ALSO:
  - inventory.go: debitStock/creditStock helpers
  - consignee.go: Line item shape and payment allocation
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
// LIFECYCLE SERVICE
// =============================================================================

type Lifecycle struct {
	store TxStore
}

func NewLifecycle(store TxStore) *Lifecycle {
	return &Lifecycle{store: store}
}

// Create validates and stores a new pending transaction. Inventory is not
// touched; the stock check happens on accept. When price is nil, the
// channel's default from Settings is used.
func (l *Lifecycle) Create(
	ctx context.Context,
	channel Channel,
	variant Variant,
	quantity int,
	price *decimal.Decimal,
	consignee Consignee,
) (*Transaction, error) {
	if !channel.Valid() {
		return nil, &ValidationError{Field: "channel", Message: fmt.Sprintf("unknown channel %q", channel)}
	}
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Message: "must be at least 1"}
	}
	if !KnownVariant(variant) {
		return nil, &NotFoundError{Kind: "variant", Key: string(variant)}
	}
	consignee = Consignee(strings.TrimSpace(string(consignee)))
	if channel.RequiresConsignee() && consignee == "" {
		return nil, &ValidationError{Field: "consignee", Message: "required for consignment transactions"}
	}
	if !channel.RequiresConsignee() && consignee != "" {
		return nil, &ValidationError{Field: "consignee", Message: "only allowed for consignment transactions"}
	}
	if price != nil && price.IsNegative() {
		return nil, &ValidationError{Field: "unit_price", Message: "must not be negative"}
	}

	var tx *Transaction
	err := l.store.WithTx(ctx, func(s Store) error {
		unitPrice := decimal.Zero
		if price != nil {
			unitPrice = *price
		} else {
			settings, err := s.GetSettings(ctx)
			if err != nil {
				return err
			}
			unitPrice = settings.PriceFor(channel)
		}

		tx = &Transaction{
			ID:        TransactionID(uuid.NewString()),
			Channel:   channel,
			Variant:   variant,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Consignee: consignee,
			Status:    StatusPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.SaveTransaction(ctx, *tx); err != nil {
			return err
		}

		return appendAudit(ctx, s, EventTransactionCreated, TransactionDetail{
			TransactionID: tx.ID,
			Channel:       tx.Channel,
			Variant:       tx.Variant,
			Quantity:      tx.Quantity,
			UnitPrice:     tx.UnitPrice,
			Consignee:     tx.Consignee,
			Status:        StatusPending,
		})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Accept commits a pending transaction: debits inventory and, for
// consignments, appends an unpaid line item to the consignee's ledger.
// Fails with InsufficientStockError if stock is short; the transaction
// then remains pending and stock is unchanged.
func (l *Lifecycle) Accept(ctx context.Context, id TransactionID) (*Transaction, error) {
	var accepted *Transaction
	err := l.store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if tx == nil {
			return &NotFoundError{Kind: "transaction", Key: string(id)}
		}
		if tx.Status != StatusPending {
			return &InvalidStateError{ID: id, Status: tx.Status, Op: "accept"}
		}

		if err := debitStock(ctx, s, tx.Variant, tx.Quantity); err != nil {
			return err
		}

		now := time.Now().UTC()
		tx.Status = StatusAccepted
		tx.AcceptedAt = &now
		if err := s.SaveTransaction(ctx, *tx); err != nil {
			return err
		}

		if tx.Channel == ChannelConsignment {
			li := LineItem{
				ID:         LineItemID(uuid.NewString()),
				Consignee:  tx.Consignee,
				Variant:    tx.Variant,
				Quantity:   tx.Quantity,
				UnitPrice:  tx.UnitPrice,
				AmountPaid: decimal.Zero,
				OriginTxID: tx.ID,
				CreatedAt:  now,
			}
			if err := s.AppendLineItem(ctx, li); err != nil {
				return err
			}
		}

		accepted = tx
		return appendAudit(ctx, s, EventTransactionAccepted, TransactionDetail{
			TransactionID: tx.ID,
			Channel:       tx.Channel,
			Variant:       tx.Variant,
			Quantity:      tx.Quantity,
			UnitPrice:     tx.UnitPrice,
			Consignee:     tx.Consignee,
			Status:        StatusAccepted,
		})
	})
	if err != nil {
		return nil, err
	}
	return accepted, nil
}

// Reject marks a pending transaction as rejected. No inventory effect
// since none was ever applied. Rejected is terminal.
func (l *Lifecycle) Reject(ctx context.Context, id TransactionID) error {
	return l.store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if tx == nil {
			return &NotFoundError{Kind: "transaction", Key: string(id)}
		}
		if tx.Status != StatusPending {
			return &InvalidStateError{ID: id, Status: tx.Status, Op: "reject"}
		}

		tx.Status = StatusRejected
		if err := s.SaveTransaction(ctx, *tx); err != nil {
			return err
		}

		return appendAudit(ctx, s, EventTransactionRejected, TransactionDetail{
			TransactionID: tx.ID,
			Channel:       tx.Channel,
			Variant:       tx.Variant,
			Quantity:      tx.Quantity,
			UnitPrice:     tx.UnitPrice,
			Consignee:     tx.Consignee,
			Status:        StatusRejected,
		})
	})
}

// Delete reverses an accepted transaction: credits inventory back, removes
// any line item the transaction originated (paid or not - the receivable
// is discarded without refund), and removes the transaction record.
// Pending transactions must be rejected instead.
func (l *Lifecycle) Delete(ctx context.Context, id TransactionID) error {
	return l.store.WithTx(ctx, func(s Store) error {
		tx, err := s.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if tx == nil {
			return &NotFoundError{Kind: "transaction", Key: string(id)}
		}
		if tx.Status != StatusAccepted {
			return &InvalidStateError{ID: id, Status: tx.Status, Op: "delete"}
		}

		if err := creditStock(ctx, s, tx.Variant, tx.Quantity); err != nil {
			return err
		}

		if tx.Channel == ChannelConsignment {
			items, err := s.ListLineItems(ctx, tx.Consignee)
			if err != nil {
				return err
			}
			for _, li := range items {
				if li.OriginTxID == tx.ID {
					if err := s.RemoveLineItem(ctx, li.ID); err != nil {
						return err
					}
					break
				}
			}
		}

		if err := s.RemoveTransaction(ctx, tx.ID); err != nil {
			return err
		}

		return appendAudit(ctx, s, EventTransactionDeleted, TransactionDetail{
			TransactionID:     tx.ID,
			Channel:           tx.Channel,
			Variant:           tx.Variant,
			Quantity:          tx.Quantity,
			UnitPrice:         tx.UnitPrice,
			Consignee:         tx.Consignee,
			InventoryRestored: true,
		})
	})
}

// List returns all transactions in creation order.
func (l *Lifecycle) List(ctx context.Context) ([]Transaction, error) {
	return l.store.ListTransactions(ctx)
}

// ListPending returns transactions still awaiting an accept/reject decision.
func (l *Lifecycle) ListPending(ctx context.Context) ([]Transaction, error) {
	all, err := l.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]Transaction, 0)
	for _, tx := range all {
		if tx.Status == StatusPending {
			pending = append(pending, tx)
		}
	}
	return pending, nil
}
