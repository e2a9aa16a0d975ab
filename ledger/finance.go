/*
finance.go - Derived financial figures

PURPOSE:
  Folds over committed transactions, line items, inventory, and settings
  to produce the dashboard figures. Owns no state; every figure is
  recomputed on every read, never cached stale.

FIGURES:
  cash on hand          accepted direct + discount sale totals, plus cash
                        actually collected on consignments (amount paid
                        across all line items)
  total receivables     outstanding debt across all consignees
  inventory value       remaining units x base cost
  personal use recovery accepted personal-use totals (tracked apart from cash)
  total cost sold       base cost x quantity over accepted transactions
  net profit            cash + receivables + personal recovery +
                        inventory value - capital invested

SEE ALSO:
  - types.go: Settings.CapitalInvested (the fixed profit anchor)
*/
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FINANCIAL AGGREGATOR
// =============================================================================

type Finance struct {
	store Store
}

func NewFinance(store Store) *Finance {
	return &Finance{store: store}
}

// FinancialSummary holds the derived dashboard figures.
type FinancialSummary struct {
	CashOnHand          decimal.Decimal
	TotalReceivables    decimal.Decimal
	InventoryValue      decimal.Decimal
	PersonalUseRecovery decimal.Decimal
	TotalCostSold       decimal.Decimal
	CapitalInvested     decimal.Decimal
	NetProfit           decimal.Decimal
}

// Summary computes all figures from current ledger state.
func (f *Finance) Summary(ctx context.Context) (*FinancialSummary, error) {
	settings, err := f.store.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	txs, err := f.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	items, err := f.store.ListAllLineItems(ctx)
	if err != nil {
		return nil, err
	}
	stock, err := f.store.ListStock(ctx)
	if err != nil {
		return nil, err
	}

	cash := decimal.Zero
	personal := decimal.Zero
	costSold := decimal.Zero

	for _, tx := range txs {
		if tx.Status != StatusAccepted {
			continue
		}
		qty := decimal.NewFromInt(int64(tx.Quantity))
		switch tx.Channel {
		case ChannelDirect, ChannelDiscount:
			cash = cash.Add(tx.Total())
		case ChannelPersonal:
			personal = personal.Add(tx.Total())
		}
		costSold = costSold.Add(settings.BaseCost.Mul(qty))
	}

	receivables := decimal.Zero
	for _, li := range items {
		cash = cash.Add(li.AmountPaid)
		receivables = receivables.Add(li.Outstanding())
	}

	units := 0
	for _, c := range stock {
		units += c
	}
	inventoryValue := settings.BaseCost.Mul(decimal.NewFromInt(int64(units)))

	capital := settings.CapitalInvested()
	netProfit := cash.Add(receivables).Add(personal).Add(inventoryValue).Sub(capital)

	return &FinancialSummary{
		CashOnHand:          cash,
		TotalReceivables:    receivables,
		InventoryValue:      inventoryValue,
		PersonalUseRecovery: personal,
		TotalCostSold:       costSold,
		CapitalInvested:     capital,
		NetProfit:           netProfit,
	}, nil
}
