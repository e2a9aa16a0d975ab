package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/consignment-engine/ledger"
	"github.com/warp/consignment-engine/ledger/store"
)

func TestSummary_FreshlyStockedBooksBreakEven(t *testing.T) {
	// GIVEN: A freshly stocked catalog, no transactions
	// WHEN: Computing the summary
	// THEN: Inventory value equals capital invested and profit is zero

	ctx := context.Background()
	s := newSeededStore(t)
	fin := ledger.NewFinance(s)

	got, err := fin.Summary(ctx)
	require.NoError(t, err)

	assert.True(t, got.CashOnHand.IsZero())
	assert.True(t, got.TotalReceivables.IsZero())
	assert.True(t, got.InventoryValue.Equal(got.CapitalInvested))
	assert.True(t, got.NetProfit.IsZero())
}

func TestSummary_MixedActivity(t *testing.T) {
	// GIVEN: 10 capital units; a direct sale of 3 Mango @ 300, a consignment
	//        of 2 Grapes @ 250 with 100 paid, 1 Grapes personal use, plus
	//        one pending and one rejected transaction
	// WHEN: Computing the summary
	// THEN: cash 1000, receivables 400, personal 150, inventory 600,
	//       cost sold 900, capital 1500, net profit 650

	ctx := context.Background()
	s := store.NewTxMemory()

	settings := ledger.DefaultSettings()
	settings.CapitalUnits = 10
	require.NoError(t, s.SaveSettings(ctx, settings))
	require.NoError(t, s.SetStock(ctx, "Mango", 5))
	require.NoError(t, s.SetStock(ctx, "Grapes", 5))

	lc := ledger.NewLifecycle(s)
	book := ledger.NewConsigneeBook(s)

	accept := func(channel ledger.Channel, v ledger.Variant, qty int, consignee ledger.Consignee) {
		tx, err := lc.Create(ctx, channel, v, qty, nil, consignee)
		require.NoError(t, err)
		_, err = lc.Accept(ctx, tx.ID)
		require.NoError(t, err)
	}

	accept(ledger.ChannelDirect, "Mango", 3, "")
	accept(ledger.ChannelConsignment, "Grapes", 2, "KJ")
	accept(ledger.ChannelPersonal, "Grapes", 1, "")

	_, err := book.SettlePartial(ctx, "KJ", money(100), nil)
	require.NoError(t, err)

	// Pending and rejected transactions must not move any figure.
	_, err = lc.Create(ctx, ledger.ChannelDirect, "Mango", 1, nil, "")
	require.NoError(t, err)
	rejected, err := lc.Create(ctx, ledger.ChannelDirect, "Grapes", 1, nil, "")
	require.NoError(t, err)
	require.NoError(t, lc.Reject(ctx, rejected.ID))

	got, err := ledger.NewFinance(s).Summary(ctx)
	require.NoError(t, err)

	assert.True(t, got.CashOnHand.Equal(money(1000)), "cash: %s", got.CashOnHand)
	assert.True(t, got.TotalReceivables.Equal(money(400)), "receivables: %s", got.TotalReceivables)
	assert.True(t, got.PersonalUseRecovery.Equal(money(150)), "personal: %s", got.PersonalUseRecovery)
	assert.True(t, got.InventoryValue.Equal(money(600)), "inventory: %s", got.InventoryValue)
	assert.True(t, got.TotalCostSold.Equal(money(900)), "cost sold: %s", got.TotalCostSold)
	assert.True(t, got.CapitalInvested.Equal(money(1500)), "capital: %s", got.CapitalInvested)
	assert.True(t, got.NetProfit.Equal(money(650)), "net profit: %s", got.NetProfit)
}

func TestSummary_DeleteReversesContribution(t *testing.T) {
	// GIVEN: An accepted direct sale
	// WHEN: Deleting it
	// THEN: The summary returns to its pre-sale figures

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)
	fin := ledger.NewFinance(s)

	before, err := fin.Summary(ctx)
	require.NoError(t, err)

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Mango", 2, nil, "")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)
	require.NoError(t, lc.Delete(ctx, tx.ID))

	after, err := fin.Summary(ctx)
	require.NoError(t, err)

	assert.True(t, after.CashOnHand.Equal(before.CashOnHand))
	assert.True(t, after.InventoryValue.Equal(before.InventoryValue))
	assert.True(t, after.NetProfit.Equal(before.NetProfit))
}

func TestSummary_FullPaymentMovesReceivablesToCash(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)
	book := ledger.NewConsigneeBook(s)
	fin := ledger.NewFinance(s)

	tx, err := lc.Create(ctx, ledger.ChannelConsignment, "Yakult", 4, nil, "Jross")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)

	mid, err := fin.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, mid.TotalReceivables.Equal(money(1000)))
	assert.True(t, mid.CashOnHand.IsZero())

	_, err = book.MarkFullyPaid(ctx, "Jross")
	require.NoError(t, err)

	after, err := fin.Summary(ctx)
	require.NoError(t, err)
	assert.True(t, after.TotalReceivables.IsZero())
	assert.True(t, after.CashOnHand.Equal(money(1000)))
	// Net profit is unchanged by moving debt to cash.
	assert.True(t, after.NetProfit.Equal(mid.NetProfit))
}
