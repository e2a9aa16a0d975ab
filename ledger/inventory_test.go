package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/consignment-engine/ledger"
)

func TestDebitCredit_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	inv := ledger.NewInventory(s)

	require.NoError(t, inv.Debit(ctx, "Mango", 5))
	assert.Equal(t, ledger.InitialStock-5, stockOf(t, s, "Mango"))

	require.NoError(t, inv.Credit(ctx, "Mango", 2))
	assert.Equal(t, ledger.InitialStock-3, stockOf(t, s, "Mango"))
}

func TestDebit_NeverGoesNegative(t *testing.T) {
	// GIVEN: 4 units in stock
	// WHEN: Debiting 5
	// THEN: The debit fails and the count is unchanged

	ctx := context.Background()
	s := newSeededStore(t)
	require.NoError(t, s.SetStock(ctx, "Yakult", 4))
	inv := ledger.NewInventory(s)

	err := inv.Debit(ctx, "Yakult", 5)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)
	assert.Equal(t, 4, stockOf(t, s, "Yakult"))

	// Draining to exactly zero is fine.
	require.NoError(t, inv.Debit(ctx, "Yakult", 4))
	assert.Equal(t, 0, stockOf(t, s, "Yakult"))
}

func TestDebitCredit_QuantityValidation(t *testing.T) {
	ctx := context.Background()
	inv := ledger.NewInventory(newSeededStore(t))

	assert.ErrorIs(t, inv.Debit(ctx, "Mango", 0), ledger.ErrValidation)
	assert.ErrorIs(t, inv.Debit(ctx, "Mango", -1), ledger.ErrValidation)
	assert.ErrorIs(t, inv.Credit(ctx, "Mango", 0), ledger.ErrValidation)
}

func TestSnapshot_AlertsInCatalogOrder(t *testing.T) {
	// GIVEN: Matcha at zero, Banana below threshold, everything else full
	// WHEN: Taking a snapshot
	// THEN: Matcha is out of stock (and low), Banana is low, and the alert
	//       lists follow catalog order

	ctx := context.Background()
	s := newSeededStore(t)
	require.NoError(t, s.SetStock(ctx, "Matcha", 0))
	require.NoError(t, s.SetStock(ctx, "Banana", 2))
	inv := ledger.NewInventory(s)

	snap, err := inv.Snapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, snap.Counts["Matcha"])
	assert.Equal(t, 2, snap.Counts["Banana"])
	assert.Equal(t, ledger.InitialStock, snap.Counts["Mango"])

	assert.Equal(t, []ledger.Variant{"Matcha"}, snap.OutOfStock)
	assert.Equal(t, []ledger.Variant{"Matcha", "Banana"}, snap.LowStock)
}

func TestSnapshot_CopyIsDetached(t *testing.T) {
	// Mutating the snapshot must not leak into the store.
	ctx := context.Background()
	s := newSeededStore(t)
	inv := ledger.NewInventory(s)

	snap, err := inv.Snapshot(ctx)
	require.NoError(t, err)
	snap.Counts["Mango"] = 999

	assert.Equal(t, ledger.InitialStock, stockOf(t, s, "Mango"))
}

func TestBoundary_ExactStockDrain(t *testing.T) {
	// Accepting a transaction for exactly the remaining stock must succeed.
	ctx := context.Background()
	s := newSeededStore(t)
	require.NoError(t, s.SetStock(ctx, "Grapes", 3))
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Grapes", 3, nil, "")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stockOf(t, s, "Grapes"))
}
