package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/consignment-engine/ledger"
	"github.com/warp/consignment-engine/ledger/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// newSeededStore returns a memory store with default settings and a fully
// stocked catalog.
func newSeededStore(t *testing.T) *store.TxMemory {
	t.Helper()
	s := store.NewTxMemory()
	ctx := context.Background()
	require.NoError(t, s.SaveSettings(ctx, ledger.DefaultSettings()))
	for _, v := range ledger.Catalog {
		require.NoError(t, s.SetStock(ctx, v, ledger.InitialStock))
	}
	return s
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func stockOf(t *testing.T, s ledger.Store, v ledger.Variant) int {
	t.Helper()
	n, err := s.GetStock(context.Background(), v)
	require.NoError(t, err)
	return n
}

func auditTypes(t *testing.T, s ledger.Store) []ledger.EventType {
	t.Helper()
	events, err := s.ListAudit(context.Background())
	require.NoError(t, err)
	types := make([]ledger.EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_DefaultsPriceFromSettings(t *testing.T) {
	// GIVEN: A stocked catalog with standard pricing
	// WHEN: Creating a direct sale without an explicit price
	// THEN: The transaction is pending at the channel's default price and
	//       inventory is untouched

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Mango", 2, nil, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusPending, tx.Status)
	assert.True(t, tx.UnitPrice.Equal(money(300)), "expected default direct price, got %s", tx.UnitPrice)
	assert.Equal(t, ledger.InitialStock, stockOf(t, s, "Mango"))
	assert.Equal(t, []ledger.EventType{ledger.EventTransactionCreated}, auditTypes(t, s))
}

func TestCreate_ExplicitPriceWins(t *testing.T) {
	// GIVEN: A stocked catalog
	// WHEN: Creating a discount sale at an explicit price
	// THEN: The explicit price is kept

	ctx := context.Background()
	lc := ledger.NewLifecycle(newSeededStore(t))

	price := money(275)
	tx, err := lc.Create(ctx, ledger.ChannelDiscount, "Yakult", 1, &price, "")
	require.NoError(t, err)
	assert.True(t, tx.UnitPrice.Equal(price))
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	lc := ledger.NewLifecycle(newSeededStore(t))

	tests := []struct {
		name      string
		channel   ledger.Channel
		variant   ledger.Variant
		quantity  int
		consignee ledger.Consignee
		wantErr   error
	}{
		{"unknown channel", "wholesale", "Mango", 1, "", ledger.ErrValidation},
		{"zero quantity", ledger.ChannelDirect, "Mango", 0, "", ledger.ErrValidation},
		{"unknown variant", ledger.ChannelDirect, "Durian", 1, "", ledger.ErrNotFound},
		{"consignment without consignee", ledger.ChannelConsignment, "Mango", 1, "", ledger.ErrValidation},
		{"blank consignee", ledger.ChannelConsignment, "Mango", 1, "   ", ledger.ErrValidation},
		{"consignee on direct sale", ledger.ChannelDirect, "Mango", 1, "KJ", ledger.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lc.Create(ctx, tt.channel, tt.variant, tt.quantity, nil, tt.consignee)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, ledger.IsClientError(err))
		})
	}
}

func TestCreate_NegativePriceRejected(t *testing.T) {
	ctx := context.Background()
	lc := ledger.NewLifecycle(newSeededStore(t))

	price := money(-1)
	_, err := lc.Create(ctx, ledger.ChannelDirect, "Mango", 1, &price, "")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

// =============================================================================
// ACCEPT
// =============================================================================

func TestAccept_DebitsInventory(t *testing.T) {
	// GIVEN: A pending direct sale of 3 units
	// WHEN: Accepting it
	// THEN: Stock drops by 3, status is accepted, and no line item appears

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Grapes", 3, nil, "")
	require.NoError(t, err)

	accepted, err := lc.Accept(ctx, tx.ID)
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusAccepted, accepted.Status)
	require.NotNil(t, accepted.AcceptedAt)
	assert.Equal(t, ledger.InitialStock-3, stockOf(t, s, "Grapes"))

	items, err := s.ListAllLineItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "direct sales must not create line items")
}

func TestAccept_ConsignmentAppendsLineItem(t *testing.T) {
	// GIVEN: A pending consignment for KJ
	// WHEN: Accepting it
	// THEN: An unpaid line item tied to the transaction appears on KJ's ledger

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelConsignment, "Matcha", 4, nil, "KJ")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)

	items, err := s.ListLineItems(ctx, "KJ")
	require.NoError(t, err)
	require.Len(t, items, 1)

	li := items[0]
	assert.Equal(t, tx.ID, li.OriginTxID)
	assert.False(t, li.Paid)
	assert.True(t, li.AmountPaid.IsZero())
	assert.True(t, li.Outstanding().Equal(money(1000)), "4 x 250 outstanding")
}

func TestAccept_InsufficientStockLeavesEverythingUnchanged(t *testing.T) {
	// GIVEN: A pending sale exceeding available stock
	// WHEN: Accepting it
	// THEN: The accept fails, the transaction stays pending, stock is
	//       unchanged, and no accepted event is logged

	ctx := context.Background()
	s := newSeededStore(t)
	require.NoError(t, s.SetStock(ctx, "Banana", 2))
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Banana", 5, nil, "")
	require.NoError(t, err)

	_, err = lc.Accept(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientStock)

	var stockErr *ledger.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, got.Status)
	assert.Equal(t, 2, stockOf(t, s, "Banana"))
	assert.Equal(t, []ledger.EventType{ledger.EventTransactionCreated}, auditTypes(t, s))
}

func TestAccept_NonPendingRejected(t *testing.T) {
	ctx := context.Background()
	lc := ledger.NewLifecycle(newSeededStore(t))

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Mango", 1, nil, "")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)

	_, err = lc.Accept(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

func TestAccept_UnknownTransaction(t *testing.T) {
	ctx := context.Background()
	lc := ledger.NewLifecycle(newSeededStore(t))

	_, err := lc.Accept(ctx, "no-such-id")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.True(t, ledger.IsNotFound(err))
}

// =============================================================================
// REJECT
// =============================================================================

func TestReject_KeepsRecordWithoutInventoryEffect(t *testing.T) {
	// GIVEN: A pending sale
	// WHEN: Rejecting it
	// THEN: The record remains with status rejected and stock is unchanged

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Watermelon", 2, nil, "")
	require.NoError(t, err)
	require.NoError(t, lc.Reject(ctx, tx.ID))

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, got.Status)
	assert.Equal(t, ledger.InitialStock, stockOf(t, s, "Watermelon"))

	// Rejected is terminal.
	err = lc.Reject(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
	_, err = lc.Accept(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_RestoresInventoryAndRemovesLineItem(t *testing.T) {
	// GIVEN: An accepted consignment with its derived line item
	// WHEN: Deleting the transaction
	// THEN: Stock is restored, the record and the line item are gone

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)

	tx, err := lc.Create(ctx, ledger.ChannelConsignment, "Blueberry", 3, nil, "Gerbe")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)
	require.Equal(t, ledger.InitialStock-3, stockOf(t, s, "Blueberry"))

	require.NoError(t, lc.Delete(ctx, tx.ID))

	assert.Equal(t, ledger.InitialStock, stockOf(t, s, "Blueberry"))

	got, err := s.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "record should be removed")

	items, err := s.ListLineItems(ctx, "Gerbe")
	require.NoError(t, err)
	assert.Empty(t, items)

	types := auditTypes(t, s)
	assert.Equal(t, ledger.EventTransactionDeleted, types[len(types)-1])
}

func TestDelete_DiscardsPartiallyPaidReceivable(t *testing.T) {
	// GIVEN: An accepted consignment with a partial payment against it
	// WHEN: Deleting the transaction
	// THEN: The line item is removed anyway; the payment record stays

	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)
	book := ledger.NewConsigneeBook(s)

	tx, err := lc.Create(ctx, ledger.ChannelConsignment, "Strawberry", 2, nil, "Jross")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, tx.ID)
	require.NoError(t, err)

	_, err = book.SettlePartial(ctx, "Jross", money(100), nil)
	require.NoError(t, err)

	require.NoError(t, lc.Delete(ctx, tx.ID))

	items, err := s.ListLineItems(ctx, "Jross")
	require.NoError(t, err)
	assert.Empty(t, items)

	payments, err := s.ListPayments(ctx, "Jross")
	require.NoError(t, err)
	assert.Len(t, payments, 1, "payment log is append-only")
}

func TestDelete_OnlyAcceptedTransactions(t *testing.T) {
	ctx := context.Background()
	lc := ledger.NewLifecycle(newSeededStore(t))

	tx, err := lc.Create(ctx, ledger.ChannelDirect, "Mango", 1, nil, "")
	require.NoError(t, err)

	err = lc.Delete(ctx, tx.ID)
	assert.ErrorIs(t, err, ledger.ErrInvalidState)

	err = lc.Delete(ctx, "missing")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// LISTING
// =============================================================================

func TestListPending_FiltersByStatus(t *testing.T) {
	ctx := context.Background()
	s := newSeededStore(t)
	lc := ledger.NewLifecycle(s)

	a, err := lc.Create(ctx, ledger.ChannelDirect, "Mango", 1, nil, "")
	require.NoError(t, err)
	b, err := lc.Create(ctx, ledger.ChannelDirect, "Grapes", 1, nil, "")
	require.NoError(t, err)
	_, err = lc.Accept(ctx, a.ID)
	require.NoError(t, err)

	pending, err := lc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	all, err := lc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
