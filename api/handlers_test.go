/*
handlers_test.go - HTTP-level tests for the API surface

Exercises the full router with an in-memory store: transaction lifecycle,
consignee settlement, error status mapping, audit filtering, settings,
scenarios, and the export attachment.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/consignment-engine/api"
	"github.com/warp/consignment-engine/ledger"
	"github.com/warp/consignment-engine/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*api.Handler, http.Handler) {
	t.Helper()
	s := store.NewTxMemory()
	h := api.NewHandler(s)
	require.NoError(t, h.LoadFreshStock(context.Background()))
	return h, api.NewRouter(h)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// =============================================================================
// TRANSACTION LIFECYCLE
// =============================================================================

func TestTransactionLifecycle_HTTP(t *testing.T) {
	// GIVEN: A fresh catalog
	// WHEN: Creating, accepting, and deleting a direct sale over HTTP
	// THEN: Statuses and inventory move through each step

	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Mango", Quantity: 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 300.0, created.UnitPrice)
	assert.Equal(t, 900.0, created.Total)

	rec = do(t, router, http.MethodPost, "/api/transactions/"+created.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	accepted := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, "accepted", accepted.Status)
	assert.NotEmpty(t, accepted.AcceptedAt)

	rec = do(t, router, http.MethodGet, "/api/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inv := decode[api.InventoryDTO](t, rec)
	assert.Equal(t, ledger.InitialStock-3, inv.Counts["Mango"])

	rec = do(t, router, http.MethodDelete, "/api/transactions/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/inventory", nil)
	inv = decode[api.InventoryDTO](t, rec)
	assert.Equal(t, ledger.InitialStock, inv.Counts["Mango"])
}

func TestListTransactions_Filters(t *testing.T) {
	_, router := newTestServer(t)

	recA := do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Mango", Quantity: 1,
	})
	require.Equal(t, http.StatusCreated, recA.Code)
	a := decode[api.TransactionDTO](t, recA)

	recB := do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "personal_use", Variant: "Grapes", Quantity: 1,
	})
	require.Equal(t, http.StatusCreated, recB.Code)

	rec := do(t, router, http.MethodPost, "/api/transactions/"+a.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/transactions?status=accepted", nil)
	accepted := decode[[]api.TransactionDTO](t, rec)
	require.Len(t, accepted, 1)
	assert.Equal(t, a.ID, accepted[0].ID)

	rec = do(t, router, http.MethodGet, "/api/transactions?channel=personal_use", nil)
	personal := decode[[]api.TransactionDTO](t, rec)
	require.Len(t, personal, 1)
	assert.Equal(t, "pending", personal[0].Status)

	rec = do(t, router, http.MethodGet, "/api/transactions/pending", nil)
	pending := decode[[]api.TransactionDTO](t, rec)
	assert.Len(t, pending, 1)
}

// =============================================================================
// ERROR STATUS MAPPING
// =============================================================================

func TestErrorStatusMapping(t *testing.T) {
	h, router := newTestServer(t)
	require.NoError(t, h.Store.SetStock(context.Background(), "Banana", 1))

	// Pending transaction to accept twice.
	rec := do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Yakult", Quantity: 1,
	})
	tx := decode[api.TransactionDTO](t, rec)
	require.Equal(t, http.StatusOK,
		do(t, router, http.MethodPost, "/api/transactions/"+tx.ID+"/accept", nil).Code)

	// Short-stock transaction.
	rec = do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Banana", Quantity: 5,
	})
	short := decode[api.TransactionDTO](t, rec)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown variant", http.MethodPost, "/api/transactions",
			api.CreateTransactionRequest{Channel: "direct_sale", Variant: "Durian", Quantity: 1}, http.StatusNotFound},
		{"unknown channel", http.MethodPost, "/api/transactions",
			api.CreateTransactionRequest{Channel: "wholesale", Variant: "Mango", Quantity: 1}, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/api/transactions",
			api.CreateTransactionRequest{Channel: "direct_sale", Variant: "Mango", Quantity: 0}, http.StatusBadRequest},
		{"missing consignee", http.MethodPost, "/api/transactions",
			api.CreateTransactionRequest{Channel: "consignment", Variant: "Mango", Quantity: 1}, http.StatusBadRequest},
		{"accept unknown", http.MethodPost, "/api/transactions/nope/accept", nil, http.StatusNotFound},
		{"accept twice", http.MethodPost, "/api/transactions/" + tx.ID + "/accept", nil, http.StatusConflict},
		{"insufficient stock", http.MethodPost, "/api/transactions/" + short.ID + "/accept", nil, http.StatusConflict},
		{"delete pending", http.MethodDelete, "/api/transactions/" + short.ID, nil, http.StatusConflict},
		{"unknown consignee", http.MethodGet, "/api/consignees/Nobody", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			resp := decode[api.ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

// =============================================================================
// CONSIGNEES
// =============================================================================

func TestBulkConsignAndSettlement_HTTP(t *testing.T) {
	// GIVEN: A bulk batch for KJ at the default consignment price
	// WHEN: Settling 600 as a free amount, then paying in full
	// THEN: Debt and payment history reflect FIFO allocation and the cap

	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/consignments/bulk", api.BulkConsignmentRequest{
		Consignee: "KJ",
		Items: []api.BulkItemRequest{
			{Variant: "Mango", Quantity: 2},
			{Variant: "Grapes", Quantity: 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	bulk := decode[api.BulkConsignmentResponse](t, rec)
	assert.Equal(t, 750.0, bulk.TotalDebt)
	assert.Len(t, bulk.Added, 2)

	rec = do(t, router, http.MethodPost, "/api/consignees/KJ/partial-pay", api.PartialPaymentRequest{Amount: 600})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	partial := decode[api.PaymentRecordDTO](t, rec)
	assert.Equal(t, "partial", partial.PaymentType)
	assert.Equal(t, 600.0, partial.Amount)
	assert.Equal(t, 150.0, partial.RemainingDebt)
	require.Len(t, partial.Items, 2)
	assert.Equal(t, "fully_paid", partial.Items[0].Status)
	assert.Equal(t, "partially_paid", partial.Items[1].Status)

	rec = do(t, router, http.MethodPost, "/api/consignees/KJ/pay", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	full := decode[api.PaymentRecordDTO](t, rec)
	assert.Equal(t, "full", full.PaymentType)
	assert.Equal(t, 150.0, full.Amount)

	rec = do(t, router, http.MethodGet, "/api/consignees/KJ", nil)
	ledgerDTO := decode[api.ConsigneeDTO](t, rec)
	assert.Equal(t, 0.0, ledgerDTO.TotalDebt)

	rec = do(t, router, http.MethodGet, "/api/consignees/KJ/payments", nil)
	history := decode[[]api.PaymentRecordDTO](t, rec)
	require.Len(t, history, 2)
	assert.Equal(t, "partial", history[0].PaymentType)
	assert.Equal(t, "full", history[1].PaymentType)
}

func TestItemizedPartialPay_HTTP(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/consignments/bulk", api.BulkConsignmentRequest{
		Consignee: "Gerbe",
		Items: []api.BulkItemRequest{
			{Variant: "Banana", Quantity: 2},
			{Variant: "Yakult", Quantity: 1},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/consignees/Gerbe/partial-pay",
		api.PartialPaymentRequest{SelectedItems: []int{1}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	record := decode[api.PaymentRecordDTO](t, rec)
	assert.Equal(t, 250.0, record.Amount)
	assert.Equal(t, 500.0, record.RemainingDebt)
	require.Len(t, record.Items, 1)
	assert.Equal(t, "Yakult", record.Items[0].Variant)
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// auditEventResp mirrors AuditEventDTO with the detail left undecoded, since
// the detail shape varies by event type.
type auditEventResp struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Details   json.RawMessage `json:"details"`
	CreatedAt string          `json:"created_at"`
}

func TestAuditLog_FiltersAndOrder(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Mango", Quantity: 1,
	})
	tx := decode[api.TransactionDTO](t, rec)
	require.Equal(t, http.StatusOK,
		do(t, router, http.MethodPost, "/api/transactions/"+tx.ID+"/accept", nil).Code)

	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/api/consignments/bulk", api.BulkConsignmentRequest{
			Consignee: "KJ",
			Items:     []api.BulkItemRequest{{Variant: "Grapes", Quantity: 1}},
		}).Code)

	// Newest first, unfiltered.
	rec = do(t, router, http.MethodGet, "/api/audit", nil)
	events := decode[[]auditEventResp](t, rec)
	require.Len(t, events, 3)
	assert.Equal(t, "bulk_consignment_added", events[0].EventType)
	assert.Equal(t, "transaction_created", events[2].EventType)

	// By event type.
	rec = do(t, router, http.MethodGet, "/api/audit?event_type=transaction_accepted", nil)
	events = decode[[]auditEventResp](t, rec)
	require.Len(t, events, 1)

	// By consignee.
	rec = do(t, router, http.MethodGet, "/api/audit?consignee=KJ", nil)
	events = decode[[]auditEventResp](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, "bulk_consignment_added", events[0].EventType)

	// Limit.
	rec = do(t, router, http.MethodGet, "/api/audit?limit=2", nil)
	events = decode[[]auditEventResp](t, rec)
	assert.Len(t, events, 2)

	rec = do(t, router, http.MethodGet, "/api/audit?limit=banana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_RoundTrip(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[api.SettingsDTO](t, rec)
	assert.Equal(t, 300.0, settings.PriceDirect)

	settings.PriceDirect = 320
	rec = do(t, router, http.MethodPut, "/api/settings", settings)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// New transactions pick up the new default.
	rec = do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Mango", Quantity: 1,
	})
	tx := decode[api.TransactionDTO](t, rec)
	assert.Equal(t, 320.0, tx.UnitPrice)

	settings.BaseCost = -1
	rec = do(t, router, http.MethodPut, "/api/settings", settings)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// DASHBOARD + EXPORT
// =============================================================================

func TestDashboard_HTTP(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Channel: "direct_sale", Variant: "Mango", Quantity: 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dash := decode[api.DashboardDTO](t, rec)

	assert.Len(t, dash.PendingTransactions, 1)
	assert.Equal(t, ledger.InitialStock, dash.Inventory.Counts["Mango"])
	assert.Equal(t, dash.Financials.CapitalInvested, dash.Financials.InventoryValue)
}

func TestExport_ReturnsWorkbookAttachment(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(t, router, http.MethodGet, "/api/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.NotZero(t, rec.Body.Len())
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestOpeningBooksScenario_HTTP(t *testing.T) {
	// GIVEN: A running server
	// WHEN: Loading the opening-books scenario
	// THEN: Inventory, consignees, and debts match the replayed history

	_, router := newTestServer(t)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load",
		map[string]string{"scenario_id": "opening-books"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/inventory", nil)
	inv := decode[api.InventoryDTO](t, rec)
	// 15 - 3 standard - 3 discount - 1 personal - 5 KJ - 2 Jross
	assert.Equal(t, 1, inv.Counts["Mango"])
	assert.Contains(t, inv.LowStock, "Mango")

	rec = do(t, router, http.MethodGet, "/api/consignees", nil)
	consignees := decode[[]api.ConsigneeDTO](t, rec)
	require.Len(t, consignees, 3)

	debts := make(map[string]float64, len(consignees))
	for _, c := range consignees {
		debts[c.Name] = c.TotalDebt
	}
	assert.Equal(t, float64(len(ledger.Catalog)*5*250), debts["KJ"])
	assert.Equal(t, float64(len(ledger.Catalog)*2*250), debts["Jross"])
	assert.Equal(t, 11*250.0, debts["Gerbe"])

	rec = do(t, router, http.MethodGet, "/api/scenarios", nil)
	list := decode[[]api.ScenarioDTO](t, rec)
	assert.Len(t, list, 2)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load",
		map[string]string{"scenario_id": "does-not-exist"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReset_HTTP(t *testing.T) {
	_, router := newTestServer(t)

	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
			Channel: "direct_sale", Variant: "Mango", Quantity: 1,
		}).Code)

	rec := do(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/transactions", nil)
	txs := decode[[]api.TransactionDTO](t, rec)
	assert.Empty(t, txs)
}
