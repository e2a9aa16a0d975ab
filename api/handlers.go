/*
handlers.go - HTTP API handlers for the consignment engine

PURPOSE:
  Exposes the consignment engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Transactions:
    GET    /api/transactions               List (filter: status, channel)
    POST   /api/transactions               Create pending transaction
    GET    /api/transactions/pending       List pending only
    POST   /api/transactions/{id}/accept   Accept (commits inventory)
    POST   /api/transactions/{id}/reject   Reject
    DELETE /api/transactions/{id}          Delete accepted (reversal)

  Inventory:
    GET    /api/inventory                  Counts + low/out-of-stock

  Consignees:
    GET    /api/consignees                 Debt summary, all consignees
    GET    /api/consignees/{name}          Single ledger
    POST   /api/consignees/{name}/pay      Mark fully paid
    POST   /api/consignees/{name}/partial-pay  Partial settlement
    GET    /api/consignees/{name}/payments Payment history
    POST   /api/consignments/bulk          Bulk batch

  Reporting:
    GET    /api/dashboard                  Financials + inventory + pending
    GET    /api/financials                 Financial summary
    GET    /api/audit                      Audit log (filterable)
    GET    /api/export                     Excel workbook

  Config:
    GET    /api/settings
    PUT    /api/settings

ERROR HANDLING:
  Domain errors map to HTTP status via their sentinel:
  - 400: ErrValidation
  - 404: ErrNotFound
  - 409: ErrInvalidState, ErrInsufficientStock
  - 500: Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/consignment-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     ledger.TxStore
	Lifecycle *ledger.Lifecycle
	Book      *ledger.ConsigneeBook
	Inventory *ledger.Inventory
	Finance   *ledger.Finance
	Audit     *ledger.AuditTrail

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Store:     store,
		Lifecycle: ledger.NewLifecycle(store),
		Book:      ledger.NewConsigneeBook(store),
		Inventory: ledger.NewInventory(store),
		Finance:   ledger.NewFinance(store),
		Audit:     ledger.NewAuditTrail(store),
	}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all transactions, optionally filtered by
// status and/or channel.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Lifecycle.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	status := r.URL.Query().Get("status")
	channel := r.URL.Query().Get("channel")

	dtos := make([]TransactionDTO, 0, len(txs))
	for _, t := range txs {
		if status != "" && string(t.Status) != status {
			continue
		}
		if channel != "" && string(t.Channel) != channel {
			continue
		}
		dtos = append(dtos, toTransactionDTO(t))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPendingTransactions returns transactions awaiting a decision.
func (h *Handler) ListPendingTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Lifecycle.ListPending(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list pending transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// CreateTransaction creates a new pending transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var price *decimal.Decimal
	if req.UnitPrice != nil {
		p := decimal.NewFromFloat(*req.UnitPrice)
		price = &p
	}

	tx, err := h.Lifecycle.Create(r.Context(),
		ledger.Channel(req.Channel),
		ledger.Variant(req.Variant),
		req.Quantity,
		price,
		ledger.Consignee(req.Consignee))
	if err != nil {
		writeDomainError(w, "Failed to create transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// AcceptTransaction commits a pending transaction.
func (h *Handler) AcceptTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	tx, err := h.Lifecycle.Accept(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to accept transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// RejectTransaction marks a pending transaction as rejected.
func (h *Handler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	if err := h.Lifecycle.Reject(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to reject transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "rejected",
		"transaction_id": string(id),
	})
}

// DeleteTransaction reverses an accepted transaction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	if err := h.Lifecycle.Delete(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "deleted",
		"transaction_id":     string(id),
		"inventory_restored": true,
	})
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// GetInventory returns current stock counts with low/out-of-stock alerts.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Inventory.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to get inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryDTO(snap))
}

// =============================================================================
// CONSIGNEE HANDLERS
// =============================================================================

// ListConsignees returns every consignee's ledger and debt.
func (h *Handler) ListConsignees(w http.ResponseWriter, r *http.Request) {
	ledgers, err := h.Book.Summary(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list consignees", err)
		return
	}

	dtos := make([]ConsigneeDTO, len(ledgers))
	for i, l := range ledgers {
		dtos[i] = toConsigneeDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetConsignee returns a single consignee's ledger.
func (h *Handler) GetConsignee(w http.ResponseWriter, r *http.Request) {
	name := ledger.Consignee(chi.URLParam(r, "name"))

	l, err := h.Book.Ledger(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to get consignee", err)
		return
	}
	writeJSON(w, http.StatusOK, toConsigneeDTO(*l))
}

// MarkFullyPaid settles all of a consignee's outstanding items.
func (h *Handler) MarkFullyPaid(w http.ResponseWriter, r *http.Request) {
	name := ledger.Consignee(chi.URLParam(r, "name"))

	record, err := h.Book.MarkFullyPaid(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentRecordDTO(*record))
}

// PartialPay records a partial settlement, either itemized
// (selected_items) or free-amount (amount).
func (h *Handler) PartialPay(w http.ResponseWriter, r *http.Request) {
	name := ledger.Consignee(chi.URLParam(r, "name"))

	var req PartialPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	record, err := h.Book.SettlePartial(r.Context(), name,
		decimal.NewFromFloat(req.Amount), req.SelectedItems)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentRecordDTO(*record))
}

// GetPaymentHistory returns a consignee's chronological payment records.
func (h *Handler) GetPaymentHistory(w http.ResponseWriter, r *http.Request) {
	name := ledger.Consignee(chi.URLParam(r, "name"))

	records, err := h.Book.History(r.Context(), name)
	if err != nil {
		writeDomainError(w, "Failed to get payment history", err)
		return
	}

	dtos := make([]PaymentRecordDTO, len(records))
	for i, p := range records {
		dtos[i] = toPaymentRecordDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// BulkConsign commits a whole consignment batch atomically.
func (h *Handler) BulkConsign(w http.ResponseWriter, r *http.Request) {
	var req BulkConsignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to load settings", err)
		return
	}

	entries := make([]ledger.BulkEntry, len(req.Items))
	for i, it := range req.Items {
		price := settings.PriceConsignment
		if it.UnitPrice != nil {
			price = decimal.NewFromFloat(*it.UnitPrice)
		}
		entries[i] = ledger.BulkEntry{
			Variant:   ledger.Variant(it.Variant),
			Quantity:  it.Quantity,
			UnitPrice: price,
		}
	}

	added, err := h.Book.BulkConsign(r.Context(), ledger.Consignee(req.Consignee), entries)
	if err != nil {
		writeDomainError(w, "Failed to add bulk consignment", err)
		return
	}

	items := make([]LineItemDTO, len(added))
	debt := decimal.Zero
	for i, li := range added {
		items[i] = toLineItemDTO(li)
		debt = debt.Add(li.Outstanding())
	}
	writeJSON(w, http.StatusCreated, BulkConsignmentResponse{
		Consignee: req.Consignee,
		Added:     items,
		TotalDebt: debt.InexactFloat64(),
	})
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// GetFinancials returns the derived financial summary.
func (h *Handler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Finance.Summary(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to compute financials", err)
		return
	}
	writeJSON(w, http.StatusOK, toFinancialSummaryDTO(summary))
}

// GetDashboard returns financials, inventory, and pending transactions
// in one response.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summary, err := h.Finance.Summary(ctx)
	if err != nil {
		writeDomainError(w, "Failed to compute financials", err)
		return
	}
	snap, err := h.Inventory.Snapshot(ctx)
	if err != nil {
		writeDomainError(w, "Failed to get inventory", err)
		return
	}
	pending, err := h.Lifecycle.ListPending(ctx)
	if err != nil {
		writeDomainError(w, "Failed to list pending transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		Financials:          toFinancialSummaryDTO(summary),
		Inventory:           toInventoryDTO(snap),
		PendingTransactions: toTransactionDTOs(pending),
	})
}

// GetAuditLog returns audit events, newest first, filterable by
// event_type and consignee, truncated to limit.
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	events, err := h.Audit.Query(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to query audit log", err)
		return
	}

	eventType := r.URL.Query().Get("event_type")
	consignee := r.URL.Query().Get("consignee")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	dtos := make([]AuditEventDTO, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if consignee != "" && string(eventConsignee(e)) != consignee {
			continue
		}
		dtos = append(dtos, toAuditEventDTO(e))
		if limit > 0 && len(dtos) >= limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// eventConsignee extracts the consignee an event concerns, if any.
func eventConsignee(e ledger.AuditEvent) ledger.Consignee {
	switch d := e.Detail.(type) {
	case ledger.TransactionDetail:
		return d.Consignee
	case ledger.PaymentDetail:
		return d.Consignee
	case ledger.BulkConsignmentDetail:
		return d.Consignee
	default:
		return ""
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the pricing configuration.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Store.GetSettings(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// UpdateSettings replaces the pricing configuration. Existing
// transactions keep the prices they were created with.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.BaseCost < 0 || req.PriceDirect < 0 || req.PriceDiscount < 0 ||
		req.PriceConsignment < 0 || req.PricePersonal < 0 || req.CapitalUnits < 0 {
		writeError(w, http.StatusBadRequest, "Prices and capital units must not be negative", nil)
		return
	}

	settings := ledger.Settings{
		BaseCost:         decimal.NewFromFloat(req.BaseCost),
		PriceDirect:      decimal.NewFromFloat(req.PriceDirect),
		PriceDiscount:    decimal.NewFromFloat(req.PriceDiscount),
		PriceConsignment: decimal.NewFromFloat(req.PriceConsignment),
		PricePersonal:    decimal.NewFromFloat(req.PricePersonal),
		CapitalUnits:     req.CapitalUnits,
	}
	if err := h.Store.SaveSettings(r.Context(), settings); err != nil {
		writeDomainError(w, "Failed to save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(settings))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all state.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeDomainError(w, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to HTTP status by sentinel.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidState), errors.Is(err, ledger.ErrInsufficientStock):
		status = http.StatusConflict
	}
	writeError(w, status, message, err)
}
