/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  Defines the JSON shapes exchanged with clients, separate from domain
  types. The engine works in decimal.Decimal; DTOs convert to float64 at
  the boundary so clients get plain JSON numbers.

CONVENTIONS:
  - snake_case JSON field names
  - Timestamps as RFC3339 strings
  - Optional fields as pointers or omitempty

SEE ALSO:
  - handlers.go: Where DTOs are populated
  - ledger/types.go: The domain types DTOs mirror
*/
package api

import (
	"time"

	"github.com/warp/consignment-engine/ledger"
)

// =============================================================================
// TRANSACTION DTOs
// =============================================================================

type TransactionDTO struct {
	ID         string  `json:"id"`
	Channel    string  `json:"channel"`
	Variant    string  `json:"variant"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Total      float64 `json:"total"`
	Consignee  string  `json:"consignee,omitempty"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	AcceptedAt string  `json:"accepted_at,omitempty"`
}

type CreateTransactionRequest struct {
	Channel   string   `json:"channel"`
	Variant   string   `json:"variant"`
	Quantity  int      `json:"quantity"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
	Consignee string   `json:"consignee,omitempty"`
}

func toTransactionDTO(t ledger.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:        string(t.ID),
		Channel:   string(t.Channel),
		Variant:   string(t.Variant),
		Quantity:  t.Quantity,
		UnitPrice: t.UnitPrice.InexactFloat64(),
		Total:     t.Total().InexactFloat64(),
		Consignee: string(t.Consignee),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.AcceptedAt != nil {
		dto.AcceptedAt = t.AcceptedAt.Format(time.RFC3339)
	}
	return dto
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = toTransactionDTO(t)
	}
	return dtos
}

// =============================================================================
// INVENTORY DTOs
// =============================================================================

type InventoryDTO struct {
	Counts     map[string]int `json:"counts"`
	LowStock   []string       `json:"low_stock"`
	OutOfStock []string       `json:"out_of_stock"`
	AsOf       string         `json:"as_of"`
}

func toInventoryDTO(snap *ledger.StockSnapshot) InventoryDTO {
	dto := InventoryDTO{
		Counts:     make(map[string]int, len(snap.Counts)),
		LowStock:   make([]string, 0, len(snap.LowStock)),
		OutOfStock: make([]string, 0, len(snap.OutOfStock)),
		AsOf:       snap.AsOf.Format(time.RFC3339),
	}
	for v, c := range snap.Counts {
		dto.Counts[string(v)] = c
	}
	for _, v := range snap.LowStock {
		dto.LowStock = append(dto.LowStock, string(v))
	}
	for _, v := range snap.OutOfStock {
		dto.OutOfStock = append(dto.OutOfStock, string(v))
	}
	return dto
}

// =============================================================================
// CONSIGNEE DTOs
// =============================================================================

type LineItemDTO struct {
	ID          string  `json:"id"`
	Variant     string  `json:"variant"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
	AmountPaid  float64 `json:"amount_paid"`
	Outstanding float64 `json:"outstanding"`
	Paid        bool    `json:"paid"`
	CreatedAt   string  `json:"created_at"`
}

type ConsigneeDTO struct {
	Name      string        `json:"name"`
	Items     []LineItemDTO `json:"items"`
	TotalDebt float64       `json:"total_debt"`
}

func toLineItemDTO(li ledger.LineItem) LineItemDTO {
	return LineItemDTO{
		ID:          string(li.ID),
		Variant:     string(li.Variant),
		Quantity:    li.Quantity,
		UnitPrice:   li.UnitPrice.InexactFloat64(),
		Total:       li.Total().InexactFloat64(),
		AmountPaid:  li.AmountPaid.InexactFloat64(),
		Outstanding: li.Outstanding().InexactFloat64(),
		Paid:        li.Paid,
		CreatedAt:   li.CreatedAt.Format(time.RFC3339),
	}
}

func toConsigneeDTO(l ledger.ConsigneeLedger) ConsigneeDTO {
	items := make([]LineItemDTO, len(l.Items))
	for i, li := range l.Items {
		items[i] = toLineItemDTO(li)
	}
	return ConsigneeDTO{
		Name:      string(l.Consignee),
		Items:     items,
		TotalDebt: l.TotalDebt.InexactFloat64(),
	}
}

// =============================================================================
// PAYMENT DTOs
// =============================================================================

type PaymentItemDTO struct {
	LineItemID string  `json:"line_item_id"`
	Variant    string  `json:"variant"`
	Quantity   int     `json:"quantity"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
}

type PaymentRecordDTO struct {
	ID            string           `json:"id"`
	Consignee     string           `json:"consignee"`
	PaymentType   string           `json:"payment_type"`
	Amount        float64          `json:"amount"`
	RemainingDebt float64          `json:"remaining_debt"`
	Items         []PaymentItemDTO `json:"items_paid"`
	CreatedAt     string           `json:"created_at"`
}

type PartialPaymentRequest struct {
	Amount        float64 `json:"amount,omitempty"`
	SelectedItems []int   `json:"selected_items,omitempty"`
}

func toPaymentRecordDTO(p ledger.PaymentRecord) PaymentRecordDTO {
	items := make([]PaymentItemDTO, len(p.Items))
	for i, it := range p.Items {
		items[i] = PaymentItemDTO{
			LineItemID: string(it.LineItemID),
			Variant:    string(it.Variant),
			Quantity:   it.Quantity,
			Amount:     it.Amount.InexactFloat64(),
			Status:     string(it.Status),
		}
	}
	return PaymentRecordDTO{
		ID:            string(p.ID),
		Consignee:     string(p.Consignee),
		PaymentType:   string(p.Kind),
		Amount:        p.Amount.InexactFloat64(),
		RemainingDebt: p.RemainingDebt.InexactFloat64(),
		Items:         items,
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// BULK CONSIGNMENT DTOs
// =============================================================================

type BulkItemRequest struct {
	Variant   string   `json:"variant"`
	Quantity  int      `json:"quantity"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

type BulkConsignmentRequest struct {
	Consignee string            `json:"consignee"`
	Items     []BulkItemRequest `json:"items"`
}

type BulkConsignmentResponse struct {
	Consignee string        `json:"consignee"`
	Added     []LineItemDTO `json:"added"`
	TotalDebt float64       `json:"total_debt"`
}

// =============================================================================
// FINANCIAL DTOs
// =============================================================================

type FinancialSummaryDTO struct {
	CashOnHand          float64 `json:"cash_on_hand"`
	TotalReceivables    float64 `json:"total_receivables"`
	InventoryValue      float64 `json:"inventory_value"`
	PersonalUseRecovery float64 `json:"personal_use_recovery"`
	TotalCostSold       float64 `json:"total_cost_sold"`
	CapitalInvested     float64 `json:"capital_invested"`
	NetProfit           float64 `json:"net_profit"`
}

func toFinancialSummaryDTO(s *ledger.FinancialSummary) FinancialSummaryDTO {
	return FinancialSummaryDTO{
		CashOnHand:          s.CashOnHand.InexactFloat64(),
		TotalReceivables:    s.TotalReceivables.InexactFloat64(),
		InventoryValue:      s.InventoryValue.InexactFloat64(),
		PersonalUseRecovery: s.PersonalUseRecovery.InexactFloat64(),
		TotalCostSold:       s.TotalCostSold.InexactFloat64(),
		CapitalInvested:     s.CapitalInvested.InexactFloat64(),
		NetProfit:           s.NetProfit.InexactFloat64(),
	}
}

// DashboardDTO bundles the figures the frontend shows on one screen.
type DashboardDTO struct {
	Financials          FinancialSummaryDTO `json:"financials"`
	Inventory           InventoryDTO        `json:"inventory"`
	PendingTransactions []TransactionDTO    `json:"pending_transactions"`
}

// =============================================================================
// AUDIT DTOs
// =============================================================================

type AuditEventDTO struct {
	ID        string             `json:"id"`
	EventType string             `json:"event_type"`
	Detail    ledger.EventDetail `json:"details"`
	CreatedAt string             `json:"created_at"`
}

func toAuditEventDTO(e ledger.AuditEvent) AuditEventDTO {
	return AuditEventDTO{
		ID:        e.ID,
		EventType: string(e.Type),
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// SETTINGS DTOs
// =============================================================================

type SettingsDTO struct {
	BaseCost         float64 `json:"base_cost"`
	PriceDirect      float64 `json:"price_direct"`
	PriceDiscount    float64 `json:"price_discount"`
	PriceConsignment float64 `json:"price_consignment"`
	PricePersonal    float64 `json:"price_personal"`
	CapitalUnits     int     `json:"capital_units"`
}

func toSettingsDTO(s ledger.Settings) SettingsDTO {
	return SettingsDTO{
		BaseCost:         s.BaseCost.InexactFloat64(),
		PriceDirect:      s.PriceDirect.InexactFloat64(),
		PriceDiscount:    s.PriceDiscount.InexactFloat64(),
		PriceConsignment: s.PriceConsignment.InexactFloat64(),
		PricePersonal:    s.PricePersonal.InexactFloat64(),
		CapitalUnits:     s.CapitalUnits,
	}
}

// =============================================================================
// SCENARIO + ERROR DTOs
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
