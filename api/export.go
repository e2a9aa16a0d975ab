/*
export.go - Excel workbook export

PURPOSE:
  Builds a three-sheet .xlsx report from current ledger state and streams
  it as an attachment:

    Inventory:  per-variant initial, sold, consigned, personal-use and
                remaining counts with a stock status column
    Financials: one metric/value row per financial summary figure
    Consignees: one row per line item, grouped by consignee, with paid
                state and outstanding balance

  Counts are derived from accepted transactions only; deleted transactions
  have already been reversed out of the ledger and do not appear.

SEE ALSO:
  - handlers.go: Route registration and error mapping
  - ledger/finance.go: Source of the Financials sheet figures
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/warp/consignment-engine/ledger"
	"github.com/xuri/excelize/v2"
)

// ExportWorkbook streams the full report workbook.
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.Inventory.Snapshot(ctx)
	if err != nil {
		writeDomainError(w, "Failed to get inventory", err)
		return
	}
	txs, err := h.Lifecycle.List(ctx)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}
	summary, err := h.Finance.Summary(ctx)
	if err != nil {
		writeDomainError(w, "Failed to compute financials", err)
		return
	}
	ledgers, err := h.Book.Summary(ctx)
	if err != nil {
		writeDomainError(w, "Failed to list consignees", err)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Inventory")
	if err := writeInventorySheet(f, snap, txs); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	if err := writeFinancialsSheet(f, summary); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}
	if err := writeConsigneesSheet(f, ledgers); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build workbook", err)
		return
	}

	filename := fmt.Sprintf("consignment-report-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := f.Write(w); err != nil {
		// Headers are already sent; nothing sensible left to do but log via
		// the router's middleware.
		return
	}
}

func writeInventorySheet(f *excelize.File, snap *ledger.StockSnapshot, txs []ledger.Transaction) error {
	const sheet = "Inventory"

	headers := []string{"Variant", "Initial", "Sold", "Consigned", "Personal Use", "Remaining", "Status"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, hdr); err != nil {
			return err
		}
	}

	// Per-variant movement, accepted transactions only.
	sold := make(map[ledger.Variant]int)
	consigned := make(map[ledger.Variant]int)
	personal := make(map[ledger.Variant]int)
	for _, t := range txs {
		if t.Status != ledger.StatusAccepted {
			continue
		}
		switch t.Channel {
		case ledger.ChannelDirect, ledger.ChannelDiscount:
			sold[t.Variant] += t.Quantity
		case ledger.ChannelConsignment:
			consigned[t.Variant] += t.Quantity
		case ledger.ChannelPersonal:
			personal[t.Variant] += t.Quantity
		}
	}

	for i, v := range ledger.Catalog {
		row := i + 2
		remaining := snap.Counts[v]
		status := "OK"
		switch {
		case remaining == 0:
			status = "OUT OF STOCK"
		case remaining < ledger.LowStockThreshold:
			status = "LOW"
		}

		values := []any{
			string(v), ledger.InitialStock, sold[v], consigned[v],
			personal[v], remaining, status,
		}
		for col, val := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFinancialsSheet(f *excelize.File, s *ledger.FinancialSummary) error {
	const sheet = "Financials"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := []struct {
		metric string
		value  float64
	}{
		{"Cash on Hand", s.CashOnHand.InexactFloat64()},
		{"Total Receivables", s.TotalReceivables.InexactFloat64()},
		{"Inventory Value", s.InventoryValue.InexactFloat64()},
		{"Personal Use Recovery", s.PersonalUseRecovery.InexactFloat64()},
		{"Total Cost Sold", s.TotalCostSold.InexactFloat64()},
		{"Capital Invested", s.CapitalInvested.InexactFloat64()},
		{"Net Profit", s.NetProfit.InexactFloat64()},
	}

	if err := f.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	for i, r := range rows {
		if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), r.metric); err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), r.value); err != nil {
			return err
		}
	}
	return nil
}

func writeConsigneesSheet(f *excelize.File, ledgers []ledger.ConsigneeLedger) error {
	const sheet = "Consignees"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Consignee", "Variant", "Quantity", "Unit Price", "Total", "Paid", "Outstanding"}
	for i, hdr := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, hdr); err != nil {
			return err
		}
	}

	row := 2
	for _, l := range ledgers {
		for _, li := range l.Items {
			paid := "No"
			if li.Paid {
				paid = "Yes"
			}
			values := []any{
				string(l.Consignee), string(li.Variant), li.Quantity,
				li.UnitPrice.InexactFloat64(), li.Total().InexactFloat64(),
				paid, li.Outstanding().InexactFloat64(),
			}
			for col, val := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(sheet, cell, val); err != nil {
					return err
				}
			}
			row++
		}

		// Debt subtotal per consignee.
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheet, cell, fmt.Sprintf("%s total debt", l.Consignee)); err != nil {
			return err
		}
		cell, _ = excelize.CoordinatesToCellName(7, row)
		if err := f.SetCellValue(sheet, cell, l.TotalDebt.InexactFloat64()); err != nil {
			return err
		}
		row += 2
	}
	return nil
}
