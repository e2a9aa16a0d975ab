/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Every scenario replays its history through
	the engine services, so stock counts, line items, and the audit trail
	all come out consistent.

AVAILABLE SCENARIOS:

	fresh-stock:   Full catalog at the initial count, no history
	opening-books: Historical cash sales, personal use, and three
	               consignees (KJ, Jross, Gerbe) with open debt

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save default settings
 3. Stock the catalog
 4. Replay historical transactions through Lifecycle / ConsigneeBook

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "opening-books"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: ResetDatabase handler
  - ledger/types.go: Catalog and InitialStock
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/consignment-engine/ledger"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-stock",
		Name:        "Fresh Stock",
		Description: "Full catalog at the initial count, no transactions",
	},
	{
		ID:          "opening-books",
		Name:        "Opening Books",
		Description: "Historical cash sales, personal use, and three consignees with open debt",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var err error
	switch req.ScenarioID {
	case "fresh-stock":
		err = h.LoadFreshStock(ctx)
	case "opening-books":
		err = h.LoadOpeningBooks(ctx)
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// LoadFreshStock resets to a fully stocked catalog with no history.
func (h *Handler) LoadFreshStock(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	if err := h.Store.SaveSettings(ctx, ledger.DefaultSettings()); err != nil {
		return err
	}
	for _, v := range ledger.Catalog {
		if err := h.Store.SetStock(ctx, v, ledger.InitialStock); err != nil {
			return err
		}
	}
	return nil
}

// LoadOpeningBooks replays the business's opening history: standard and
// discounted cash sales, personal use, and three consignment batches.
func (h *Handler) LoadOpeningBooks(ctx context.Context) error {
	if err := h.LoadFreshStock(ctx); err != nil {
		return err
	}

	type sale struct {
		variant ledger.Variant
		qty     int
	}

	standardSales := []sale{
		{"Bubblegum", 1}, {"Matcha", 1}, {"Yakult", 1},
		{"Mango", 3}, {"Banana", 1}, {"Grapes", 2},
	}
	for _, s := range standardSales {
		if err := h.sellThrough(ctx, ledger.ChannelDirect, s.variant, s.qty); err != nil {
			return err
		}
	}

	discountSales := []sale{
		{"Banana", 1}, {"Grapes", 3}, {"Mango", 3}, {"Lemon Cola", 3}, {"Yakult", 3},
	}
	for _, s := range discountSales {
		if err := h.sellThrough(ctx, ledger.ChannelDiscount, s.variant, s.qty); err != nil {
			return err
		}
	}

	personalUse := []sale{{"Lemon Cola", 1}, {"Mango", 1}, {"Grapes", 1}}
	for _, s := range personalUse {
		if err := h.sellThrough(ctx, ledger.ChannelPersonal, s.variant, s.qty); err != nil {
			return err
		}
	}

	settings, err := h.Store.GetSettings(ctx)
	if err != nil {
		return err
	}
	price := settings.PriceConsignment

	var kj, jross []ledger.BulkEntry
	for _, v := range ledger.Catalog {
		kj = append(kj, ledger.BulkEntry{Variant: v, Quantity: 5, UnitPrice: price})
		jross = append(jross, ledger.BulkEntry{Variant: v, Quantity: 2, UnitPrice: price})
	}
	if _, err := h.Book.BulkConsign(ctx, "KJ", kj); err != nil {
		return err
	}
	if _, err := h.Book.BulkConsign(ctx, "Jross", jross); err != nil {
		return err
	}

	gerbeItems := []sale{
		{"Black Currant", 1}, {"Watermelon", 1}, {"Bubblegum", 1}, {"Grapes", 1},
		{"Lemon Cola", 1}, {"Mixed Berries", 1}, {"Blueberry", 1}, {"Strawberry", 1},
		{"Banana", 2}, {"Yakult", 1},
	}
	var gerbe []ledger.BulkEntry
	for _, s := range gerbeItems {
		gerbe = append(gerbe, ledger.BulkEntry{Variant: s.variant, Quantity: s.qty, UnitPrice: price})
	}
	if _, err := h.Book.BulkConsign(ctx, "Gerbe", gerbe); err != nil {
		return err
	}

	return nil
}

// sellThrough creates and immediately accepts a transaction at the
// channel's default price.
func (h *Handler) sellThrough(ctx context.Context, channel ledger.Channel, v ledger.Variant, qty int) error {
	tx, err := h.Lifecycle.Create(ctx, channel, v, qty, nil, "")
	if err != nil {
		return err
	}
	_, err = h.Lifecycle.Accept(ctx, tx.ID)
	return err
}
