/*
Package ledger provides the core consignment inventory engine.

PURPOSE:
  This package contains the domain types and algorithms for a single-operator
  consignment goods business: per-variant unit stock, a transaction lifecycle
  (pending -> accepted/rejected, accepted -> deleted), consignee receivables
  with partial-payment allocation, and an append-only audit trail.

KEY CONCEPTS IN THIS FILE (types.go):
  - Variant:       A product flavor/SKU tracked as one inventory counter
  - Channel:       The sale category of a transaction (direct, discount,
                   consignment, personal use), each with a default unit price
  - Transaction:   A proposed or committed sale of one variant
  - LineItem:      One consignment commitment contributing to a consignee's debt
  - PaymentRecord: An immutable log entry for one settlement event
  - Settings:      Base cost and per-channel default prices

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money; no floats in the engine
  2. Type Safety: Strong typing for IDs prevents mixing transaction/item IDs
  3. Immutability: Payment records and audit events are append-only
  4. Reversibility: Accepted transactions are undone via explicit reversal,
     never edited in place

USAGE:
  tx, err := lifecycle.Create(ctx, ledger.ChannelDirect, "Mango", 3, nil, "")
  err = lifecycle.Accept(ctx, tx.ID)

SEE ALSO:
  - lifecycle.go: Transaction state machine
  - consignee.go: Receivables and payment allocation
  - inventory.go: Stock debit/credit/snapshot
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG - Fixed variant list and stock policy constants
// =============================================================================

// Catalog is the fixed set of tracked variants. Inventory is keyed by these
// names; transactions against unknown variants are rejected.
var Catalog = []Variant{
	"Black Currant", "Matcha", "Watermelon", "Bubblegum", "Mango", "Grapes",
	"Lemon Cola", "Mixed Berries", "Blueberry", "Strawberry", "Banana", "Yakult",
}

const (
	// InitialStock is the seeded unit count per variant.
	InitialStock = 15

	// LowStockThreshold flags variants that need restocking. Counts strictly
	// below this value are reported as low stock.
	LowStockThreshold = 3
)

// KnownVariant reports whether v is part of the fixed catalog.
func KnownVariant(v Variant) bool {
	for _, c := range Catalog {
		if c == v {
			return true
		}
	}
	return false
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type Variant string
type Consignee string
type TransactionID string
type LineItemID string
type PaymentID string

// =============================================================================
// CHANNEL - Sale category
// =============================================================================

type Channel string

const (
	ChannelDirect      Channel = "direct_sale"
	ChannelDiscount    Channel = "discount_sale"
	ChannelConsignment Channel = "consignment"
	ChannelPersonal    Channel = "personal_use"
)

// Channels lists all valid channels.
var Channels = []Channel{ChannelDirect, ChannelDiscount, ChannelConsignment, ChannelPersonal}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	for _, ch := range Channels {
		if ch == c {
			return true
		}
	}
	return false
}

// RequiresConsignee reports whether transactions on this channel must name
// a consignee.
func (c Channel) RequiresConsignee() bool {
	return c == ChannelConsignment
}

// =============================================================================
// TRANSACTION - A sale proposal moving through the lifecycle
// =============================================================================

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Transaction is a single sale proposal. It is owned by the Lifecycle for its
// whole life: created as pending (no inventory effect), then accepted (stock
// debited, ledger effects committed) or rejected. Accepted transactions can
// only be removed via Delete, which reverses the inventory debit.
type Transaction struct {
	ID        TransactionID
	Channel   Channel
	Variant   Variant
	Quantity  int
	UnitPrice decimal.Decimal

	// Consignee is set iff Channel == ChannelConsignment.
	Consignee Consignee

	Status     Status
	CreatedAt  time.Time
	AcceptedAt *time.Time
}

// Total returns Quantity x UnitPrice.
func (t Transaction) Total() decimal.Decimal {
	return t.UnitPrice.Mul(decimal.NewFromInt(int64(t.Quantity)))
}

// =============================================================================
// LINE ITEM - One consignment commitment on a consignee's ledger
// =============================================================================

// LineItem belongs to exactly one consignee and originates from exactly one
// accepted consignment transaction (OriginTxID). AmountPaid accumulates
// settlements; once Paid is true the item is excluded from future allocation.
//
// Invariant: decimal.Zero <= AmountPaid <= Total().
type LineItem struct {
	ID         LineItemID
	Consignee  Consignee
	Variant    Variant
	Quantity   int
	UnitPrice  decimal.Decimal
	AmountPaid decimal.Decimal
	Paid       bool
	OriginTxID TransactionID
	CreatedAt  time.Time
}

// Total returns Quantity x UnitPrice.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Outstanding returns the unpaid remainder of this item. Zero once settled.
func (li LineItem) Outstanding() decimal.Decimal {
	if li.Paid {
		return decimal.Zero
	}
	return li.Total().Sub(li.AmountPaid)
}

// =============================================================================
// PAYMENT RECORD - Immutable settlement log entry
// =============================================================================

type PaymentKind string

const (
	PaymentFull    PaymentKind = "full"
	PaymentPartial PaymentKind = "partial"
)

type PaymentItemStatus string

const (
	ItemFullyPaid     PaymentItemStatus = "fully_paid"
	ItemPartiallyPaid PaymentItemStatus = "partially_paid"
)

// PaymentItem records the effect of one settlement on one line item.
// Only items actually touched by the settlement appear in the record.
type PaymentItem struct {
	LineItemID LineItemID        `json:"line_item_id"`
	Variant    Variant           `json:"variant"`
	Quantity   int               `json:"quantity"`
	Amount     decimal.Decimal   `json:"amount"`
	Status     PaymentItemStatus `json:"status"`
}

// PaymentRecord is one settlement event against a consignee's ledger.
type PaymentRecord struct {
	ID            PaymentID
	Consignee     Consignee
	Kind          PaymentKind
	Amount        decimal.Decimal
	RemainingDebt decimal.Decimal
	Items         []PaymentItem
	CreatedAt     time.Time
}

// =============================================================================
// SETTINGS - Pricing configuration (single persisted record)
// =============================================================================

// Settings holds the base unit cost and the default unit price per channel.
// The lifecycle reads it only to pre-fill prices on creation; changing
// settings never retroactively affects existing transactions.
//
// CapitalUnits is the number of units initially stocked, fixed at seed time.
// CapitalUnits x BaseCost anchors the net-profit calculation.
type Settings struct {
	BaseCost         decimal.Decimal
	PriceDirect      decimal.Decimal
	PriceDiscount    decimal.Decimal
	PriceConsignment decimal.Decimal
	PricePersonal    decimal.Decimal
	CapitalUnits     int
}

// DefaultSettings returns the standard pricing for a fresh catalog.
func DefaultSettings() Settings {
	return Settings{
		BaseCost:         decimal.NewFromInt(150),
		PriceDirect:      decimal.NewFromInt(300),
		PriceDiscount:    decimal.NewFromInt(280),
		PriceConsignment: decimal.NewFromInt(250),
		PricePersonal:    decimal.NewFromInt(150),
		CapitalUnits:     len(Catalog) * InitialStock,
	}
}

// PriceFor returns the default unit price for a channel.
func (s Settings) PriceFor(c Channel) decimal.Decimal {
	switch c {
	case ChannelDirect:
		return s.PriceDirect
	case ChannelDiscount:
		return s.PriceDiscount
	case ChannelConsignment:
		return s.PriceConsignment
	case ChannelPersonal:
		return s.PricePersonal
	default:
		return decimal.Zero
	}
}

// CapitalInvested returns the fixed profit-calculation anchor:
// initially stocked units x base cost.
func (s Settings) CapitalInvested() decimal.Decimal {
	return s.BaseCost.Mul(decimal.NewFromInt(int64(s.CapitalUnits)))
}
