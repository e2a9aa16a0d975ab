/*
audit.go - Append-only audit trail of domain events

PURPOSE:
  Every mutating operation in the engine records a domain event after its
  own state change succeeds. Events are never mutated or deleted. Failed
  operations (validation, state check, stock check) never produce events:
  the audit append happens inside the same WithTx closure as the state
  change, so a rollback discards both together.

DETAIL PAYLOADS:
  Each event type carries its own fixed detail struct rather than an
  untyped map. EventDetail is a sealed tagged union; stores serialize
  details as JSON keyed by the event type and decode them back through
  UnmarshalDetail.

FAILURE MODE:
  An audit append failure aborts the surrounding operation. Audit
  durability is load-bearing: the success path of every other component
  depends on its event being recorded.

SEE ALSO:
  - store.go: AppendAudit/ListAudit on the Store interface
  - lifecycle.go, consignee.go: Event producers
*/
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

type EventType string

const (
	EventTransactionCreated  EventType = "transaction_created"
	EventTransactionAccepted EventType = "transaction_accepted"
	EventTransactionRejected EventType = "transaction_rejected"
	EventTransactionDeleted  EventType = "transaction_deleted"
	EventPartialPayment      EventType = "consignee_partial_payment"
	EventFullPayment         EventType = "consignee_full_payment"
	EventBulkConsignment     EventType = "bulk_consignment_added"
)

// AuditEvent is one immutable entry in the audit trail.
type AuditEvent struct {
	ID        string
	Type      EventType
	CreatedAt time.Time
	Detail    EventDetail
}

// =============================================================================
// DETAIL PAYLOADS - Tagged union, one fixed struct per event type
// =============================================================================

// EventDetail is implemented only by the detail structs in this file.
type EventDetail interface {
	eventDetail()
}

// TransactionDetail accompanies the four transaction lifecycle events.
type TransactionDetail struct {
	TransactionID TransactionID   `json:"transaction_id"`
	Channel       Channel         `json:"channel"`
	Variant       Variant         `json:"variant"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Consignee     Consignee       `json:"consignee,omitempty"`
	Status        Status          `json:"status,omitempty"`

	// InventoryRestored is set on transaction_deleted events.
	InventoryRestored bool `json:"inventory_restored,omitempty"`
}

func (TransactionDetail) eventDetail() {}

// PaymentDetail accompanies consignee_partial_payment and
// consignee_full_payment events.
type PaymentDetail struct {
	Consignee     Consignee       `json:"consignee"`
	Amount        decimal.Decimal `json:"amount"`
	RemainingDebt decimal.Decimal `json:"remaining_debt"`
	Kind          PaymentKind     `json:"payment_type"`
	Items         []PaymentItem   `json:"items_paid,omitempty"`
}

func (PaymentDetail) eventDetail() {}

// BulkConsignmentDetail accompanies bulk_consignment_added events.
type BulkConsignmentDetail struct {
	Consignee Consignee       `json:"consignee"`
	ItemCount int             `json:"items_count"`
	Total     decimal.Decimal `json:"total"`
	Added     []BulkItemAdded `json:"items"`
}

// BulkItemAdded describes one entry of a committed bulk batch.
type BulkItemAdded struct {
	Variant   Variant         `json:"variant"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

func (BulkConsignmentDetail) eventDetail() {}

// =============================================================================
// SERIALIZATION - Shared by the store implementations
// =============================================================================

// MarshalDetail encodes an event's detail payload as JSON.
func MarshalDetail(d EventDetail) ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDetail decodes a detail payload into the concrete struct for
// the given event type.
func UnmarshalDetail(t EventType, data []byte) (EventDetail, error) {
	switch t {
	case EventTransactionCreated, EventTransactionAccepted,
		EventTransactionRejected, EventTransactionDeleted:
		var d TransactionDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case EventPartialPayment, EventFullPayment:
		var d PaymentDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case EventBulkConsignment:
		var d BulkConsignmentDetail
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown audit event type %q", t)
	}
}

// =============================================================================
// AUDIT TRAIL SERVICE
// =============================================================================

// AuditTrail exposes the audit log to callers outside the engine.
// Filtering by type or consignee is a presentation concern; Query returns
// the full ordered sequence.
type AuditTrail struct {
	store Store
}

func NewAuditTrail(store Store) *AuditTrail {
	return &AuditTrail{store: store}
}

// Query returns every audit event in append order.
func (a *AuditTrail) Query(ctx context.Context) ([]AuditEvent, error) {
	return a.store.ListAudit(ctx)
}

// appendAudit records a domain event through the given store view.
// Called inside WithTx closures, after the operation's own state change.
func appendAudit(ctx context.Context, s Store, t EventType, d EventDetail) error {
	e := AuditEvent{
		ID:        uuid.NewString(),
		Type:      t,
		CreatedAt: time.Now().UTC(),
		Detail:    d,
	}
	if err := s.AppendAudit(ctx, e); err != nil {
		return fmt.Errorf("failed to append audit event %s: %w", t, err)
	}
	return nil
}
