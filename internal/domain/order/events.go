package order

import "time"

// ConfirmedEvent is emitted when an order reaches the confirmed terminal.
type ConfirmedEvent struct {
	OrderID    string    `json:"order_id"`
	PaymentRef string    `json:"payment_ref"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (ConfirmedEvent) EventName() string { return "order.confirmed" }

func NewConfirmedEvent(o *Order) ConfirmedEvent {
	return ConfirmedEvent{
		OrderID:    o.ID,
		PaymentRef: o.GatewayPaymentID,
		OccurredAt: time.Now().UTC(),
	}
}

// CancelledEvent is emitted when an order is cancelled by the workflow.
type CancelledEvent struct {
	OrderID    string    `json:"order_id"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (CancelledEvent) EventName() string { return "order.cancelled" }

func NewCancelledEvent(o *Order) CancelledEvent {
	return CancelledEvent{
		OrderID:    o.ID,
		Reason:     o.CancellationReason,
		OccurredAt: time.Now().UTC(),
	}
}

// CompletionOrphanedEvent flags a verified completion whose order document
// no longer exists. Stock stays reserved; an external reconciler decides.
type CompletionOrphanedEvent struct {
	OrderDocID    string    `json:"order_doc_id"`
	PaymentRef    string    `json:"payment_ref"`
	ReservationID string    `json:"reservation_id"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (CompletionOrphanedEvent) EventName() string { return "order.completion_orphaned" }
