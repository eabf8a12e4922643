package payment

import "time"

// RefundFailedEvent captures a failed best-effort refund so an external
// retry collaborator can pick it up. The order/stock decision that
// triggered the refund is already final and is not rolled back.
type RefundFailedEvent struct {
	OrderID    string    `json:"order_id"`
	PaymentRef string    `json:"payment_ref"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (RefundFailedEvent) EventName() string { return "payment.refund_failed" }
