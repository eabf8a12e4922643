package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrConflict        = errors.New("order: already exists")
	ErrNoItems         = errors.New("order: at least one item is required")
	ErrInvalidQuantity = errors.New("order: item quantity must be greater than zero")
	ErrInvalidAmount   = errors.New("order: amount must be greater than zero")
	ErrFinal           = errors.New("order: already in a terminal state")
)

// PaymentStatus tracks money movement independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type Item struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// Order is the ledger document this workflow reads and transitions.
// TotalAmount is in the currency's minor unit.
type Order struct {
	ID                 string        `json:"id"`
	Items              []Item        `json:"items"`
	TotalAmount        int64         `json:"total_amount"`
	Currency           string        `json:"currency"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	Status             Status        `json:"status"`
	GatewayPaymentID   string        `json:"gateway_payment_id,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

func New(id string, items []Item, amount int64, currency string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Order{
		ID:            id,
		Items:         append([]Item(nil), items...),
		TotalAmount:   amount,
		Currency:      currency,
		PaymentStatus: PaymentPending,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Final reports whether the order has reached a terminal state.
func (o *Order) Final() bool {
	return o.Status != StatusPending
}

// AttachPayment associates the gateway payment reference, set once.
func (o *Order) AttachPayment(ref string) {
	if o.GatewayPaymentID == "" {
		o.GatewayPaymentID = ref
		o.touch()
	}
}

// Confirm moves the order to the only success terminal: both statuses
// flip to confirmed together.
func (o *Order) Confirm() error {
	if o.Final() {
		return ErrFinal
	}
	o.PaymentStatus = PaymentConfirmed
	o.Status = StatusConfirmed
	o.CancellationReason = ""
	o.touch()
	return nil
}

// Cancel terminates the order with no money captured.
func (o *Order) Cancel(reason string) error {
	if o.Final() {
		return ErrFinal
	}
	o.PaymentStatus = PaymentCancelled
	o.Status = StatusCancelled
	o.CancellationReason = reason
	o.touch()
	return nil
}

// CancelAfterCapture records the money-captured-goods-not-delivered
// terminal. The caller owns the refund attempt. Allowed from pending or
// from an already-cancelled order whose payment turned out to be real.
func (o *Order) CancelAfterCapture(reason string) error {
	if o.Status == StatusConfirmed {
		return ErrFinal
	}
	o.PaymentStatus = PaymentConfirmed
	o.Status = StatusCancelled
	o.CancellationReason = reason
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
