package payment

import (
	"context"
	"errors"
)

var (
	ErrUnavailable   = errors.New("payment: gateway unavailable")
	ErrInvalidAmount = errors.New("payment: amount must be a positive integer")
	ErrRefundFailed  = errors.New("payment: refund failed")
)

// Intent references a gateway-side proposed payment. The workflow holds
// only the reference; the gateway is authoritative for money movement.
type Intent struct {
	Ref      string
	Amount   int64
	Currency string
}

type Refund struct {
	Ref    string
	Status string
}

type CreateIntentRequest struct {
	Amount         int64 // minor currency unit
	Currency       string
	IdempotencyKey string
}

type RefundRequest struct {
	PaymentRef     string
	Amount         int64
	Currency       string
	IdempotencyKey string
}

// Gateway is an at-least-once, non-transactional remote service. Calls
// are irreversible; implementations must not retry ambiguous failures
// on their own without an idempotency key.
type Gateway interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*Intent, error)
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
}
