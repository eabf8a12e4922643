package workflow

import "errors"

// Every store/gateway error is mapped to one of these at the workflow
// boundary; no raw transport error crosses it. Refund failure is never
// a primary error, it travels as a warning on the result.
var (
	ErrInvalidInput       = errors.New("workflow: invalid input")
	ErrInsufficientStock  = errors.New("workflow: insufficient stock")
	ErrSignatureMismatch  = errors.New("workflow: signature mismatch")
	ErrGatewayUnavailable = errors.New("workflow: payment gateway unavailable")
	ErrOrderNotFound      = errors.New("workflow: order not found")
	ErrStore              = errors.New("workflow: ledger store failure")
)
