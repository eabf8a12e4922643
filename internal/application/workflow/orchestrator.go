package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bitewise/checkout/internal/application/reservation"
	domorder "github.com/bitewise/checkout/internal/domain/order"
	"github.com/bitewise/checkout/internal/domain/outbox"
	dompayment "github.com/bitewise/checkout/internal/domain/payment"
	"github.com/bitewise/checkout/internal/domain/stock"
	"github.com/bitewise/checkout/internal/pkg/logging"
	"github.com/bitewise/checkout/internal/pkg/signature"
)

const (
	opCreateIntent = "create_intent"
	opComplete     = "complete"

	reasonSignatureMismatch = "signature_mismatch"
	reasonOrderCancelled    = "order_already_cancelled"
	reasonFinalizeFailed    = "finalize_failed"

	refundTimeout = 5 * time.Second
)

// Orchestrator sequences reservation, payment-intent creation,
// signature verification and compensation across the ledger store and
// the payment gateway. Neither side offers a transaction spanning both,
// so side effects are ordered: stock is reserved before money moves,
// and every failure after a side effect runs the matching compensation.
type Orchestrator struct {
	orders    domorder.Repository
	stock     *reservation.Service
	gateway   dompayment.Gateway
	verifier  *signature.Verifier
	publisher outbox.Publisher
	tracer    trace.Tracer
	currency  string
	outcomes  *prometheus.CounterVec // workflow_outcomes_total{operation,outcome}
}

func NewOrchestrator(
	orders domorder.Repository,
	stockSvc *reservation.Service,
	gateway dompayment.Gateway,
	verifier *signature.Verifier,
	publisher outbox.Publisher,
	currency string,
	outcomes *prometheus.CounterVec,
) *Orchestrator {
	return &Orchestrator{
		orders:    orders,
		stock:     stockSvc,
		gateway:   gateway,
		verifier:  verifier,
		publisher: publisher,
		tracer:    otel.Tracer("checkout-workflow"),
		currency:  currency,
		outcomes:  outcomes,
	}
}

type CreateIntentInput struct {
	Amount int64
	Items  []domorder.Item
}

type IntentResult struct {
	IntentRef     string
	ReservationID string
	Amount        int64
	Currency      string
}

// CreateIntent reserves stock and brokers a payment intent. On a check
// failure nothing was touched; on a gateway failure the reservation is
// released before the error surfaces.
func (o *Orchestrator) CreateIntent(ctx context.Context, in CreateIntentInput) (_ *IntentResult, err error) {
	ctx, span := o.tracer.Start(ctx, "Workflow.CreateIntent",
		trace.WithAttributes(attribute.Int64("order.amount", in.Amount)),
	)
	defer func() { o.finish(span, opCreateIntent, err) }()

	logger := logging.FromContext(ctx).With(zap.String("component", "workflow"))

	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	lines := make([]stock.Line, 0, len(in.Items))
	for _, it := range in.Items {
		if it.ItemID == "" || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item id and positive quantity are required", ErrInvalidInput)
		}
		lines = append(lines, stock.Line{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	if err := o.stock.CheckAvailability(ctx, lines); err != nil {
		if errors.Is(err, stock.ErrInsufficientStock) || errors.Is(err, stock.ErrInvalidQuantity) {
			logger.Info("intent_rejected_insufficient_stock", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	res, err := o.stock.Reserve(ctx, lines)
	if err != nil {
		// Lost the race after a passing check; Reserve rolled back any
		// partial decrement already.
		if errors.Is(err, stock.ErrInsufficientStock) {
			logger.Info("reserve_lost_race", zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrInsufficientStock, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	span.SetAttributes(attribute.String("reservation.id", res.ID))

	intent, err := o.gateway.CreateIntent(ctx, dompayment.CreateIntentRequest{
		Amount:         in.Amount,
		Currency:       o.currency,
		IdempotencyKey: res.ID + ":1",
	})
	if err != nil {
		logger.Warn("gateway_intent_failed", zap.String("reservation_id", res.ID), zap.Error(err))
		o.releaseStock(ctx, logger, res.ID, nil)
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	logger.Info("intent_issued",
		zap.String("intent_ref", intent.Ref),
		zap.String("reservation_id", res.ID),
		zap.Int64("amount", intent.Amount),
	)
	return &IntentResult{
		IntentRef:     intent.Ref,
		ReservationID: res.ID,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
	}, nil
}

type CompleteInput struct {
	OrderRef   string
	PaymentRef string
	Signature  string
	OrderDocID string
	// ReservationID is optional. When present, compensation releases the
	// exact reservation record; when absent, restock lines are derived
	// from the persisted order document.
	ReservationID string
}

const (
	StatusConfirmed   = "confirmed"
	StatusCompensated = "compensated"
)

type CompleteResult struct {
	Status        string
	Reason        string
	RefundWarning string
}

// Complete settles a client-submitted completion claim. The signature
// decides forged vs verified; all financial and inventory facts on the
// verified path are re-derived from the persisted order, never from the
// claim.
func (o *Orchestrator) Complete(ctx context.Context, in CompleteInput) (_ *CompleteResult, err error) {
	ctx, span := o.tracer.Start(ctx, "Workflow.Complete",
		trace.WithAttributes(attribute.String("order.doc_id", in.OrderDocID)),
	)
	defer func() { o.finish(span, opComplete, err) }()

	logger := logging.FromContext(ctx).With(
		zap.String("component", "workflow"),
		zap.String("order_doc_id", in.OrderDocID),
	)

	if in.OrderRef == "" || in.PaymentRef == "" || in.Signature == "" || in.OrderDocID == "" {
		return nil, fmt.Errorf("%w: order_ref, payment_ref, signature and order_doc_id are required", ErrInvalidInput)
	}

	if !o.verifier.Verify(in.OrderRef, in.PaymentRef, in.Signature) {
		return nil, o.compensateForged(ctx, logger, in)
	}
	span.AddEvent("signature.verified")

	ord, err := o.orders.Get(ctx, in.OrderDocID)
	if errors.Is(err, domorder.ErrNotFound) {
		// Stock stays reserved: the claim's item list is untrusted, so
		// there is nothing trustworthy to release against. Flag it for
		// manual reconciliation instead of guessing.
		logger.Warn("reconciliation_required",
			zap.String("payment_ref", in.PaymentRef),
			zap.String("reservation_id", in.ReservationID),
		)
		o.publish(ctx, domorder.CompletionOrphanedEvent{
			OrderDocID:    in.OrderDocID,
			PaymentRef:    in.PaymentRef,
			ReservationID: in.ReservationID,
			OccurredAt:    time.Now().UTC(),
		})
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	switch ord.Status {
	case domorder.StatusConfirmed:
		// Idempotent replay of an already-settled completion.
		logger.Info("complete_replayed")
		return &CompleteResult{Status: StatusConfirmed}, nil
	case domorder.StatusCancelled:
		return o.compensateCaptured(ctx, logger, ord, in, reasonOrderCancelled)
	}

	ord.AttachPayment(in.PaymentRef)
	if err := ord.Confirm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if err := o.orders.Update(ctx, ord); err != nil {
		logger.Error("finalize_update_failed", zap.Error(err))
		result, _ := o.compensateCaptured(ctx, logger, ord, in, reasonFinalizeFailed)
		if result != nil && result.RefundWarning != "" {
			logger.Warn("finalize_refund_warning", zap.String("warning", result.RefundWarning))
		}
		return nil, fmt.Errorf("%w: finalize: %v", ErrStore, err)
	}

	o.publish(ctx, domorder.NewConfirmedEvent(ord))
	logger.Info("order_confirmed", zap.String("payment_ref", in.PaymentRef))
	return &CompleteResult{Status: StatusConfirmed}, nil
}

// compensateForged handles a claim that failed signature verification:
// restock, cancel the order, no refund (no genuine capture under this
// claim).
func (o *Orchestrator) compensateForged(ctx context.Context, logger *zap.Logger, in CompleteInput) error {
	logger.Warn("signature_mismatch", zap.String("order_ref", in.OrderRef))

	ord, err := o.orders.Get(ctx, in.OrderDocID)
	if err != nil {
		ord = nil
	}

	cancelled := false
	if ord != nil && !ord.Final() {
		if cErr := ord.Cancel(reasonSignatureMismatch); cErr == nil {
			if uErr := o.orders.Update(ctx, ord); uErr != nil {
				logger.Error("forged_cancel_update_failed", zap.Error(uErr))
			} else {
				cancelled = true
				o.publish(ctx, domorder.NewCancelledEvent(ord))
			}
		}
	}

	switch {
	case in.ReservationID != "":
		o.releaseStock(ctx, logger, in.ReservationID, nil)
	case cancelled:
		// The order document is the only trusted line source here, and
		// Cancel succeeds exactly once, so the restock cannot replay.
		o.releaseStock(ctx, logger, "", ord)
	}

	return ErrSignatureMismatch
}

// compensateCaptured settles the money-captured-goods-not-delivered
// terminal: restock, record the captured-then-cancelled state with a
// reason, and attempt one best-effort refund derived from the persisted
// order amount.
func (o *Orchestrator) compensateCaptured(ctx context.Context, logger *zap.Logger, ord *domorder.Order, in CompleteInput, reason string) (*CompleteResult, error) {
	// A replayed claim against an already-compensated order must not
	// restock a second time. With a reservation id the intent record
	// guarantees that; without one the captured-then-cancelled state of
	// the order is the replay marker.
	replayed := ord.PaymentStatus == domorder.PaymentConfirmed && ord.Status == domorder.StatusCancelled
	switch {
	case in.ReservationID != "":
		o.releaseStock(ctx, logger, in.ReservationID, nil)
	case !replayed:
		o.releaseStock(ctx, logger, "", ord)
	}

	ord.AttachPayment(in.PaymentRef)
	if err := ord.CancelAfterCapture(reason); err == nil {
		if uErr := o.orders.Update(ctx, ord); uErr != nil {
			logger.Error("compensation_update_failed", zap.Error(uErr))
		} else {
			o.publish(ctx, domorder.NewCancelledEvent(ord))
		}
	}

	warning := o.attemptRefund(ctx, logger, ord, in.PaymentRef)
	logger.Info("order_compensated", zap.String("reason", reason))
	return &CompleteResult{
		Status:        StatusCompensated,
		Reason:        reason,
		RefundWarning: warning,
	}, nil
}

// releaseStock returns reserved quantities to the pool. A reservation id
// drives an exact, idempotent release via the intent record; without one
// the lines come from the persisted order document.
func (o *Orchestrator) releaseStock(ctx context.Context, logger *zap.Logger, reservationID string, ord *domorder.Order) {
	if reservationID != "" {
		if err := o.stock.Release(ctx, reservationID); err != nil &&
			!errors.Is(err, stock.ErrReservationNotFound) {
			logger.Error("compensation_release_failed",
				zap.String("reservation_id", reservationID),
				zap.Error(err),
			)
		}
		return
	}
	if ord == nil {
		return
	}

	lines := make([]stock.Line, 0, len(ord.Items))
	for _, it := range ord.Items {
		lines = append(lines, stock.Line{ItemID: it.ItemID, Quantity: it.Quantity})
	}
	if err := o.stock.Restock(ctx, lines); err != nil {
		logger.Error("compensation_restock_failed",
			zap.String("order_id", ord.ID),
			zap.Error(err),
		)
	}
}

// attemptRefund issues a single bounded refund call. Failure never
// alters the already-decided order/stock state: it comes back as a
// warning and is handed to the external retry collaborator via the
// outbox.
func (o *Orchestrator) attemptRefund(ctx context.Context, logger *zap.Logger, ord *domorder.Order, paymentRef string) string {
	currency := ord.Currency
	if currency == "" {
		currency = o.currency
	}

	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	_, err := o.gateway.Refund(refundCtx, dompayment.RefundRequest{
		PaymentRef:     paymentRef,
		Amount:         ord.TotalAmount, // persisted amount, never client input
		Currency:       currency,
		IdempotencyKey: ord.ID + ":refund:1",
	})
	if err == nil {
		logger.Info("refund_issued",
			zap.String("payment_ref", paymentRef),
			zap.Int64("amount", ord.TotalAmount),
		)
		return ""
	}

	logger.Warn("refund_failed",
		zap.String("payment_ref", paymentRef),
		zap.Int64("amount", ord.TotalAmount),
		zap.Error(err),
	)
	o.publish(ctx, dompayment.RefundFailedEvent{
		OrderID:    ord.ID,
		PaymentRef: paymentRef,
		Amount:     ord.TotalAmount,
		Currency:   currency,
		Reason:     err.Error(),
		OccurredAt: time.Now().UTC(),
	})
	return "refund_failed: " + err.Error()
}

func (o *Orchestrator) publish(ctx context.Context, e outbox.Event) {
	if o.publisher == nil {
		return
	}
	// Compensation events are the durable record of work still owed;
	// delivery must not depend on the request staying open.
	detached := context.WithoutCancel(ctx)
	if err := o.publisher.Publish(detached, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) finish(span trace.Span, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = outcomeLabel(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if o.outcomes != nil {
		o.outcomes.WithLabelValues(operation, outcome).Inc()
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, ErrGatewayUnavailable):
		return "gateway_unavailable"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	default:
		return "store_error"
	}
}
