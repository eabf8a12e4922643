package messaging

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	domorder "github.com/bitewise/checkout/internal/domain/order"
	domoutbox "github.com/bitewise/checkout/internal/domain/outbox"
	dompayment "github.com/bitewise/checkout/internal/domain/payment"
)

// ReconciliationRelay forwards compensation events that the core will
// not retry in-process (failed refunds, orphaned completions) to the
// broker for the external reconciliation collaborator.
type ReconciliationRelay struct {
	pub Publisher
	log *zap.Logger
}

func NewReconciliationRelay(pub Publisher, logger *zap.Logger) *ReconciliationRelay {
	return &ReconciliationRelay{
		pub: pub,
		log: logger.With(zap.String("component", "reconciliation_relay")),
	}
}

// Register subscribes the relay to the events it forwards.
func (r *ReconciliationRelay) Register(sub domoutbox.Subscriber) {
	sub.Subscribe(dompayment.RefundFailedEvent{}.EventName(), r.forward)
	sub.Subscribe(domorder.CompletionOrphanedEvent{}.EventName(), r.forward)
}

func (r *ReconciliationRelay) forward(ctx context.Context, e domoutbox.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.pub.Publish(ctx, e.EventName(), payload); err != nil {
		r.log.Error("relay_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
		return err
	}
	r.log.Info("relay_forwarded", zap.String("event", e.EventName()))
	return nil
}
