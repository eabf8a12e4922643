package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domoutbox "github.com/bitewise/checkout/internal/domain/outbox"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	bus.Subscribe("payment.refund_failed", func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		got = append(got, e.EventName())
		mu.Unlock()
		close(done)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "payment.refund_failed"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"payment.refund_failed"}, got)
}

func TestBusDropsUnsubscribedEvents(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	assert.NoError(t, bus.Publish(context.Background(), testEvent{name: "nobody.listens"}))
}

func TestPublishAfterStopReturnsError(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	bus.Stop(context.Background())

	err := bus.Publish(context.Background(), testEvent{name: "late"})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestBusRecoversFromPanickingHandler(t *testing.T) {
	bus := NewBus(zap.NewNop())
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	done := make(chan struct{})
	bus.Subscribe("boom", func(_ context.Context, _ domoutbox.Event) error {
		panic("handler exploded")
	})
	bus.Subscribe("after", func(_ context.Context, _ domoutbox.Event) error {
		close(done)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "boom"}))
	require.NoError(t, bus.Publish(context.Background(), testEvent{name: "after"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("bus stopped dispatching after a panic")
	}
}
