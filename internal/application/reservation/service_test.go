package reservation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitewise/checkout/internal/domain/stock"
	"github.com/bitewise/checkout/internal/infrastructure/memory"
)

func newService(t *testing.T, seed map[string]int) (*Service, *memory.StockRepository) {
	t.Helper()
	items := memory.NewStockRepository()
	for id, qty := range seed {
		item, err := stock.NewItem(id, qty)
		require.NoError(t, err)
		require.NoError(t, items.Seed(context.Background(), item))
	}
	return NewService(items, memory.NewReservationRepository()), items
}

func quantity(t *testing.T, items *memory.StockRepository, id string) int {
	t.Helper()
	item, err := items.Get(context.Background(), id)
	require.NoError(t, err)
	return item.Quantity
}

func TestCheckAvailability(t *testing.T) {
	svc, _ := newService(t, map[string]int{"cake1": 5, "muffin2": 1})
	ctx := context.Background()

	assert.NoError(t, svc.CheckAvailability(ctx, []stock.Line{
		{ItemID: "cake1", Quantity: 5},
		{ItemID: "muffin2", Quantity: 1},
	}))

	err := svc.CheckAvailability(ctx, []stock.Line{{ItemID: "muffin2", Quantity: 2}})
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	assert.ErrorContains(t, err, "muffin2")

	// A missing item counts as zero available, not as skip-check.
	err = svc.CheckAvailability(ctx, []stock.Line{{ItemID: "ghost", Quantity: 1}})
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
}

func TestCheckAvailabilityDoesNotMutate(t *testing.T) {
	svc, items := newService(t, map[string]int{"cake1": 5})
	ctx := context.Background()

	_ = svc.CheckAvailability(ctx, []stock.Line{{ItemID: "cake1", Quantity: 3}})
	_ = svc.CheckAvailability(ctx, []stock.Line{{ItemID: "cake1", Quantity: 9}})
	assert.Equal(t, 5, quantity(t, items, "cake1"))
}

func TestReserveDecrementsEveryLine(t *testing.T) {
	svc, items := newService(t, map[string]int{"cake1": 5, "muffin2": 4})
	ctx := context.Background()

	res, err := svc.Reserve(ctx, []stock.Line{
		{ItemID: "cake1", Quantity: 2},
		{ItemID: "muffin2", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, stock.ReservationCommitted, res.State)
	assert.Equal(t, 3, quantity(t, items, "cake1"))
	assert.Equal(t, 1, quantity(t, items, "muffin2"))
}

func TestReservePartialFailureRollsBack(t *testing.T) {
	svc, items := newService(t, map[string]int{"cake1": 5, "muffin2": 1})
	ctx := context.Background()

	_, err := svc.Reserve(ctx, []stock.Line{
		{ItemID: "cake1", Quantity: 2},
		{ItemID: "muffin2", Quantity: 2},
	})
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// The cake1 decrement was applied first and must be restored.
	assert.Equal(t, 5, quantity(t, items, "cake1"))
	assert.Equal(t, 1, quantity(t, items, "muffin2"))
}

func TestReleaseRestoresPreReservationQuantities(t *testing.T) {
	svc, items := newService(t, map[string]int{"cake1": 5, "muffin2": 4})
	ctx := context.Background()

	res, err := svc.Reserve(ctx, []stock.Line{
		{ItemID: "cake1", Quantity: 2},
		{ItemID: "muffin2", Quantity: 3},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, res.ID))
	assert.Equal(t, 5, quantity(t, items, "cake1"))
	assert.Equal(t, 4, quantity(t, items, "muffin2"))
}

func TestReleaseIsIdempotent(t *testing.T) {
	svc, items := newService(t, map[string]int{"cake1": 5})
	ctx := context.Background()

	res, err := svc.Reserve(ctx, []stock.Line{{ItemID: "cake1", Quantity: 2}})
	require.NoError(t, err)

	require.NoError(t, svc.Release(ctx, res.ID))
	require.NoError(t, svc.Release(ctx, res.ID))
	require.NoError(t, svc.Release(ctx, res.ID))
	assert.Equal(t, 5, quantity(t, items, "cake1"))
}

// flakyStockRepo fails the next restore of failItem, then recovers.
type flakyStockRepo struct {
	*memory.StockRepository
	failItem string
	failures int
}

func (f *flakyStockRepo) AdjustQuantity(ctx context.Context, itemID string, delta int) (int, error) {
	if delta > 0 && itemID == f.failItem && f.failures > 0 {
		f.failures--
		return 0, errors.New("transient store failure")
	}
	return f.StockRepository.AdjustQuantity(ctx, itemID, delta)
}

func TestReleaseRetryAfterPartialFailureRestoresExactly(t *testing.T) {
	ctx := context.Background()
	items := memory.NewStockRepository()
	for _, id := range []string{"cake1", "muffin2"} {
		item, err := stock.NewItem(id, 5)
		require.NoError(t, err)
		require.NoError(t, items.Seed(ctx, item))
	}
	flaky := &flakyStockRepo{StockRepository: items, failItem: "muffin2", failures: 1}
	svc := NewService(flaky, memory.NewReservationRepository())

	res, err := svc.Reserve(ctx, []stock.Line{
		{ItemID: "cake1", Quantity: 2},
		{ItemID: "muffin2", Quantity: 2},
	})
	require.NoError(t, err)

	// First release restores cake1 but fails on muffin2.
	require.Error(t, svc.Release(ctx, res.ID))
	assert.Equal(t, 5, quantity(t, items, "cake1"))
	assert.Equal(t, 3, quantity(t, items, "muffin2"))

	// The retry must only credit the still-outstanding line.
	require.NoError(t, svc.Release(ctx, res.ID))
	assert.Equal(t, 5, quantity(t, items, "cake1"))
	assert.Equal(t, 5, quantity(t, items, "muffin2"))
}

func TestRestockCreditsLines(t *testing.T) {
	svc, items := newService(t, map[string]int{"cake1": 3})
	require.NoError(t, svc.Restock(context.Background(), []stock.Line{{ItemID: "cake1", Quantity: 2}}))
	assert.Equal(t, 5, quantity(t, items, "cake1"))
}

func TestReleaseUnknownReservation(t *testing.T) {
	svc, _ := newService(t, map[string]int{"cake1": 5})
	err := svc.Release(context.Background(), "missing")
	assert.ErrorIs(t, err, stock.ErrReservationNotFound)
}
