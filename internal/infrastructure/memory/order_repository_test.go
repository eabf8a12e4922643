package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bitewise/checkout/internal/domain/order"
)

func TestOrderRepositoryLifecycle(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	ord, err := domain.New("o1", []domain.Item{{ItemID: "cake1", Quantity: 2}}, 2000, "INR")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, ord))

	assert.ErrorIs(t, repo.Insert(ctx, ord), domain.ErrConflict)

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, ord.ID, got.ID)

	require.NoError(t, got.Confirm())
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, again.Final())

	require.NoError(t, repo.Delete(ctx, "o1"))
	_, err = repo.Get(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepositoryGetReturnsClone(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	ord, err := domain.New("o1", []domain.Item{{ItemID: "cake1", Quantity: 2}}, 2000, "INR")
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, ord))

	got, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	require.NoError(t, got.Cancel("test"))

	fresh, err := repo.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, fresh.Final())
}

func TestUpdateMissingOrder(t *testing.T) {
	repo := NewOrderRepository()
	ctx := context.Background()

	ord, err := domain.New("o1", []domain.Item{{ItemID: "cake1", Quantity: 2}}, 2000, "INR")
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, ord), domain.ErrNotFound)
}
