package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bitewise/checkout/internal/domain/stock"
)

func TestAdjustQuantityConditional(t *testing.T) {
	repo := NewStockRepository()
	ctx := context.Background()

	item, err := domain.NewItem("cake1", 5)
	require.NoError(t, err)
	require.NoError(t, repo.Seed(ctx, item))

	remaining, err := repo.AdjustQuantity(ctx, "cake1", -3)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	_, err = repo.AdjustQuantity(ctx, "cake1", -3)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	got, err := repo.Get(ctx, "cake1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)

	_, err = repo.AdjustQuantity(ctx, "ghost", -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdjustQuantityNeverOversellsUnderContention(t *testing.T) {
	repo := NewStockRepository()
	ctx := context.Background()

	item, err := domain.NewItem("cake1", 50)
	require.NoError(t, err)
	require.NoError(t, repo.Seed(ctx, item))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AdjustQuantity(ctx, "cake1", -1); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrInsufficientStock) {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	got, err := repo.Get(ctx, "cake1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
}
