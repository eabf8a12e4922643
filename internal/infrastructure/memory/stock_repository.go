package memory

import (
	"context"
	"sync"

	domain "github.com/bitewise/checkout/internal/domain/stock"
)

type StockRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.Item
}

func NewStockRepository() *StockRepository {
	return &StockRepository{
		items: make(map[string]*domain.Item),
	}
}

// Seed inserts or replaces an item, used at startup and in tests.
func (r *StockRepository) Seed(ctx context.Context, item *domain.Item) error {
	_ = ctx
	if item == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = cloneItem(item)
	return nil
}

func (r *StockRepository) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[itemID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	return cloneItem(item), nil
}

// AdjustQuantity applies the delta under the write lock, the
// serialization point for concurrent reservations against one item.
// A delta that would drive the quantity negative is rejected whole.
func (r *StockRepository) AdjustQuantity(ctx context.Context, itemID string, delta int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[itemID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if item.Quantity+delta < 0 {
		return item.Quantity, domain.ErrInsufficientStock
	}

	item.Quantity += delta
	return item.Quantity, nil
}

func cloneItem(item *domain.Item) *domain.Item {
	if item == nil {
		return nil
	}
	clone := *item
	return &clone
}
