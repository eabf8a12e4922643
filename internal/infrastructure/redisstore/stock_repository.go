package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/bitewise/checkout/internal/domain/stock"
)

type StockRepository struct {
	rdb *redis.Client
}

func NewStockRepository(rdb *redis.Client) *StockRepository {
	return &StockRepository{rdb: rdb}
}

// Seed inserts or replaces an item quantity.
func (r *StockRepository) Seed(ctx context.Context, item *domain.Item) error {
	if item == nil {
		return nil
	}
	if err := r.rdb.Set(ctx, stockKeyPrefix+item.ID, item.Quantity, 0).Err(); err != nil {
		return fmt.Errorf("stock repository: seed: %w", err)
	}
	return nil
}

func (r *StockRepository) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	qty, err := r.rdb.Get(ctx, stockKeyPrefix+itemID).Int()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stock repository: get: %w", err)
	}
	return &domain.Item{ID: itemID, Quantity: qty}, nil
}

func (r *StockRepository) AdjustQuantity(ctx context.Context, itemID string, delta int) (int, error) {
	n, err := adjustQuantity.Run(ctx, r.rdb, []string{stockKeyPrefix + itemID}, delta).Int()
	if err != nil {
		return 0, fmt.Errorf("stock repository: adjust: %w", err)
	}
	switch n {
	case -1:
		return 0, domain.ErrNotFound
	case -2:
		return 0, domain.ErrInsufficientStock
	}
	return n, nil
}
