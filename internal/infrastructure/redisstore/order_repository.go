package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/bitewise/checkout/internal/domain/order"
)

type OrderRepository struct {
	rdb *redis.Client
}

func NewOrderRepository(rdb *redis.Client) *OrderRepository {
	return &OrderRepository{rdb: rdb}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("order repository: marshal: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, orderKeyPrefix+order.ID, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("order repository: insert: %w", err)
	}
	if !ok {
		return domain.ErrConflict
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	raw, err := r.rdb.Get(ctx, orderKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("order repository: get: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("order repository: unmarshal: %w", err)
	}
	return &order, nil
}

func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("order repository: marshal: %w", err)
	}

	n, err := updateIfExists.Run(ctx, r.rdb, []string{orderKeyPrefix + order.ID}, payload).Int()
	if err != nil {
		return fmt.Errorf("order repository: update: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
