package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domain "github.com/bitewise/checkout/internal/domain/stock"
)

type ReservationRepository struct {
	rdb *redis.Client
}

func NewReservationRepository(rdb *redis.Client) *ReservationRepository {
	return &ReservationRepository{rdb: rdb}
}

func (r *ReservationRepository) Save(ctx context.Context, res *domain.Reservation) error {
	if res == nil || res.ID == "" {
		return fmt.Errorf("reservation repository: id is required")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("reservation repository: marshal: %w", err)
	}
	if err := r.rdb.Set(ctx, reservationKeyPrefix+res.ID, payload, 0).Err(); err != nil {
		return fmt.Errorf("reservation repository: save: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	raw, err := r.rdb.Get(ctx, reservationKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reservation repository: get: %w", err)
	}

	var res domain.Reservation
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("reservation repository: unmarshal: %w", err)
	}
	return &res, nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	if res == nil || res.ID == "" {
		return fmt.Errorf("reservation repository: id is required")
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("reservation repository: marshal: %w", err)
	}

	n, err := updateIfExists.Run(ctx, r.rdb, []string{reservationKeyPrefix + res.ID}, payload).Int()
	if err != nil {
		return fmt.Errorf("reservation repository: update: %w", err)
	}
	if n == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}
