package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/bitewise/checkout/internal/domain/stock"
)

type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*domain.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		reservations: make(map[string]*domain.Reservation),
	}
}

func (r *ReservationRepository) Save(ctx context.Context, res *domain.Reservation) error {
	_ = ctx
	if res == nil || res.ID == "" {
		return fmt.Errorf("reservation repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reservations[res.ID] = res.Clone()
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (*domain.Reservation, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}

	return res.Clone(), nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	_ = ctx
	if res == nil || res.ID == "" {
		return fmt.Errorf("reservation repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[res.ID]; !exists {
		return domain.ErrReservationNotFound
	}

	r.reservations[res.ID] = res.Clone()
	return nil
}
