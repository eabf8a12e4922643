package stock

import "context"

// Repository is the inventory side of the ledger store. AdjustQuantity
// is the sole synchronization primitive for concurrent reservations: it
// must be an atomic per-item conditional read-modify-write that fails
// with ErrInsufficientStock when the result would be negative.
type Repository interface {
	Get(ctx context.Context, itemID string) (*Item, error)
	AdjustQuantity(ctx context.Context, itemID string, delta int) (remaining int, err error)
}

// ReservationRepository persists reservation intent records.
type ReservationRepository interface {
	Save(ctx context.Context, r *Reservation) error
	Get(ctx context.Context, id string) (*Reservation, error)
	Update(ctx context.Context, r *Reservation) error
}
