package stock

import (
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("stock: item not found")
	ErrInvalidQuantity     = errors.New("stock: quantity must be greater than zero")
	ErrInsufficientStock   = errors.New("stock: insufficient stock")
	ErrReservationNotFound = errors.New("stock: reservation not found")
)

// Item is the only mutable inventory record in the workflow. Quantity
// never goes negative; the repository rejects any adjust that would.
type Item struct {
	ID        string    `json:"id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewItem(id string, quantity int) (*Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	return &Item{
		ID:        id,
		Quantity:  quantity,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

type Line struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type ReservationState string

const (
	ReservationPending   ReservationState = "pending"
	ReservationCommitted ReservationState = "committed"
	ReservationReleased  ReservationState = "released"
	ReservationFailed    ReservationState = "failed"
)

// Reservation is the intent record written before any decrement is
// applied. Applied tracks which lines actually landed so that release
// is exact even after a partial reservation, and idempotent afterwards.
type Reservation struct {
	ID        string           `json:"id"`
	Lines     []Line           `json:"lines"`
	Applied   []Line           `json:"applied,omitempty"`
	State     ReservationState `json:"state"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewReservation(id string, lines []Line) (*Reservation, error) {
	if len(lines) == 0 {
		return nil, ErrInvalidQuantity
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}
	now := time.Now().UTC()
	return &Reservation{
		ID:        id,
		Lines:     append([]Line(nil), lines...),
		State:     ReservationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *Reservation) MarkApplied(line Line) {
	r.Applied = append(r.Applied, line)
	r.touch()
}

func (r *Reservation) MarkCommitted() {
	r.State = ReservationCommitted
	r.touch()
}

func (r *Reservation) MarkReleased() {
	r.State = ReservationReleased
	r.touch()
}

func (r *Reservation) MarkFailed() {
	r.State = ReservationFailed
	r.touch()
}

func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Lines = append([]Line(nil), r.Lines...)
	clone.Applied = append([]Line(nil), r.Applied...)
	return &clone
}

func (r *Reservation) touch() {
	r.UpdatedAt = time.Now().UTC()
}
