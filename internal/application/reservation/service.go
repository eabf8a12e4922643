package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bitewise/checkout/internal/domain/stock"
	"github.com/bitewise/checkout/internal/pkg/logging"
)

// Service performs optimistic reservation of stock across a set of
// items. Availability check and reservation are deliberately two steps;
// the race window between them is accepted because Reserve itself only
// applies conditional per-item decrements that can never oversell.
type Service struct {
	items        stock.Repository
	reservations stock.ReservationRepository
}

func NewService(items stock.Repository, reservations stock.ReservationRepository) *Service {
	return &Service{
		items:        items,
		reservations: reservations,
	}
}

// CheckAvailability reads current quantities without mutating anything.
// A missing item or a missing quantity counts as zero available.
func (s *Service) CheckAvailability(ctx context.Context, lines []stock.Line) error {
	for _, l := range lines {
		if l.Quantity <= 0 {
			return stock.ErrInvalidQuantity
		}
		item, err := s.items.Get(ctx, l.ItemID)
		if errors.Is(err, stock.ErrNotFound) {
			return fmt.Errorf("%w: %s", stock.ErrInsufficientStock, l.ItemID)
		}
		if err != nil {
			return fmt.Errorf("stock: read %s: %w", l.ItemID, err)
		}
		if item.Quantity < l.Quantity {
			return fmt.Errorf("%w: %s", stock.ErrInsufficientStock, l.ItemID)
		}
	}
	return nil
}

// Reserve applies a decrement to every line, all-or-nothing in effect.
// A reservation intent record is written before the first decrement;
// on any per-item failure the already-applied decrements are rolled
// back and the intent is marked failed.
func (s *Service) Reserve(ctx context.Context, lines []stock.Line) (*stock.Reservation, error) {
	logger := logging.FromContext(ctx).With(zap.String("component", "reservation_service"))

	res, err := stock.NewReservation(uuid.NewString(), lines)
	if err != nil {
		return nil, err
	}
	if err := s.reservations.Save(ctx, res); err != nil {
		return nil, fmt.Errorf("stock: record reservation intent: %w", err)
	}
	logger.Info("reservation_intent_recorded",
		zap.String("reservation_id", res.ID),
		zap.Int("lines", len(res.Lines)),
	)

	for _, l := range res.Lines {
		if _, err := s.items.AdjustQuantity(ctx, l.ItemID, -l.Quantity); err != nil {
			s.rollback(ctx, res)
			if errors.Is(err, stock.ErrInsufficientStock) || errors.Is(err, stock.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", stock.ErrInsufficientStock, l.ItemID)
			}
			return nil, fmt.Errorf("stock: reserve %s: %w", l.ItemID, err)
		}
		res.MarkApplied(l)
	}

	res.MarkCommitted()
	if err := s.reservations.Update(ctx, res); err != nil {
		// The decrements are in place; losing the committed marker only
		// costs release idempotency tracking, so surface the error.
		s.rollback(ctx, res)
		return nil, fmt.Errorf("stock: commit reservation: %w", err)
	}

	logger.Info("reservation_committed", zap.String("reservation_id", res.ID))
	return res.Clone(), nil
}

// Release restores the quantities the reservation actually applied.
// Safe to call repeatedly and after a partial reservation: the intent
// record tracks applied lines and the released state.
func (s *Service) Release(ctx context.Context, reservationID string) error {
	logger := logging.FromContext(ctx).With(zap.String("component", "reservation_service"))

	res, err := s.reservations.Get(ctx, reservationID)
	if errors.Is(err, stock.ErrReservationNotFound) {
		return stock.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("stock: load reservation %s: %w", reservationID, err)
	}

	switch res.State {
	case stock.ReservationReleased, stock.ReservationFailed:
		// Already rolled back or restored, nothing to do.
		return nil
	}

	var restoreErr error
	for _, l := range append([]stock.Line(nil), res.Applied...) {
		if _, err := s.items.AdjustQuantity(ctx, l.ItemID, l.Quantity); err != nil {
			restoreErr = errors.Join(restoreErr, fmt.Errorf("stock: restore %s: %w", l.ItemID, err))
			continue
		}
		// Trim the restored line from the record right away so a retry
		// after a partial failure only credits what is still outstanding.
		res.Applied = dropLine(res.Applied, l)
		if uErr := s.reservations.Update(ctx, res); uErr != nil {
			restoreErr = errors.Join(restoreErr, fmt.Errorf("stock: record restore of %s: %w", l.ItemID, uErr))
		}
	}
	if restoreErr != nil {
		logger.Error("reservation_release_partial",
			zap.String("reservation_id", res.ID),
			zap.Error(restoreErr),
		)
		return restoreErr
	}

	res.MarkReleased()
	if err := s.reservations.Update(ctx, res); err != nil {
		return fmt.Errorf("stock: mark reservation released: %w", err)
	}

	logger.Info("reservation_released", zap.String("reservation_id", res.ID))
	return nil
}

// Restock credits quantities back without an intent record. Used when a
// completion claim carries no reservation reference and the lines come
// from the persisted order document; the caller owns replay protection.
func (s *Service) Restock(ctx context.Context, lines []stock.Line) error {
	var restockErr error
	for _, l := range lines {
		if _, err := s.items.AdjustQuantity(ctx, l.ItemID, l.Quantity); err != nil {
			restockErr = errors.Join(restockErr, fmt.Errorf("stock: restock %s: %w", l.ItemID, err))
		}
	}
	return restockErr
}

// rollback restores whatever Reserve had already decremented.
func (s *Service) rollback(ctx context.Context, res *stock.Reservation) {
	logger := logging.FromContext(ctx).With(zap.String("component", "reservation_service"))

	for _, l := range res.Applied {
		if _, err := s.items.AdjustQuantity(ctx, l.ItemID, l.Quantity); err != nil {
			logger.Error("reservation_rollback_failed",
				zap.String("reservation_id", res.ID),
				zap.String("item_id", l.ItemID),
				zap.Error(err),
			)
		}
	}
	res.Applied = nil
	res.MarkFailed()
	if err := s.reservations.Update(ctx, res); err != nil {
		logger.Error("reservation_mark_failed_error",
			zap.String("reservation_id", res.ID),
			zap.Error(err),
		)
	}
}

// dropLine removes the first occurrence of target from lines.
func dropLine(lines []stock.Line, target stock.Line) []stock.Line {
	out := make([]stock.Line, 0, len(lines))
	dropped := false
	for _, l := range lines {
		if !dropped && l == target {
			dropped = true
			continue
		}
		out = append(out, l)
	}
	return out
}
