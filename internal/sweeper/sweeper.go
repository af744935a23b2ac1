// Package sweeper reconciles the two independently-expiring stores behind
// seat reservations. Redis forgets a hold the moment its TTL fires, but the
// ledger keeps the seat in held until someone tells it otherwise; the
// sweeper is that someone. It also fails pending orders whose payment flow
// never came back.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/google/uuid"
)

// Reclaimer is satisfied by the reservation coordinator. Routing the actual
// releases through the coordinator keeps every ledger mutation and its event
// publish inside the coordinator's per-showtime critical section, so
// subscribers never see a sweep release reordered against a live grant.
type Reclaimer interface {
	FailBooking(ctx context.Context, orderID uuid.UUID) error
	ReclaimSeats(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error)
}

type Sweeper struct {
	ledger       domain.LedgerRepository
	orders       domain.OrderRepository
	reclaimer    Reclaimer
	logger       *slog.Logger
	interval     time.Duration
	orderTimeout time.Duration
}

func New(
	ledger domain.LedgerRepository,
	orders domain.OrderRepository,
	reclaimer Reclaimer,
	logger *slog.Logger,
	interval time.Duration,
	orderTimeout time.Duration) *Sweeper {

	return &Sweeper{
		ledger:       ledger,
		orders:       orders,
		reclaimer:    reclaimer,
		logger:       logger,
		interval:     interval,
		orderTimeout: orderTimeout,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", "interval", s.interval, "order_timeout", s.orderTimeout)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs both reclamation duties once. Every step is idempotent and
// safe to run concurrently with live coordinator traffic: a confirmation
// racing with a sweep re-checks ledger state inside its own transaction.
func (s *Sweeper) Sweep(ctx context.Context) {
	err := s.reclaimStaleOrders(ctx)
	if err != nil {
		s.logger.Error("failed to reclaim stale orders", "error", err)
	}

	err = s.reclaimOrphanedHolds(ctx)
	if err != nil {
		s.logger.Error("failed to reclaim orphaned holds", "error", err)
	}
}

// reclaimStaleOrders fails pending orders older than the order timeout.
// This is the backstop for abandoned checkouts: the payment page was
// closed, or the gateway callback never arrived.
func (s *Sweeper) reclaimStaleOrders(ctx context.Context) error {
	cutoff := time.Now().Add(-s.orderTimeout)

	stale, err := s.orders.StalePending(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, order := range stale {
		err = s.reclaimer.FailBooking(ctx, order.ID)
		if err != nil {
			s.logger.Error("failed to fail stale order", "order_id", order.ID, "error", err)
			continue
		}

		s.logger.Info(
			"reclaimed stale pending order",
			"order_id", order.ID,
			"showtime_id", order.ShowtimeID,
			"created_at", order.CreatedAt,
		)
	}

	return nil
}

// reclaimOrphanedHolds releases ledger slots still marked held whose hold
// store lock already expired. The coordinator re-checks the hold store for
// each showtime before releasing, so a hold granted after this scan keeps
// its seats.
func (s *Sweeper) reclaimOrphanedHolds(ctx context.Context) error {
	held, err := s.ledger.HeldSeats(ctx)
	if err != nil {
		return err
	}

	byShowtime := make(map[int][]int)
	for _, slot := range held {
		byShowtime[slot.ShowtimeID] = append(byShowtime[slot.ShowtimeID], slot.SeatID)
	}

	for showtimeID, seatIDs := range byShowtime {
		released, err := s.reclaimer.ReclaimSeats(ctx, showtimeID, seatIDs)
		if err != nil {
			s.logger.Error("failed to reclaim held seats", "showtime_id", showtimeID, "error", err)
			continue
		}

		if len(released) > 0 {
			s.logger.Info("reclaimed orphaned held seats", "showtime_id", showtimeID, "seat_ids", released)
		}
	}

	return nil
}
