package sweeper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/cinetix/cinetix/internal/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockReclaimer struct {
	mu        sync.Mutex
	failed    []uuid.UUID
	reclaimed map[int][]int

	failErr    error
	reclaimErr error
	released   map[int][]int
}

func newMockReclaimer() *mockReclaimer {
	return &mockReclaimer{
		reclaimed: make(map[int][]int),
		released:  make(map[int][]int),
	}
}

func (m *mockReclaimer) FailBooking(ctx context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed = append(m.failed, orderID)

	return m.failErr
}

func (m *mockReclaimer) ReclaimSeats(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reclaimed[showtimeID] = append(m.reclaimed[showtimeID], seatIDs...)

	if m.reclaimErr != nil {
		return nil, m.reclaimErr
	}

	return m.released[showtimeID], nil
}

type SweeperTestSuite struct {
	suite.Suite
	ledger    *mocks.MockLedgerRepo
	orders    *mocks.MockOrderRepo
	reclaimer *mockReclaimer
	sweeper   *Sweeper
}

func (s *SweeperTestSuite) SetupTest() {
	s.ledger = new(mocks.MockLedgerRepo)
	s.orders = new(mocks.MockOrderRepo)
	s.reclaimer = newMockReclaimer()

	s.sweeper = New(
		s.ledger,
		s.orders,
		s.reclaimer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		time.Minute,
		30*time.Minute,
	)
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

func (s *SweeperTestSuite) TestReclaimStaleOrders() {
	ctx := context.Background()

	s.Run("should fail every stale pending order", func() {
		s.SetupTest()

		staleOrders := []domain.Order{
			{ID: uuid.New(), ShowtimeID: 1, Status: domain.OrderStatusPending},
			{ID: uuid.New(), ShowtimeID: 2, Status: domain.OrderStatusPending},
		}

		s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(staleOrders, nil)
		s.ledger.On("HeldSeats", mock.Anything).Return([]domain.SeatSlot{}, nil)

		s.sweeper.Sweep(ctx)

		s.Len(s.reclaimer.failed, 2)
		s.Equal(staleOrders[0].ID, s.reclaimer.failed[0])
		s.Equal(staleOrders[1].ID, s.reclaimer.failed[1])
	})

	s.Run("should keep sweeping when one order fails to fail", func() {
		s.SetupTest()

		staleOrders := []domain.Order{
			{ID: uuid.New(), Status: domain.OrderStatusPending},
			{ID: uuid.New(), Status: domain.OrderStatusPending},
		}

		s.reclaimer.failErr = fmt.Errorf("db down")

		s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
			Return(staleOrders, nil)
		s.ledger.On("HeldSeats", mock.Anything).Return([]domain.SeatSlot{}, nil)

		s.sweeper.Sweep(ctx)

		s.Len(s.reclaimer.failed, 2)
	})

	s.Run("should pass the order timeout as the cutoff", func() {
		s.SetupTest()

		var cutoff time.Time

		s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				cutoff = args.Get(1).(time.Time)
			}).
			Return([]domain.Order{}, nil)
		s.ledger.On("HeldSeats", mock.Anything).Return([]domain.SeatSlot{}, nil)

		s.sweeper.Sweep(ctx)

		s.WithinDuration(time.Now().Add(-30*time.Minute), cutoff, time.Minute)
	})
}

func (s *SweeperTestSuite) TestReclaimOrphanedHolds() {
	ctx := context.Background()

	s.Run("should hand each showtime's held slots to the reclaimer", func() {
		s.SetupTest()

		held := []domain.SeatSlot{
			{ShowtimeID: 1, SeatID: 1, State: domain.SeatHeld},
			{ShowtimeID: 1, SeatID: 2, State: domain.SeatHeld},
			{ShowtimeID: 2, SeatID: 1, State: domain.SeatHeld},
		}

		s.reclaimer.released[1] = []int{1, 2}
		s.reclaimer.released[2] = []int{1}

		s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]domain.Order{}, nil)
		s.ledger.On("HeldSeats", mock.Anything).Return(held, nil)

		s.sweeper.Sweep(ctx)

		s.Equal([]int{1, 2}, s.reclaimer.reclaimed[1])
		s.Equal([]int{1}, s.reclaimer.reclaimed[2])
	})

	s.Run("should not invoke the reclaimer when nothing is held", func() {
		s.SetupTest()

		s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]domain.Order{}, nil)
		s.ledger.On("HeldSeats", mock.Anything).Return([]domain.SeatSlot{}, nil)

		s.sweeper.Sweep(ctx)

		s.Empty(s.reclaimer.reclaimed)
	})

	s.Run("should continue past a reclaim failure for one showtime", func() {
		s.SetupTest()

		held := []domain.SeatSlot{
			{ShowtimeID: 1, SeatID: 1, State: domain.SeatHeld},
			{ShowtimeID: 2, SeatID: 5, State: domain.SeatHeld},
		}

		s.reclaimer.reclaimErr = fmt.Errorf("%w: timeout", domain.ErrStoreUnavailable)

		s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
			Return([]domain.Order{}, nil)
		s.ledger.On("HeldSeats", mock.Anything).Return(held, nil)

		s.sweeper.Sweep(ctx)

		s.Len(s.reclaimer.reclaimed, 2)
	})
}

func (s *SweeperTestSuite) TestRunStopsOnContextCancel() {
	s.SetupTest()

	s.orders.On("StalePending", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Order{}, nil).Maybe()
	s.ledger.On("HeldSeats", mock.Anything).Return([]domain.SeatSlot{}, nil).Maybe()

	sweeper := New(
		s.ledger,
		s.orders,
		s.reclaimer,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		10*time.Millisecond,
		30*time.Minute,
	)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Fail("sweeper did not stop after context cancellation")
	}
}
