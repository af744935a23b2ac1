package mocks

import (
	"context"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockLedgerRepo struct {
	mock.Mock
	domain.LedgerRepository
}

func (m *MockLedgerRepo) TryHold(ctx context.Context, showtimeID int, seatIDs []int) error {
	args := m.Called(ctx, showtimeID, seatIDs)
	return args.Error(0)
}

func (m *MockLedgerRepo) Release(ctx context.Context, showtimeID int, seatIDs []int) error {
	args := m.Called(ctx, showtimeID, seatIDs)
	return args.Error(0)
}

func (m *MockLedgerRepo) ConfirmBooking(ctx context.Context, showtimeID int, seatIDs []int) error {
	args := m.Called(ctx, showtimeID, seatIDs)
	return args.Error(0)
}

func (m *MockLedgerRepo) SeatStates(ctx context.Context, showtimeID int, seatIDs []int) (map[int]domain.SeatState, error) {
	args := m.Called(ctx, showtimeID, seatIDs)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[int]domain.SeatState), args.Error(1)
}

func (m *MockLedgerRepo) SeatMapByShowtime(ctx context.Context, showtimeID int) (*domain.ShowtimeSeatMap, error) {
	args := m.Called(ctx, showtimeID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.ShowtimeSeatMap), args.Error(1)
}

func (m *MockLedgerRepo) HeldSeats(ctx context.Context) ([]domain.SeatSlot, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.SeatSlot), args.Error(1)
}

func (m *MockLedgerRepo) CreateSlots(ctx context.Context, showtimeID int, seatIDs []int) error {
	args := m.Called(ctx, showtimeID, seatIDs)
	return args.Error(0)
}

func (m *MockLedgerRepo) DeleteSlots(ctx context.Context, showtimeID int) error {
	args := m.Called(ctx, showtimeID)
	return args.Error(0)
}
