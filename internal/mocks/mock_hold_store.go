package mocks

import (
	"context"
	"time"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockHoldStore struct {
	mock.Mock
	domain.HoldStore
}

func (m *MockHoldStore) Put(ctx context.Context, hold domain.Hold, ttl time.Duration) error {
	args := m.Called(ctx, hold, ttl)
	return args.Error(0)
}

func (m *MockHoldStore) Get(ctx context.Context, holderID string, showtimeID int) (*domain.Hold, error) {
	args := m.Called(ctx, holderID, showtimeID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Hold), args.Error(1)
}

func (m *MockHoldStore) Delete(ctx context.Context, holderID string, showtimeID int) error {
	args := m.Called(ctx, holderID, showtimeID)
	return args.Error(0)
}

func (m *MockHoldStore) LockedSeats(ctx context.Context, showtimeID int) ([]int, error) {
	args := m.Called(ctx, showtimeID)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]int), args.Error(1)
}

func (m *MockHoldStore) SeatOwners(ctx context.Context, showtimeID int, seatIDs []int) (map[int]string, error) {
	args := m.Called(ctx, showtimeID, seatIDs)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[int]string), args.Error(1)
}
