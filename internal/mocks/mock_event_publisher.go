package mocks

import (
	"context"
	"sync"

	"github.com/cinetix/cinetix/internal/domain"
)

// MockEventPublisher records published events for assertions.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []domain.SeatEvent

	// PublishErr, when set, is returned by every Publish call.
	PublishErr error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.SeatEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)

	return m.PublishErr
}

func (m *MockEventPublisher) Events() []domain.SeatEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]domain.SeatEvent, len(m.events))
	copy(events, m.events)

	return events
}
