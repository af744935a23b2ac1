package mocks

import (
	"github.com/cinetix/cinetix/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	order *domain.Order,
	seatMap *domain.ShowtimeSeatMap) (*stripe.CheckoutSession, error) {

	args := m.Called(order, seatMap)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*stripe.CheckoutSession), args.Error(1)
}
