package payment

import (
	"fmt"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/stripe/stripe-go/v82"
)

// MockPaymentProvider returns canned checkout sessions without talking to
// the gateway.
type MockPaymentProvider struct {
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{}
}

func (m *MockPaymentProvider) CreateCheckoutSession(
	order *domain.Order,
	seatMap *domain.ShowtimeSeatMap) (*stripe.CheckoutSession, error) {

	id := fmt.Sprintf("cs_test_%s", order.ID)

	return &stripe.CheckoutSession{
		ID:  id,
		URL: fmt.Sprintf("https://checkout.stripe.com/pay/%s", id),
		Metadata: map[string]string{
			"order_id":    order.ID.String(),
			"holder_id":   order.HolderID,
			"showtime_id": fmt.Sprintf("%d", order.ShowtimeID),
		},
	}, nil
}
