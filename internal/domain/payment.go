package domain

import "github.com/stripe/stripe-go/v82"

// PaymentProvider abstracts the payment gateway. Only the checkout-session
// and callback contract is in scope; gateway protocol details stay behind
// this interface.
type PaymentProvider interface {
	CreateCheckoutSession(order *Order, seatMap *ShowtimeSeatMap) (*stripe.CheckoutSession, error)
}
