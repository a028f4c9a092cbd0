package payment

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable means the processor cannot be reached right now.
var ErrUnavailable = errors.New("payment processor unavailable")

// DeclineError is a card decline or similar payment rejection. Its message
// is safe to show to the member.
type DeclineError struct {
	Code    string
	Message string
}

func (e *DeclineError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("payment declined (%s)", e.Code)
}

// Subscription is the processor-side view of a recurring subscription.
type Subscription struct {
	ID                string
	CustomerID        string
	Status            string
	ItemID            string
	PriceID           string
	ClientSecret      string
	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool
	Metadata          map[string]string
}

// CreateSubscriptionInput describes a new subscription to open.
type CreateSubscriptionInput struct {
	CustomerID string
	PriceID    string
	Metadata   map[string]string
}

// ChangePriceInput moves a subscription to a different price.
type ChangePriceInput struct {
	SubscriptionID string
	ItemID         string
	PriceID        string
	Prorate        bool
	Metadata       map[string]string
}

// Processor is the payment backend used for membership billing.
type Processor interface {
	CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Subscription, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error)
	ChangePrice(ctx context.Context, in ChangePriceInput) (*Subscription, error)
	SetSubscriptionMetadata(ctx context.Context, subscriptionID string, metadata map[string]string) error
	CancelSubscription(ctx context.Context, subscriptionID string) error
}
