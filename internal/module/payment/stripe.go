package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/paymentmethod"
	"github.com/stripe/stripe-go/v76/subscription"
)

// StripeProcessor implements Processor against the Stripe API.
type StripeProcessor struct{}

// NewStripeProcessor configures the Stripe client with the given key.
func NewStripeProcessor(apiKey string) *StripeProcessor {
	stripe.Key = apiKey
	return &StripeProcessor{}
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	if name != "" {
		params.Name = stripe.String(name)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	c, err := customer.New(params)
	if err != nil {
		return "", wrapStripeErr("create customer", err)
	}
	return c.ID, nil
}

func (p *StripeProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := paymentmethod.Attach(paymentMethodID, &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	})
	if err != nil {
		return wrapStripeErr("attach payment method", err)
	}
	return nil
}

func (p *StripeProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := customer.Update(customerID, &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	})
	if err != nil {
		return wrapStripeErr("set default payment method", err)
	}
	return nil
}

// CreateSubscription opens an incomplete subscription and returns the
// payment intent client secret the member confirms on-device.
func (p *StripeProcessor) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(in.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(in.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
		PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripe.String("on_subscription"),
		},
	}
	params.AddExpand("latest_invoice.payment_intent")
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := subscription.New(params)
	if err != nil {
		return nil, wrapStripeErr("create subscription", err)
	}
	return mapSubscription(sub), nil
}

func (p *StripeProcessor) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return nil, wrapStripeErr("get subscription", err)
	}
	return mapSubscription(sub), nil
}

func (p *StripeProcessor) ChangePrice(ctx context.Context, in ChangePriceInput) (*Subscription, error) {
	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(in.ItemID), Price: stripe.String(in.PriceID)},
		},
	}
	if in.Prorate {
		params.ProrationBehavior = stripe.String("create_prorations")
	} else {
		params.ProrationBehavior = stripe.String("none")
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	sub, err := subscription.Update(in.SubscriptionID, params)
	if err != nil {
		return nil, wrapStripeErr("change subscription price", err)
	}
	return mapSubscription(sub), nil
}

func (p *StripeProcessor) SetSubscriptionMetadata(ctx context.Context, subscriptionID string, metadata map[string]string) error {
	params := &stripe.SubscriptionParams{}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return wrapStripeErr("set subscription metadata", err)
	}
	return nil
}

func (p *StripeProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if _, err := subscription.Cancel(subscriptionID, nil); err != nil {
		return wrapStripeErr("cancel subscription", err)
	}
	return nil
}

// wrapStripeErr converts declines into DeclineError and wraps the rest.
func wrapStripeErr(op string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.Type == stripe.ErrorTypeCard || se.DeclineCode != "" {
			code := string(se.DeclineCode)
			if code == "" {
				code = string(se.Code)
			}
			return fmt.Errorf("%s: %w", op, &DeclineError{Code: code, Message: se.Msg})
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func mapSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CurrentPeriodEnd:  sub.CurrentPeriodEnd,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		Metadata:          sub.Metadata,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		out.ItemID = item.ID
		if item.Price != nil {
			out.PriceID = item.Price.ID
		}
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out
}
