package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/shared/metrics"
)

// BreakerProcessor wraps a Processor with a circuit breaker so a Stripe
// outage fails fast instead of tying up request handlers. Every call is
// counted per operation and outcome.
type BreakerProcessor struct {
	inner   Processor
	cb      *gobreaker.CircuitBreaker[any]
	metrics *metrics.Metrics
}

// NewBreakerProcessor decorates inner with a circuit breaker.
func NewBreakerProcessor(inner Processor, m *metrics.Metrics, log *zap.Logger) *BreakerProcessor {
	settings := gobreaker.Settings{
		Name:        "payment-processor",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Declines are member outcomes, not processor failures; they must
		// not trip the breaker.
		IsSuccessful: func(err error) bool {
			var de *DeclineError
			return err == nil || errors.As(err, &de)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerProcessor{
		inner:   inner,
		cb:      gobreaker.NewCircuitBreaker[any](settings),
		metrics: m,
	}
}

func (b *BreakerProcessor) execute(op string, fn func() (any, error)) (any, error) {
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: circuit open", ErrUnavailable)
		out = nil
	}
	b.count(op, err)
	return out, err
}

func (b *BreakerProcessor) count(op string, err error) {
	if b.metrics == nil {
		return
	}
	outcome := "ok"
	var de *DeclineError
	switch {
	case errors.As(err, &de):
		outcome = "declined"
	case err != nil:
		outcome = "error"
	}
	b.metrics.ProcessorCalls.WithLabelValues(op, outcome).Inc()
}

func (b *BreakerProcessor) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	out, err := b.execute("create_customer", func() (any, error) {
		return b.inner.CreateCustomer(ctx, email, name, metadata)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *BreakerProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := b.execute("attach_payment_method", func() (any, error) {
		return nil, b.inner.AttachPaymentMethod(ctx, customerID, paymentMethodID)
	})
	return err
}

func (b *BreakerProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	_, err := b.execute("set_default_payment_method", func() (any, error) {
		return nil, b.inner.SetDefaultPaymentMethod(ctx, customerID, paymentMethodID)
	})
	return err
}

func (b *BreakerProcessor) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*Subscription, error) {
	out, err := b.execute("create_subscription", func() (any, error) {
		return b.inner.CreateSubscription(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Subscription), nil
}

func (b *BreakerProcessor) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	out, err := b.execute("get_subscription", func() (any, error) {
		return b.inner.GetSubscription(ctx, subscriptionID)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Subscription), nil
}

func (b *BreakerProcessor) ChangePrice(ctx context.Context, in ChangePriceInput) (*Subscription, error) {
	out, err := b.execute("change_price", func() (any, error) {
		return b.inner.ChangePrice(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	return out.(*Subscription), nil
}

func (b *BreakerProcessor) SetSubscriptionMetadata(ctx context.Context, subscriptionID string, metadata map[string]string) error {
	_, err := b.execute("set_subscription_metadata", func() (any, error) {
		return nil, b.inner.SetSubscriptionMetadata(ctx, subscriptionID, metadata)
	})
	return err
}

func (b *BreakerProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	_, err := b.execute("cancel_subscription", func() (any, error) {
		return nil, b.inner.CancelSubscription(ctx, subscriptionID)
	})
	return err
}
