package subscription

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/thevvip/server/internal/module/payment"
	"github.com/thevvip/server/internal/module/profile"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetByUserID(ctx context.Context, userID string) (*profile.Profile, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.(*profile.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*profile.Profile, error) {
	args := m.Called(ctx, subscriptionID)
	if p := args.Get(0); p != nil {
		return p.(*profile.Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) SetCustomerID(ctx context.Context, userID, customerID string) error {
	return m.Called(ctx, userID, customerID).Error(0)
}

func (m *mockStore) Activate(ctx context.Context, userID string, act Activation) error {
	return m.Called(ctx, userID, act).Error(0)
}

func (m *mockStore) Upgrade(ctx context.Context, userID, newPlan string) error {
	return m.Called(ctx, userID, newPlan).Error(0)
}

func (m *mockStore) SetPendingDowngrade(ctx context.Context, userID, target string) error {
	return m.Called(ctx, userID, target).Error(0)
}

func (m *mockStore) ClearSubscription(ctx context.Context, userID, subscriptionID string) error {
	return m.Called(ctx, userID, subscriptionID).Error(0)
}

func (m *mockStore) ClearWithoutSubscription(ctx context.Context, userID, fromPlan string) error {
	return m.Called(ctx, userID, fromPlan).Error(0)
}

func (m *mockStore) ApplyDowngrade(ctx context.Context, userID, newPlan string, startedAt, until time.Time) error {
	return m.Called(ctx, userID, newPlan, startedAt, until).Error(0)
}

func (m *mockStore) ExtendUntil(ctx context.Context, userID string, until time.Time) error {
	return m.Called(ctx, userID, until).Error(0)
}

func (m *mockStore) MarkPaymentFailed(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *mockStore) ResetBySubscriptionID(ctx context.Context, subscriptionID string) (bool, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Bool(0), args.Error(1)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, email, name, metadata)
	return args.String(0), args.Error(1)
}

func (m *mockProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *mockProcessor) SetDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *mockProcessor) CreateSubscription(ctx context.Context, in payment.CreateSubscriptionInput) (*payment.Subscription, error) {
	args := m.Called(ctx, in)
	if sub := args.Get(0); sub != nil {
		return sub.(*payment.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) GetSubscription(ctx context.Context, subscriptionID string) (*payment.Subscription, error) {
	args := m.Called(ctx, subscriptionID)
	if sub := args.Get(0); sub != nil {
		return sub.(*payment.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) ChangePrice(ctx context.Context, in payment.ChangePriceInput) (*payment.Subscription, error) {
	args := m.Called(ctx, in)
	if sub := args.Get(0); sub != nil {
		return sub.(*payment.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProcessor) SetSubscriptionMetadata(ctx context.Context, subscriptionID string, metadata map[string]string) error {
	return m.Called(ctx, subscriptionID, metadata).Error(0)
}

func (m *mockProcessor) CancelSubscription(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SubscriptionActivated(ctx context.Context, to, name, plan string) error {
	return m.Called(ctx, to, name, plan).Error(0)
}

func (m *mockNotifier) PaymentSucceeded(ctx context.Context, to, name, plan string) error {
	return m.Called(ctx, to, name, plan).Error(0)
}

func (m *mockNotifier) DowngradeScheduled(ctx context.Context, to, name, fromPlan, toPlan string) error {
	return m.Called(ctx, to, name, fromPlan, toPlan).Error(0)
}

func (m *mockNotifier) DowngradeApplied(ctx context.Context, to, name, plan string) error {
	return m.Called(ctx, to, name, plan).Error(0)
}

func (m *mockNotifier) PaymentFailed(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) SubscriptionCanceled(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) VerificationApproved(ctx context.Context, to, name string) error {
	return m.Called(ctx, to, name).Error(0)
}

func (m *mockNotifier) VerificationRejected(ctx context.Context, to, name, reason string) error {
	return m.Called(ctx, to, name, reason).Error(0)
}
