package subscription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/payment"
	"github.com/thevvip/server/internal/module/plan"
	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/shared/config"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func testPlanCatalog() *plan.Catalog {
	return plan.NewCatalog(&config.StripeConfig{
		PriceGold:     "price_gold",
		PricePlatinum: "price_platinum",
		PriceVVIP:     "price_vvip",
	})
}

func newTestService(store Store, processor payment.Processor, notifier *mockNotifier) *Service {
	svc := NewService(store, testPlanCatalog(), processor, nil, nil, zap.NewNop())
	if notifier != nil {
		svc.notifier = notifier
	}
	svc.now = func() time.Time { return testNow }
	return svc
}

func paidProfile(planID string) *profile.Profile {
	cus := "cus_123"
	sub := "sub_123"
	started := testNow.AddDate(0, -1, 0)
	until := started.AddDate(0, CommitmentMonths, 0)
	return &profile.Profile{
		ID:                    "user-1",
		Email:                 "member@example.com",
		Name:                  "Member",
		Plan:                  planID,
		StripeCustomerID:      &cus,
		StripeSubscriptionID:  &sub,
		SubscriptionStartedAt: &started,
		SubscriptionUntil:     &until,
	}
}

func freeProfile() *profile.Profile {
	return &profile.Profile{
		ID:    "user-1",
		Email: "member@example.com",
		Name:  "Member",
		Plan:  "Free",
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("new customer full flow", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)

		store.On("GetByUserID", ctx, "user-1").Return(freeProfile(), nil)
		proc.On("CreateCustomer", ctx, "member@example.com", "Member",
			map[string]string{"user_id": "user-1"}).Return("cus_new", nil)
		store.On("SetCustomerID", ctx, "user-1", "cus_new").Return(nil)
		proc.On("AttachPaymentMethod", ctx, "cus_new", "pm_1").Return(nil)
		proc.On("SetDefaultPaymentMethod", ctx, "cus_new", "pm_1").Return(nil)
		proc.On("CreateSubscription", ctx, payment.CreateSubscriptionInput{
			CustomerID: "cus_new",
			PriceID:    "price_gold",
			Metadata:   map[string]string{"user_id": "user-1", "plan_id": "Gold"},
		}).Return(&payment.Subscription{ID: "sub_new", ClientSecret: "pi_secret"}, nil)

		svc := newTestService(store, proc, nil)
		result, err := svc.Create(ctx, "user-1", CreateRequest{PlanID: "Gold", PaymentMethodID: "pm_1"})

		require.NoError(t, err)
		assert.Equal(t, "sub_new", result.SubscriptionID)
		assert.Equal(t, "pi_secret", result.ClientSecret)
		store.AssertExpectations(t)
		proc.AssertExpectations(t)
	})

	t.Run("existing customer is reused", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)

		store.On("GetByUserID", ctx, "user-1").Return(paidProfile("Gold"), nil)
		proc.On("AttachPaymentMethod", ctx, "cus_123", "pm_1").Return(nil)
		proc.On("SetDefaultPaymentMethod", ctx, "cus_123", "pm_1").Return(nil)
		proc.On("CreateSubscription", ctx, mock.Anything).
			Return(&payment.Subscription{ID: "sub_2", ClientSecret: "secret"}, nil)

		svc := newTestService(store, proc, nil)
		_, err := svc.Create(ctx, "user-1", CreateRequest{PlanID: "VVIP", PaymentMethodID: "pm_1"})

		require.NoError(t, err)
		proc.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown plan", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockProcessor), nil)
		_, err := svc.Create(ctx, "user-1", CreateRequest{PlanID: "Diamond", PaymentMethodID: "pm_1"})
		assert.ErrorIs(t, err, plan.ErrUnknownPlan)
	})

	t.Run("free plan is not purchasable", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockProcessor), nil)
		_, err := svc.Create(ctx, "user-1", CreateRequest{PlanID: "Free", PaymentMethodID: "pm_1"})
		assert.ErrorIs(t, err, plan.ErrUnknownPlan)
	})

	t.Run("processor not configured", func(t *testing.T) {
		svc := newTestService(new(mockStore), nil, nil)
		_, err := svc.Create(ctx, "user-1", CreateRequest{PlanID: "Gold", PaymentMethodID: "pm_1"})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("decline surfaces to caller", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)
		decline := &payment.DeclineError{Code: "card_declined", Message: "Your card was declined."}

		store.On("GetByUserID", ctx, "user-1").Return(paidProfile("Gold"), nil)
		proc.On("AttachPaymentMethod", ctx, "cus_123", "pm_1").Return(decline)

		svc := newTestService(store, proc, nil)
		_, err := svc.Create(ctx, "user-1", CreateRequest{PlanID: "Gold", PaymentMethodID: "pm_1"})

		var de *payment.DeclineError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "Your card was declined.", de.Message)
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("activates and opens commitment window", func(t *testing.T) {
		store := new(mockStore)
		notifier := new(mockNotifier)

		store.On("GetByUserID", ctx, "user-1").Return(freeProfile(), nil)
		store.On("Activate", ctx, "user-1", Activation{
			Plan:           "Platinum",
			SubscriptionID: "sub_9",
			StartedAt:      testNow,
			Until:          testNow.AddDate(0, 3, 0),
		}).Return(nil)
		notifier.On("SubscriptionActivated", ctx, "member@example.com", "Member", "Platinum").Return(nil)

		svc := newTestService(store, new(mockProcessor), notifier)
		status, err := svc.RecordPayment(ctx, "user-1", RecordPaymentRequest{
			PlanID:         "Platinum",
			SubscriptionID: "sub_9",
		})

		require.NoError(t, err)
		assert.Equal(t, "Platinum", status.Plan)
		assert.True(t, status.WithinCommitment)
		store.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("free plan rejected", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockProcessor), nil)
		_, err := svc.RecordPayment(ctx, "user-1", RecordPaymentRequest{PlanID: "Free", SubscriptionID: "sub_9"})
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("notification failure does not fail activation", func(t *testing.T) {
		store := new(mockStore)
		notifier := new(mockNotifier)

		store.On("GetByUserID", ctx, "user-1").Return(freeProfile(), nil)
		store.On("Activate", ctx, "user-1", mock.Anything).Return(nil)
		notifier.On("SubscriptionActivated", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("smtp down"))

		svc := newTestService(store, new(mockProcessor), notifier)
		_, err := svc.RecordPayment(ctx, "user-1", RecordPaymentRequest{PlanID: "Gold", SubscriptionID: "sub_9"})
		assert.NoError(t, err)
	})
}

func TestChange(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrade applies immediately with proration", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)

		store.On("GetByUserID", ctx, "user-1").Return(paidProfile("Gold"), nil)
		proc.On("GetSubscription", ctx, "sub_123").
			Return(&payment.Subscription{ID: "sub_123", ItemID: "si_1", PriceID: "price_gold"}, nil)
		proc.On("ChangePrice", ctx, payment.ChangePriceInput{
			SubscriptionID: "sub_123",
			ItemID:         "si_1",
			PriceID:        "price_vvip",
			Prorate:        true,
			Metadata:       map[string]string{"plan_id": "VVIP"},
		}).Return(&payment.Subscription{ID: "sub_123"}, nil)
		store.On("Upgrade", ctx, "user-1", "VVIP").Return(nil)

		svc := newTestService(store, proc, nil)
		result, err := svc.Change(ctx, "user-1", ChangeRequest{PlanID: "VVIP"})

		require.NoError(t, err)
		assert.Equal(t, "VVIP", result.Plan)
		assert.Equal(t, "immediate", result.Effective)
		assert.Nil(t, result.PendingDowngrade)
		store.AssertExpectations(t)
		proc.AssertExpectations(t)
	})

	t.Run("downgrade is deferred to next cycle", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)
		notifier := new(mockNotifier)

		store.On("GetByUserID", ctx, "user-1").Return(paidProfile("VVIP"), nil)
		proc.On("SetSubscriptionMetadata", ctx, "sub_123", map[string]string{
			"plan_id":           "Gold",
			"pending_downgrade": "Gold",
		}).Return(nil)
		store.On("SetPendingDowngrade", ctx, "user-1", "Gold").Return(nil)
		notifier.On("DowngradeScheduled", ctx, "member@example.com", "Member", "VVIP", "Gold").Return(nil)

		svc := newTestService(store, proc, notifier)
		result, err := svc.Change(ctx, "user-1", ChangeRequest{PlanID: "Gold"})

		require.NoError(t, err)
		assert.Equal(t, "VVIP", result.Plan, "current plan keeps serving until renewal")
		require.NotNil(t, result.PendingDowngrade)
		assert.Equal(t, "Gold", *result.PendingDowngrade)
		assert.Equal(t, "next_billing_cycle", result.Effective)
		proc.AssertNotCalled(t, "ChangePrice", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("same plan", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetByUserID", ctx, "user-1").Return(paidProfile("Gold"), nil)

		svc := newTestService(store, new(mockProcessor), nil)
		_, err := svc.Change(ctx, "user-1", ChangeRequest{PlanID: "Gold"})
		assert.ErrorIs(t, err, ErrSamePlan)
	})

	t.Run("no active subscription", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetByUserID", ctx, "user-1").Return(freeProfile(), nil)

		svc := newTestService(store, new(mockProcessor), nil)
		_, err := svc.Change(ctx, "user-1", ChangeRequest{PlanID: "Gold"})
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
	})

	t.Run("change to Free is invalid", func(t *testing.T) {
		svc := newTestService(new(mockStore), new(mockProcessor), nil)
		_, err := svc.Change(ctx, "user-1", ChangeRequest{PlanID: "Free"})
		assert.ErrorIs(t, err, ErrInvalidPlan)
	})

	t.Run("concurrent upgrade loses the conditional update", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)

		store.On("GetByUserID", ctx, "user-1").Return(paidProfile("Gold"), nil)
		proc.On("GetSubscription", ctx, "sub_123").
			Return(&payment.Subscription{ID: "sub_123", ItemID: "si_1"}, nil)
		proc.On("ChangePrice", ctx, mock.Anything).Return(&payment.Subscription{ID: "sub_123"}, nil)
		store.On("Upgrade", ctx, "user-1", "VVIP").Return(ErrNoActiveSubscription)

		svc := newTestService(store, proc, nil)
		_, err := svc.Change(ctx, "user-1", ChangeRequest{PlanID: "VVIP"})
		assert.ErrorIs(t, err, ErrNoActiveSubscription)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("refused inside commitment", func(t *testing.T) {
		store := new(mockStore)
		prof := paidProfile("Gold")
		until := testNow.AddDate(0, 0, 61)
		prof.SubscriptionUntil = &until
		store.On("GetByUserID", ctx, "user-1").Return(prof, nil)

		svc := newTestService(store, new(mockProcessor), nil)
		err := svc.Cancel(ctx, "user-1")

		var commitment *CommitmentActiveError
		require.ErrorAs(t, err, &commitment)
		assert.Equal(t, 61, commitment.RemainingDays)
		assert.Equal(t, until, commitment.CommitmentUntil)
	})

	t.Run("allowed after commitment", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)
		notifier := new(mockNotifier)

		prof := paidProfile("Gold")
		until := testNow.Add(-time.Hour)
		prof.SubscriptionUntil = &until
		store.On("GetByUserID", ctx, "user-1").Return(prof, nil)
		proc.On("CancelSubscription", ctx, "sub_123").Return(nil)
		store.On("ClearSubscription", ctx, "user-1", "sub_123").Return(nil)
		notifier.On("SubscriptionCanceled", ctx, "member@example.com", "Member").Return(nil)

		svc := newTestService(store, proc, notifier)
		require.NoError(t, svc.Cancel(ctx, "user-1"))
		store.AssertExpectations(t)
		proc.AssertExpectations(t)
	})

	t.Run("no active subscription", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetByUserID", ctx, "user-1").Return(freeProfile(), nil)

		svc := newTestService(store, new(mockProcessor), nil)
		assert.ErrorIs(t, svc.Cancel(ctx, "user-1"), ErrNoActiveSubscription)
	})

	t.Run("desynced paid record is reset locally", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)
		notifier := new(mockNotifier)

		prof := paidProfile("Gold")
		prof.StripeSubscriptionID = nil
		until := testNow.Add(-time.Hour)
		prof.SubscriptionUntil = &until
		store.On("GetByUserID", ctx, "user-1").Return(prof, nil)
		store.On("ClearWithoutSubscription", ctx, "user-1", "Gold").Return(nil)
		notifier.On("SubscriptionCanceled", ctx, "member@example.com", "Member").Return(nil)

		svc := newTestService(store, proc, notifier)
		require.NoError(t, svc.Cancel(ctx, "user-1"))
		proc.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("desynced record still honors the commitment", func(t *testing.T) {
		store := new(mockStore)
		prof := paidProfile("Gold")
		prof.StripeSubscriptionID = nil
		store.On("GetByUserID", ctx, "user-1").Return(prof, nil)

		svc := newTestService(store, new(mockProcessor), nil)
		var commitment *CommitmentActiveError
		assert.ErrorAs(t, svc.Cancel(ctx, "user-1"), &commitment)
		store.AssertNotCalled(t, "ClearWithoutSubscription", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("concurrent cancel loses the conditional update", func(t *testing.T) {
		store := new(mockStore)
		proc := new(mockProcessor)

		prof := paidProfile("Gold")
		until := testNow.Add(-time.Hour)
		prof.SubscriptionUntil = &until
		store.On("GetByUserID", ctx, "user-1").Return(prof, nil)
		proc.On("CancelSubscription", ctx, "sub_123").Return(nil)
		store.On("ClearSubscription", ctx, "user-1", "sub_123").Return(ErrNoActiveSubscription)

		svc := newTestService(store, proc, nil)
		assert.ErrorIs(t, svc.Cancel(ctx, "user-1"), ErrNoActiveSubscription)
	})
}

func TestStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("active within commitment", func(t *testing.T) {
		store := new(mockStore)
		prof := paidProfile("Platinum")
		store.On("GetByUserID", ctx, "user-1").Return(prof, nil)

		svc := newTestService(store, new(mockProcessor), nil)
		status, err := svc.Status(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "Platinum", status.Plan)
		assert.True(t, status.WithinCommitment)
		assert.Greater(t, status.RemainingDays, 0)
	})

	t.Run("free member", func(t *testing.T) {
		store := new(mockStore)
		store.On("GetByUserID", ctx, "user-1").Return(freeProfile(), nil)

		svc := newTestService(store, new(mockProcessor), nil)
		status, err := svc.Status(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, "Free", status.Plan)
		assert.False(t, status.WithinCommitment)
		assert.Zero(t, status.RemainingDays)
	})
}
