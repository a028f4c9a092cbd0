package subscription

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/notification"
	"github.com/thevvip/server/internal/module/payment"
	"github.com/thevvip/server/internal/module/plan"
	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/shared/metrics"
)

// Service executes membership subscription commands.
type Service struct {
	store     Store
	catalog   *plan.Catalog
	processor payment.Processor
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewService creates the subscription service. A nil processor means the
// payment system is not configured; commands then fail with
// ErrNotConfigured.
func NewService(
	store Store,
	catalog *plan.Catalog,
	processor payment.Processor,
	notifier notification.Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		store:     store,
		catalog:   catalog,
		processor: processor,
		notifier:  notifier,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Create opens an incomplete subscription for a paid plan and returns the
// client secret the member confirms on-device. Nothing durable changes on
// the profile besides the customer id; the plan takes effect at
// RecordPayment (or via the renewal webhook backstop).
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*CreateResponse, error) {
	if s.processor == nil {
		return nil, ErrNotConfigured
	}

	p, err := s.catalog.PaidPlan(plan.ID(req.PlanID))
	if err != nil {
		return nil, err
	}

	prof, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureCustomer(ctx, prof)
	if err != nil {
		return nil, err
	}

	if err := s.processor.AttachPaymentMethod(ctx, customerID, req.PaymentMethodID); err != nil {
		return nil, err
	}
	if err := s.processor.SetDefaultPaymentMethod(ctx, customerID, req.PaymentMethodID); err != nil {
		return nil, err
	}

	sub, err := s.processor.CreateSubscription(ctx, payment.CreateSubscriptionInput{
		CustomerID: customerID,
		PriceID:    p.PriceID,
		Metadata: map[string]string{
			"user_id": userID,
			"plan_id": string(p.ID),
		},
	})
	if err != nil {
		s.event("create", "error")
		return nil, err
	}

	s.event("create", "ok")
	s.log.Info("subscription created",
		zap.String("user_id", userID),
		zap.String("plan", string(p.ID)),
		zap.String("subscription_id", sub.ID),
	)
	return &CreateResponse{
		SubscriptionID: sub.ID,
		ClientSecret:   sub.ClientSecret,
	}, nil
}

// RecordPayment durably activates a plan after the client confirmed the
// first payment. Opens the 3-month commitment window.
func (s *Service) RecordPayment(ctx context.Context, userID string, req RecordPaymentRequest) (*StatusResponse, error) {
	p, err := s.catalog.Get(plan.ID(req.PlanID))
	if err != nil {
		return nil, err
	}
	if !p.Paid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, req.PlanID)
	}

	prof, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	act := Activation{
		Plan:           string(p.ID),
		SubscriptionID: req.SubscriptionID,
		StartedAt:      now,
		Until:          CommitmentEnd(now),
	}
	if err := s.store.Activate(ctx, userID, act); err != nil {
		s.event("activate", "error")
		return nil, err
	}

	s.event("activate", "ok")
	s.log.Info("subscription activated",
		zap.String("user_id", userID),
		zap.String("plan", act.Plan),
		zap.String("subscription_id", act.SubscriptionID),
	)
	s.notify("subscription_activated", func() error {
		return s.notifier.SubscriptionActivated(ctx, prof.Email, prof.Name, act.Plan)
	})

	return s.statusFor(&profile.Profile{
		Plan:                  act.Plan,
		SubscriptionStartedAt: &act.StartedAt,
		SubscriptionUntil:     &act.Until,
	}), nil
}

// Status returns the member's current subscription state.
func (s *Service) Status(ctx context.Context, userID string) (*StatusResponse, error) {
	prof, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.statusFor(prof), nil
}

// Change moves the member to another paid plan. Upgrades apply
// immediately with proration; downgrades are recorded and applied at the
// next renewal.
func (s *Service) Change(ctx context.Context, userID string, req ChangeRequest) (*ChangeResponse, error) {
	if s.processor == nil {
		return nil, ErrNotConfigured
	}

	target := plan.ID(req.PlanID)
	if !plan.Valid(target) || target == plan.Free {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlan, req.PlanID)
	}

	prof, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prof.StripeSubscriptionID == nil || prof.Plan == string(plan.Free) {
		return nil, ErrNoActiveSubscription
	}
	current := plan.ID(prof.Plan)
	if current == target {
		return nil, ErrSamePlan
	}

	if plan.Compare(target, current) > 0 {
		return s.upgrade(ctx, userID, *prof.StripeSubscriptionID, target)
	}
	return s.downgrade(ctx, prof, target)
}

func (s *Service) upgrade(ctx context.Context, userID, subscriptionID string, target plan.ID) (*ChangeResponse, error) {
	p, err := s.catalog.PaidPlan(target)
	if err != nil {
		return nil, err
	}

	sub, err := s.processor.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	_, err = s.processor.ChangePrice(ctx, payment.ChangePriceInput{
		SubscriptionID: subscriptionID,
		ItemID:         sub.ItemID,
		PriceID:        p.PriceID,
		Prorate:        true,
		Metadata:       map[string]string{"plan_id": string(target)},
	})
	if err != nil {
		s.event("upgrade", "error")
		return nil, err
	}

	if err := s.store.Upgrade(ctx, userID, string(target)); err != nil {
		s.event("upgrade", "error")
		return nil, err
	}

	s.event("upgrade", "ok")
	s.log.Info("plan upgraded",
		zap.String("user_id", userID),
		zap.String("plan", string(target)),
	)
	return &ChangeResponse{Plan: string(target), Effective: "immediate"}, nil
}

func (s *Service) downgrade(ctx context.Context, prof *profile.Profile, target plan.ID) (*ChangeResponse, error) {
	// The target price is not needed until renewal, but it must at least
	// be a known tier.
	if _, err := s.catalog.Get(target); err != nil {
		return nil, err
	}

	err := s.processor.SetSubscriptionMetadata(ctx, *prof.StripeSubscriptionID, map[string]string{
		"plan_id":           string(target),
		"pending_downgrade": string(target),
	})
	if err != nil {
		s.event("downgrade_schedule", "error")
		return nil, err
	}

	if err := s.store.SetPendingDowngrade(ctx, prof.ID, string(target)); err != nil {
		s.event("downgrade_schedule", "error")
		return nil, err
	}

	s.event("downgrade_schedule", "ok")
	s.log.Info("downgrade scheduled",
		zap.String("user_id", prof.ID),
		zap.String("from", prof.Plan),
		zap.String("to", string(target)),
	)
	s.notify("downgrade_scheduled", func() error {
		return s.notifier.DowngradeScheduled(ctx, prof.Email, prof.Name, prof.Plan, string(target))
	})

	pending := string(target)
	return &ChangeResponse{
		Plan:             prof.Plan,
		PendingDowngrade: &pending,
		Effective:        "next_billing_cycle",
	}, nil
}

// Cancel ends the membership. Refused inside the commitment window.
func (s *Service) Cancel(ctx context.Context, userID string) error {
	prof, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if prof.Plan == string(plan.Free) {
		return ErrNoActiveSubscription
	}

	now := s.now()
	if WithinCommitment(now, prof.SubscriptionUntil) {
		s.event("cancel", "refused")
		return &CommitmentActiveError{
			RemainingDays:   RemainingDays(now, *prof.SubscriptionUntil),
			CommitmentUntil: *prof.SubscriptionUntil,
		}
	}

	// A paid plan without a processor reference means the remote
	// subscription was removed out of band; there is nothing to cancel
	// remotely, only the local record to reset.
	if prof.StripeSubscriptionID == nil {
		if err := s.store.ClearWithoutSubscription(ctx, userID, prof.Plan); err != nil {
			s.event("cancel", "error")
			return err
		}
		s.event("cancel", "ok")
		s.log.Info("desynced subscription cleared",
			zap.String("user_id", userID),
			zap.String("plan", prof.Plan),
		)
		s.notify("subscription_canceled", func() error {
			return s.notifier.SubscriptionCanceled(ctx, prof.Email, prof.Name)
		})
		return nil
	}

	if s.processor == nil {
		return ErrNotConfigured
	}

	subscriptionID := *prof.StripeSubscriptionID
	if err := s.processor.CancelSubscription(ctx, subscriptionID); err != nil {
		s.event("cancel", "error")
		return err
	}

	if err := s.store.ClearSubscription(ctx, userID, subscriptionID); err != nil {
		s.event("cancel", "error")
		return err
	}

	s.event("cancel", "ok")
	s.log.Info("subscription canceled",
		zap.String("user_id", userID),
		zap.String("subscription_id", subscriptionID),
	)
	s.notify("subscription_canceled", func() error {
		return s.notifier.SubscriptionCanceled(ctx, prof.Email, prof.Name)
	})
	return nil
}

func (s *Service) ensureCustomer(ctx context.Context, prof *profile.Profile) (string, error) {
	if prof.StripeCustomerID != nil && *prof.StripeCustomerID != "" {
		return *prof.StripeCustomerID, nil
	}

	customerID, err := s.processor.CreateCustomer(ctx, prof.Email, prof.Name, map[string]string{
		"user_id": prof.ID,
	})
	if err != nil {
		return "", err
	}
	if err := s.store.SetCustomerID(ctx, prof.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *Service) statusFor(prof *profile.Profile) *StatusResponse {
	now := s.now()
	status := &StatusResponse{
		Plan:             prof.Plan,
		StartedAt:        prof.SubscriptionStartedAt,
		CommitmentUntil:  prof.SubscriptionUntil,
		PendingDowngrade: prof.PendingDowngrade,
		PaymentFailed:    prof.PaymentFailed,
	}
	if WithinCommitment(now, prof.SubscriptionUntil) {
		status.WithinCommitment = true
		status.RemainingDays = RemainingDays(now, *prof.SubscriptionUntil)
	}
	return status
}

func (s *Service) notify(kind string, fn func() error) {
	if s.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		s.log.Warn("notification failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Service) event(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.SubscriptionEvents.WithLabelValues(kind, outcome).Inc()
	}
}
