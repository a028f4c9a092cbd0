package subscription

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/notification"
	"github.com/thevvip/server/internal/module/payment"
	"github.com/thevvip/server/internal/module/plan"
	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/shared/metrics"
)

// Reconciler applies processor webhook events to the local subscription
// state. Every handler is idempotent: redelivered events converge on the
// same stored state.
type Reconciler struct {
	store     Store
	catalog   *plan.Catalog
	processor payment.Processor
	notifier  notification.Notifier
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewReconciler creates the webhook reconciler.
func NewReconciler(
	store Store,
	catalog *plan.Catalog,
	processor payment.Processor,
	notifier notification.Notifier,
	m *metrics.Metrics,
	log *zap.Logger,
) *Reconciler {
	return &Reconciler{
		store:     store,
		catalog:   catalog,
		processor: processor,
		notifier:  notifier,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// HandleRenewalSucceeded processes a paid invoice: applies a pending
// downgrade if one is recorded, otherwise rolls the commitment window
// forward. Either way the payment-failed flag clears.
func (r *Reconciler) HandleRenewalSucceeded(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		// One-off invoice with no subscription attached.
		return nil
	}

	prof, err := r.store.GetBySubscriptionID(ctx, subscriptionID)
	if errors.Is(err, profile.ErrNotFound) {
		return r.activateFromMetadata(ctx, subscriptionID)
	}
	if err != nil {
		return err
	}

	now := r.now()
	until := CommitmentEnd(now)

	if prof.PendingDowngrade == nil {
		if err := r.store.ExtendUntil(ctx, prof.ID, until); err != nil {
			return err
		}
		r.event("renewal", "ok")
		r.log.Info("subscription renewed",
			zap.String("user_id", prof.ID),
			zap.Time("until", until),
		)
		r.notify("payment_succeeded", func() error {
			return r.notifier.PaymentSucceeded(ctx, prof.Email, prof.Name, prof.Plan)
		})
		return nil
	}

	target := plan.ID(*prof.PendingDowngrade)
	if err := r.movePriceForDowngrade(ctx, subscriptionID, target); err != nil {
		r.event("downgrade_apply", "error")
		return err
	}

	if err := r.store.ApplyDowngrade(ctx, prof.ID, string(target), now, until); err != nil {
		r.event("downgrade_apply", "error")
		return err
	}

	r.event("downgrade_apply", "ok")
	r.log.Info("downgrade applied",
		zap.String("user_id", prof.ID),
		zap.String("plan", string(target)),
	)
	r.notify("downgrade_applied", func() error {
		return r.notifier.DowngradeApplied(ctx, prof.Email, prof.Name, string(target))
	})
	return nil
}

// movePriceForDowngrade moves the processor subscription to the downgrade
// target's price without proration. Skipped when the price is not
// configured; the local plan still changes, matching checkout behavior.
func (r *Reconciler) movePriceForDowngrade(ctx context.Context, subscriptionID string, target plan.ID) error {
	p, err := r.catalog.PaidPlan(target)
	if err != nil {
		r.log.Warn("downgrade target has no configured price, skipping price move",
			zap.String("plan", string(target)),
			zap.Error(err),
		)
		return nil
	}
	if r.processor == nil {
		return nil
	}

	sub, err := r.processor.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.ItemID == "" {
		r.log.Warn("subscription has no item to move", zap.String("subscription_id", subscriptionID))
		return nil
	}

	_, err = r.processor.ChangePrice(ctx, payment.ChangePriceInput{
		SubscriptionID: subscriptionID,
		ItemID:         sub.ItemID,
		PriceID:        p.PriceID,
		Prorate:        false,
		Metadata:       map[string]string{"plan_id": string(target)},
	})
	return err
}

// activateFromMetadata resolves a paid invoice whose subscription matches
// no profile. If the processor subscription carries user and plan
// metadata and the account has no bound subscription yet, the payment
// activates the plan (the client-side RecordPayment call never landed).
func (r *Reconciler) activateFromMetadata(ctx context.Context, subscriptionID string) error {
	if r.processor == nil {
		r.log.Info("no profile for subscription", zap.String("subscription_id", subscriptionID))
		return nil
	}

	sub, err := r.processor.GetSubscription(ctx, subscriptionID)
	if err != nil {
		r.log.Warn("unmatched subscription lookup failed",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err),
		)
		return nil
	}

	userID := sub.Metadata["user_id"]
	planID := plan.ID(sub.Metadata["plan_id"])
	if !plan.Valid(planID) || planID == plan.Free {
		// Older subscriptions carry no plan metadata; the price still
		// identifies the tier.
		if p, ok := r.catalog.ByPriceID(sub.PriceID); ok {
			planID = p.ID
		}
	}
	if userID == "" || !plan.Valid(planID) || planID == plan.Free {
		r.log.Info("no profile for subscription", zap.String("subscription_id", subscriptionID))
		return nil
	}

	prof, err := r.store.GetByUserID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		r.log.Warn("subscription metadata names unknown user",
			zap.String("subscription_id", subscriptionID),
			zap.String("user_id", userID),
		)
		return nil
	}
	if err != nil {
		return err
	}
	if prof.StripeSubscriptionID != nil {
		// Already bound to another subscription; nothing to reconcile here.
		r.log.Info("account already has a bound subscription",
			zap.String("user_id", userID),
			zap.String("subscription_id", subscriptionID),
		)
		return nil
	}

	now := r.now()
	if err := r.store.Activate(ctx, userID, Activation{
		Plan:           string(planID),
		SubscriptionID: subscriptionID,
		StartedAt:      now,
		Until:          CommitmentEnd(now),
	}); err != nil {
		return err
	}

	r.event("activate_backstop", "ok")
	r.log.Info("subscription activated from webhook metadata",
		zap.String("user_id", userID),
		zap.String("plan", string(planID)),
	)
	r.notify("subscription_activated", func() error {
		return r.notifier.SubscriptionActivated(ctx, prof.Email, prof.Name, string(planID))
	})
	return nil
}

// HandleRenewalFailed flags the member's payment as failed.
func (r *Reconciler) HandleRenewalFailed(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}

	prof, err := r.store.GetBySubscriptionID(ctx, subscriptionID)
	if errors.Is(err, profile.ErrNotFound) {
		r.log.Info("payment failed for unknown subscription", zap.String("subscription_id", subscriptionID))
		return nil
	}
	if err != nil {
		return err
	}

	if err := r.store.MarkPaymentFailed(ctx, subscriptionID); err != nil {
		r.event("payment_failed", "error")
		return err
	}

	r.event("payment_failed", "ok")
	r.log.Warn("payment failed",
		zap.String("user_id", prof.ID),
		zap.String("subscription_id", subscriptionID),
	)
	r.notify("payment_failed", func() error {
		return r.notifier.PaymentFailed(ctx, prof.Email, prof.Name)
	})
	return nil
}

// HandleSubscriptionDeleted resets the member to Free when the processor
// subscription ends. Falls back to the event's user-id metadata when no
// profile references the subscription.
func (r *Reconciler) HandleSubscriptionDeleted(ctx context.Context, subscriptionID string, metadata map[string]string) error {
	prof, err := r.store.GetBySubscriptionID(ctx, subscriptionID)
	if err != nil && !errors.Is(err, profile.ErrNotFound) {
		return err
	}

	if err == nil {
		reset, err := r.store.ResetBySubscriptionID(ctx, subscriptionID)
		if err != nil {
			r.event("deleted", "error")
			return err
		}
		if reset {
			r.event("deleted", "ok")
			r.log.Info("subscription deleted, member reset to Free",
				zap.String("user_id", prof.ID),
				zap.String("subscription_id", subscriptionID),
			)
			r.notify("subscription_canceled", func() error {
				return r.notifier.SubscriptionCanceled(ctx, prof.Email, prof.Name)
			})
		}
		return nil
	}

	// No profile references this subscription. A redelivered event after
	// the reset already ran lands here too, so stay quiet unless the
	// metadata still points at a bound account.
	userID := metadata["user_id"]
	if userID == "" {
		r.log.Info("deleted subscription matches no profile", zap.String("subscription_id", subscriptionID))
		return nil
	}

	byUser, err := r.store.GetByUserID(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		r.log.Info("deleted subscription matches no profile",
			zap.String("subscription_id", subscriptionID),
			zap.String("user_id", userID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if byUser.StripeSubscriptionID != nil && *byUser.StripeSubscriptionID == subscriptionID {
		if err := r.store.ClearSubscription(ctx, userID, subscriptionID); err != nil {
			if errors.Is(err, ErrNoActiveSubscription) {
				return nil
			}
			return err
		}
		r.event("deleted", "ok")
		r.notify("subscription_canceled", func() error {
			return r.notifier.SubscriptionCanceled(ctx, byUser.Email, byUser.Name)
		})
	}
	return nil
}

func (r *Reconciler) notify(kind string, fn func() error) {
	if r.notifier == nil {
		return
	}
	if err := fn(); err != nil {
		r.log.Warn("notification failed", zap.String("kind", kind), zap.Error(err))
	}
}

func (r *Reconciler) event(kind, outcome string) {
	if r.metrics != nil {
		r.metrics.SubscriptionEvents.WithLabelValues(kind, outcome).Inc()
	}
}
