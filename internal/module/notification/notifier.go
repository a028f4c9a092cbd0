package notification

import (
	"context"

	"go.uber.org/zap"
)

// Notifier sends member-facing lifecycle emails. Implementations must be
// safe for concurrent use.
type Notifier interface {
	SubscriptionActivated(ctx context.Context, to, name, plan string) error
	PaymentSucceeded(ctx context.Context, to, name, plan string) error
	DowngradeScheduled(ctx context.Context, to, name, fromPlan, toPlan string) error
	DowngradeApplied(ctx context.Context, to, name, plan string) error
	PaymentFailed(ctx context.Context, to, name string) error
	SubscriptionCanceled(ctx context.Context, to, name string) error
	VerificationApproved(ctx context.Context, to, name string) error
	VerificationRejected(ctx context.Context, to, name, reason string) error
}

// DevNotifier logs instead of sending. Used in development and when no
// email provider is configured.
type DevNotifier struct {
	log *zap.Logger
}

func NewDevNotifier(log *zap.Logger) *DevNotifier {
	return &DevNotifier{log: log}
}

func (n *DevNotifier) send(kind, to string, fields ...zap.Field) error {
	fields = append([]zap.Field{zap.String("kind", kind), zap.String("to", to)}, fields...)
	n.log.Info("email (dev mode, not sent)", fields...)
	return nil
}

func (n *DevNotifier) SubscriptionActivated(_ context.Context, to, name, plan string) error {
	return n.send("subscription_activated", to, zap.String("plan", plan))
}

func (n *DevNotifier) PaymentSucceeded(_ context.Context, to, name, plan string) error {
	return n.send("payment_succeeded", to, zap.String("plan", plan))
}

func (n *DevNotifier) DowngradeScheduled(_ context.Context, to, name, fromPlan, toPlan string) error {
	return n.send("downgrade_scheduled", to, zap.String("from", fromPlan), zap.String("to_plan", toPlan))
}

func (n *DevNotifier) DowngradeApplied(_ context.Context, to, name, plan string) error {
	return n.send("downgrade_applied", to, zap.String("plan", plan))
}

func (n *DevNotifier) PaymentFailed(_ context.Context, to, name string) error {
	return n.send("payment_failed", to)
}

func (n *DevNotifier) SubscriptionCanceled(_ context.Context, to, name string) error {
	return n.send("subscription_canceled", to)
}

func (n *DevNotifier) VerificationApproved(_ context.Context, to, name string) error {
	return n.send("verification_approved", to)
}

func (n *DevNotifier) VerificationRejected(_ context.Context, to, name, reason string) error {
	return n.send("verification_rejected", to, zap.String("reason", reason))
}
