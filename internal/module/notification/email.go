package notification

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/shared/config"
	"github.com/thevvip/server/internal/shared/metrics"
)

// postmarkSender is the slice of the Postmark client we use.
type postmarkSender interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

// PostmarkNotifier sends lifecycle emails through Postmark.
type PostmarkNotifier struct {
	sender  postmarkSender
	from    string
	appURL  string
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewPostmarkNotifier builds the Postmark-backed notifier.
func NewPostmarkNotifier(cfg *config.EmailConfig, m *metrics.Metrics, log *zap.Logger) *PostmarkNotifier {
	client := postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken)
	return &PostmarkNotifier{
		sender:  client,
		from:    cfg.SenderEmail,
		appURL:  cfg.AppURL,
		log:     log,
		metrics: m,
	}
}

// NewNotifier picks the notifier implementation from configuration.
func NewNotifier(cfg *config.EmailConfig, m *metrics.Metrics, log *zap.Logger) Notifier {
	if cfg.Provider == "postmark" && cfg.PostmarkServerToken != "" {
		return NewPostmarkNotifier(cfg, m, log)
	}
	return NewDevNotifier(log)
}

func (n *PostmarkNotifier) send(ctx context.Context, kind, to, subject, html string) error {
	_, err := n.sender.SendEmail(ctx, postmark.Email{
		From:          n.from,
		To:            to,
		Subject:       subject,
		HTMLBody:      html,
		MessageStream: "outbound",
	})

	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	if n.metrics != nil {
		n.metrics.EmailsSent.WithLabelValues(kind, outcome).Inc()
	}
	if err != nil {
		n.log.Error("send email",
			zap.String("kind", kind),
			zap.String("to", to),
			zap.Error(err),
		)
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	n.log.Info("email sent", zap.String("kind", kind), zap.String("to", to))
	return nil
}

func (n *PostmarkNotifier) SubscriptionActivated(ctx context.Context, to, name, plan string) error {
	subject, html, err := activatedEmail(name, plan, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "subscription_activated", to, subject, html)
}

func (n *PostmarkNotifier) PaymentSucceeded(ctx context.Context, to, name, plan string) error {
	subject, html, err := paymentSucceededEmail(name, plan, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "payment_succeeded", to, subject, html)
}

func (n *PostmarkNotifier) DowngradeScheduled(ctx context.Context, to, name, fromPlan, toPlan string) error {
	subject, html, err := downgradeScheduledEmail(name, fromPlan, toPlan, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "downgrade_scheduled", to, subject, html)
}

func (n *PostmarkNotifier) DowngradeApplied(ctx context.Context, to, name, plan string) error {
	subject, html, err := downgradeAppliedEmail(name, plan, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "downgrade_applied", to, subject, html)
}

func (n *PostmarkNotifier) PaymentFailed(ctx context.Context, to, name string) error {
	subject, html, err := paymentFailedEmail(name, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "payment_failed", to, subject, html)
}

func (n *PostmarkNotifier) SubscriptionCanceled(ctx context.Context, to, name string) error {
	subject, html, err := canceledEmail(name, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "subscription_canceled", to, subject, html)
}

func (n *PostmarkNotifier) VerificationApproved(ctx context.Context, to, name string) error {
	subject, html, err := verificationApprovedEmail(name, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "verification_approved", to, subject, html)
}

func (n *PostmarkNotifier) VerificationRejected(ctx context.Context, to, name, reason string) error {
	subject, html, err := verificationRejectedEmail(name, reason, n.appURL)
	if err != nil {
		return err
	}
	return n.send(ctx, "verification_rejected", to, subject, html)
}
