package subscription

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/shared/metrics"
	"github.com/thevvip/server/internal/shared/response"
)

// Stripe caps event payloads well below this.
const maxWebhookBody = 1 << 20

// WebhookHandler receives Stripe webhook deliveries.
type WebhookHandler struct {
	reconciler *Reconciler
	secret     string
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// NewWebhookHandler creates the webhook HTTP handler. An empty secret
// disables signature verification; events are then parsed as-is, which is
// acceptable only for local development.
func NewWebhookHandler(reconciler *Reconciler, secret string, m *metrics.Metrics, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		secret:     secret,
		metrics:    m,
		log:        log,
	}
}

// RegisterRoutes registers the webhook endpoint.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.Handle)
}

// Handle verifies and dispatches one webhook delivery. Reconciliation
// failures return 500 so Stripe redelivers the event; events we do not
// recognize are acknowledged so Stripe stops retrying them.
func (h *WebhookHandler) Handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(c, "unreadable payload")
		return
	}

	var event stripe.Event
	if h.secret != "" {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
		if err != nil {
			h.count("unknown", "bad_signature")
			h.log.Warn("webhook signature verification failed", zap.Error(err))
			response.BadRequest(c, "invalid signature")
			return
		}
	} else {
		h.log.Warn("webhook secret not configured, accepting unverified event")
		if err := json.Unmarshal(payload, &event); err != nil {
			response.BadRequest(c, "invalid JSON")
			return
		}
	}

	h.log.Info("webhook received", zap.String("type", string(event.Type)))

	ctx := c.Request.Context()
	var handleErr error

	switch string(event.Type) {
	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			response.BadRequest(c, "invalid event payload")
			return
		}
		handleErr = h.reconciler.HandleRenewalSucceeded(ctx, invoiceSubscriptionID(&invoice))

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			response.BadRequest(c, "invalid event payload")
			return
		}
		handleErr = h.reconciler.HandleRenewalFailed(ctx, invoiceSubscriptionID(&invoice))

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			response.BadRequest(c, "invalid event payload")
			return
		}
		handleErr = h.reconciler.HandleSubscriptionDeleted(ctx, sub.ID, sub.Metadata)

	default:
		h.count(string(event.Type), "ignored")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if handleErr != nil {
		h.count(string(event.Type), "error")
		h.log.Error("webhook reconciliation failed",
			zap.String("type", string(event.Type)),
			zap.Error(handleErr),
		)
		response.InternalError(c, "reconciliation failed")
		return
	}

	h.count(string(event.Type), "ok")
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func invoiceSubscriptionID(invoice *stripe.Invoice) string {
	if invoice.Subscription == nil {
		return ""
	}
	return invoice.Subscription.ID
}

func (h *WebhookHandler) count(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	}
}
