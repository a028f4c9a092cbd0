package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the server.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SubscriptionEvents *prometheus.CounterVec
	WebhookEvents      *prometheus.CounterVec
	EmailsSent         *prometheus.CounterVec
	ProcessorCalls     *prometheus.CounterVec
}

// New registers and returns the server's metric collectors.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vvip_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vvip_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),

		SubscriptionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vvip_subscription_events_total",
			Help: "Subscription lifecycle events by kind and outcome.",
		}, []string{"kind", "outcome"}),

		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vvip_webhook_events_total",
			Help: "Stripe webhook events by type and outcome.",
		}, []string{"type", "outcome"}),

		EmailsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vvip_emails_sent_total",
			Help: "Notification emails by kind and outcome.",
		}, []string{"kind", "outcome"}),

		ProcessorCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vvip_processor_calls_total",
			Help: "Payment processor API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
}
