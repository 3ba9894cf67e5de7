package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout and webhook processing outcomes.
type PaymentMetrics struct {
	checkoutSessions *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	webhookDuration  *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout sessions created, by billing type and outcome.",
	}, []string{"billing_type", "outcome"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook events received, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_event_duration_seconds",
		Help:    "Time spent processing a webhook event.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	reg.MustRegister(checkoutSessions, webhookEvents, webhookDuration)
	return &PaymentMetrics{
		checkoutSessions: checkoutSessions,
		webhookEvents:    webhookEvents,
		webhookDuration:  webhookDuration,
	}
}

// IncCheckoutSession counts a checkout session attempt.
func (p *PaymentMetrics) IncCheckoutSession(billingType, outcome string) {
	if p == nil || p.checkoutSessions == nil {
		return
	}
	p.checkoutSessions.WithLabelValues(normalizeLabel(billingType), normalizeLabel(outcome)).Inc()
}

// IncWebhookEvent counts a processed webhook event.
func (p *PaymentMetrics) IncWebhookEvent(eventType, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveWebhookDuration records the processing time for an event type.
func (p *PaymentMetrics) ObserveWebhookDuration(eventType string, duration time.Duration) {
	if p == nil || p.webhookDuration == nil {
		return
	}
	p.webhookDuration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
