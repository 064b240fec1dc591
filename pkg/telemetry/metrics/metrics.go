// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercator-hq/ganymede/pkg/forge"
)

// Metrics holds the engine's Prometheus collectors on a private
// registry, so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	rulesEvaluated   prometheus.Counter
	resourcesMatched *prometheus.CounterVec
	actionsExecuted  *prometheus.CounterVec
	forgeRequests    *prometheus.HistogramVec
	webhookEvents    *prometheus.CounterVec
}

// New creates the engine metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganymede",
			Name:      "runs_total",
			Help:      "Triage runs started, by trigger and dry-run mode.",
		}, []string{"trigger", "dry_run"}),

		rulesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ganymede",
			Name:      "rules_evaluated_total",
			Help:      "Policy rules evaluated.",
		}),

		resourcesMatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganymede",
			Name:      "resources_matched_total",
			Help:      "Resources selected by rule conditions, by resource type.",
		}, []string{"resource_type"}),

		actionsExecuted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganymede",
			Name:      "actions_executed_total",
			Help:      "Actions executed, by action kind, resource type, and dry-run mode.",
		}, []string{"action", "resource_type", "dry_run"}),

		forgeRequests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ganymede",
			Name:      "forge_request_duration_seconds",
			Help:      "Forge API request latency, by method and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),

		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganymede",
			Name:      "webhook_events_total",
			Help:      "Webhook events received, by event type and outcome.",
		}, []string{"event", "outcome"}),
	}
}

// RunStarted counts one triage run.
func (m *Metrics) RunStarted(trigger string, dryRun bool) {
	m.runsTotal.WithLabelValues(trigger, strconv.FormatBool(dryRun)).Inc()
}

// RuleEvaluated counts one evaluated rule.
func (m *Metrics) RuleEvaluated() {
	m.rulesEvaluated.Inc()
}

// ResourceMatched counts one resource selected by a rule.
func (m *Metrics) ResourceMatched(resourceType string) {
	m.resourcesMatched.WithLabelValues(resourceType).Inc()
}

// ActionExecuted implements the executor's metrics hook.
func (m *Metrics) ActionExecuted(action string, rt forge.ResourceType, dryRun bool) {
	m.actionsExecuted.WithLabelValues(action, string(rt), strconv.FormatBool(dryRun)).Inc()
}

// ForgeRequest observes one forge API call.
func (m *Metrics) ForgeRequest(method string, status int, elapsed time.Duration) {
	m.forgeRequests.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// WebhookEvent counts one received webhook event.
func (m *Metrics) WebhookEvent(event, outcome string) {
	m.webhookEvents.WithLabelValues(event, outcome).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
