// Package metrics exposes Prometheus counters for collection and alert activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application counters. A nil *Collector is valid and
// records nothing, so components can run without metrics in tests.
type Collector struct {
	registry *prometheus.Registry

	EntitiesAdded   *prometheus.CounterVec
	AddsRejected    *prometheus.CounterVec
	EntitiesRemoved *prometheus.CounterVec
	SaveFailures    *prometheus.CounterVec
	LoadFallbacks   *prometheus.CounterVec
	AlertsSent      prometheus.Counter
	HTTPRequests    *prometheus.CounterVec
}

// New creates a collector with its own registry under namespace.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		EntitiesAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_added_total",
			Help:      "Entities appended to a collection.",
		}, []string{"collection"}),
		AddsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_adds_rejected_total",
			Help:      "Drafts ignored because a required field was blank.",
		}, []string{"collection"}),
		EntitiesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_removed_total",
			Help:      "Entities removed from a collection.",
		}, []string{"collection"}),
		SaveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_save_failures_total",
			Help:      "Snapshot writes that failed and were dropped.",
		}, []string{"collection"}),
		LoadFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_load_fallbacks_total",
			Help:      "Snapshot loads that fell back to the default seed.",
		}, []string{"collection", "reason"}),
		AlertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "SOS alerts dispatched.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}
	c.registry.MustRegister(
		c.EntitiesAdded,
		c.AddsRejected,
		c.EntitiesRemoved,
		c.SaveFailures,
		c.LoadFallbacks,
		c.AlertsSent,
		c.HTTPRequests,
	)
	return c
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Added(collection string) {
	if c != nil {
		c.EntitiesAdded.WithLabelValues(collection).Inc()
	}
}

func (c *Collector) Rejected(collection string) {
	if c != nil {
		c.AddsRejected.WithLabelValues(collection).Inc()
	}
}

func (c *Collector) Removed(collection string, n int) {
	if c != nil && n > 0 {
		c.EntitiesRemoved.WithLabelValues(collection).Add(float64(n))
	}
}

func (c *Collector) SaveFailed(collection string) {
	if c != nil {
		c.SaveFailures.WithLabelValues(collection).Inc()
	}
}

func (c *Collector) LoadFellBack(collection, reason string) {
	if c != nil {
		c.LoadFallbacks.WithLabelValues(collection, reason).Inc()
	}
}

func (c *Collector) AlertSent() {
	if c != nil {
		c.AlertsSent.Inc()
	}
}

func (c *Collector) Request(method, route, status string) {
	if c != nil {
		c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	}
}
