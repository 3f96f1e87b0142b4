// Package metrics exposes shell activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/goliatone/go-authgate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ authgate.ActivitySink = (*Collector)(nil)

// Collector counts shell activity. It is an authgate.ActivitySink.
type Collector struct {
	submits     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	signOuts    prometheus.Counter
	navigations *prometheus.CounterVec
}

// NewCollector creates the collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_submit_total",
			Help: "Credential submits by mode and outcome.",
		}, []string{"mode", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_provider_failure_total",
			Help: "Identity provider failures by reason.",
		}, []string{"reason"}),
		signOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_signout_total",
			Help: "Sign-outs.",
		}),
		navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_navigation_total",
			Help: "Screen transitions.",
		}, []string{"from", "to"}),
	}

	reg.MustRegister(
		c.submits,
		c.failures,
		c.signOuts,
		c.navigations,
	)

	return c
}

// Record implements authgate.ActivitySink.
func (c *Collector) Record(_ context.Context, event authgate.ActivityEvent) error {
	switch event.EventType {
	case authgate.ActivitySubmitSucceeded, authgate.ActivitySubmitInvalid:
		c.submits.WithLabelValues(event.Mode.String(), string(event.Outcome)).Inc()
	case authgate.ActivitySubmitFailed:
		c.submits.WithLabelValues(event.Mode.String(), string(event.Outcome)).Inc()
		c.failures.WithLabelValues(string(event.Reason)).Inc()
	case authgate.ActivitySignOut:
		c.signOuts.Inc()
	case authgate.ActivityNavigation:
		from := string(event.From)
		if from == "" {
			from = "none"
		}
		c.navigations.WithLabelValues(from, string(event.To)).Inc()
	}
	return nil
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute serves gatherer on /metrics.
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
