// Package metrics provides Prometheus metrics for the preview server and
// the option builder.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "optionbuilder"

// Collector holds the Prometheus metrics.
type Collector struct {
	// Preview server
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Builder
	FieldFailures *prometheus.CounterVec

	// Definitions
	DefinitionReloads      prometheus.Counter
	DefinitionReloadErrors prometheus.Counter
	DefinitionContainers   prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg. Tests use a
// fresh registry to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of preview requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Preview request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "route"},
		),
		FieldFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_failures_total",
				Help:      "Fields replaced by an inline error block",
			},
			[]string{"kind", "reason"},
		),
		DefinitionReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reloads_total",
				Help:      "Total number of successful definition reloads",
			},
		),
		DefinitionReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "definition_reload_errors_total",
				Help:      "Total number of failed definition reloads",
			},
		),
		DefinitionContainers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "definition_containers",
				Help:      "Number of containers currently loaded",
			},
		),
	}
}

// FieldFailed records a recovered field failure. It satisfies the builder's
// failure observer.
func (c *Collector) FieldFailed(kind, reason string) {
	if c == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	c.FieldFailures.WithLabelValues(kind, reason).Inc()
}

// DefinitionsReloaded records the outcome of a definitions reload.
func (c *Collector) DefinitionsReloaded(containers int, err error) {
	if c == nil {
		return
	}
	if err != nil {
		c.DefinitionReloadErrors.Inc()
		return
	}
	c.DefinitionReloads.Inc()
	c.DefinitionContainers.Set(float64(containers))
}

// StatusLabel returns the status class label for code.
func StatusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
