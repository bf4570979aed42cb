// Package metrics provides Prometheus metrics collection for schema generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation steps used as the "step" label.
const (
	StepExtract   = "extract"
	StepAggregate = "aggregate"
)

// Collector holds all Prometheus metrics for schema generation.
type Collector struct {
	registry *prometheus.Registry

	SchemasExtracted  prometheus.Counter
	SchemasAggregated prometheus.Counter
	SchemasSkipped    prometheus.Counter

	GenerationDuration *prometheus.HistogramVec
	GenerationErrors   *prometheus.CounterVec
	LastSuccess        *prometheus.GaugeVec

	// HTTP metrics for the serve command
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates a collector registered on its own registry.
func New() *Collector {
	return NewWithRegistry(prometheus.NewRegistry())
}

// NewWithRegistry creates a collector registered on reg.
func NewWithRegistry(reg *prometheus.Registry) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		SchemasExtracted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "neris",
				Name:      "schemas_extracted_total",
				Help:      "Total number of schema documents written by the extractor",
			},
		),
		SchemasAggregated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "neris",
				Name:      "schemas_aggregated_total",
				Help:      "Total number of schema documents merged into the combined document",
			},
		),
		SchemasSkipped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "neris",
				Name:      "schemas_skipped_total",
				Help:      "Total number of schema documents skipped because they failed to load",
			},
		),

		GenerationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "neris",
				Name:      "generation_duration_seconds",
				Help:      "Duration of a generation step in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"step"},
		),
		GenerationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neris",
				Name:      "generation_errors_total",
				Help:      "Total number of failed generation steps",
			},
			[]string{"step"},
		),
		LastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "neris",
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix timestamp of the last successful generation step",
			},
			[]string{"step"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "neris",
				Name:      "http_requests_total",
				Help:      "Total number of schema requests served",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "neris",
				Name:      "http_request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
	}
}

// Registry returns the registry the collector is registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordExtract records one extractor run.
func (c *Collector) RecordExtract(written int, elapsed time.Duration, err error) {
	c.record(StepExtract, elapsed, err)
	if err == nil {
		c.SchemasExtracted.Add(float64(written))
	}
}

// RecordAggregate records one aggregator run.
func (c *Collector) RecordAggregate(loaded, skipped int, elapsed time.Duration, err error) {
	c.record(StepAggregate, elapsed, err)
	c.SchemasSkipped.Add(float64(skipped))
	if err == nil {
		c.SchemasAggregated.Add(float64(loaded))
	}
}

func (c *Collector) record(step string, elapsed time.Duration, err error) {
	c.GenerationDuration.WithLabelValues(step).Observe(elapsed.Seconds())
	if err != nil {
		c.GenerationErrors.WithLabelValues(step).Inc()
		return
	}
	c.LastSuccess.WithLabelValues(step).SetToCurrentTime()
}

// Handler exposes the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics in the text exposition format,
// for pickup by the node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}
