// Package metrics collects and exposes Prometheus metrics for the
// generation pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts generation calls, retries and image outcomes. It
// satisfies both the generation client's and the wizard's recorder
// interfaces.
type Collector struct {
	registry   *prometheus.Registry
	generation *prometheus.CounterVec
	retries    *prometheus.CounterVec
	images     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		generation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "founderframe_generation_requests_total",
			Help: "Generation calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "founderframe_generation_retries_total",
			Help: "Retry attempts by operation.",
		}, []string{"operation"}),
		images: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "founderframe_slide_images_total",
			Help: "Slide image results by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "founderframe_generation_latency_seconds",
			Help:    "Latency of generation calls, retries included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	c.registry.MustRegister(c.generation, c.retries, c.images, c.latency)
	return c
}

func (c *Collector) RecordGeneration(operation, outcome string) {
	c.generation.WithLabelValues(operation, outcome).Inc()
}

func (c *Collector) RecordRetry(operation string) {
	c.retries.WithLabelValues(operation).Inc()
}

func (c *Collector) RecordImage(outcome string) {
	c.images.WithLabelValues(outcome).Inc()
}

func (c *Collector) ObserveLatency(operation string, d time.Duration) {
	c.latency.WithLabelValues(operation).Observe(d.Seconds())
}

// Handler serves the scrape endpoint for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
