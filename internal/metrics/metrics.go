// Package metrics exposes Prometheus collectors for site builds.
//
// A build is a short-lived process, so nothing is served over HTTP; the
// collectors are written in the text exposition format to a file that a
// node_exporter textfile collector can pick up.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Project outcome labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Collector groups the build collectors on a private registry.
type Collector struct {
	registry       *prometheus.Registry
	projectsTotal  *prometheus.CounterVec
	captureSeconds prometheus.Histogram
	buildSeconds   prometheus.Gauge
	lastBuild      prometheus.Gauge
}

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		projectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portfolios_projects_total",
				Help: "Projects processed by the build, labeled by status.",
			},
			[]string{"status"},
		),
		captureSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "portfolios_project_duration_seconds",
				Help:    "Time spent parsing and capturing one project.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		buildSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portfolios_build_duration_seconds",
				Help: "Wall time of the last build.",
			},
		),
		lastBuild: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "portfolios_last_build_timestamp_seconds",
				Help: "Unix time at which the last build finished.",
			},
		),
	}
	c.registry.MustRegister(c.projectsTotal, c.captureSeconds, c.buildSeconds, c.lastBuild)
	return c
}

// ObserveProject records the outcome and duration of one project.
func (c *Collector) ObserveProject(status string, d time.Duration) {
	c.projectsTotal.WithLabelValues(status).Inc()
	c.captureSeconds.Observe(d.Seconds())
}

// ObserveBuild records the total build time and completion time.
func (c *Collector) ObserveBuild(d time.Duration, finished time.Time) {
	c.buildSeconds.Set(d.Seconds())
	c.lastBuild.Set(float64(finished.Unix()))
}

// Registry exposes the underlying registry (for tests and embedding).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes all collectors to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
