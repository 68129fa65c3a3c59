// Package metrics records validation run metrics in a private Prometheus
// registry and exports them to a node-exporter textfile.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360studio/personacheck/source"
	"github.com/c360studio/personacheck/validation"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "personacheck"

// Result label values.
const (
	ResultPass = "pass"
	ResultWarn = "warn"
	ResultFail = "fail"
)

// Collector holds the run metrics.
type Collector struct {
	registry *prometheus.Registry

	documentsLoaded prometheus.Counter
	loadFailures    prometheus.Counter
	checks          *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastSuccess     prometheus.Gauge
	runs            *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		documentsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_loaded_total",
			Help:      "Documents loaded from content roots.",
		}),
		loadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "load_failures_total",
			Help:      "Files that could not be read.",
		}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Validation checks by rule and result.",
		}, []string{"rule", "result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of validation runs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run in which every check passed.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Validation runs by outcome.",
		}, []string{"outcome"}),
	}

	c.registry.MustRegister(
		c.documentsLoaded,
		c.loadFailures,
		c.checks,
		c.runDuration,
		c.lastSuccess,
		c.runs,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveLoad records the outcome of loading a document set.
func (c *Collector) ObserveLoad(set *source.Set) {
	if set == nil {
		return
	}
	c.documentsLoaded.Add(float64(set.Len()))
	c.loadFailures.Add(float64(len(set.Failures())))
}

// ObserveReport records every entry of a report and the run outcome. The
// report may be nil when validation could not start.
func (c *Collector) ObserveReport(report *validation.Report, err error, duration time.Duration, finished time.Time) {
	c.runDuration.Observe(duration.Seconds())
	c.runs.WithLabelValues(Outcome(report, err)).Inc()

	if report == nil {
		return
	}
	for _, e := range report.Entries {
		result := ResultFail
		switch {
		case e.Passed && e.Warning:
			result = ResultWarn
		case e.Passed:
			result = ResultPass
		}
		c.checks.WithLabelValues(e.Rule, result).Inc()
	}
	if err == nil && report.Passed() {
		c.lastSuccess.Set(float64(finished.Unix()))
	}
}

// Outcome classifies a run for the runs_total metric.
func Outcome(report *validation.Report, err error) string {
	switch {
	case err == nil && report != nil:
		return "passed"
	case errors.Is(err, validation.ErrTimeout):
		return "timeout"
	case report != nil:
		return "failed"
	default:
		return "error"
	}
}

// WriteTextfile writes the registry in the text exposition format. The file
// is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
