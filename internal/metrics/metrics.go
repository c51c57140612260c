// Package metrics records per-run filter metrics and writes them in the
// Prometheus text format for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "ipsift"
	subsystem = "filter"
)

// Recorder holds the metrics of a single run on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	sourceEntries *prometheus.GaugeVec
	sourceInvalid *prometheus.GaugeVec
	sourceUp      *prometheus.GaugeVec
	excludedTotal *prometheus.CounterVec
	keptTotal     prometheus.Counter
	candidates    prometheus.Gauge
	lastRun       prometheus.Gauge
	duration      prometheus.Gauge
}

// NewRecorder creates a Recorder with an isolated registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.sourceEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "source_entries",
		Help:      "Number of valid entries contributed by each exclusion source.",
	}, []string{"source", "kind"})

	r.sourceInvalid = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "source_invalid_entries",
		Help:      "Number of malformed entries skipped in each exclusion source.",
	}, []string{"source"})

	r.sourceUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "source_up",
		Help:      "Whether the exclusion source was read successfully (1) or not (0).",
	}, []string{"source"})

	r.excludedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "excluded_total",
		Help:      "Candidates excluded, by reason.",
	}, []string{"reason"})

	r.keptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "kept_total",
		Help:      "Candidates that matched no exclusion.",
	})

	r.candidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "candidates",
		Help:      "Unique candidate addresses read from the input.",
	})

	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the end of the last run.",
	})

	r.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the last run.",
	})

	r.registry.MustRegister(r.sourceEntries, r.sourceInvalid, r.sourceUp,
		r.excludedTotal, r.keptTotal, r.candidates, r.lastRun, r.duration)
	return r
}

// ObserveSource records what one exclusion source contributed.
func (r *Recorder) ObserveSource(name string, addrs, ranges, invalid int, up bool) {
	r.sourceEntries.WithLabelValues(name, "address").Set(float64(addrs))
	r.sourceEntries.WithLabelValues(name, "range").Set(float64(ranges))
	r.sourceInvalid.WithLabelValues(name).Set(float64(invalid))
	if up {
		r.sourceUp.WithLabelValues(name).Set(1)
	} else {
		r.sourceUp.WithLabelValues(name).Set(0)
	}
}

// ObserveResult records the classification outcome.
func (r *Recorder) ObserveResult(candidates, kept int, byReason map[string]int) {
	r.candidates.Set(float64(candidates))
	r.keptTotal.Add(float64(kept))
	for reason, n := range byReason {
		r.excludedTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveRun records the run end time and duration.
func (r *Recorder) ObserveRun(end time.Time, d time.Duration) {
	r.lastRun.Set(float64(end.Unix()))
	r.duration.Set(d.Seconds())
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
