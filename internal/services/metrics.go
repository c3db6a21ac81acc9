package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeOK = "ok"

// Metrics holds the Prometheus metrics of one process. They are written to a
// node-exporter textfile after each run rather than served over HTTP.
type Metrics struct {
	registry        *prometheus.Registry
	files           *prometheus.CounterVec
	extractLatency  prometheus.Histogram
	placemarks      prometheus.Gauge
	paths           prometheus.Gauge
	runDuration     prometheus.Gauge
	lastRunSuccess  prometheus.Gauge
	lastRunFinished prometheus.Gauge
}

// NewMetrics creates and registers the run metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		files: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "photokml_files_total",
				Help: "Photos processed, by extraction outcome",
			},
			[]string{"outcome"},
		),
		extractLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "photokml_extract_latency_ms",
				Help:    "Time to read and decode one photo in milliseconds",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
			},
		),
		placemarks: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photokml_placemarks",
				Help: "Placemarks written by the last run",
			},
		),
		paths: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photokml_paths",
				Help: "Line paths written by the last run",
			},
		),
		runDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photokml_run_duration_seconds",
				Help: "Wall time of the last run",
			},
		),
		lastRunSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photokml_last_run_success",
				Help: "1 if the last run wrote its document, 0 otherwise",
			},
		),
		lastRunFinished: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "photokml_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
}

// ObserveFile counts one processed photo. A nil Metrics ignores the call.
func (m *Metrics) ObserveFile(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
	m.extractLatency.Observe(float64(d.Microseconds()) / 1000)
}

func (m *Metrics) ObserveRun(placemarks, paths int, d time.Duration, success bool) {
	if m == nil {
		return
	}
	if success {
		m.placemarks.Set(float64(placemarks))
		m.paths.Set(float64(paths))
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	m.runDuration.Set(d.Seconds())
	m.lastRunFinished.SetToCurrentTime()
}

// WriteTextfile writes all metrics in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
