package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tempchart"

// Metrics holds the Prometheus counters, histograms, and gauges for loading
// and charting temperature data.
type Metrics struct {
	RowsRead     prometheus.Counter
	RowsSkipped  *prometheus.CounterVec // labels: reason={blank,missing_time,...}
	Loads        *prometheus.CounterVec // labels: outcome={success,source_not_found,schema_mismatch,empty_dataset,error}
	LoadDuration prometheus.Histogram

	// Latest dataset.
	Readings        prometheus.Gauge
	UndefinedSlopes prometheus.Gauge

	ChartRenders *prometheus.CounterVec // labels: format={html,png,json}
	Reloads      *prometheus.CounterVec // labels: outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsRead,
		m.RowsSkipped,
		m.Loads,
		m.LoadDuration,
		m.Readings,
		m.UndefinedSlopes,
		m.ChartRenders,
		m.Reloads,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total data rows read from source tables.",
		}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Rows rejected during validation, by reason.",
		}, []string{"reason"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Dataset loads by outcome.",
		}, []string{"outcome"}),
		LoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Duration of a complete load-and-derive run.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Readings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readings",
			Help:      "Readings in the most recently loaded dataset.",
		}),
		UndefinedSlopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "undefined_slopes",
			Help:      "Points without a slope estimate in the most recently loaded dataset.",
		}),
		ChartRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_renders_total",
			Help:      "Chart renders by output format.",
		}, []string{"format"}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reloads_total",
			Help:      "Reloads triggered by source file changes, by outcome.",
		}, []string{"outcome"}),
	}
}
