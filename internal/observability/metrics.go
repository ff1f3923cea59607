package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// locator service.
type Metrics struct {
	SimulationsTotal *prometheus.CounterVec // labels: fault_type, outcome
	LocateDuration   prometheus.Histogram
	AcksTotal        prometheus.Counter
	ReportsTotal     *prometheus.CounterVec // labels: source={simulation,feed}

	// Lookup-table build metrics, set once at engine construction.
	TableBuildSeconds prometheus.Gauge
	TableRows         *prometheus.GaugeVec // labels: fault_type

	// External feed metrics.
	FeedRecords *prometheus.CounterVec // labels: feed={kafka,sheet}, outcome={ingested,decode_error,duplicate}
	FeedRunning prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		SimulationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overwatch",
			Name:      "simulations_total",
			Help:      "Simulated fault requests by fault type and outcome.",
		}, []string{"fault_type", "outcome"}),
		LocateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "overwatch",
			Name:      "locate_duration_seconds",
			Help:      "Duration of a full simulate-classify-locate request.",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}),
		AcksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overwatch",
			Name:      "report_acknowledgements_total",
			Help:      "Total operator acknowledgements applied to fault reports.",
		}),
		ReportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overwatch",
			Name:      "reports_total",
			Help:      "Fault reports appended to the log by source.",
		}, []string{"source"}),
		TableBuildSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overwatch",
			Name:      "table_build_seconds",
			Help:      "Time spent building the fault-current lookup tables at startup.",
		}),
		TableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "overwatch",
			Name:      "table_rows",
			Help:      "Rows per fault-type lookup table.",
		}, []string{"fault_type"}),
		FeedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overwatch",
			Name:      "feed_records_total",
			Help:      "External fault-record feed results by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FeedRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overwatch",
			Name:      "feed_running",
			Help:      "1 when an external feed consumer is active, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SimulationsTotal,
		m.LocateDuration,
		m.AcksTotal,
		m.ReportsTotal,
		m.TableBuildSeconds,
		m.TableRows,
		m.FeedRecords,
		m.FeedRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
