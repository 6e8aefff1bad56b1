package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a dedicated Prometheus registry with the accessor operation
// metrics and the HTTP server exposing it.
//
// *Metrics implements observability.Observer: hand it to an accessor with
// WithObserver, or provide it through FXModule, and every accessor call is
// counted and timed.
type Metrics struct {
	// Server serves the registry at /metrics. Nil when Config.Address is empty.
	Server *http.Server

	// Registry holds every metric of this instance.
	Registry *prometheus.Registry

	registerer prometheus.Registerer
	namespace  string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationItems    *prometheus.CounterVec
}

// NewMetrics creates the registry, registers the accessor metrics and, when
// cfg.Address is set, prepares the HTTP server. All metrics carry the label
// service="<cfg.ServiceName>".
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "indexer"})
//	users := table.NewFromDB(db, "users", table.WithObserver(m))
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	m := &Metrics{
		Registry:   registry,
		registerer: wrapped,
		namespace:  cfg.Namespace,
	}
	m.operationsTotal = m.counterVec("accessor_operations_total",
		"Total number of accessor calls by outcome", []string{"component", "operation", "status"})
	m.operationDuration = m.histogramVec("accessor_operation_duration_seconds",
		"Duration of accessor calls in seconds", []string{"component", "operation"}, buckets)
	m.operationItems = m.counterVec("accessor_operation_items_total",
		"Rows, documents or keys returned or affected by accessor calls", []string{"component", "operation"})

	wrapped.MustRegister(m.operationsTotal, m.operationDuration, m.operationItems)

	if cfg.EnableDefaultCollectors {
		wrapped.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	if cfg.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		m.Server = &http.Server{
			Addr:    cfg.Address,
			Handler: mux,
		}
	}
	return m
}

// CreateCounter creates and registers a CounterVec next to the accessor
// metrics.
func (m *Metrics) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := m.counterVec(name, help, labels)
	m.registerer.MustRegister(counter)
	return counter
}

// CreateHistogram creates and registers a HistogramVec.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hist := m.histogramVec(name, help, labels, buckets)
	m.registerer.MustRegister(hist)
	return hist
}

func (m *Metrics) counterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func (m *Metrics) histogramVec(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}
