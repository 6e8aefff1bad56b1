// Package metrics exports accessor call metrics to Prometheus.
//
// *Metrics is an observability.Observer. Attached to an accessor it records,
// per call:
//
//	accessor_operations_total{component,operation,status}
//	accessor_operation_duration_seconds{component,operation}
//	accessor_operation_items_total{component,operation}
//
// where status is "ok" or the sink kind of the failure. Metrics live in a
// dedicated registry, labelled with service="<ServiceName>" and optionally
// prefixed with Namespace, and are served at /metrics when Address is set.
//
// # Direct Usage (Without FX)
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "indexer"})
//	go m.Server.ListenAndServe()
//
//	docs, err := search.New(esCfg, "documents", search.WithObserver(m))
//
// # FX Usage
//
// FXModule also provides *Metrics as observability.Observer, so the
// table, search and kv fx factories report to it without further wiring.
//
// Custom metrics can be added to the same registry with CreateCounter and
// CreateHistogram.
package metrics
