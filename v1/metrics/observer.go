package metrics

import (
	"strings"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
)

// StatusOK is the status label of successful calls. Failed calls are
// labelled with their sink kind: "backend", "not_found", "conflict" or
// "invalid".
const StatusOK = "ok"

var _ observability.Observer = (*Metrics)(nil)

// ObserveOperation records one accessor call.
func (m *Metrics) ObserveOperation(oc observability.OperationContext) {
	status := StatusOK
	if oc.Error != nil {
		status = strings.ReplaceAll(sink.KindOf(oc.Error).String(), " ", "_")
	}

	m.operationsTotal.WithLabelValues(oc.Component, oc.Operation, status).Inc()
	m.operationDuration.WithLabelValues(oc.Component, oc.Operation).Observe(oc.Duration.Seconds())
	if oc.Size > 0 {
		m.operationItems.WithLabelValues(oc.Component, oc.Operation).Add(float64(oc.Size))
	}
}
