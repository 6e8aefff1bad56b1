package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test"})

	m.ObserveOperation(observability.OperationContext{
		Component: "table", Operation: "get", Duration: 5 * time.Millisecond, Size: 3,
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "table", Operation: "get", Duration: time.Millisecond,
		Error: sink.WithKind(sink.KindNotFound, errors.New("gone")),
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "kv", Operation: "add", Error: errors.New("raw"),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("table", "get", StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("table", "get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("kv", "add", "backend")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.operationItems.WithLabelValues("table", "get")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.operationDuration))
}

func TestObserver_ThroughSink(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test", Namespace: "app"})
	s := sink.New("search", "docs", sink.Config{Observer: m, ErrorHandle: func(error) {}}, func(error) sink.Kind {
		return sink.KindConflict
	})

	_, _ = sink.Run(context.Background(), s, "add", func(ctx context.Context, call *sink.Call) (int, error) {
		return 0, errors.New("exists")
	})

	expected := `
# HELP app_accessor_operations_total Total number of accessor calls by outcome
# TYPE app_accessor_operations_total counter
app_accessor_operations_total{component="search",operation="add",service="test",status="conflict"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected), "app_accessor_operations_total"))
}

func TestCreateCounter(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test"})
	c := m.CreateCounter("imports_total", "Imported documents", []string{"source"})
	c.WithLabelValues("s3").Add(2)

	h := m.CreateHistogram("batch_size", "Batch sizes", nil, []float64{10, 100})
	h.WithLabelValues().Observe(42)

	n, err := testutil.GatherAndCount(m.Registry, "imports_total", "batch_size")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestServerExposesRegistry(t *testing.T) {
	m := NewMetrics(Config{Address: ":0", ServiceName: "test"})
	require.NotNil(t, m.Server)
	m.ObserveOperation(observability.OperationContext{Component: "kv", Operation: "get"})

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `accessor_operations_total{component="kv",operation="get",service="test",status="ok"} 1`)

	assert.Nil(t, NewMetrics(Config{}).Server)
}

func TestFXModule_ProvidesObserver(t *testing.T) {
	var observer observability.Observer
	var m *Metrics
	app := fxtest.New(t,
		FXModule,
		fx.Provide(func() Config { return Config{ServiceName: "fx"} }),
		fx.Populate(&observer, &m),
	)
	app.RequireStart()
	defer app.RequireStop()

	observer.ObserveOperation(observability.OperationContext{Component: "table", Operation: "add"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("table", "add", StatusOK)))
}
