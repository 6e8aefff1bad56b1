package sink

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

var errBoom = errors.New("boom")

type recorder struct {
	mu      sync.Mutex
	entries []Entry
	errs    []error
	ops     []observability.OperationContext
}

func (r *recorder) config(debug bool) Config {
	return Config{
		Debug: debug,
		DebugLog: func(e Entry) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.entries = append(r.entries, e)
		},
		ErrorHandle: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		Observer: observability.ObserverFunc(func(oc observability.OperationContext) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ops = append(r.ops, oc)
		}),
	}
}

func classifyBoom(err error) Kind {
	if errors.Is(err, errBoom) {
		return KindConflict
	}
	return KindBackend
}

func TestRun_SuccessWithDebug(t *testing.T) {
	rec := &recorder{}
	s := New("table", "users", rec.config(true), classifyBoom)

	got, err := Run(context.Background(), s, "get", func(ctx context.Context, call *Call) ([]string, error) {
		call.Query = "SELECT 1"
		call.Size = 2
		return []string{"a", "b"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	require.Len(t, rec.entries, 1)
	e := rec.entries[0]
	assert.Equal(t, "table", e.Component)
	assert.Equal(t, "get", e.Operation)
	assert.Equal(t, "users", e.Resource)
	assert.Equal(t, "SELECT 1", e.Query)
	assert.Equal(t, []string{"a", "b"}, e.Result)
	assert.NoError(t, e.Err)

	assert.Empty(t, rec.errs)
	require.Len(t, rec.ops, 1)
	assert.Equal(t, int64(2), rec.ops[0].Size)
	assert.NoError(t, rec.ops[0].Error)
}

func TestRun_SuccessWithoutDebug(t *testing.T) {
	rec := &recorder{}
	s := New("table", "users", rec.config(false), nil)

	_, err := Run(context.Background(), s, "get", func(ctx context.Context, call *Call) (int, error) {
		return 1, nil
	})

	require.NoError(t, err)
	assert.Empty(t, rec.entries)
	assert.Empty(t, rec.errs)
	assert.Len(t, rec.ops, 1)
}

func TestRun_FailureIsClassifiedAndReported(t *testing.T) {
	rec := &recorder{}
	s := New("search", "docs", rec.config(true), classifyBoom)

	got, err := Run(context.Background(), s, "add", func(ctx context.Context, call *Call) (int, error) {
		call.Query = map[string]any{"id": "1"}
		return 7, errBoom
	})

	require.Error(t, err)
	assert.Zero(t, got)
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsConflict(err))

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "search", opErr.Component)
	assert.Equal(t, "add", opErr.Operation)
	assert.Equal(t, "docs", opErr.Resource)

	require.Len(t, rec.errs, 1)
	assert.Same(t, opErr, rec.errs[0])

	require.Len(t, rec.entries, 1)
	assert.Nil(t, rec.entries[0].Result)
	assert.Equal(t, map[string]any{"id": "1"}, rec.entries[0].Query)
	assert.ErrorIs(t, rec.entries[0].Err, errBoom)

	require.Len(t, rec.ops, 1)
	assert.ErrorIs(t, rec.ops[0].Error, errBoom)
}

func TestRun_Absorb(t *testing.T) {
	rec := &recorder{}
	cfg := rec.config(false)
	cfg.Absorb = true
	s := New("kv", "app:", cfg, nil)

	got, err := Run(context.Background(), s, "get", func(ctx context.Context, call *Call) (map[string]string, error) {
		return map[string]string{"a": "b"}, errBoom
	})

	assert.NoError(t, err)
	assert.Nil(t, got)
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], errBoom)
}

func TestRun_PreclassifiedErrorKeepsKind(t *testing.T) {
	rec := &recorder{}
	s := New("search", "docs", rec.config(false), classifyBoom)

	_, err := Run(context.Background(), s, "getPage", func(ctx context.Context, call *Call) (int, error) {
		return 0, Invalidf("bad cursor %q", "xyz")
	})

	assert.Equal(t, KindInvalid, KindOf(err))
	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "getPage", opErr.Operation)
	assert.Equal(t, "docs", opErr.Resource)
}

func TestRun_ContextErrorsAreBackend(t *testing.T) {
	rec := &recorder{}
	s := New("table", "users", rec.config(false), func(error) Kind { return KindNotFound })

	_, err := Run(context.Background(), s, "get", func(ctx context.Context, call *Call) (int, error) {
		return 0, context.DeadlineExceeded
	})

	assert.Equal(t, KindBackend, KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_DefaultLoggerReceivesCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockLogger := NewMockLogger(ctrl)

	mockLogger.EXPECT().Debug("accessor call", nil, gomock.Any()).Times(1)
	mockLogger.EXPECT().Debug("accessor call", gomock.Any(), gomock.Any()).Times(1)
	mockLogger.EXPECT().Error("accessor call failed", gomock.Any(), gomock.Any()).Times(1)

	s := New("table", "users", Config{Debug: true, Logger: mockLogger}, nil)

	_, err := Run(context.Background(), s, "get", func(ctx context.Context, call *Call) (int, error) {
		return 1, nil
	})
	require.NoError(t, err)

	_, err = Run(context.Background(), s, "set", func(ctx context.Context, call *Call) (int, error) {
		return 0, errBoom
	})
	require.Error(t, err)
}

func TestRun_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	rec := &recorder{}
	cfg := rec.config(false)
	cfg.Tracer = tp.Tracer("test")
	s := New("table", "users", cfg, nil)

	_, _ = Run(context.Background(), s, "get", func(ctx context.Context, call *Call) (int, error) {
		return 1, nil
	})
	_, _ = Run(context.Background(), s, "add", func(ctx context.Context, call *Call) (int, error) {
		return 0, errBoom
	})

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "table.get", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	assert.Equal(t, "table.add", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "table", attrs["accessor.component"])
	assert.Equal(t, "get", attrs["accessor.operation"])
	assert.Equal(t, "users", attrs["accessor.resource"])
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "backend", KindBackend.String())
	assert.Equal(t, "not found", KindNotFound.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "invalid", KindInvalid.String())
	assert.False(t, IsNotFound(nil))
	assert.Equal(t, KindBackend, KindOf(errBoom))
}
