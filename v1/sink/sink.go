package sink

import (
	"context"
	"sync"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/logger"
	"github.com/Aleph-Alpha/accessor/v1/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Aleph-Alpha/accessor/v1/sink"

var (
	defaultLoggerOnce sync.Once
	defaultLogger     *logger.Logger
)

func fallbackLogger() Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = logger.NewLoggerClient(logger.Config{
			Level:       logger.Debug,
			ServiceName: "accessor",
		})
	})
	return defaultLogger
}

// Sink runs backend calls for one accessor instance and reports their outcome.
// A Sink is immutable after New and safe for concurrent use.
type Sink struct {
	component string
	resource  string
	classify  Classifier

	debug       bool
	absorb      bool
	debugLog    func(Entry)
	errorHandle func(error)
	observer    observability.Observer
	tracer      trace.Tracer
}

// New builds the wrapper for one accessor. component names the accessor
// family ("table", "search", "kv"), resource the table, index or key prefix.
func New(component, resource string, cfg Config, classify Classifier) *Sink {
	s := &Sink{
		component:   component,
		resource:    resource,
		classify:    classify,
		debug:       cfg.Debug,
		absorb:      cfg.Absorb,
		debugLog:    cfg.DebugLog,
		errorHandle: cfg.ErrorHandle,
		observer:    cfg.Observer,
		tracer:      cfg.Tracer,
	}

	log := cfg.Logger
	if log == nil && (s.debugLog == nil || s.errorHandle == nil) {
		log = fallbackLogger()
	}
	if s.debugLog == nil {
		s.debugLog = func(e Entry) {
			log.Debug("accessor call", e.Err, e.Fields())
		}
	}
	if s.errorHandle == nil {
		s.errorHandle = func(err error) {
			log.Error("accessor call failed", err, map[string]interface{}{
				"component": component,
				"resource":  resource,
			})
		}
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(instrumentationName)
	}
	return s
}

// Component returns the accessor family this sink reports for.
func (s *Sink) Component() string { return s.component }

// Resource returns the table, index or prefix this sink reports for.
func (s *Sink) Resource() string { return s.resource }

// Call is filled in by the wrapped function while it runs.
type Call struct {
	// Query is the statement or request the function sent, for DebugLog.
	Query any

	// Size is the number of rows, documents or keys involved, for the observer.
	Size int64

	// SubResource is reported to the observer, e.g. a point-in-time id.
	SubResource string
}

// Run executes fn as one backend call.
//
// On success the result is returned unchanged. On failure the error is
// classified into an *OpError, handed to ErrorHandle, and returned, unless the
// sink absorbs errors, in which case the zero value and a nil error are returned.
// With Debug set, DebugLog is invoked exactly once either way.
func Run[T any](ctx context.Context, s *Sink, operation string, fn func(ctx context.Context, call *Call) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, s.component+"."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("accessor.component", s.component),
			attribute.String("accessor.operation", operation),
			attribute.String("accessor.resource", s.resource),
		),
	)
	defer span.End()

	call := &Call{}
	start := time.Now()
	result, err := fn(ctx, call)
	duration := time.Since(start)

	var opErr *OpError
	if err != nil {
		opErr = s.wrap(operation, err)
		span.RecordError(opErr)
		span.SetStatus(codes.Error, opErr.Error())
		var zero T
		result = zero
	}

	if s.observer != nil {
		oc := observability.OperationContext{
			Component:   s.component,
			Operation:   operation,
			Resource:    s.resource,
			SubResource: call.SubResource,
			Duration:    duration,
			Size:        call.Size,
		}
		if opErr != nil {
			oc.Error = opErr
		}
		s.observer.ObserveOperation(oc)
	}

	if s.debug {
		entry := Entry{
			Component: s.component,
			Operation: operation,
			Resource:  s.resource,
			Query:     call.Query,
			Duration:  duration,
		}
		if opErr != nil {
			entry.Err = opErr
		} else {
			entry.Result = result
		}
		s.debugLog(entry)
	}

	if opErr != nil {
		s.errorHandle(opErr)
		if s.absorb {
			return result, nil
		}
		return result, opErr
	}
	return result, nil
}
