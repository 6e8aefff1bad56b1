package sink

import (
	"time"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the subset of logger.Logger used for the default debug and error
// destinations.
//
//go:generate mockgen -source=configs.go -destination=mock_logger.go -package=sink
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Config controls how a wrapped call reports its outcome.
//
// The zero value is usable: errors are logged through the default logger and
// returned to the caller, debug entries are not produced.
type Config struct {
	// Debug announces every completed call, success or failure, to DebugLog.
	Debug bool `yaml:"debug"`

	// DebugLog receives one Entry per call when Debug is set.
	// Defaults to a debug-level log line.
	DebugLog func(Entry) `yaml:"-"`

	// ErrorHandle receives every backend error. Defaults to an error-level log line.
	ErrorHandle func(error) `yaml:"-"`

	// Absorb hands errors to ErrorHandle only and returns the zero value with a
	// nil error. Callers that set it must inspect result shapes to detect failure.
	Absorb bool `yaml:"absorb"`

	// Logger backs the default DebugLog and ErrorHandle.
	Logger Logger `yaml:"-"`

	// Observer is notified after every call, e.g. metrics.OperationObserver.
	Observer observability.Observer `yaml:"-"`

	// Tracer opens one span per call. Defaults to the global otel tracer.
	Tracer trace.Tracer `yaml:"-"`
}

// Entry is what DebugLog receives for one call.
type Entry struct {
	Component string
	Operation string
	Resource  string

	// Query is the rendered statement or request body, as far as it was built.
	Query any

	// Result is the value handed back to the caller; nil on failure.
	Result any

	Err      error
	Duration time.Duration
}

// Fields flattens the entry for structured logging.
func (e Entry) Fields() map[string]interface{} {
	return map[string]interface{}{
		"component":   e.Component,
		"operation":   e.Operation,
		"resource":    e.Resource,
		"query":       e.Query,
		"result":      e.Result,
		"duration_ms": e.Duration.Milliseconds(),
	}
}
