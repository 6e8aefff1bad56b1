// Package observability defines the hook accessors use to report each backend
// operation to metrics or tracing collectors.
package observability

import "time"

// OperationContext describes one completed backend operation.
type OperationContext struct {
	// Component is the accessor family, e.g. "table", "search" or "kv".
	Component string

	// Operation is the accessor method, e.g. "get" or "getPage".
	Operation string

	// Resource is the table, index or key the operation targeted.
	Resource string

	// SubResource carries extra context such as a point-in-time id.
	SubResource string

	Duration time.Duration

	// Error is nil on success.
	Error error

	// Size is the number of rows, documents or keys returned or affected.
	Size int64

	Metadata map[string]interface{}
}

// Observer receives one OperationContext per completed operation.
// Implementations must be safe for concurrent use and must not block.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) { f(ctx) }

// Multi fans an operation out to several observers. Nil entries are skipped.
func Multi(observers ...Observer) Observer {
	return multiObserver(observers)
}

type multiObserver []Observer

func (m multiObserver) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		if o != nil {
			o.ObserveOperation(ctx)
		}
	}
}
