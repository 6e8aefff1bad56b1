package sink

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindBackend covers I/O failures, timeouts and statements the backend rejected.
	KindBackend Kind = iota
	// KindNotFound means the addressed row, document or key does not exist.
	KindNotFound
	// KindConflict means a uniqueness constraint or an existing document blocked a write.
	KindConflict
	// KindInvalid means the caller passed something the accessor refused before or
	// instead of reaching the backend, e.g. an undecodable cursor.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "backend"
	}
}

// OpError is returned by every accessor call that failed.
type OpError struct {
	Kind      Kind
	Component string
	Operation string
	Resource  string
	Err       error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s on %q: %s: %v", e.Component, e.Operation, e.Resource, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Classifier maps a raw backend error to a Kind.
type Classifier func(err error) Kind

// WithKind tags err with a kind before it reaches Run. Run fills in the
// component, operation and resource.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Err: err}
}

// Invalidf builds a KindInvalid error.
func Invalidf(format string, args ...any) error {
	return WithKind(KindInvalid, fmt.Errorf(format, args...))
}

// KindOf reports the kind of err. Errors that did not pass through Run are
// reported as KindBackend.
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindBackend
}

// IsNotFound reports whether err is a KindNotFound OpError.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// IsConflict reports whether err is a KindConflict OpError.
func IsConflict(err error) bool {
	return err != nil && KindOf(err) == KindConflict
}

func (s *Sink) wrap(operation string, err error) *OpError {
	var opErr *OpError
	if errors.As(err, &opErr) {
		// Already classified, either by WithKind or by a nested Run.
		if opErr.Component == "" {
			opErr.Component = s.component
			opErr.Operation = operation
			opErr.Resource = s.resource
		}
		return opErr
	}

	kind := KindBackend
	if s.classify != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		kind = s.classify(err)
	}
	return &OpError{
		Kind:      kind,
		Component: s.component,
		Operation: operation,
		Resource:  s.resource,
		Err:       err,
	}
}
