package query

import "errors"

var (
	// ErrUnsupported is returned when a condition cannot be expressed on the target backend.
	ErrUnsupported = errors.New("query: condition not supported by backend")

	// ErrEmptyField is returned for a condition without a field name.
	ErrEmptyField = errors.New("query: empty field name")

	// ErrEmptyRange is returned for a range condition without any bound.
	ErrEmptyRange = errors.New("query: range without bounds")
)
