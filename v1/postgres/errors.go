package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Common database error types that can be used by consumers of this package.
// These abstract away the driver-specific error details.
var (
	// ErrRecordNotFound is returned when a query doesn't find any matching records
	ErrRecordNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned when an insert or update violates a unique constraint
	ErrDuplicateKey = errors.New("duplicate key violation")

	// ErrForeignKey is returned when an operation violates a foreign key constraint
	ErrForeignKey = errors.New("foreign key violation")

	// ErrInvalidData is returned when the data being saved doesn't meet validation rules
	ErrInvalidData = errors.New("invalid data")

	// ErrMissingWhere is returned when an update or delete has no condition
	ErrMissingWhere = errors.New("missing where clause")
)

// TranslateError converts GORM errors into the sentinels above.
// Errors without a mapping, including context cancellation, are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateKey
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrForeignKey
	case errors.Is(err, gorm.ErrInvalidData):
		return ErrInvalidData
	case errors.Is(err, gorm.ErrMissingWhereClause):
		return ErrMissingWhere
	}

	return err
}

// TranslateError is the method form of the package function, so *Postgres
// satisfies database.Conn.
func (p *Postgres) TranslateError(err error) error {
	return TranslateError(err)
}
