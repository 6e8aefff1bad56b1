package table

import (
	"errors"

	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNothingToWrite is returned by Add and Set when the payload is empty.
var ErrNothingToWrite = errors.New("table: no columns to write")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	mysqlDuplicateEntry   = 1062
)

// classify maps GORM and driver errors to sink kinds. Driver errors are
// inspected directly so connections opened without TranslateError classify
// the same way.
func classify(err error) sink.Kind {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return sink.KindNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return sink.KindConflict
	case errors.Is(err, gorm.ErrMissingWhereClause),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidField),
		errors.Is(err, ErrNothingToWrite),
		errors.Is(err, query.ErrUnsupported),
		errors.Is(err, query.ErrEmptyField),
		errors.Is(err, query.ErrEmptyRange):
		return sink.KindInvalid
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation:
			return sink.KindConflict
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return sink.KindConflict
	}

	return sink.KindBackend
}

// isDuplicate reports a unique-key violation, the only conflict a lost
// check-then-insert race can produce.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
