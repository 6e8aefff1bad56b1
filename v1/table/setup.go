package table

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/database"
	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const component = "table"

// Table is the accessor for one SQL table.
//
// Concurrency: all methods are safe for concurrent use. Column roles are
// discovered on first use; concurrent first callers share one discovery.
type Table struct {
	name string
	// handle yields the current GORM session root.
	handle func() *gorm.DB
	// owned is closed by Close; nil when the connection belongs to the caller.
	owned     database.Conn
	sink      *sink.Sink
	inspector ColumnInspector
	clock     func() time.Time

	roles atomic.Pointer[ColumnRoles]
	group singleflight.Group
}

// New opens a dedicated connection for the table described by cfg.
// The connection is monitored and reconnected in the background until Close.
func New(cfg database.Config, name string, opts ...Option) (*Table, error) {
	if name == "" {
		return nil, errors.New("table: name is required")
	}
	o := buildOptions(opts)

	var connLogger database.Logger
	if l, ok := o.sink.Logger.(database.Logger); ok {
		connLogger = l
	}
	conn, err := database.Open(cfg, connLogger)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	conn.Start(context.Background())

	t := newTable(name, o)
	t.handle = conn.DB
	t.owned = conn
	return t, nil
}

// NewFromDB wraps a caller-owned GORM handle. Close does not close it.
func NewFromDB(db *gorm.DB, name string, opts ...Option) *Table {
	t := newTable(name, buildOptions(opts))
	t.handle = func() *gorm.DB { return db }
	return t
}

func newTable(name string, o options) *Table {
	return &Table{
		name:      name,
		sink:      sink.New(component, name, o.sink, classify),
		inspector: o.inspector,
		clock:     o.clock,
	}
}

// Name returns the backing table name.
func (t *Table) Name() string { return t.name }

// Builder returns a GORM session scoped to the table for queries the accessor
// does not cover. It applies neither soft-delete filtering nor stamping.
func (t *Table) Builder(ctx context.Context) *gorm.DB {
	return t.handle().WithContext(ctx).Table(t.name)
}

// Roles returns the resolved timestamp columns, discovering them if needed.
func (t *Table) Roles(ctx context.Context) (ColumnRoles, error) {
	return sink.Run(ctx, t.sink, "roles", func(ctx context.Context, call *sink.Call) (ColumnRoles, error) {
		call.Query = "columns of " + t.name
		return t.ensureResolved(ctx)
	})
}

// Close shuts down a connection opened by New.
func (t *Table) Close() error {
	if t.owned == nil {
		return nil
	}
	return t.owned.GracefulShutdown()
}

// ensureResolved returns the memoized column roles or runs discovery once for
// all concurrent callers. A failed discovery is not memoized. The shared
// discovery is detached from any single caller's cancellation and bounded by
// discoveryTimeout; each caller still stops waiting when its own ctx is done.
func (t *Table) ensureResolved(ctx context.Context) (ColumnRoles, error) {
	if r := t.roles.Load(); r != nil {
		return *r, nil
	}

	ch := t.group.DoChan(t.name, func() (interface{}, error) {
		if r := t.roles.Load(); r != nil {
			return *r, nil
		}
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discoveryTimeout)
		defer cancel()

		columns, err := t.inspector.Columns(dctx, t.handle(), t.name)
		if err != nil {
			return ColumnRoles{}, err
		}
		roles := resolveRoles(columns)
		t.roles.Store(&roles)
		return roles, nil
	})

	select {
	case <-ctx.Done():
		return ColumnRoles{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return ColumnRoles{}, res.Err
		}
		return res.Val.(ColumnRoles), nil
	}
}

// scoped starts a session on the table filtered by where and, when a DeleteAt
// column is resolved, by DeleteAt IS NULL.
func (t *Table) scoped(ctx context.Context, roles ColumnRoles, where query.Predicate) (*gorm.DB, error) {
	pred := where
	if roles.DeleteAt != "" {
		pred = query.And(query.IsNull(roles.DeleteAt), where)
	}
	expr, err := query.SQL(pred)
	if err != nil {
		return nil, err
	}

	tx := t.handle().WithContext(ctx).Table(t.name)
	if expr != nil {
		tx = tx.Where(expr)
	}
	return tx, nil
}

// stamp copies data and sets column to now unless the caller already supplied
// it. Column names compare case-insensitively, as SQL identifiers do.
func stamp(data Row, column string, now time.Time) Row {
	out := make(Row, len(data)+1)
	supplied := false
	for k, v := range data {
		out[k] = v
		if column != "" && strings.EqualFold(k, column) {
			supplied = true
		}
	}
	if column != "" && !supplied {
		out[column] = now
	}
	return out
}

func selectColumns(tx *gorm.DB, columns []string) *gorm.DB {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		return tx
	}
	return tx.Select(columns)
}

// statementOf renders the SQL a finished session sent, with bound values inlined.
func statementOf(tx *gorm.DB) string {
	if tx == nil || tx.Statement == nil || tx.Statement.SQL.Len() == 0 {
		return ""
	}
	return tx.Dialector.Explain(tx.Statement.SQL.String(), tx.Statement.Vars...)
}
