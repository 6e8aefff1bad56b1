package table

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Get returns all matching rows in backend order. An empty column list or
// "*" selects every column.
func (t *Table) Get(ctx context.Context, columns []string, where query.Predicate) ([]Row, error) {
	return t.read(ctx, "get", columns, where, nil)
}

// GetOne returns the first matching row, or nil when nothing matches.
func (t *Table) GetOne(ctx context.Context, columns []string, where query.Predicate) (Row, error) {
	rows, err := t.read(ctx, "getOne", columns, where, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(1)
	})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// GetOrder returns matching rows sorted by order, in list order. A non-nil
// page restricts the result to that offset window.
func (t *Table) GetOrder(ctx context.Context, columns []string, where query.Predicate, order []query.Sort, page *Page) ([]Row, error) {
	return t.read(ctx, "getOrder", columns, where, func(tx *gorm.DB) *gorm.DB {
		if len(order) > 0 {
			tx = tx.Clauses(query.OrderBy(order))
		}
		if page != nil {
			tx = tx.Limit(page.limit()).Offset(page.offset())
		}
		return tx
	})
}

// GetPage returns one offset window without ordering. The backend decides the
// row order, so consecutive pages are only stable on a static table; use
// GetOrder when determinism matters.
func (t *Table) GetPage(ctx context.Context, columns []string, where query.Predicate, page Page) ([]Row, error) {
	return t.read(ctx, "getPage", columns, where, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(page.limit()).Offset(page.offset())
	})
}

func (t *Table) read(ctx context.Context, operation string, columns []string, where query.Predicate, shape func(*gorm.DB) *gorm.DB) ([]Row, error) {
	return sink.Run(ctx, t.sink, operation, func(ctx context.Context, call *sink.Call) ([]Row, error) {
		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return nil, err
		}
		tx, err := t.scoped(ctx, roles, where)
		if err != nil {
			return nil, err
		}
		tx = selectColumns(tx, columns)
		if shape != nil {
			tx = shape(tx)
		}

		rows := []Row{}
		res := tx.Find(&rows)
		call.Query = statementOf(res)
		if res.Error != nil {
			return nil, res.Error
		}
		call.Size = int64(len(rows))
		return rows, nil
	})
}

// GetCount counts non-null values per column in one statement. aliases maps a
// column (or "*") to the key its count is returned under.
//
// Example:
//
//	counts, err := users.GetCount(ctx, map[string]string{"id": "total"}, nil)
//	// counts["total"]
func (t *Table) GetCount(ctx context.Context, aliases map[string]string, where query.Predicate) (map[string]int64, error) {
	return t.count(ctx, "getCount", aliases, where, false)
}

// GetCountDistinct is GetCount over distinct values.
func (t *Table) GetCountDistinct(ctx context.Context, aliases map[string]string, where query.Predicate) (map[string]int64, error) {
	return t.count(ctx, "getCountDistinct", aliases, where, true)
}

func (t *Table) count(ctx context.Context, operation string, aliases map[string]string, where query.Predicate, distinct bool) (map[string]int64, error) {
	return sink.Run(ctx, t.sink, operation, func(ctx context.Context, call *sink.Call) (map[string]int64, error) {
		out := make(map[string]int64, len(aliases))
		if len(aliases) == 0 {
			return out, nil
		}

		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return nil, err
		}
		tx, err := t.scoped(ctx, roles, where)
		if err != nil {
			return nil, err
		}

		columns := make([]string, 0, len(aliases))
		for c := range aliases {
			columns = append(columns, c)
		}
		sort.Strings(columns)

		parts := make([]string, 0, len(columns))
		args := make([]interface{}, 0, 2*len(columns))
		keys := make([]string, 0, len(columns))
		for _, c := range columns {
			alias := aliases[c]
			if alias == "" {
				alias = c
			}
			keys = append(keys, alias)
			switch {
			case c == "*":
				parts = append(parts, "COUNT(*) AS ?")
				args = append(args, clause.Column{Name: alias})
			case distinct:
				parts = append(parts, "COUNT(DISTINCT ?) AS ?")
				args = append(args, clause.Column{Name: c}, clause.Column{Name: alias})
			default:
				parts = append(parts, "COUNT(?) AS ?")
				args = append(args, clause.Column{Name: c}, clause.Column{Name: alias})
			}
		}

		raw := map[string]interface{}{}
		res := tx.Select(strings.Join(parts, ", "), args...).Find(&raw)
		call.Query = statementOf(res)
		if res.Error != nil {
			return nil, res.Error
		}

		for _, k := range keys {
			n, err := toInt64(raw[k])
			if err != nil {
				return nil, fmt.Errorf("count %s: %w", k, err)
			}
			out[k] = n
		}
		call.Size = int64(len(out))
		return out, nil
	})
}

// Add inserts one row and returns the number of rows written. A resolved
// CreateAt column is stamped with the current time unless data sets it.
// data itself is never modified.
func (t *Table) Add(ctx context.Context, data Row) (int64, error) {
	return sink.Run(ctx, t.sink, "add", func(ctx context.Context, call *sink.Call) (int64, error) {
		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return 0, err
		}
		return t.insert(ctx, call, roles, data)
	})
}

func (t *Table) insert(ctx context.Context, call *sink.Call, roles ColumnRoles, data Row) (int64, error) {
	payload := stamp(data, roles.CreateAt, t.clock())
	if len(payload) == 0 {
		return 0, ErrNothingToWrite
	}

	res := t.handle().WithContext(ctx).Table(t.name).Create(payload)
	call.Query = statementOf(res)
	if res.Error != nil {
		return 0, res.Error
	}
	call.Size = res.RowsAffected
	return res.RowsAffected, nil
}

// Set updates matching, non-deleted rows and returns the number changed.
// A resolved UpdateAt column is stamped unless data sets it.
//
// An empty predicate on a table without DeleteAt is refused with KindInvalid;
// pass query.Raw("1 = 1") to update every row deliberately.
func (t *Table) Set(ctx context.Context, data Row, where query.Predicate) (int64, error) {
	return sink.Run(ctx, t.sink, "set", func(ctx context.Context, call *sink.Call) (int64, error) {
		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return 0, err
		}
		return t.modify(ctx, call, roles, data, where)
	})
}

func (t *Table) modify(ctx context.Context, call *sink.Call, roles ColumnRoles, data Row, where query.Predicate) (int64, error) {
	payload := stamp(data, roles.UpdateAt, t.clock())
	if len(payload) == 0 {
		return 0, ErrNothingToWrite
	}
	return t.update(ctx, call, roles, payload, where)
}

// DelSoft stamps DeleteAt on matching rows that are not deleted yet, so the
// first deletion time is kept. Without a DeleteAt column it changes nothing
// and returns 0.
func (t *Table) DelSoft(ctx context.Context, where query.Predicate) (int64, error) {
	return sink.Run(ctx, t.sink, "delSoft", func(ctx context.Context, call *sink.Call) (int64, error) {
		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return 0, err
		}
		if roles.DeleteAt == "" {
			return 0, nil
		}
		return t.update(ctx, call, roles, Row{roles.DeleteAt: t.clock()}, where)
	})
}

func (t *Table) update(ctx context.Context, call *sink.Call, roles ColumnRoles, payload Row, where query.Predicate) (int64, error) {
	tx, err := t.scoped(ctx, roles, where)
	if err != nil {
		return 0, err
	}
	res := tx.Updates(payload)
	call.Query = statementOf(res)
	if res.Error != nil {
		return 0, res.Error
	}
	call.Size = res.RowsAffected
	return res.RowsAffected, nil
}

// Has reports whether a non-deleted row matches where.
func (t *Table) Has(ctx context.Context, where query.Predicate) (bool, error) {
	row, err := t.GetOne(ctx, []string{"*"}, where)
	if err != nil {
		return false, err
	}
	return len(row) > 0, nil
}

// exists reports whether a non-deleted row matches where.
func (t *Table) exists(ctx context.Context, call *sink.Call, roles ColumnRoles, where query.Predicate) (bool, error) {
	tx, err := t.scoped(ctx, roles, where)
	if err != nil {
		return false, err
	}
	rows := []Row{}
	res := tx.Limit(1).Find(&rows)
	call.Query = statementOf(res)
	if res.Error != nil {
		return false, res.Error
	}
	return len(rows) > 0, nil
}

// HasElseAdd inserts data unless a row matches where, and reports whether it
// inserted. The check and the insert are separate statements but one call:
// a single debug entry. When a concurrent caller wins the race and the
// insert hits a unique key, it reports false, not an error. Without a unique
// constraint, concurrent callers can both insert.
func (t *Table) HasElseAdd(ctx context.Context, data Row, where query.Predicate) (bool, error) {
	return sink.Run(ctx, t.sink, "hasElseAdd", func(ctx context.Context, call *sink.Call) (bool, error) {
		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return false, err
		}
		found, err := t.exists(ctx, call, roles, where)
		if err != nil || found {
			return false, err
		}
		if _, err := t.insert(ctx, call, roles, data); err != nil {
			if isDuplicate(err) {
				call.Size = 0
				return false, nil
			}
			return false, err
		}
		return true, nil
	})
}

// HasSetAdd updates the rows matching where, or inserts data when none
// match, and returns the number of rows written. Like HasElseAdd it is one
// call; an insert that loses the race on a unique key falls back to the
// update.
func (t *Table) HasSetAdd(ctx context.Context, data Row, where query.Predicate) (int64, error) {
	return sink.Run(ctx, t.sink, "hasSetAdd", func(ctx context.Context, call *sink.Call) (int64, error) {
		roles, err := t.ensureResolved(ctx)
		if err != nil {
			return 0, err
		}
		found, err := t.exists(ctx, call, roles, where)
		if err != nil {
			return 0, err
		}
		if found {
			return t.modify(ctx, call, roles, data, where)
		}
		n, err := t.insert(ctx, call, roles, data)
		if err != nil && isDuplicate(err) {
			return t.modify(ctx, call, roles, data, where)
		}
		return n, err
	})
}

// Raw runs a query as written and returns its rows. No filtering or stamping
// is applied.
func (t *Table) Raw(ctx context.Context, sql string, args ...interface{}) ([]Row, error) {
	return sink.Run(ctx, t.sink, "raw", func(ctx context.Context, call *sink.Call) ([]Row, error) {
		rows := []Row{}
		res := t.handle().WithContext(ctx).Raw(sql, args...).Find(&rows)
		call.Query = statementOf(res)
		if res.Error != nil {
			return nil, res.Error
		}
		call.Size = int64(len(rows))
		return rows, nil
	})
}

// Exec runs a statement as written and returns the affected row count.
func (t *Table) Exec(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	return sink.Run(ctx, t.sink, "exec", func(ctx context.Context, call *sink.Call) (int64, error) {
		res := t.handle().WithContext(ctx).Exec(sql, args...)
		call.Query = statementOf(res)
		if res.Error != nil {
			return 0, res.Error
		}
		call.Size = res.RowsAffected
		return res.RowsAffected, nil
	})
}

// toInt64 normalizes the COUNT result types drivers hand back.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}
