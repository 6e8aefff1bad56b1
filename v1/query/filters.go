package query

import (
	"sort"
)

// Predicate is the interface all filter conditions implement.
// Each accessor converts these to its backend's native filter format:
// gorm clause expressions for tables, query DSL for search indexes.
//
// A nil Predicate matches everything.
type Predicate interface {
	// IsPredicate is a marker method to ensure type safety
	IsPredicate()
}

// ── Match Conditions ─────────────────────────────────────────────────────────

// MatchCondition is an exact match (WHERE field = value).
// A nil Value matches rows where the field IS NULL.
type MatchCondition struct {
	Field string
	Value any
}

func (c *MatchCondition) IsPredicate() {}

// MatchAnyCondition matches if the field is one of the given values (IN operator).
type MatchAnyCondition struct {
	Field  string
	Values []any
}

func (c *MatchAnyCondition) IsPredicate() {}

// ── Range Conditions ─────────────────────────────────────────────────────────

// Bounds holds the limits of a RangeCondition. Nil bounds are open.
type Bounds struct {
	Gt  any // exclusive lower bound
	Gte any // inclusive lower bound
	Lt  any // exclusive upper bound
	Lte any // inclusive upper bound
}

func (b Bounds) empty() bool {
	return b.Gt == nil && b.Gte == nil && b.Lt == nil && b.Lte == nil
}

// RangeCondition filters by range. Values may be numbers, strings or time.Time.
type RangeCondition struct {
	Field  string
	Bounds Bounds
}

func (c *RangeCondition) IsPredicate() {}

// ── Null Conditions ──────────────────────────────────────────────────────────

// IsNullCondition matches rows where the field is NULL, or documents
// where the field is absent.
type IsNullCondition struct {
	Field string
}

func (c *IsNullCondition) IsPredicate() {}

// NotNullCondition is the negation of IsNullCondition.
type NotNullCondition struct {
	Field string
}

func (c *NotNullCondition) IsPredicate() {}

// ── Escape Hatches ───────────────────────────────────────────────────────────

// RawCondition is a backend fragment passed through verbatim.
// For tables it is an SQL fragment with ? placeholders bound to Args.
// For search indexes it becomes a query_string query and Args must be empty.
type RawCondition struct {
	Fragment string
	Args     []any
}

func (c *RawCondition) IsPredicate() {}

// DSLCondition is a search query object sent as-is, e.g. a match or
// multi_match query. Tables reject it.
type DSLCondition struct {
	Query map[string]any
}

func (c *DSLCondition) IsPredicate() {}

// ── Composite ────────────────────────────────────────────────────────────────

// AndCondition matches when every child matches. Nil children are ignored.
type AndCondition struct {
	Conditions []Predicate
}

func (c *AndCondition) IsPredicate() {}

// ── Constructors ─────────────────────────────────────────────────────────────

// Eq creates an equality condition.
func Eq(field string, value any) Predicate {
	return &MatchCondition{Field: field, Value: value}
}

// In creates a membership condition.
func In(field string, values ...any) Predicate {
	return &MatchAnyCondition{Field: field, Values: values}
}

// Range creates a range condition.
//
// Example:
//
//	query.Range("age", query.Bounds{Gte: 18, Lt: 65})
func Range(field string, bounds Bounds) Predicate {
	return &RangeCondition{Field: field, Bounds: bounds}
}

// IsNull creates a condition matching missing values.
func IsNull(field string) Predicate {
	return &IsNullCondition{Field: field}
}

// NotNull creates a condition matching present values.
func NotNull(field string) Predicate {
	return &NotNullCondition{Field: field}
}

// Raw creates a pass-through condition.
func Raw(fragment string, args ...any) Predicate {
	return &RawCondition{Fragment: fragment, Args: args}
}

// DSL creates a search-only pass-through condition.
func DSL(q map[string]any) Predicate {
	return &DSLCondition{Query: q}
}

// And combines conditions conjunctively. It flattens nested AndConditions and
// drops nil entries; a single remaining condition is returned unwrapped, none
// at all yields nil.
func And(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil:
		case *AndCondition:
			if v == nil {
				continue
			}
			for _, c := range v.Conditions {
				if c != nil {
					out = append(out, c)
				}
			}
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return &AndCondition{Conditions: out}
}

// Fields turns a column/value map into ANDed equality conditions, in key order.
//
// Example:
//
//	query.Fields(map[string]any{"id": 1, "name": "a"})
func Fields(m map[string]any) Predicate {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, Eq(k, m[k]))
	}
	return And(preds...)
}

// ── Sorting ──────────────────────────────────────────────────────────────────

// Sort is one ordering key. A list of Sort is applied in order.
type Sort struct {
	Field string
	Desc  bool
}

// Asc sorts ascending by field.
func Asc(field string) Sort { return Sort{Field: field} }

// Desc sorts descending by field.
func Desc(field string) Sort { return Sort{Field: field, Desc: true} }
