package query

import (
	"fmt"

	"gorm.io/gorm/clause"
)

// SQL compiles p into a gorm clause expression. A nil predicate yields a nil
// expression, which callers must treat as "no condition".
func SQL(p Predicate) (clause.Expression, error) {
	if p == nil {
		return nil, nil
	}

	switch c := p.(type) {
	case *MatchCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		return clause.Eq{Column: clause.Column{Name: c.Field}, Value: c.Value}, nil

	case *MatchAnyCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		return clause.IN{Column: clause.Column{Name: c.Field}, Values: c.Values}, nil

	case *RangeCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		if c.Bounds.empty() {
			return nil, fmt.Errorf("%w: %s", ErrEmptyRange, c.Field)
		}
		col := clause.Column{Name: c.Field}
		var exprs []clause.Expression
		if c.Bounds.Gt != nil {
			exprs = append(exprs, clause.Gt{Column: col, Value: c.Bounds.Gt})
		}
		if c.Bounds.Gte != nil {
			exprs = append(exprs, clause.Gte{Column: col, Value: c.Bounds.Gte})
		}
		if c.Bounds.Lt != nil {
			exprs = append(exprs, clause.Lt{Column: col, Value: c.Bounds.Lt})
		}
		if c.Bounds.Lte != nil {
			exprs = append(exprs, clause.Lte{Column: col, Value: c.Bounds.Lte})
		}
		return clause.And(exprs...), nil

	case *IsNullCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		return clause.Expr{SQL: "? IS NULL", Vars: []interface{}{clause.Column{Name: c.Field}}}, nil

	case *NotNullCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		return clause.Expr{SQL: "? IS NOT NULL", Vars: []interface{}{clause.Column{Name: c.Field}}}, nil

	case *RawCondition:
		return clause.Expr{SQL: c.Fragment, Vars: c.Args}, nil

	case *AndCondition:
		exprs := make([]clause.Expression, 0, len(c.Conditions))
		for _, child := range c.Conditions {
			e, err := SQL(child)
			if err != nil {
				return nil, err
			}
			if e != nil {
				exprs = append(exprs, e)
			}
		}
		if len(exprs) == 0 {
			return nil, nil
		}
		return clause.And(exprs...), nil

	case *DSLCondition:
		return nil, fmt.Errorf("%w: DSL condition on SQL table", ErrUnsupported)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupported, p)
}

// OrderBy compiles sorts into a gorm ORDER BY clause, preserving list order.
func OrderBy(sorts []Sort) clause.OrderBy {
	cols := make([]clause.OrderByColumn, 0, len(sorts))
	for _, s := range sorts {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: s.Field}, Desc: s.Desc})
	}
	return clause.OrderBy{Columns: cols}
}
