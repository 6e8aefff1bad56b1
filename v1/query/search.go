package query

import (
	"fmt"
)

// MatchAll is the search query used for a nil predicate.
func MatchAll() map[string]any {
	return map[string]any{"match_all": map[string]any{}}
}

// Search compiles p into an Elasticsearch query DSL object.
func Search(p Predicate) (map[string]any, error) {
	if p == nil {
		return MatchAll(), nil
	}

	switch c := p.(type) {
	case *MatchCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		if c.Value == nil {
			return mustNotExist(c.Field), nil
		}
		return map[string]any{"term": map[string]any{c.Field: c.Value}}, nil

	case *MatchAnyCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		values := c.Values
		if values == nil {
			values = []any{}
		}
		return map[string]any{"terms": map[string]any{c.Field: values}}, nil

	case *RangeCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		if c.Bounds.empty() {
			return nil, fmt.Errorf("%w: %s", ErrEmptyRange, c.Field)
		}
		bounds := map[string]any{}
		if c.Bounds.Gt != nil {
			bounds["gt"] = c.Bounds.Gt
		}
		if c.Bounds.Gte != nil {
			bounds["gte"] = c.Bounds.Gte
		}
		if c.Bounds.Lt != nil {
			bounds["lt"] = c.Bounds.Lt
		}
		if c.Bounds.Lte != nil {
			bounds["lte"] = c.Bounds.Lte
		}
		return map[string]any{"range": map[string]any{c.Field: bounds}}, nil

	case *IsNullCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		return mustNotExist(c.Field), nil

	case *NotNullCondition:
		if c.Field == "" {
			return nil, ErrEmptyField
		}
		return map[string]any{"exists": map[string]any{"field": c.Field}}, nil

	case *RawCondition:
		if len(c.Args) > 0 {
			return nil, fmt.Errorf("%w: raw search condition with arguments", ErrUnsupported)
		}
		return map[string]any{"query_string": map[string]any{"query": c.Fragment}}, nil

	case *DSLCondition:
		if len(c.Query) == 0 {
			return MatchAll(), nil
		}
		return c.Query, nil

	case *AndCondition:
		filters := make([]any, 0, len(c.Conditions))
		for _, child := range c.Conditions {
			if child == nil {
				continue
			}
			q, err := Search(child)
			if err != nil {
				return nil, err
			}
			filters = append(filters, q)
		}
		if len(filters) == 0 {
			return MatchAll(), nil
		}
		return map[string]any{"bool": map[string]any{"filter": filters}}, nil
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupported, p)
}

func mustNotExist(field string) map[string]any {
	return map[string]any{
		"bool": map[string]any{
			"must_not": []any{map[string]any{"exists": map[string]any{"field": field}}},
		},
	}
}

// SearchSort compiles sorts into the search "sort" array, preserving list order.
func SearchSort(sorts []Sort) []any {
	out := make([]any, 0, len(sorts))
	for _, s := range sorts {
		order := "asc"
		if s.Desc {
			order = "desc"
		}
		out = append(out, map[string]any{s.Field: map[string]any{"order": order}})
	}
	return out
}
