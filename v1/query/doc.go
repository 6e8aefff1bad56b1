// Package query provides a typed predicate and sort abstraction shared by the
// table and search accessors.
//
// Predicates are built from constructors and composed with And:
//
//	where := query.And(
//		query.Eq("tenant", "acme"),
//		query.Range("created_at", query.Bounds{Gte: since}),
//		query.IsNull("archived_at"),
//	)
//
// Tables compile them with SQL into gorm clause expressions, search indexes
// with Search into Elasticsearch query DSL. Conditions a backend cannot express
// (DSL on a table, a parameterized Raw on a search index) fail with ErrUnsupported.
package query
