package table

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Column is one column as reported by the database driver.
type Column struct {
	Name string
	// DatabaseType is the driver's type name, e.g. "TIMESTAMPTZ" or "DATETIME".
	DatabaseType string
}

// ColumnInspector lists the columns of a table in ordinal order.
type ColumnInspector interface {
	Columns(ctx context.Context, db *gorm.DB, table string) ([]Column, error)
}

// RowsInspector reads column metadata from an empty result set
// (SELECT * ... LIMIT 0), which every driver reports in ordinal order.
type RowsInspector struct{}

func (RowsInspector) Columns(ctx context.Context, db *gorm.DB, table string) ([]Column, error) {
	rows, err := db.WithContext(ctx).Table(table).Limit(0).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types of %s: %w", table, err)
	}

	columns := make([]Column, 0, len(types))
	for _, ct := range types {
		columns = append(columns, Column{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()})
	}
	return columns, rows.Err()
}

// MigratorInspector uses the GORM migrator, which consults the information
// schema and therefore also sees column comments and nullability.
type MigratorInspector struct{}

func (MigratorInspector) Columns(ctx context.Context, db *gorm.DB, table string) ([]Column, error) {
	types, err := db.WithContext(ctx).Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect columns of %s: %w", table, err)
	}
	columns := make([]Column, 0, len(types))
	for _, ct := range types {
		columns = append(columns, Column{Name: ct.Name(), DatabaseType: ct.DatabaseTypeName()})
	}
	return columns, nil
}

// isTemporal reports whether a driver type name denotes a date or time type.
func isTemporal(databaseType string) bool {
	t := strings.ToLower(databaseType)
	return strings.Contains(t, "date") || strings.Contains(t, "time")
}

// resolveRoles picks, per role, the first temporal column whose name contains
// "create", "update" or "delete", case-insensitively.
func resolveRoles(columns []Column) ColumnRoles {
	var roles ColumnRoles
	for _, c := range columns {
		if !isTemporal(c.DatabaseType) {
			continue
		}
		name := strings.ToLower(c.Name)
		if roles.CreateAt == "" && strings.Contains(name, "create") {
			roles.CreateAt = c.Name
		}
		if roles.UpdateAt == "" && strings.Contains(name, "update") {
			roles.UpdateAt = c.Name
		}
		if roles.DeleteAt == "" && strings.Contains(name, "delete") {
			roles.DeleteAt = c.Name
		}
	}
	return roles
}
