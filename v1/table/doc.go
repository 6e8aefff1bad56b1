// Package table provides a uniform accessor over one SQL table.
//
// A Table wraps a GORM handle and the table name. On first use it discovers
// which date/time columns play the created, updated and deleted roles (by
// name: "create", "update", "delete") and from then on:
//
//   - reads and updates skip rows whose delete column is set,
//   - Add stamps the create column and Set the update column, unless the
//     caller's data already carries that column,
//   - DelSoft stamps the delete column instead of removing rows.
//
// Tables without such columns are served unfiltered and unstamped.
//
// Basic usage:
//
//	users, err := table.New(database.PostgresConfig(pgCfg), "users")
//	if err != nil {
//		return err
//	}
//	defer users.Close()
//
//	_, err = users.Add(ctx, table.Row{"name": "a"})
//	rows, err := users.GetOrder(ctx, []string{"id", "name"},
//		query.Eq("name", "a"),
//		[]query.Sort{query.Desc("created_at")},
//		&table.Page{Index: 0, Size: 20})
//
// Every call runs through a sink.Sink: failures come back as *sink.OpError and
// are also handed to the configured ErrorHandle; with Debug set each call's SQL
// and result are announced to DebugLog.
//
// HasElseAdd and HasSetAdd check and write in separate statements. They are
// only safe under concurrent writers when a unique constraint backs the check.
package table
