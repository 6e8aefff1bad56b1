package table

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/database"
	"github.com/Aleph-Alpha/accessor/v1/postgres"
	"github.com/Aleph-Alpha/accessor/v1/query"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

// setupPostgresContainer starts a throwaway Postgres and waits until it
// accepts connections.
func setupPostgresContainer(ctx context.Context, t *testing.T) postgres.Config {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := postgres.Config{
		Connection: postgres.Connection{
			Host:     host,
			Port:     mappedPort.Port(),
			User:     "testuser",
			Password: "testpass",
			DbName:   "testdb",
			SSLMode:  "disable",
		},
	}
	require.NoError(t, waitForPostgresReady(cfg.Connection.DSN(), 30*time.Second))
	return cfg
}

// waitForPostgresReady pings through lib/pq until the server answers.
func waitForPostgresReady(dsn string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			err = db.Ping()
			_ = db.Close()
			if err == nil {
				return nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("postgres not ready after %s", timeout)
}

func TestTableIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	pgCfg := setupPostgresContainer(ctx, t)

	var tables *Factory
	var conn database.Conn
	app := fxtest.New(t,
		database.FXModule,
		FXModule,
		fx.Provide(
			func() database.Config { return database.PostgresConfig(pgCfg) },
			func() sink.Config { return sink.Config{} },
		),
		fx.Populate(&tables, &conn),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NoError(t, conn.DB().Exec(`CREATE TABLE users (
		id SERIAL PRIMARY KEY,
		name TEXT UNIQUE,
		created_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ,
		deleted_at TIMESTAMPTZ
	)`).Error)
	require.NoError(t, conn.DB().Exec(`CREATE TABLE notes (id SERIAL PRIMARY KEY, body TEXT, deleted_at TEXT)`).Error)

	users := tables.Table("users")

	t.Run("scenario", func(t *testing.T) {
		before := time.Now().Add(-time.Second)
		n, err := users.Add(ctx, Row{"name": "a"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		row, err := users.GetOne(ctx, nil, query.Eq("name", "a"))
		require.NoError(t, err)
		require.NotNil(t, row)
		created, ok := row["created_at"].(time.Time)
		require.True(t, ok)
		assert.True(t, created.After(before))

		n, err = users.DelSoft(ctx, query.Eq("id", 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		rows, err := users.Get(ctx, []string{"*"}, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)

		counts, err := users.GetCount(ctx, map[string]string{"id": "total"}, nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"total": 0}, counts)
	})

	t.Run("caller created_at wins", func(t *testing.T) {
		own := time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC)
		_, err := users.Add(ctx, Row{"name": "own", "created_at": own})
		require.NoError(t, err)

		row, err := users.GetOne(ctx, []string{"created_at"}, query.Eq("name", "own"))
		require.NoError(t, err)
		assert.True(t, own.Equal(row["created_at"].(time.Time)))
	})

	t.Run("hasElseAdd inserts once", func(t *testing.T) {
		first, err := users.HasElseAdd(ctx, Row{"name": "once"}, query.Eq("name", "once"))
		require.NoError(t, err)
		assert.True(t, first)

		second, err := users.HasElseAdd(ctx, Row{"name": "once"}, query.Eq("name", "once"))
		require.NoError(t, err)
		assert.False(t, second)

		counts, err := users.GetCount(ctx, map[string]string{"*": "n"}, query.Eq("name", "once"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), counts["n"])
	})

	t.Run("duplicate key is a conflict", func(t *testing.T) {
		_, err := users.Add(ctx, Row{"name": "once"})
		require.Error(t, err)
		assert.True(t, sink.IsConflict(err))
	})

	t.Run("hasElseAdd losing on a unique key reports false", func(t *testing.T) {
		inserted, err := users.HasElseAdd(ctx, Row{"name": "once"}, query.Eq("name", "nobody"))
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("hasSetAdd updates then stamps", func(t *testing.T) {
		n, err := users.HasSetAdd(ctx, Row{"name": "once"}, query.Eq("name", "once"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		row, err := users.GetOne(ctx, []string{"updated_at"}, query.Eq("name", "once"))
		require.NoError(t, err)
		assert.NotNil(t, row["updated_at"])
	})

	t.Run("offset pages are disjoint", func(t *testing.T) {
		for i := 0; i < 6; i++ {
			_, err := users.Add(ctx, Row{"name": fmt.Sprintf("page-%d", i)})
			require.NoError(t, err)
		}
		where := query.Raw("name LIKE ?", "page-%")

		p0, err := users.GetOrder(ctx, []string{"id"}, where, []query.Sort{query.Asc("id")}, &Page{Index: 0, Size: 3})
		require.NoError(t, err)
		p1, err := users.GetOrder(ctx, []string{"id"}, where, []query.Sort{query.Asc("id")}, &Page{Index: 1, Size: 3})
		require.NoError(t, err)
		require.Len(t, p0, 3)
		require.Len(t, p1, 3)

		seen := map[any]bool{}
		for _, r := range append(p0, p1...) {
			assert.False(t, seen[r["id"]])
			seen[r["id"]] = true
		}

		g0, err := users.GetPage(ctx, []string{"name"}, where, Page{Index: 0, Size: 3})
		require.NoError(t, err)
		g1, err := users.GetPage(ctx, []string{"name"}, where, Page{Index: 1, Size: 3})
		require.NoError(t, err)
		names := []string{}
		for _, r := range append(g0, g1...) {
			names = append(names, r["name"].(string))
		}
		sort.Strings(names)
		assert.Equal(t, []string{"page-0", "page-1", "page-2", "page-3", "page-4", "page-5"}, names)
	})

	t.Run("soft delete keeps first deletion time", func(t *testing.T) {
		_, err := users.DelSoft(ctx, query.Eq("name", "page-0"))
		require.NoError(t, err)
		n, err := users.DelSoft(ctx, query.Eq("name", "page-0"))
		require.NoError(t, err)
		assert.Zero(t, n)

		rows, err := users.Raw(ctx, "SELECT name FROM users WHERE deleted_at IS NOT NULL ORDER BY name")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("table without temporal delete column is unfiltered", func(t *testing.T) {
		notes := tables.Table("notes")
		roles, err := notes.Roles(ctx)
		require.NoError(t, err)
		assert.Equal(t, ColumnRoles{}, roles)

		_, err = notes.Exec(ctx, "INSERT INTO notes (body, deleted_at) VALUES (?, ?)", "x", "yes")
		require.NoError(t, err)

		n, err := notes.DelSoft(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		rows, err := notes.Get(ctx, nil, nil)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}
