package database_test

import (
	"testing"

	"github.com/Aleph-Alpha/accessor/v1/database"
	"github.com/Aleph-Alpha/accessor/v1/mariadb"
	"github.com/Aleph-Alpha/accessor/v1/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Example showing how to create a PostgreSQL config
func ExamplePostgresConfig() {
	cfg := database.PostgresConfig(postgres.Config{
		Connection: postgres.Connection{
			Host:   "localhost",
			Port:   "5432",
			User:   "myuser",
			DbName: "mydb",
		},
	})

	_ = cfg // Use the config with database.FXModule or database.Open
}

func TestConfigHelpers(t *testing.T) {
	t.Run("PostgresConfig", func(t *testing.T) {
		cfg := database.PostgresConfig(postgres.Config{
			Connection: postgres.Connection{Host: "localhost", Port: "5432"},
		})
		assert.Equal(t, database.TypePostgres, cfg.Type)
		require.NotNil(t, cfg.Postgres)
		assert.Equal(t, "localhost", cfg.Postgres.Connection.Host)
		assert.Nil(t, cfg.MariaDB)
	})

	t.Run("MariaDBConfig", func(t *testing.T) {
		cfg := database.MariaDBConfig(mariadb.Config{
			Connection: mariadb.Connection{Host: "localhost", Port: "3306"},
		})
		assert.Equal(t, database.TypeMariaDB, cfg.Type)
		require.NotNil(t, cfg.MariaDB)
		assert.Nil(t, cfg.Postgres)
	})
}

func TestOpen_RejectsIncompleteConfig(t *testing.T) {
	_, err := database.Open(database.Config{Type: database.TypePostgres}, nil)
	assert.ErrorContains(t, err, "postgres config is required")

	_, err = database.Open(database.Config{Type: database.TypeMariaDB}, nil)
	assert.ErrorContains(t, err, "mariadb config is required")

	_, err = database.Open(database.Config{Type: "sqlite"}, nil)
	assert.ErrorContains(t, err, "unsupported database type")
}
