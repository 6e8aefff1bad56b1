package database

import (
	"github.com/Aleph-Alpha/accessor/v1/mariadb"
	"github.com/Aleph-Alpha/accessor/v1/postgres"
)

// Supported values of Config.Type.
const (
	TypePostgres = "postgres"
	TypeMariaDB  = "mariadb"
)

// Config selects and configures one SQL backend.
// Use one of the helper functions (PostgresConfig, MariaDBConfig) to create it.
type Config struct {
	// Type is the database type ("postgres" or "mariadb")
	Type string `yaml:"type"`

	// Postgres configuration (used when Type = "postgres")
	Postgres *postgres.Config `yaml:"postgres"`

	// MariaDB configuration (used when Type = "mariadb")
	MariaDB *mariadb.Config `yaml:"mariadb"`
}

// PostgresConfig creates a database.Config for PostgreSQL.
//
// Example:
//
//	fx.Provide(func() database.Config {
//	    return database.PostgresConfig(postgres.Config{
//	        Connection: postgres.Connection{
//	            Host: "localhost",
//	            Port: "5432",
//	            // ...
//	        },
//	    })
//	})
func PostgresConfig(cfg postgres.Config) Config {
	return Config{
		Type:     TypePostgres,
		Postgres: &cfg,
	}
}

// MariaDBConfig creates a database.Config for MariaDB/MySQL.
func MariaDBConfig(cfg mariadb.Config) Config {
	return Config{
		Type:    TypeMariaDB,
		MariaDB: &cfg,
	}
}
