// Package database selects a SQL backend from configuration and exposes it
// through one small interface.
//
// Both *postgres.Postgres and *mariadb.MariaDB implement Conn:
//
//	conn, err := database.Open(database.PostgresConfig(pgCfg), nil)
//	if err != nil {
//		return err
//	}
//	defer conn.GracefulShutdown()
//	db := conn.DB() // *gorm.DB
//
// Row-level behaviour (locking, RETURNING, identifier quoting) is whatever the
// underlying GORM dialector does.
package database

import (
	"context"
	"fmt"

	"github.com/Aleph-Alpha/accessor/v1/mariadb"
	"github.com/Aleph-Alpha/accessor/v1/postgres"
	"gorm.io/gorm"
)

// Conn is a supervised connection to one SQL database.
//
// Implementations:
//   - postgres.Postgres implements this interface
//   - mariadb.MariaDB implements this interface
type Conn interface {
	// DB returns the current GORM handle. It may change after a reconnect.
	DB() *gorm.DB

	// Start launches health monitoring and automatic reconnection.
	Start(ctx context.Context)

	// TranslateError normalizes GORM errors to the backend package's sentinels.
	TranslateError(err error) error

	// GracefulShutdown stops monitoring and closes the pool.
	GracefulShutdown() error
}

// Logger is what both backends report connection events through.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

var (
	_ Conn = (*postgres.Postgres)(nil)
	_ Conn = (*mariadb.MariaDB)(nil)
)

// Open connects to the backend named by cfg.Type. A nil logger falls back to
// the standard library log package.
func Open(cfg Config, logger Logger) (Conn, error) {
	switch cfg.Type {
	case TypePostgres:
		if cfg.Postgres == nil {
			return nil, fmt.Errorf("postgres config is required when type=postgres")
		}
		var l postgres.Logger
		if logger != nil {
			l = logger
		}
		pg, err := postgres.NewPostgres(*cfg.Postgres, l)
		if err != nil {
			return nil, err
		}
		return pg, nil

	case TypeMariaDB:
		if cfg.MariaDB == nil {
			return nil, fmt.Errorf("mariadb config is required when type=mariadb")
		}
		var l mariadb.Logger
		if logger != nil {
			l = logger
		}
		m, err := mariadb.NewMariaDB(*cfg.MariaDB, l)
		if err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported database type: %q (must be 'postgres' or 'mariadb')", cfg.Type)
	}
}
