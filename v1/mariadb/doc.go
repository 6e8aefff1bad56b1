// Package mariadb opens and supervises a GORM connection to MariaDB or MySQL.
// It mirrors package postgres: NewMariaDB connects, Start launches the health
// monitor and reconnect loops, GracefulShutdown stops them and closes the pool.
package mariadb
