package mariadb

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	healthCheckInterval = 10 * time.Second
	healthCheckTimeout  = 5 * time.Second
	retryBackoff        = time.Second
)

// MariaDB is a wrapper around gorm.DB that provides connection monitoring
// and automatic reconnection for MariaDB/MySQL.
type MariaDB struct {
	cfg             Config
	logger          Logger
	client          atomic.Pointer[gorm.DB]
	shutdownSignal  chan struct{}
	retryChanSignal chan error

	wg                sync.WaitGroup
	closeShutdownOnce sync.Once
}

// NewMariaDB opens the initial connection. A nil logger falls back to the
// standard library log package.
func NewMariaDB(cfg Config, logger Logger) (*MariaDB, error) {
	if logger == nil {
		logger = stdLogger{}
	}

	conn, err := connectToMariaDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error in connecting to MariaDB: %w", err)
	}

	m := &MariaDB{
		cfg:             cfg,
		logger:          logger,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	m.client.Store(conn)
	return m, nil
}

func connectToMariaDB(cfg Config, logger Logger) (*gorm.DB, error) {
	database, err := gorm.Open(
		mysql.Open(cfg.Connection.DSN()),
		&gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MariaDB/MySQL database: %w", err)
	}

	databaseInstance, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get MariaDB/MySQL database instance: %w", err)
	}

	maxOpenConns := cfg.ConnectionDetails.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 50
	}
	maxIdleConns := cfg.ConnectionDetails.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 25
	}
	connMaxLifetime := cfg.ConnectionDetails.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = time.Minute
	}

	databaseInstance.SetMaxOpenConns(maxOpenConns)
	databaseInstance.SetMaxIdleConns(maxIdleConns)
	databaseInstance.SetConnMaxLifetime(connMaxLifetime)

	logger.Info("connected to mariadb", nil, map[string]interface{}{
		"host":     cfg.Connection.Host,
		"database": cfg.Connection.DbName,
	})

	return database, nil
}

// DB returns the current connection.
func (m *MariaDB) DB() *gorm.DB {
	return m.client.Load()
}

// Start launches the monitor and retry loops.
func (m *MariaDB) Start(ctx context.Context) {
	m.wg.Add(2)
	go func() {
		defer m.wg.Done()
		m.MonitorConnection(ctx)
	}()
	go func() {
		defer m.wg.Done()
		m.RetryConnection(ctx)
	}()
}

// RetryConnection reconnects whenever MonitorConnection signals a failure.
func (m *MariaDB) RetryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-m.shutdownSignal:
			m.logger.Info("stopping mariadb retry loop due to shutdown signal", nil)
			return
		case <-ctx.Done():
			return
		case <-m.retryChanSignal:
		innerLoop:
			for {
				select {
				case <-m.shutdownSignal:
					return
				case <-ctx.Done():
					return
				default:
					newConn, err := connectToMariaDB(m.cfg, m.logger)
					if err != nil {
						m.logger.Error("mariadb reconnection failed", err)
						time.Sleep(retryBackoff)
						continue innerLoop
					}
					old := m.client.Swap(newConn)
					if sqlDB, err := old.DB(); err == nil {
						_ = sqlDB.Close()
					}
					m.logger.Info("reconnected to mariadb", nil)
					continue outerLoop
				}
			}
		}
	}
}

// MonitorConnection pings the database every ten seconds and signals
// RetryConnection when a ping fails.
func (m *MariaDB) MonitorConnection(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.shutdownSignal:
			m.logger.Info("stopping mariadb monitor loop due to shutdown signal", nil)
			return
		case <-ticker.C:
			if err := m.healthCheck(ctx); err != nil {
				select {
				case m.retryChanSignal <- err:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *MariaDB) healthCheck(ctx context.Context) error {
	dbConn := m.DB()
	if dbConn == nil {
		return fmt.Errorf("database client is not initialized")
	}

	db, err := dbConn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance during health check: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed during health check: %w", err)
	}
	return nil
}

// GracefulShutdown stops the background loops and closes the pool.
func (m *MariaDB) GracefulShutdown() error {
	var closeErr error
	m.closeShutdownOnce.Do(func() {
		close(m.shutdownSignal)
		m.wg.Wait()

		sqlDB, err := m.DB().DB()
		if err != nil {
			closeErr = err
			return
		}
		closeErr = sqlDB.Close()
	})
	return closeErr
}

type stdLogger struct{}

func (stdLogger) Info(msg string, err error, fields ...map[string]interface{}) {
	log.Printf("INFO: %s %v", msg, fields)
}

func (stdLogger) Error(msg string, err error, fields ...map[string]interface{}) {
	log.Printf("ERROR: %s: %v %v", msg, err, fields)
}
