package postgres

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	healthCheckInterval = 10 * time.Second
	healthCheckTimeout  = 5 * time.Second
	retryBackoff        = time.Second
)

// Postgres is a wrapper around gorm.DB that provides connection monitoring
// and automatic reconnection.
//
// Concurrency: the active `*gorm.DB` pointer is stored in an atomic pointer and can be
// swapped during reconnection without blocking readers.
type Postgres struct {
	cfg             Config
	logger          Logger
	client          atomic.Pointer[gorm.DB]
	shutdownSignal  chan struct{}
	retryChanSignal chan error

	wg                sync.WaitGroup
	closeShutdownOnce sync.Once
}

// NewPostgres opens the initial connection. A nil logger falls back to the
// standard library log package.
func NewPostgres(cfg Config, logger Logger) (*Postgres, error) {
	if logger == nil {
		logger = stdLogger{}
	}

	conn, err := connectToPostgres(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("error in connecting to postgres: %w", err)
	}

	pg := &Postgres{
		cfg:             cfg,
		logger:          logger,
		shutdownSignal:  make(chan struct{}),
		retryChanSignal: make(chan error, 1),
	}
	pg.client.Store(conn)
	return pg, nil
}

// connectToPostgres opens a GORM session and applies the pool settings.
func connectToPostgres(cfg Config, logger Logger) (*gorm.DB, error) {
	database, err := gorm.Open(
		postgres.Open(cfg.Connection.DSN()),
		&gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgresSQL database: %w", err)
	}

	databaseInstance, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgresSQL database instance: %w", err)
	}

	maxOpen := cfg.ConnectionDetails.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 50
	}
	maxIdle := cfg.ConnectionDetails.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 25
	}
	maxLifetime := cfg.ConnectionDetails.ConnMaxLifetime
	if maxLifetime <= 0 {
		maxLifetime = time.Minute
	}

	databaseInstance.SetMaxOpenConns(maxOpen)
	databaseInstance.SetMaxIdleConns(maxIdle)
	databaseInstance.SetConnMaxLifetime(maxLifetime)

	logger.Info("connected to postgres", nil, map[string]interface{}{
		"host":     cfg.Connection.Host,
		"database": cfg.Connection.DbName,
	})

	return database, nil
}

// DB returns the current connection. The pointer may change after a reconnect,
// so callers should not cache it across long-lived operations.
func (p *Postgres) DB() *gorm.DB {
	return p.client.Load()
}

// Start launches the monitor and retry loops. They stop when ctx is done or
// GracefulShutdown is called.
func (p *Postgres) Start(ctx context.Context) {
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.MonitorConnection(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.RetryConnection(ctx)
	}()
}

// RetryConnection reconnects whenever MonitorConnection signals a failure.
//
// It implements two nested loops:
// - The outer loop waits for retry signals
// - The inner loop attempts reconnection until successful
func (p *Postgres) RetryConnection(ctx context.Context) {
outerLoop:
	for {
		select {
		case <-p.shutdownSignal:
			p.logger.Info("stopping postgres retry loop due to shutdown signal", nil)
			return
		case <-ctx.Done():
			return
		case <-p.retryChanSignal:
		innerLoop:
			for {
				select {
				case <-p.shutdownSignal:
					return
				case <-ctx.Done():
					return
				default:
					newConn, err := connectToPostgres(p.cfg, p.logger)
					if err != nil {
						p.logger.Error("postgres reconnection failed", err)
						time.Sleep(retryBackoff)
						continue innerLoop
					}
					old := p.client.Swap(newConn)
					if sqlDB, err := old.DB(); err == nil {
						_ = sqlDB.Close()
					}
					p.logger.Info("reconnected to postgres", nil)
					continue outerLoop
				}
			}
		}
	}
}

// MonitorConnection pings the database every ten seconds and signals
// RetryConnection when a ping fails.
func (p *Postgres) MonitorConnection(ctx context.Context) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdownSignal:
			p.logger.Info("stopping postgres monitor loop due to shutdown signal", nil)
			return
		case <-ticker.C:
			if err := p.healthCheck(ctx); err != nil {
				select {
				case p.retryChanSignal <- err:
				default:
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

// healthCheck snapshots the current *gorm.DB and pings it with a five second timeout.
func (p *Postgres) healthCheck(ctx context.Context) error {
	dbConn := p.DB()
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

// GracefulShutdown stops the background loops and closes the pool. It is safe
// to call more than once.
func (p *Postgres) GracefulShutdown() error {
	var closeErr error
	p.closeShutdownOnce.Do(func() {
		close(p.shutdownSignal)
		p.wg.Wait()

		sqlDB, err := p.DB().DB()
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
