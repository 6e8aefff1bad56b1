package kv

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/redis/go-redis/v9"
)

const component = "kv"

// Store is the accessor for a Redis keyspace, optionally narrowed to a key
// prefix.
//
// Concurrency: all methods are safe for concurrent use.
type Store struct {
	client redis.UniversalClient
	prefix string
	sink   *sink.Sink
	clock  func() time.Time
	// owned is true when Close closes client.
	owned bool
}

// New opens a dedicated standalone or cluster client.
//
// Example:
//
//	store, err := kv.New(kv.Config{
//		Host:      "localhost",
//		Port:      6379,
//		KeyPrefix: "session:",
//	})
//	if err != nil {
//		return err
//	}
//	defer store.Close()
func New(cfg Config, opts ...Option) (*Store, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	s := newStore(client, buildOptions(cfg.KeyPrefix, opts))
	s.owned = true
	return s, nil
}

// NewFromClient wraps a caller-owned client. Close does not close it.
func NewFromClient(client redis.UniversalClient, opts ...Option) *Store {
	return newStore(client, buildOptions("", opts))
}

func newStore(client redis.UniversalClient, o options) *Store {
	resource := o.prefix
	if resource == "" {
		resource = "*"
	}
	return &Store{
		client: client,
		prefix: o.prefix,
		sink:   sink.New(component, resource, o.sink, classify),
		clock:  o.clock,
	}
}

func newClient(cfg Config) (redis.UniversalClient, error) {
	cfg.applyDefaults()

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		serverName := cfg.Host
		if len(cfg.Addrs) > 0 {
			serverName = ""
		}
		var err error
		tlsConfig, err = createTLSConfig(cfg.TLS, serverName)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	if len(cfg.Addrs) > 0 {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:           cfg.Addrs,
			Username:        cfg.Username,
			Password:        cfg.Password,
			MaxRedirects:    cfg.MaxRedirects,
			PoolSize:        cfg.PoolSize,
			MinIdleConns:    cfg.MinIdleConns,
			ConnMaxLifetime: cfg.MaxConnAge,
			PoolTimeout:     cfg.PoolTimeout,
			ConnMaxIdleTime: cfg.IdleTimeout,
			MaxRetries:      cfg.MaxRetries,
			DialTimeout:     cfg.DialTimeout,
			ReadTimeout:     cfg.ReadTimeout,
			WriteTimeout:    cfg.WriteTimeout,
			TLSConfig:       tlsConfig,
		}), nil
	}

	return redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxLifetime: cfg.MaxConnAge,
		PoolTimeout:     cfg.PoolTimeout,
		ConnMaxIdleTime: cfg.IdleTimeout,
		MaxRetries:      cfg.MaxRetries,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		TLSConfig:       tlsConfig,
	}), nil
}

// createTLSConfig creates a TLS configuration from the provided config
func createTLSConfig(cfg TLSConfig, defaultServerName string) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.ServerName != "" {
		tlsConfig.ServerName = cfg.ServerName
	} else if defaultServerName != "" {
		tlsConfig.ServerName = defaultServerName
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Client returns the underlying go-redis client. Keys passed to it are not
// prefixed.
func (s *Store) Client() redis.UniversalClient { return s.client }

// Prefix returns the key prefix of the store.
func (s *Store) Prefix() string { return s.prefix }

// Ping checks if the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := sink.Run(ctx, s.sink, "ping", func(ctx context.Context, call *sink.Call) (struct{}, error) {
		return struct{}{}, s.client.Ping(ctx).Err()
	})
	return err
}

// Close releases the client if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}

func (s *Store) key(k string) string { return s.prefix + k }

func (s *Store) keys(ks []string) []string {
	if s.prefix == "" {
		return ks
	}
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = s.prefix + k
	}
	return out
}

func (s *Store) strip(k string) string { return strings.TrimPrefix(k, s.prefix) }
