package kv

import (
	"time"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
)

// Config defines the connection settings of the key-value store.
// A non-empty Addrs selects Redis Cluster mode; Host and Port are then ignored.
type Config struct {
	// Host is the Redis server hostname or IP address
	// Default: "localhost"
	Host string `yaml:"host"`

	// Port is the Redis server port
	// Default: 6379
	Port int `yaml:"port"`

	// Addrs is a seed list of cluster nodes
	// Example: []string{"localhost:7000", "localhost:7001", "localhost:7002"}
	Addrs []string `yaml:"addrs"`

	// Username is the Redis username for ACL authentication (Redis 6.0+)
	Username string `yaml:"username"`

	// Password is the Redis password for authentication
	Password string `yaml:"password"`

	// DB is the Redis database number. Not supported in cluster mode.
	DB int `yaml:"db"`

	// KeyPrefix is prepended to every key and set name the store touches and
	// stripped from the names Keys returns.
	KeyPrefix string `yaml:"keyPrefix"`

	// PoolSize is the maximum number of socket connections
	// Default: 10 per CPU
	PoolSize int `yaml:"poolSize"`

	// MinIdleConns is the minimum number of idle connections to maintain
	MinIdleConns int `yaml:"minIdleConns"`

	// MaxConnAge is the maximum duration a connection can be reused
	MaxConnAge time.Duration `yaml:"maxConnAge"`

	// PoolTimeout is the amount of time to wait for a connection from the pool
	// Default: ReadTimeout + 1 second
	PoolTimeout time.Duration `yaml:"poolTimeout"`

	// IdleTimeout is the amount of time after which idle connections are closed
	// Default: 5 minutes
	IdleTimeout time.Duration `yaml:"idleTimeout"`

	// MaxRetries is the maximum number of retries before giving up
	// Default: 3
	// Set to -1 to disable retries
	MaxRetries int `yaml:"maxRetries"`

	// MaxRedirects is the maximum number of MOVED/ASK redirects in cluster mode
	// Default: 3
	MaxRedirects int `yaml:"maxRedirects"`

	// DialTimeout is the timeout for establishing new connections
	// Default: 5 seconds
	DialTimeout time.Duration `yaml:"dialTimeout"`

	// ReadTimeout is the timeout for socket reads
	// Default: 3 seconds
	ReadTimeout time.Duration `yaml:"readTimeout"`

	// WriteTimeout is the timeout for socket writes
	// Default: ReadTimeout
	WriteTimeout time.Duration `yaml:"writeTimeout"`

	// TLS contains TLS/SSL configuration
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS/SSL configuration parameters.
type TLSConfig struct {
	Enabled bool `yaml:"enabled"`

	// CACertPath is the file path to the CA certificate for verifying the server
	CACertPath string `yaml:"caCertPath"`

	ClientCertPath string `yaml:"clientCertPath"`
	ClientKeyPath  string `yaml:"clientKeyPath"`

	// InsecureSkipVerify skips verification of the server's certificate.
	// Only for testing.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`

	// ServerName is used to verify the hostname on the returned certificates
	// If empty, Host is used
	ServerName string `yaml:"serverName"`
}

// Default values for configuration
const (
	DefaultHost         = "localhost"
	DefaultPort         = 6379
	DefaultIdleTimeout  = 5 * time.Minute
	DefaultMaxRetries   = 3
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultMaxRedirects = 3
)

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxRedirects == 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
}

type options struct {
	sink     sink.Config
	prefix   string
	observer observability.Observer
	logger   sink.Logger
	clock    func() time.Time
}

// Option configures a Store.
type Option func(*options)

// WithSink sets the debug and error reporting of every call.
func WithSink(cfg sink.Config) Option {
	return func(o *options) { o.sink = cfg }
}

// WithKeyPrefix overrides Config.KeyPrefix; for NewFromClient it is the only
// way to set a prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithObserver reports every call to observer in addition to any observer in
// the sink config.
func WithObserver(observer observability.Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithLogger backs the default debug and error destinations when the sink
// config carries none.
func WithLogger(logger sink.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces time.Now when AddUntil converts deadlines to TTLs.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

func buildOptions(prefix string, opts []Option) options {
	o := options{prefix: prefix, clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.observer != nil {
		o.sink.Observer = observability.Multi(o.sink.Observer, o.observer)
	}
	if o.sink.Logger == nil && o.logger != nil {
		o.sink.Logger = o.logger
	}
	return o
}
