package search

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Aleph-Alpha/accessor/v1/observability"
	"github.com/Aleph-Alpha/accessor/v1/sink"
	"github.com/elastic/go-elasticsearch/v8"
)

const (
	// DefaultOrderSize is the page size of GetOrder when none is given.
	DefaultOrderSize = 20
	// DefaultPageSize is the page size of GetPage when none is given.
	DefaultPageSize = 20
	// DefaultKeepAlive is how long a point-in-time snapshot survives between pages.
	DefaultKeepAlive = "10m"
)

// Config holds the connection settings of the Elasticsearch client.
type Config struct {
	// Addresses of the cluster nodes, e.g. "http://localhost:9200".
	Addresses []string `yaml:"addresses"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
	APIKey   string `yaml:"apiKey"`
	CloudID  string `yaml:"cloudId"`

	// CACertPath points to a PEM bundle trusted in addition to the system roots.
	CACertPath string `yaml:"caCertPath"`
	// InsecureSkipVerify disables TLS verification. Only for local development.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify"`

	// MaxRetries is handed to the client's retry loop; 0 keeps the client default.
	MaxRetries int `yaml:"maxRetries"`
	// ResponseTimeout bounds waiting for response headers; 0 means no limit.
	ResponseTimeout time.Duration `yaml:"responseTimeout"`
}

func (c Config) clientConfig() (elasticsearch.Config, error) {
	esCfg := elasticsearch.Config{
		Addresses:  c.Addresses,
		Username:   c.Username,
		Password:   c.Password,
		APIKey:     c.APIKey,
		CloudID:    c.CloudID,
		MaxRetries: c.MaxRetries,
	}

	if c.CACertPath != "" {
		cert, err := os.ReadFile(c.CACertPath)
		if err != nil {
			return esCfg, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		esCfg.CACert = cert
	}

	if c.InsecureSkipVerify || c.ResponseTimeout > 0 {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = c.ResponseTimeout
		if c.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
		esCfg.Transport = transport
	}
	return esCfg, nil
}

// Defaults is a request body merged beneath every search this index sends.
// Keys of the per-call request win on collision.
type Defaults map[string]any

type options struct {
	sink     sink.Config
	defaults Defaults
	refresh  string
	observer observability.Observer
	logger   sink.Logger
}

// Option configures an Index.
type Option func(*options)

// WithSink sets the debug and error reporting of every call.
func WithSink(cfg sink.Config) Option {
	return func(o *options) { o.sink = cfg }
}

// WithDefaults sets the base body of every search request, e.g. an analyzer
// or track_total_hits.
func WithDefaults(d Defaults) Option {
	return func(o *options) { o.defaults = d }
}

// WithRefresh sets the refresh parameter of writes: "true", "false" or "wait_for".
func WithRefresh(refresh string) Option {
	return func(o *options) { o.refresh = refresh }
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

func buildOptions(opts []Option) options {
	var o options
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
