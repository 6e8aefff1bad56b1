package metrics

// Config defines the Prometheus metrics settings.
type Config struct {
	// Address is where the /metrics endpoint listens, e.g. ":9090".
	// Empty keeps the registry but starts no server.
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers the Go runtime, process and build
	// info collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes every metric name, e.g. "pharia_data" turns
	// accessor_operations_total into pharia_data_accessor_operations_total.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName is attached to every metric as the "service" label.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`

	// DurationBuckets overrides the latency histogram buckets (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`
}
