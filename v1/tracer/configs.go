package tracer

// Config defines the tracer settings.
type Config struct {
	// ServiceName is recorded as the service.name resource attribute.
	ServiceName string `yaml:"service_name" env:"TRACER_SERVICE_NAME"`

	// AppEnv is recorded as deployment.environment, e.g. "production".
	AppEnv string `yaml:"app_env" env:"APP_ENV"`

	// EnableExport sends spans to an OTLP/HTTP collector. Without it spans are
	// created and propagated but dropped at the end.
	EnableExport bool `yaml:"enable_export" env:"TRACER_ENABLE_EXPORT"`

	// Endpoint is the collector host:port. Empty uses the OTEL_EXPORTER_OTLP_*
	// environment variables, then localhost:4318.
	Endpoint string `yaml:"endpoint" env:"TRACER_ENDPOINT"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure" env:"TRACER_INSECURE"`

	// SampleRatio is the fraction of new traces recorded. 0 records all.
	SampleRatio float64 `yaml:"sample_ratio" env:"TRACER_SAMPLE_RATIO"`
}
