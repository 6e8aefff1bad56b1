// Package tracer configures OpenTelemetry tracing for the process.
//
// NewClient installs a global TracerProvider; every accessor call (table,
// search, kv) then opens a span named "<component>.<operation>" carrying the
// accessor.component, accessor.operation and accessor.resource attributes.
// With EnableExport the spans are sent to an OTLP/HTTP collector.
package tracer
