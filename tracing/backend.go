package tracing

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Backend names one of the span export destinations spec §2/§6 names.
type Backend struct {
	Name     string
	exporter sdktrace.SpanExporter
}

// NewStdoutBackend writes spans to stdout, for local development - the
// simplest of the teacher's OTel exporter wiring, extended with its own
// reporter name so the router can address it per tenant.
func NewStdoutBackend() (*Backend, error) {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return &Backend{Name: "stdout", exporter: exp}, nil
}

// NewOTLPBackend ships spans over OTLP/HTTP to endpoint, exactly as the
// teacher's InitTracer does for its single default backend.
func NewOTLPBackend(ctx context.Context, name, endpoint string) (*Backend, error) {
	exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}
	return &Backend{Name: name, exporter: exp}, nil
}

// NewJaegerBackend ships spans to a Jaeger collector over its OTLP/HTTP
// ingest endpoint. The pack carries no dedicated Jaeger SDK, and modern
// Jaeger collectors accept OTLP natively, so this is the same OTLP exporter
// wiring as NewOTLPBackend pointed at a different collector.
func NewJaegerBackend(ctx context.Context, endpoint string) (*Backend, error) {
	return NewOTLPBackend(ctx, "jaeger", endpoint)
}

// NewDatadogBackend ships spans to the Datadog Agent's OTLP/HTTP ingest
// endpoint, for the same reason as NewJaegerBackend: no dedicated Datadog
// SDK is in the pack, and the Datadog Agent accepts OTLP natively.
func NewDatadogBackend(ctx context.Context, endpoint string) (*Backend, error) {
	return NewOTLPBackend(ctx, "datadog", endpoint)
}
