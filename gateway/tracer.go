package gateway

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// InitTracer installs a process-wide OTLP/HTTP tracer provider and returns
// its shutdown function, matching the shape server.Run expects. serviceName
// and version are attached as resource attributes by the OTLP collector
// configuration rather than embedded here, keeping this to exactly the
// exporter wiring the teacher's otelhttp instrumentation needs to function.
func InitTracer(ctx context.Context, serviceName, version string) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
