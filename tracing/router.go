package tracing

import (
	"context"
	"fmt"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Router is the routing reporter from spec §9: it owns one TracerProvider
// per tenant (each batching spans asynchronously to that tenant's configured
// backend via sdktrace.WithBatcher, just like the teacher's InitTracer), and
// hands out a Tracer for a given tenant id on demand. Concurrent use is
// safe; providers are immutable once built.
type Router struct {
	mu        sync.RWMutex
	providers map[uint32]*sdktrace.TracerProvider
	defaultBE *Backend
	perTenant map[uint32]*Backend
}

// NewRouter builds a Router. defaultBackend is used for any tenant not
// present in perTenant.
func NewRouter(defaultBackend *Backend, perTenant map[uint32]*Backend) *Router {
	return &Router{
		providers: make(map[uint32]*sdktrace.TracerProvider),
		defaultBE: defaultBackend,
		perTenant: perTenant,
	}
}

// TracerFor returns the Tracer for tenantID, lazily building its
// TracerProvider on first use.
func (r *Router) TracerFor(tenantID uint32) oteltrace.Tracer {
	r.mu.RLock()
	tp, ok := r.providers[tenantID]
	r.mu.RUnlock()
	if ok {
		return tp.Tracer("federation-gateway")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if tp, ok = r.providers[tenantID]; ok {
		return tp.Tracer("federation-gateway")
	}

	be := r.perTenant[tenantID]
	if be == nil {
		be = r.defaultBE
	}

	tp = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(be.exporter),
		sdktrace.WithIDGenerator(TenantIDGenerator{TenantID: tenantID}),
	)
	r.providers[tenantID] = tp
	return tp.Tracer("federation-gateway")
}

// TracerForTraceID routes by the tenant embedded in an existing trace id,
// for spans started as children of one begun elsewhere in the pipeline.
func (r *Router) TracerForTraceID(traceID oteltrace.TraceID) oteltrace.Tracer {
	return r.TracerFor(TenantFromTraceID(traceID))
}

// Shutdown flushes and closes every tenant's TracerProvider.
func (r *Router) Shutdown(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for tenantID, tp := range r.providers {
		if err := tp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown tracer provider for tenant %d: %w", tenantID, err)
		}
	}
	return firstErr
}
