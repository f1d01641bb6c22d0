// Package tracing implements the telemetry plugin's reporter back end: a
// trace-id layout that embeds a tenant id (spec §6), and a routing reporter
// that fans spans out to per-tenant exporters (stdout, OTLP, Jaeger,
// Datadog), matching the teacher's existing OTel-based tracing setup
// (gateway/tracer.go's InitTracer) generalized to multiple tenants.
package tracing

import (
	"context"
	"encoding/binary"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TenantIDGenerator is an sdktrace.IDGenerator that lays out new root trace
// ids with the tenant id in the upper 32 bits and a random fill (seeded by
// google/uuid, the teacher's id-generation library of choice) in the lower
// 96 bits, per spec §6's trace id layout.
type TenantIDGenerator struct {
	TenantID uint32
}

var _ trace.IDGenerator = TenantIDGenerator{}

// NewIDs returns a trace id whose upper 32 bits equal TenantID, and a fresh
// random span id.
func (g TenantIDGenerator) NewIDs(ctx context.Context) (oteltrace.TraceID, oteltrace.SpanID) {
	var tid oteltrace.TraceID
	binary.BigEndian.PutUint32(tid[0:4], g.TenantID)

	fill := uuid.New()
	copy(tid[4:16], fill[:12])

	return tid, g.NewSpanID(ctx, tid)
}

// NewSpanID returns a fresh random span id, independent of traceID.
func (g TenantIDGenerator) NewSpanID(_ context.Context, _ oteltrace.TraceID) oteltrace.SpanID {
	var sid oteltrace.SpanID
	fill := uuid.New()
	copy(sid[:], fill[:8])
	return sid
}

// TenantFromTraceID extracts the tenant id embedded in the upper 32 bits of
// traceID, the inverse of TenantIDGenerator.NewIDs.
func TenantFromTraceID(traceID oteltrace.TraceID) uint32 {
	return binary.BigEndian.Uint32(traceID[0:4])
}
