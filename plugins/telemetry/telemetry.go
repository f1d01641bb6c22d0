// Package telemetry implements the telemetry plugin from spec §4.3: a root
// span per request (trace id embedding the REC's tenant id), a child
// graphql_execute span in hook 2, and a client span wrapping the upstream
// HTTP round trip, using attributes named after OpenTelemetry's semantic
// conventions directly (the pack carries no semconv module to import).
package telemetry

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
	"github.com/n9te9/go-graphql-federation-gateway/plugin"
	"github.com/n9te9/go-graphql-federation-gateway/tracing"
	"github.com/n9te9/graphql-parser/ast"
)

const (
	ctxKeyRootCtx  = "telemetry.root_ctx"
	ctxKeyRootSpan = "telemetry.root_span"
	ctxKeyUpSpan   = "telemetry.upstream_span"
)

// Plugin emits OTel spans across the request lifecycle, routed per tenant
// through a tracing.Router.
type Plugin struct {
	plugin.NoopPlugin
	Router *tracing.Router
}

var _ plugin.Plugin = (*Plugin)(nil)

func New(router *tracing.Router) *Plugin {
	return &Plugin{Router: router}
}

func (p *Plugin) Name() string { return "telemetry" }

func (p *Plugin) OnDownstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext) {
	tracer := p.Router.TracerFor(rec.TenantID)
	spanCtx, span := tracer.Start(ctx, "downstream_http_request")
	rec.Context[ctxKeyRootCtx] = spanCtx
	rec.Context[ctxKeyRootSpan] = span
}

func (p *Plugin) OnDownstreamGraphQLRequest(_ context.Context, rec *engine.RequestExecutionContext, _ plugin.Source) {
	rootCtx, ok := rec.Context[ctxKeyRootCtx].(context.Context)
	if !ok || rec.DownstreamGraphQLRequest == nil {
		return
	}

	tracer := p.Router.TracerFor(rec.TenantID)
	operationType := operationTypeOf(rec.DownstreamGraphQLRequest.Document)
	operationName := rec.DownstreamGraphQLRequest.Request.OperationName

	_, span := tracer.Start(rootCtx, "graphql_execute", oteltrace.WithAttributes(
		attribute.String("graphql.document", rec.DownstreamGraphQLRequest.Request.Query),
		attribute.String("graphql.operation.type", operationType),
		attribute.String("graphql.operation.name", operationName),
	))
	span.End()
}

func (p *Plugin) OnUpstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext, req *common.HttpRequest) {
	rootCtx, ok := rec.Context[ctxKeyRootCtx].(context.Context)
	if !ok {
		rootCtx = ctx
	}

	tracer := p.Router.TracerFor(rec.TenantID)
	attrs := []attribute.KeyValue{
		attribute.String("http.method", req.Method),
		attribute.String("otel.kind", "client"),
	}
	if u, err := url.Parse(req.URI); err == nil {
		attrs = append(attrs,
			attribute.String("http.scheme", u.Scheme),
			attribute.String("http.host", u.Host),
			attribute.String("http.url", req.URI),
		)
		if port := u.Port(); port != "" {
			attrs = append(attrs, attribute.String("net.host.port", port))
		}
	}

	_, span := tracer.Start(rootCtx, "upstream_http_request", oteltrace.WithAttributes(attrs...))
	rec.Context[ctxKeyUpSpan] = span
}

func (p *Plugin) OnUpstreamHTTPResponse(_ context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse, upstreamErr error) {
	span, ok := rec.Context[ctxKeyUpSpan].(oteltrace.Span)
	if !ok {
		return
	}
	defer span.End()

	if upstreamErr != nil {
		span.RecordError(upstreamErr)
		span.SetStatus(codes.Error, upstreamErr.Error())
		return
	}
	if resp == nil {
		return
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, "upstream returned an error status")
	}
}

func (p *Plugin) OnDownstreamHTTPResponse(_ context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse) {
	span, ok := rec.Context[ctxKeyRootSpan].(oteltrace.Span)
	if !ok {
		return
	}
	defer span.End()

	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
}

// operationTypeOf returns "query", "mutation", or "subscription" for the
// document's single executable operation, defaulting to "query" for a
// document with no operation definition (the same default the GraphQL spec
// itself applies to an anonymous shorthand query).
func operationTypeOf(doc *ast.Document) string {
	if doc == nil {
		return "query"
	}
	for _, def := range doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		switch op.Operation {
		case ast.Mutation:
			return "mutation"
		case ast.Subscription:
			return "subscription"
		default:
			return "query"
		}
	}
	return "query"
}
