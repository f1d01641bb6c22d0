// Package plugin defines the six-hook plugin lifecycle (spec §4.2) and the
// ordered Manager that runs registered plugins through it with short-circuit
// propagation.
package plugin

import (
	"context"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
)

// Source is the narrow view of a source runtime a plugin needs during
// extraction (hook 2), enough to let HTTP-GET and trusted-documents install
// a GraphQL request without depending on the full source.Source interface.
type Source interface {
	ID() string
}

// Plugin is the capability set every concrete plugin implements. A plugin
// need not do anything interesting in every hook; embed NoopPlugin to get
// no-op defaults for hooks it does not care about.
type Plugin interface {
	Name() string

	OnDownstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext)
	OnDownstreamGraphQLRequest(ctx context.Context, rec *engine.RequestExecutionContext, src Source)
	OnUpstreamGraphQLRequest(ctx context.Context, req *common.GraphQLRequest)
	OnUpstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext, req *common.HttpRequest)
	OnUpstreamHTTPResponse(ctx context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse, upstreamErr error)
	OnDownstreamHTTPResponse(ctx context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse)
}

// NoopPlugin supplies empty bodies for all six hooks. Concrete plugins embed
// it and override only the hooks they implement, matching the teacher's
// pattern of small single-purpose types.
type NoopPlugin struct{}

func (NoopPlugin) OnDownstreamHTTPRequest(context.Context, *engine.RequestExecutionContext) {}
func (NoopPlugin) OnDownstreamGraphQLRequest(context.Context, *engine.RequestExecutionContext, Source) {
}
func (NoopPlugin) OnUpstreamGraphQLRequest(context.Context, *common.GraphQLRequest) {}
func (NoopPlugin) OnUpstreamHTTPRequest(context.Context, *engine.RequestExecutionContext, *common.HttpRequest) {
}
func (NoopPlugin) OnUpstreamHTTPResponse(context.Context, *engine.RequestExecutionContext, *common.HttpResponse, error) {
}
func (NoopPlugin) OnDownstreamHTTPResponse(context.Context, *engine.RequestExecutionContext, *common.HttpResponse) {
}
