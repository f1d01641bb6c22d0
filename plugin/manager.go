package plugin

import (
	"context"

	"github.com/n9te9/go-graphql-federation-gateway/common"
	"github.com/n9te9/go-graphql-federation-gateway/engine"
)

// Manager runs an ordered list of plugins through the six hooks, honoring
// the short-circuit contract of spec §4.2/§8: once a plugin sets
// rec.ShortCircuitResponse during hooks 1-4, plugins registered after it are
// skipped for the remainder of hooks 1-5; hook 6 always runs, on every
// plugin, regardless of short-circuit state.
type Manager struct {
	plugins []Plugin
}

// NewManager builds a Manager from plugins in declaration order. Order is
// significant and preserved verbatim.
func NewManager(plugins ...Plugin) *Manager {
	return &Manager{plugins: plugins}
}

// Plugins returns the registered plugins in registration order.
func (m *Manager) Plugins() []Plugin {
	return m.plugins
}

// RunDownstreamHTTPRequest runs hook 1 on every plugin until one short-circuits.
func (m *Manager) RunDownstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext) {
	for _, p := range m.plugins {
		if rec.IsShortCircuited() {
			return
		}
		p.OnDownstreamHTTPRequest(ctx, rec)
	}
}

// RunDownstreamGraphQLRequest runs hook 2.
func (m *Manager) RunDownstreamGraphQLRequest(ctx context.Context, rec *engine.RequestExecutionContext, src Source) {
	for _, p := range m.plugins {
		if rec.IsShortCircuited() {
			return
		}
		p.OnDownstreamGraphQLRequest(ctx, rec, src)
	}
}

// RunUpstreamGraphQLRequest runs hook 3. Callers must check rec.IsShortCircuited
// beforehand; this hook has no REC argument per spec §4.2.
func (m *Manager) RunUpstreamGraphQLRequest(ctx context.Context, req *common.GraphQLRequest) {
	for _, p := range m.plugins {
		p.OnUpstreamGraphQLRequest(ctx, req)
	}
}

// RunUpstreamHTTPRequest runs hook 4.
func (m *Manager) RunUpstreamHTTPRequest(ctx context.Context, rec *engine.RequestExecutionContext, req *common.HttpRequest) {
	for _, p := range m.plugins {
		if rec.IsShortCircuited() {
			return
		}
		p.OnUpstreamHTTPRequest(ctx, rec, req)
	}
}

// RunUpstreamHTTPResponse runs hook 5 on every plugin until one short-circuits.
// It runs on no plugin when the request was short-circuited before upstream
// dispatch (spec §4.2).
func (m *Manager) RunUpstreamHTTPResponse(ctx context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse, upstreamErr error) {
	for _, p := range m.plugins {
		if rec.IsShortCircuited() {
			return
		}
		p.OnUpstreamHTTPResponse(ctx, rec, resp, upstreamErr)
	}
}

// RunDownstreamHTTPResponse runs hook 6, unconditionally, on every plugin.
func (m *Manager) RunDownstreamHTTPResponse(ctx context.Context, rec *engine.RequestExecutionContext, resp *common.HttpResponse) {
	for _, p := range m.plugins {
		p.OnDownstreamHTTPResponse(ctx, rec, resp)
	}
}
